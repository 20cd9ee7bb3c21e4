// Package rbc implements the Bracha/CKPS-style reliable broadcast of
// agreement, integrity and totality over an asynchronous
// point-to-point network tolerating t < n/3 Byzantine parties, with
// nested sub-sessions and a sync barrier.
package rbc

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/tmcgcore/pkg/party"
)

// Tag identifies an RBC wire message kind, matching the wire tag
// byte.
type Tag byte

const (
	TagSend  Tag = 1
	TagEcho  Tag = 2
	TagReady Tag = 3
	TagSync  Tag = 4
)

// wireMessage is the on-the-wire RBC frame: tag byte,
// session ID length+bytes, sender index (2 bytes), sequence number (8
// bytes), and either the full payload (SEND, SYNC) or a 32-byte hash
// (ECHO, READY).
type wireMessage struct {
	Tag       Tag
	SessionID string
	Sender    party.ID
	Seq       uint64
	Payload   []byte // full message for SEND/SYNC
	Hash      []byte // 32 bytes for ECHO/READY
}

func (m *wireMessage) encode() []byte {
	sid := []byte(m.SessionID)
	body := m.Payload
	if m.Tag == TagEcho || m.Tag == TagReady {
		body = m.Hash
	}
	buf := make([]byte, 0, 1+2+len(sid)+2+8+4+len(body))
	buf = append(buf, byte(m.Tag))

	var sidLen [2]byte
	binary.BigEndian.PutUint16(sidLen[:], uint16(len(sid)))
	buf = append(buf, sidLen[:]...)
	buf = append(buf, sid...)

	var sender [2]byte
	binary.BigEndian.PutUint16(sender[:], uint16(m.Sender))
	buf = append(buf, sender[:]...)

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], m.Seq)
	buf = append(buf, seq[:]...)

	var bodyLen [4]byte
	binary.BigEndian.PutUint32(bodyLen[:], uint32(len(body)))
	buf = append(buf, bodyLen[:]...)
	buf = append(buf, body...)
	return buf
}

func decodeWireMessage(buf []byte) (*wireMessage, error) {
	if len(buf) < 1+2 {
		return nil, fmt.Errorf("rbc: truncated message")
	}
	tag := Tag(buf[0])
	pos := 1
	sidLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if len(buf)-pos < sidLen {
		return nil, fmt.Errorf("rbc: truncated session id")
	}
	sid := string(buf[pos : pos+sidLen])
	pos += sidLen

	if len(buf)-pos < 2+8+4 {
		return nil, fmt.Errorf("rbc: truncated header")
	}
	sender := party.ID(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	seq := binary.BigEndian.Uint64(buf[pos : pos+8])
	pos += 8
	bodyLen := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if len(buf)-pos < bodyLen {
		return nil, fmt.Errorf("rbc: truncated body")
	}
	body := buf[pos : pos+bodyLen]

	m := &wireMessage{Tag: tag, SessionID: sid, Sender: sender, Seq: seq}
	if tag == TagEcho || tag == TagReady {
		m.Hash = body
	} else {
		m.Payload = body
	}
	return m, nil
}
