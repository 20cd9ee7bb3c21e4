package aiou

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"crypto/sha256"
)

// PeerState is the per-pair transport state: an
// input descriptor, output descriptor, and a symmetric key derived from
// a caller-supplied string, plus the observability counters.
type PeerState struct {
	link Link
	aead cipher.AEAD

	writeSeq uint64
	readSeq  uint64

	numRead          uint64
	numWrite         uint64
	numEncrypted     uint64
	numDecrypted     uint64
	numAuthenticated uint64

	unreachable atomic.Bool

	mu sync.Mutex
}

// deriveKey stretches a caller-supplied shared secret string into an
// AEAD key via HKDF, a symmetric key derived from a
// caller-supplied string".
func deriveKey(secret string, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(secret), salt, []byte("tmcgcore/aiou"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("aiou: deriving key: %w", err)
	}
	return key, nil
}

// newPeerState builds per-pair state from a Link and shared secret.
func newPeerState(link Link, secret string, salt []byte) (*PeerState, error) {
	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aiou: building AEAD: %w", err)
	}
	return &PeerState{link: link, aead: aead}, nil
}

// frame is (8-byte counter, length prefix, ciphertext+tag), matching
// the AIOU frame layout.
func (p *PeerState) send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unreachable.Load() {
		return fmt.Errorf("aiou: peer unreachable")
	}
	seq := p.writeSeq
	p.writeSeq++

	nonce := make([]byte, p.aead.NonceSize())
	binary.BigEndian.PutUint64(nonce[len(nonce)-8:], seq)
	ciphertext := p.aead.Seal(nil, nonce, payload, nil)
	p.numEncrypted++

	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(len(ciphertext)))

	if _, err := p.link.Write(hdr[:]); err != nil {
		p.unreachable.Store(true)
		return fmt.Errorf("aiou: write failed, peer unreachable: %w", err)
	}
	if _, err := p.link.Write(ciphertext); err != nil {
		p.unreachable.Store(true)
		return fmt.Errorf("aiou: write failed, peer unreachable: %w", err)
	}
	p.numWrite++
	return nil
}

// receiveOnce reads and authenticates exactly one frame, enforcing the
// strictly-increasing sequence-number check: a
// message with a sequence number not equal to the expected next one is
// dropped (out of order or replayed).
func (p *PeerState) receiveOnce() ([]byte, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(p.link, hdr[:]); err != nil {
		return nil, err
	}
	seq := binary.BigEndian.Uint64(hdr[0:8])
	length := binary.BigEndian.Uint64(hdr[8:16])
	ciphertext := make([]byte, length)
	if _, err := io.ReadFull(p.link, ciphertext); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.numRead++

	if seq != p.readSeq {
		// Out of order or replayed: dropped silently.
		return nil, errDropped
	}
	nonce := make([]byte, p.aead.NonceSize())
	binary.BigEndian.PutUint64(nonce[len(nonce)-8:], seq)
	plaintext, err := p.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errDropped
	}
	p.numAuthenticated++
	p.numDecrypted++
	p.readSeq++
	return plaintext, nil
}

var errDropped = fmt.Errorf("aiou: message dropped (replay or authentication failure)")

// Counters snapshots the channel's observability counters.
type Counters struct {
	NumRead, NumWrite, NumEncrypted, NumDecrypted, NumAuthenticated uint64
}

// Counters returns a snapshot of this peer's counters.
func (p *PeerState) Counters() Counters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counters{
		NumRead:          p.numRead,
		NumWrite:         p.numWrite,
		NumEncrypted:     p.numEncrypted,
		NumDecrypted:     p.numDecrypted,
		NumAuthenticated: p.numAuthenticated,
	}
}

// Unreachable reports whether this peer's channel has collapsed: its
// descriptors are gone, sends fail, receives will time out (the
// unreachable failure mode). The channel never attempts reconnection.
func (p *PeerState) Unreachable() bool { return p.unreachable.Load() }
