// Package edcf implements the Jarecki-Lysyanskaya distributed coin flip
// a reliable-broadcast commit/open round over Pedersen
// commitments yielding a value in Z_q unpredictable to any adversary
// controlling up to t parties.
package edcf

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/protocolerr"
	"github.com/luxfi/tmcgcore/pkg/rbc"
)

// commitMsg and openMsg travel over the rbc.Session using CBOR framing,
// matching the round-message convention used everywhere else in this
// module except the fixed wire formats.
type commitMsg struct {
	C []byte // Pedersen commitment, big-endian
}

type openMsg struct {
	C []byte // the committed scalar c_i, big-endian
	R []byte // the commitment randomness, big-endian
}

// Flip runs one instance of the distributed coin flip among the
// parties attached to sess, under a fresh sub-session namespace so
// repeated flips (or a caller-driven retry after failure) never
// collide with each other or with surrounding protocol traffic.
//
// t is the Byzantine/adversary bound ("an adversary
// controlling t parties"); a successful flip requires at least
// n-t verified openings.
func Flip(r io.Reader, sess *rbc.Session, parties []party.ID, t int, grp *group.Group, params *pedersen.Params, label string, timeout time.Duration) (*bigint.Int, error) {
	sess.SetID("edcf/" + label)
	defer sess.UnsetID()

	n := len(parties)
	need := n - t

	ci, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, fmt.Errorf("edcf: sampling c_i: %w", err)
	}
	ri, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, fmt.Errorf("edcf: sampling r_i: %w", err)
	}
	commitment, err := params.Commit(ci, ri)
	if err != nil {
		return nil, fmt.Errorf("edcf: committing: %w", err)
	}

	deadline := time.Now().Add(timeout)

	commitBytes, err := cbor.Marshal(commitMsg{C: commitment.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("edcf: encoding commit: %w", err)
	}
	if _, err := sess.Broadcast(commitBytes); err != nil {
		return nil, fmt.Errorf("edcf: broadcasting commit: %w", err)
	}

	commits := make(map[party.ID]*bigint.Int, n)
	for _, p := range parties {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		payload, ok := sess.DeliverFrom(p, remaining)
		if !ok {
			continue
		}
		var msg commitMsg
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			continue
		}
		commits[p] = bigint.FromBytes(msg.C)
	}
	if len(commits) < need {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "edcf: only %d of %d required commits received", len(commits), need)
	}

	openBytes, err := cbor.Marshal(openMsg{C: ci.Bytes(), R: ri.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("edcf: encoding open: %w", err)
	}
	if _, err := sess.Broadcast(openBytes); err != nil {
		return nil, fmt.Errorf("edcf: broadcasting open: %w", err)
	}

	sum := bigint.NewInt(0)
	opened := 0
	for p := range commits {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		payload, ok := sess.DeliverFrom(p, remaining)
		if !ok {
			continue
		}
		var msg openMsg
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			continue
		}
		c := bigint.FromBytes(msg.C)
		rr := bigint.FromBytes(msg.R)
		ok, err := params.Verify(commits[p], c, rr)
		if err != nil || !ok {
			continue
		}
		sum = sum.Add(c)
		opened++
	}
	if opened < need {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "edcf: only %d of %d required openings verified", opened, need)
	}
	return sum.Mod(grp.Q)
}
