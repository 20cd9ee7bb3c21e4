// Package vss implements the Joint Pedersen-RVSS sharing
// steps 1-3: every party deals a degree-t Pedersen-committed
// polynomial pair simultaneously, recipients verify and complain,
// accused dealers defend in public, and QUAL is computed. Extraction
// (step 4) and Refresh live in protocols/dkg, which calls this package
// once per epoch.
package vss

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/protocol"
	"github.com/luxfi/tmcgcore/pkg/rbc"
)

// Result is what a completed Joint-RVSS run yields for the local
// party: its own combined share pair, the surviving dealer set, and
// every surviving dealer's commitments (needed later to recompute
// CheckKey and to derive the DKG extraction round's public key).
type Result struct {
	QUAL        party.IDSlice
	X, Xp       *bigint.Int // own combined shares, summed over QUAL
	Commitments map[party.ID][]*bigint.Int

	// OwnCoeffs/OwnCoeffsPrime are this party's own dealt polynomial
	// coefficients (a_{self,k}, a'_{self,k}), exposed so protocols/dkg's
	// extraction round can publish Feldman commitments to them without
	// this package needing to know about extraction at all.
	OwnCoeffs, OwnCoeffsPrime []*bigint.Int
}

// Run drives one Joint-RVSS instance to completion. label namespaces
// this run's RBC sub-session so repeated invocations (e.g. Refresh
// epochs, or tDSS's per-signature ephemeral-k sharing) never collide.
// If constantTerm is non-nil, every dealer is forced to share it as its
// polynomial's constant term (Refresh's "joint sharing of zero");
// otherwise each dealer samples its own random secret.
func Run(h *round.Helper, ch *aiou.Channels, sess *rbc.Session, params *pedersen.Params, r io.Reader, label string, constantTerm *bigint.Int, timeout time.Duration) (*Result, error) {
	sess.SetID("vss/" + label)
	defer sess.UnsetID()

	deadline := time.Now().Add(timeout)
	q := h.Group().Q
	t := h.Threshold()
	n := h.N()
	parties := h.PartyIDs()
	self := h.SelfID()
	h.Log().Logf("vss[%s]: starting Joint-RVSS among %d parties, threshold %d", label, n, t)

	f, err := SamplePolynomial(r, q, t, constantTerm)
	if err != nil {
		return nil, fmt.Errorf("vss: sampling f: %w", err)
	}
	fp, err := SamplePolynomial(r, q, t, nil)
	if err != nil {
		return nil, fmt.Errorf("vss: sampling f': %w", err)
	}

	commitments := make([]*bigint.Int, t+1)
	for k := 0; k <= t; k++ {
		c, err := params.Commit(f.Coeffs[k], fp.Coeffs[k])
		if err != nil {
			return nil, fmt.Errorf("vss: committing coefficient %d: %w", k, err)
		}
		commitments[k] = c
	}

	// Step 1: broadcast commitments, send private shares.
	cm := commitMsg{C: make([][]byte, len(commitments))}
	for i, c := range commitments {
		cm.C[i] = c.Bytes()
	}
	cmBytes, err := cbor.Marshal(cm)
	if err != nil {
		return nil, fmt.Errorf("vss: encoding commitments: %w", err)
	}
	if _, err := sess.Broadcast(cmBytes); err != nil {
		return nil, fmt.Errorf("vss: broadcasting commitments: %w", err)
	}
	h.Log().Logf("vss[%s]: broadcast %d commitments as dealer %d", label, len(commitments), self)

	ownShares := make(map[party.ID]struct{ S, Sp *bigint.Int })
	for _, recipient := range parties {
		s, err := f.EvalAtPoint(recipient.Point(), q)
		if err != nil {
			return nil, err
		}
		sp, err := fp.EvalAtPoint(recipient.Point(), q)
		if err != nil {
			return nil, err
		}
		ownShares[recipient] = struct{ S, Sp *bigint.Int }{s, sp}
		if recipient == self {
			continue
		}
		sm := shareMsg{S: s.Bytes(), Sp: sp.Bytes()}
		payload, err := cbor.Marshal(sm)
		if err != nil {
			return nil, fmt.Errorf("vss: encoding share for %d: %w", recipient, err)
		}
		if err := ch.Send(recipient, payload); err != nil {
			// A send failure marks that peer unreachable; it will simply
			// fail to verify this dealer's share and may complain, or be
			// excluded from QUAL itself if it never participates at all.
			continue
		}
	}

	// Step 2: collect every dealer's commitments and this party's share
	// of it, then verify.
	dealerCommitments := make(map[party.ID][]*bigint.Int, n)
	dealerShares := make(map[party.ID]struct{ S, Sp *bigint.Int }, n)
	complaints := make(map[party.ID][]party.ID) // dealer -> complaining parties

	for _, dealer := range parties {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var commits []*bigint.Int
		if dealer == self {
			commits = commitments
		} else {
			payload, ok := sess.DeliverFrom(dealer, remaining)
			if !ok {
				continue
			}
			var got commitMsg
			if err := cbor.Unmarshal(payload, &got); err != nil {
				continue
			}
			commits = make([]*bigint.Int, len(got.C))
			for i, b := range got.C {
				commits[i] = bigint.FromBytes(b)
			}
		}
		dealerCommitments[dealer] = commits

		var share struct{ S, Sp *bigint.Int }
		if dealer == self {
			share = ownShares[self]
		} else {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				continue
			}
			res := ch.Receive(aiou.Direct, dealer, timeoutFor(remaining))
			if !res.Delivered {
				continue
			}
			var sm shareMsg
			if err := cbor.Unmarshal(res.Payload, &sm); err != nil {
				continue
			}
			share = struct{ S, Sp *bigint.Int }{bigint.FromBytes(sm.S), bigint.FromBytes(sm.Sp)}
		}
		dealerShares[dealer] = share

		ok, err := checkShare(params, commits, self.Point(), share.S, share.Sp)
		if err != nil || !ok {
			complaints[dealer] = append(complaints[dealer], self)
		}
	}

	// Broadcast a complaint for every dealer whose share failed to
	// verify.
	for dealer := range complaints {
		if !complaintsContain(complaints[dealer], self) {
			continue
		}
		payload, err := cbor.Marshal(complaintMsg{Against: uint32(dealer)})
		if err != nil {
			continue
		}
		if _, err := sess.Broadcast(payload); err != nil {
			continue
		}
	}

	// Step 2 (continued): collect every other party's complaints too,
	// since the accused dealer's defense must satisfy every complainant
	// publicly, not just this party's own.
	allComplaints := make(map[party.ID]map[party.ID]bool) // dealer -> complainants
	for _, p := range parties {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		// A complaint is optional: most dealers are honest and no one
		// complains against them, so this probe must not consume the
		// whole remaining deadline waiting for a message that will
		// never come (a sync barrier exists for exactly this
		// kind of "did everyone finish this optional round" question;
		// here a short bounded probe serves the same purpose cheaply).
		payload, ok := sess.DeliverFrom(p, probeTimeout(remaining))
		if !ok {
			continue
		}
		var cmsg complaintMsg
		if err := cbor.Unmarshal(payload, &cmsg); err != nil {
			continue
		}
		dealer := party.ID(cmsg.Against)
		if allComplaints[dealer] == nil {
			allComplaints[dealer] = make(map[party.ID]bool)
		}
		allComplaints[dealer][p] = true
	}
	for dealer, by := range complaints {
		if allComplaints[dealer] == nil {
			allComplaints[dealer] = make(map[party.ID]bool)
		}
		for _, p := range by {
			allComplaints[dealer][p] = true
		}
	}

	// Step 3: if this party was accused, defend by broadcasting the
	// shares it sent to each complainant.
	if by, accused := allComplaints[self]; accused && len(by) > 0 {
		def := defenseMsg{}
		for p := range by {
			s, err := f.EvalAtPoint(p.Point(), q)
			if err != nil {
				return nil, err
			}
			sp, err := fp.EvalAtPoint(p.Point(), q)
			if err != nil {
				return nil, err
			}
			def.For = append(def.For, uint32(p))
			def.S = append(def.S, s.Bytes())
			def.Sp = append(def.Sp, sp.Bytes())
		}
		payload, err := cbor.Marshal(def)
		if err == nil {
			_, _ = sess.Broadcast(payload)
		}
	}

	// Collect defenses from every accused dealer and re-verify publicly.
	failedDefense := make(map[party.ID]bool)
	for dealer := range allComplaints {
		if len(allComplaints[dealer]) == 0 {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			failedDefense[dealer] = true
			continue
		}
		payload, ok := sess.DeliverFrom(dealer, remaining)
		if !ok {
			failedDefense[dealer] = true
			continue
		}
		var def defenseMsg
		if err := cbor.Unmarshal(payload, &def); err != nil {
			failedDefense[dealer] = true
			continue
		}
		commits := dealerCommitments[dealer]
		if commits == nil {
			failedDefense[dealer] = true
			continue
		}
		for i, pu := range def.For {
			p := party.ID(pu)
			s := bigint.FromBytes(def.S[i])
			sp := bigint.FromBytes(def.Sp[i])
			ok, err := checkShare(params, commits, p.Point(), s, sp)
			if err != nil || !ok {
				failedDefense[dealer] = true
				break
			}
			if p == self {
				dealerShares[dealer] = struct{ S, Sp *bigint.Int }{s, sp}
			}
		}
	}

	// Step 3 (continued): a dealer is dropped if its defense failed or
	// more than t complaints accumulated against it.
	qual := make(party.IDSlice, 0, n)
	for _, dealer := range parties {
		if _, ok := dealerCommitments[dealer]; !ok {
			continue
		}
		if failedDefense[dealer] {
			continue
		}
		if len(allComplaints[dealer]) > t {
			continue
		}
		qual = append(qual, dealer)
	}
	if qual.Len() < n-t {
		return nil, protocol.Error{Err: fmt.Errorf("vss: QUAL too small: %d of %d required", qual.Len(), n-t)}
	}
	h.Log().Logf("vss[%s]: QUAL = %v", label, qual)

	x := bigint.NewInt(0)
	xp := bigint.NewInt(0)
	commitsOut := make(map[party.ID][]*bigint.Int, qual.Len())
	for _, dealer := range qual {
		share, ok := dealerShares[dealer]
		if !ok {
			return nil, protocol.Error{Culprits: []party.ID{dealer}, Err: fmt.Errorf("vss: missing own share from qualified dealer %d", dealer)}
		}
		var err error
		x = x.Add(share.S)
		x, err = x.Mod(q)
		if err != nil {
			return nil, err
		}
		xp = xp.Add(share.Sp)
		xp, err = xp.Mod(q)
		if err != nil {
			return nil, err
		}
		commitsOut[dealer] = dealerCommitments[dealer]
	}

	return &Result{
		QUAL:           qual,
		X:              x,
		Xp:             xp,
		Commitments:    commitsOut,
		OwnCoeffs:      f.Coeffs,
		OwnCoeffsPrime: fp.Coeffs,
	}, nil
}

// checkShare verifies g^s * h^s' == Prod_k C_k^(point^k) mod p,
// the per-recipient verification equation.
func checkShare(params *pedersen.Params, commitments []*bigint.Int, point uint64, s, sp *bigint.Int) (bool, error) {
	lhs, err := params.Commit(s, sp)
	if err != nil {
		return false, err
	}
	grp := params.Grp
	rhs := bigint.NewInt(1)
	for k, c := range commitments {
		exp, err := powMod(bigint.NewInt(int64(point)), k, grp.Q)
		if err != nil {
			return false, err
		}
		term, err := grp.Exp(c, exp)
		if err != nil {
			return false, err
		}
		rhs, err = grp.Mul(rhs, term)
		if err != nil {
			return false, err
		}
	}
	return lhs.Equal(rhs), nil
}

func complaintsContain(list []party.ID, id party.ID) bool {
	for _, p := range list {
		if p == id {
			return true
		}
	}
	return false
}

// probeTimeout bounds the wait for an optional message (one that may
// legitimately never be sent) to a small slice of the remaining
// deadline, so one silent party can't starve the rest of the round.
func probeTimeout(remaining time.Duration) time.Duration {
	const probe = 500 * time.Millisecond
	if remaining < probe {
		return remaining
	}
	return probe
}

func timeoutFor(d time.Duration) aiou.Timeout {
	switch {
	case d <= aiou.Short.Duration():
		return aiou.Short
	case d <= aiou.Middle.Duration():
		return aiou.Middle
	case d <= aiou.Long.Duration():
		return aiou.Long
	case d <= aiou.VeryLong.Duration():
		return aiou.VeryLong
	default:
		return aiou.ExtremelyLong
	}
}
