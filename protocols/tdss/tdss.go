// Package tdss implements the Canetti-Gennaro-Jarecki-Krawczyk-Rabin
// threshold DSS: ephemeral-k generation via protocols/dkg, a
// GJKR-style distributed inversion of k (a second joint-random sharing
// a, blinded product reveal of k*a, degree-t shares of k^-1 combined by
// Lagrange), the classic DSS (r, s) computation combined by Lagrange
// interpolation over SIGNERS, ordinary DSS verification, and Refresh
// (delegated to protocols/dkg.Refresh).
package tdss

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/hash"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/protocolerr"
	"github.com/luxfi/tmcgcore/pkg/rbc"
	"github.com/luxfi/tmcgcore/protocols/dkg"
)

// Signature is a completed threshold DSS signature.
type Signature struct {
	R, S *bigint.Int
}

// HashMessage reduces a message into Z_q the way every signer must, so
// every party's H(m) term agrees (step 4).
func HashMessage(q *bigint.Int, msg []byte) *bigint.Int {
	return bigint.FromBigInt(hash.New("tmcgcore/tdss-message").WriteBytes(msg).SumToZq(q.Big()))
}

type rMsg struct {
	R []byte // g^{(k^-1)_i}
}

type muMsg struct {
	D []byte // lambda_i * k_i * a_i mod q
}

type sMsg struct {
	S []byte
}

// Sign runs one full threshold DSS signing round among the parties in
// h's party set, which must be SIGNERS: a subset of cfg.QUAL with
// |SIGNERS| >= 2t+1 (the distributed inversion in step 2 reconstructs
// a degree-2t product polynomial at 0, which needs that many points).
// msgHash must be
// H(m) mod q, produced identically by every signer (HashMessage
// above). label namespaces this signature's RBC sub-sessions so
// repeated signing attempts (retries on r=0 or s=0) never collide.
func Sign(h *round.Helper, ch *aiou.Channels, sess *rbc.Session, params *pedersen.Params, cfg *dkg.Config, msgHash *bigint.Int, r io.Reader, label string, timeout time.Duration) (*Signature, error) {
	signers := h.PartyIDs()
	// The blinded-product reveal in step 2 reconstructs mu = k*a, a
	// degree-2t polynomial's value at 0, so SIGNERS must carry at least
	// 2t+1 points for the Lagrange combination to be valid.
	needSigners := 2*h.Threshold() + 1
	if signers.Len() < needSigners {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "tdss: %d signers, need at least %d", signers.Len(), needSigners)
	}
	for _, s := range signers {
		if !cfg.QUAL.Contains(s) {
			return nil, protocolerr.New(protocolerr.Unqualified, "tdss: signer %d is not in QUAL", s)
		}
	}

	grp := h.Group()
	q := grp.Q
	h.Log().Logf("tdss[%s]: starting signing round among %d signers", label, signers.Len())

	// Step 1: ephemeral k, shared exactly like a long-term DKG key, over
	// the signer set only.
	kCfg, err := dkg.Generate(h, ch, sess, params, r, "tdss-ephemeral-"+label, timeout)
	if err != nil {
		return nil, fmt.Errorf("tdss: generating ephemeral k: %w", err)
	}

	points := make([]uint64, signers.Len())
	for i, s := range signers {
		points[i] = s.Point()
	}
	self := h.SelfID()
	lambda, err := LagrangeCoefficient(points, self.Point(), q)
	if err != nil {
		return nil, err
	}

	// Step 2: one-round distributed inversion by blinded product reveal.
	// a must be a second jointly-random value, shared exactly like the
	// ephemeral k (a fresh degree-t DKG-like sharing, not an
	// independently sampled per-party value), so that a_i = aCfg.X is a
	// genuine point of a degree-t polynomial a(.) with a(0) = a. Each
	// signer then reveals d_i = lambda_i * k_i * a_i, blinding k_i from
	// the other signers while still letting everyone recover mu = k*a in
	// public via Lagrange interpolation over SIGNERS (valid for the
	// degree-2t product polynomial k(.)*a(.) because |SIGNERS| >= 2t+1).
	aCfg, err := dkg.Generate(h, ch, sess, params, r, "tdss-blinding-"+label, timeout)
	if err != nil {
		return nil, fmt.Errorf("tdss: generating blinding share a: %w", err)
	}
	sess.SetID("tdss-invert/" + label)
	ai := aCfg.X
	d := lambda.Mul(kCfg.X)
	d, err = d.Mod(q)
	if err != nil {
		return nil, err
	}
	d = d.Mul(ai)
	d, err = d.Mod(q)
	if err != nil {
		return nil, err
	}
	dPayload, err := cbor.Marshal(muMsg{D: d.Bytes()})
	if err != nil {
		return nil, err
	}
	if _, err := sess.Broadcast(dPayload); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	mu := bigint.NewInt(0)
	received := 0
	for _, p := range signers {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var got muMsg
		if p == self {
			got = muMsg{D: d.Bytes()}
		} else {
			payload, ok := sess.DeliverFrom(p, remaining)
			if !ok {
				continue
			}
			if err := cbor.Unmarshal(payload, &got); err != nil {
				continue
			}
		}
		mu = mu.Add(bigint.FromBytes(got.D))
		mu, err = mu.Mod(q)
		if err != nil {
			return nil, err
		}
		received++
	}
	sess.UnsetID()
	if received < signers.Len() {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "tdss: only %d of %d signers revealed their blinding term", received, signers.Len())
	}
	if mu.IsZero() {
		return nil, protocolerr.New(protocolerr.Abort, "tdss: mu=0, retry with fresh randomness")
	}
	muInv, err := mu.ModInverse(q)
	if err != nil {
		return nil, err
	}
	// (k^-1)_i = a_i * mu^-1 mod q: this signer's additive share of
	// k^-1, since mu = k*a and a is additively recoverable the same way
	// k was (step 2).
	kInvShare := ai.Mul(muInv)
	kInvShare, err = kInvShare.Mod(q)
	if err != nil {
		return nil, err
	}

	// Step 3: reveal g^{(k^-1)_i}, combine by Lagrange-weighted group
	// exponentiation over SIGNERS (each (k^-1)_i is a point of the
	// degree-t polynomial k^-1(.) with k^-1(0) = k^-1, so
	// g^{sum lambda_i*(k^-1)_i} = g^{k^-1}), reduce to r.
	sess.SetID("tdss-r/" + label)
	rShare, err := grp.Exp(grp.G, kInvShare)
	if err != nil {
		return nil, err
	}
	rPayload, err := cbor.Marshal(rMsg{R: rShare.Bytes()})
	if err != nil {
		return nil, err
	}
	if _, err := sess.Broadcast(rPayload); err != nil {
		return nil, err
	}
	deadline = time.Now().Add(timeout)
	rCombined := bigint.NewInt(1)
	received = 0
	for _, p := range signers {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var got rMsg
		if p == self {
			got = rMsg{R: rShare.Bytes()}
		} else {
			payload, ok := sess.DeliverFrom(p, remaining)
			if !ok {
				continue
			}
			if err := cbor.Unmarshal(payload, &got); err != nil {
				continue
			}
		}
		pLambda, err := LagrangeCoefficient(points, p.Point(), q)
		if err != nil {
			return nil, err
		}
		term, err := grp.Exp(bigint.FromBytes(got.R), pLambda)
		if err != nil {
			return nil, err
		}
		rCombined, err = grp.Mul(rCombined, term)
		if err != nil {
			return nil, err
		}
		received++
	}
	sess.UnsetID()
	if received < signers.Len() {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "tdss: only %d of %d signers revealed r-share", received, signers.Len())
	}
	rFull, err := rCombined.Mod(grp.P)
	if err != nil {
		return nil, err
	}
	rFinal, err := rFull.Mod(q)
	if err != nil {
		return nil, err
	}
	if rFinal.IsZero() {
		return nil, protocolerr.New(protocolerr.Abort, "tdss: r=0, retry with fresh ephemeral k")
	}

	// Step 4: s_i = k_i * (H(m) + x_i*r) mod q, combined with Lagrange
	// weights over SIGNERS.
	sess.SetID("tdss-s/" + label)
	xr := cfg.X.Mul(rFinal)
	xr, err = xr.Mod(q)
	if err != nil {
		return nil, err
	}
	inner := msgHash.Add(xr)
	inner, err = inner.Mod(q)
	if err != nil {
		return nil, err
	}
	si := kCfg.X.Mul(inner)
	si, err = si.Mod(q)
	if err != nil {
		return nil, err
	}
	siPayload, err := cbor.Marshal(sMsg{S: si.Bytes()})
	if err != nil {
		return nil, err
	}
	if _, err := sess.Broadcast(siPayload); err != nil {
		return nil, err
	}
	deadline = time.Now().Add(timeout)
	sFinal := bigint.NewInt(0)
	received = 0
	for _, p := range signers {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var got sMsg
		if p == self {
			got = sMsg{S: si.Bytes()}
		} else {
			payload, ok := sess.DeliverFrom(p, remaining)
			if !ok {
				continue
			}
			if err := cbor.Unmarshal(payload, &got); err != nil {
				continue
			}
		}
		pLambda, err := LagrangeCoefficient(points, p.Point(), q)
		if err != nil {
			return nil, err
		}
		term := bigint.FromBytes(got.S).Mul(pLambda)
		term, err = term.Mod(q)
		if err != nil {
			return nil, err
		}
		sFinal = sFinal.Add(term)
		sFinal, err = sFinal.Mod(q)
		if err != nil {
			return nil, err
		}
		received++
	}
	sess.UnsetID()
	if received < signers.Len() {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "tdss: only %d of %d signers revealed s-share", received, signers.Len())
	}
	if sFinal.IsZero() {
		return nil, protocolerr.New(protocolerr.Abort, "tdss: s=0, retry with fresh ephemeral k")
	}

	h.Log().Logf("tdss[%s]: signature complete r=%s s=%s", label, rFinal.Text(10), sFinal.Text(10))
	return &Signature{R: rFinal, S: sFinal}, nil
}

// Verify checks an ordinary DSS signature: 0 < r,s < q; w = s^-1 mod q;
// u1 = H(m)*w mod q; u2 = r*w mod q; accept iff (g^u1 * y^u2 mod p) mod
// q == r (Verify).
func Verify(grp *group.Group, msgHash *bigint.Int, sig *Signature, y *bigint.Int) (bool, error) {
	q := grp.Q
	if sig.R.Sign() <= 0 || sig.R.Cmp(q) >= 0 || sig.S.Sign() <= 0 || sig.S.Cmp(q) >= 0 {
		return false, nil
	}
	w, err := sig.S.ModInverse(q)
	if err != nil {
		return false, err
	}
	u1 := msgHash.Mul(w)
	u1, err = u1.Mod(q)
	if err != nil {
		return false, err
	}
	u2 := sig.R.Mul(w)
	u2, err = u2.Mod(q)
	if err != nil {
		return false, err
	}
	gu1, err := grp.Exp(grp.G, u1)
	if err != nil {
		return false, err
	}
	yu2, err := grp.Exp(y, u2)
	if err != nil {
		return false, err
	}
	combined, err := grp.Mul(gu1, yu2)
	if err != nil {
		return false, err
	}
	v, err := combined.Mod(grp.P)
	if err != nil {
		return false, err
	}
	v, err = v.Mod(q)
	if err != nil {
		return false, err
	}
	return v.Equal(sig.R), nil
}

// Refresh is identical to protocols/dkg.Refresh over the long-term key
// (Refresh): public y unchanged, existing signatures remain
// valid.
func Refresh(h *round.Helper, ch *aiou.Channels, sess *rbc.Session, params *pedersen.Params, r io.Reader, prev *dkg.Config, epoch string, timeout time.Duration) (*dkg.Config, error) {
	return dkg.Refresh(h, ch, sess, params, r, prev, epoch, timeout)
}
