// Package decrypt implements threshold ElGamal decryption over the
// DKG's public key: per-share computation with a
// Chaum-Pedersen equality-of-discrete-logs proof, RBC-broadcast share
// collection, and Lagrange-weighted combination into the plaintext.
package decrypt

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pok"
	"github.com/luxfi/tmcgcore/pkg/pool"
	"github.com/luxfi/tmcgcore/pkg/protocolerr"
	"github.com/luxfi/tmcgcore/pkg/rbc"
	"github.com/luxfi/tmcgcore/protocols/dkg"
)

// Ciphertext is a standard ElGamal ciphertext (gk, myk) encrypting a
// message m in the prime-order subgroup under public key y: gk = g^k,
// myk = m*y^k for a fresh random k.
type Ciphertext struct {
	Gk, Myk *bigint.Int
}

// CheckCiphertext rejects malformed ciphertexts step 1:
// 1 < gk, myk < p and gk^q == 1.
func CheckCiphertext(cfg *dkg.Config, ct *Ciphertext) error {
	p, q := cfg.Grp.P, cfg.Grp.Q
	one := bigint.NewInt(1)
	if ct.Gk.Cmp(one) <= 0 || ct.Gk.Cmp(p) >= 0 || ct.Myk.Cmp(one) <= 0 || ct.Myk.Cmp(p) >= 0 {
		return protocolerr.New(protocolerr.NotInGroup, "decrypt: ciphertext components out of range")
	}
	check, err := cfg.Grp.Exp(ct.Gk, q)
	if err != nil {
		return err
	}
	if !check.Equal(one) {
		return protocolerr.New(protocolerr.NotInGroup, "decrypt: gk^q != 1")
	}
	return nil
}

type shareMsg struct {
	R       []byte
	ProofT  []byte
	ProofT2 []byte
	ProofR  []byte
}

// Run produces this party's decryption share, broadcasts it alongside
// its Chaum-Pedersen proof via sess, collects and verifies every other
// party's share, and combines t+1 verified shares by Lagrange
// interpolation to recover the plaintext (steps 2-4).
func Run(h *round.Helper, sess *rbc.Session, cfg *dkg.Config, ct *Ciphertext, r io.Reader, label string, timeout time.Duration) (*bigint.Int, error) {
	if err := CheckCiphertext(cfg, ct); err != nil {
		return nil, err
	}

	sess.SetID("decrypt/" + label)
	defer sess.UnsetID()

	grp := cfg.Grp
	self := h.SelfID()

	ri, err := grp.Exp(ct.Gk, cfg.X)
	if err != nil {
		return nil, err
	}
	yi, err := grp.Exp(grp.G, cfg.X)
	if err != nil {
		return nil, err
	}
	proof, err := pok.ProveEquality(r, grp, grp.G, yi, ct.Gk, ri, cfg.X)
	if err != nil {
		return nil, err
	}

	msg := shareMsg{R: ri.Bytes(), ProofT: proof.T1.Bytes(), ProofT2: proof.T2.Bytes(), ProofR: proof.R.Bytes()}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("decrypt: encoding share: %w", err)
	}
	if _, err := sess.Broadcast(payload); err != nil {
		return nil, fmt.Errorf("decrypt: broadcasting share: %w", err)
	}

	need := h.Threshold() + 1
	deadline := time.Now().Add(timeout)
	shares := make(map[party.ID]*bigint.Int, h.N())
	for _, p := range h.PartyIDs() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var got shareMsg
		if p == self {
			got = msg
		} else {
			rawPayload, ok := sess.DeliverFrom(p, remaining)
			if !ok {
				continue
			}
			if err := cbor.Unmarshal(rawPayload, &got); err != nil {
				continue
			}
		}
		rShare := bigint.FromBytes(got.R)
		if !cfg.QUAL.Contains(p) {
			// Not a QUAL dealer in the DKG that produced cfg.X: this
			// party cannot have a meaningful share, skip it.
			continue
		}
		// yp = g^{x_p}, this party's share public key, reconstructed
		// from the QUAL-wide Feldman commitments (Config.SharePublicKey).
		// It is NOT cfg.Yj[p] (=A_{p,0}, dealer p's own commitment to its
		// constant term z_p): the prover signs against g^{x_p}, so the
		// verifier must check against the same value or every proof
		// fails.
		yp, err := cfg.SharePublicKey(p)
		if err != nil {
			return nil, err
		}
		ep := &pok.EqualityProof{T1: bigint.FromBytes(got.ProofT), T2: bigint.FromBytes(got.ProofT2), R: bigint.FromBytes(got.ProofR)}
		ok, err := pok.VerifyEquality(grp, grp.G, yp, ct.Gk, rShare, ep)
		if err != nil || !ok {
			// A share whose equality proof fails is excluded; decryption
			// still succeeds if enough other shares remain (
			// failure modes).
			continue
		}
		shares[p] = rShare
	}
	if len(shares) < need {
		return nil, protocolerr.New(protocolerr.NotEnoughShares, "decrypt: only %d of %d required shares verified", len(shares), need)
	}

	lambda := make(party.IDSlice, 0, len(shares))
	for p := range shares {
		lambda = append(lambda, p)
	}
	if len(lambda) > need {
		lambda = lambda[:need]
	}

	points := make([]uint64, len(lambda))
	for i, p := range lambda {
		points[i] = p.Point()
	}

	// Each combining term r_i^{lambda_i} is an independent modular
	// exponentiation; fan them out across h.Pool() before combining
	// sequentially, the same independent-modexp-fan-out pattern used
	// elsewhere for work with no suspension points of its own.
	terms, err := pool.Map(h.Pool(), len(lambda), func(idx int) (*bigint.Int, error) {
		p := lambda[idx]
		coeff, err := lagrangeCoefficient(points, p.Point(), grp.Q)
		if err != nil {
			return nil, err
		}
		return grp.Exp(shares[p], coeff)
	})
	if err != nil {
		return nil, err
	}
	rCombined := bigint.NewInt(1)
	for _, term := range terms {
		rCombined, err = grp.Mul(rCombined, term)
		if err != nil {
			return nil, err
		}
	}

	rInv, err := grp.Inv(rCombined)
	if err != nil {
		return nil, err
	}
	plaintext, err := grp.Mul(ct.Myk, rInv)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// lagrangeCoefficient computes lambda_target = Prod_{l in points, l !=
// target} l/(l-target) mod q over the DKG index points of the
// combining set (step 3).
func lagrangeCoefficient(points []uint64, target uint64, q *bigint.Int) (*bigint.Int, error) {
	num := bigint.NewInt(1)
	den := bigint.NewInt(1)
	for _, l := range points {
		if l == target {
			continue
		}
		lInt := bigint.NewInt(int64(l))
		targetInt := bigint.NewInt(int64(target))

		num = num.Mul(lInt)
		var err error
		num, err = num.Mod(q)
		if err != nil {
			return nil, err
		}

		diff := lInt.Sub(targetInt)
		den = den.Mul(diff)
		den, err = den.Mod(q)
		if err != nil {
			return nil, err
		}
	}
	denInv, err := den.ModInverse(q)
	if err != nil {
		return nil, err
	}
	out := num.Mul(denInv)
	return out.Mod(q)
}
