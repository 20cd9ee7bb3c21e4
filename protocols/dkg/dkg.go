package dkg

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/pok"
	"github.com/luxfi/tmcgcore/pkg/protocolerr"
	"github.com/luxfi/tmcgcore/pkg/rbc"
	"github.com/luxfi/tmcgcore/protocols/vss"
)

// extractMsg carries one QUAL dealer's Feldman commitments to its
// polynomial coefficients, and a Schnorr proof of knowledge of the
// constant term, broadcast during the extraction round (
// step 4).
type extractMsg struct {
	A      [][]byte
	ProofT []byte
	ProofR []byte
}

// Generate runs a full Joint-RVSS + extraction DKG, producing this
// party's Config. epoch namespaces the run so repeated Generate calls
// (e.g. in tests) never collide.
func Generate(h *round.Helper, ch *aiou.Channels, sess *rbc.Session, params *pedersen.Params, r io.Reader, epoch string, timeout time.Duration) (*Config, error) {
	h.Log().Logf("dkg[%s]: starting key generation", epoch)
	res, err := vss.Run(h, ch, sess, params, r, "dkg-generate-"+epoch, nil, timeout)
	if err != nil {
		return nil, err
	}
	cfg, err := extract(h, sess, r, res, "dkg-extract-"+epoch, timeout)
	if err != nil {
		return nil, err
	}
	h.Log().Logf("dkg[%s]: key generation complete, QUAL=%v y=%s", epoch, cfg.QUAL, cfg.Y.Text(10))
	return cfg, nil
}

// extract runs step 4 on top of an already-completed
// Joint-RVSS result: every qualified dealer publishes Feldman
// commitments to its own coefficients together with a Schnorr proof of
// knowledge of the constant term, and the QUAL-wide public key is
// assembled from the surviving contributions.
func extract(h *round.Helper, sess *rbc.Session, r io.Reader, res *vss.Result, label string, timeout time.Duration) (*Config, error) {
	sess.SetID("extract/" + label)
	defer sess.UnsetID()

	grp := h.Group()
	deadline := time.Now().Add(timeout)
	self := h.SelfID()

	a := make([]*bigint.Int, len(res.OwnCoeffs))
	for k, coeff := range res.OwnCoeffs {
		v, err := grp.Exp(grp.G, coeff)
		if err != nil {
			return nil, err
		}
		a[k] = v
	}
	proof, err := pok.ProveSchnorr(r, grp, grp.G, a[0], res.OwnCoeffs[0])
	if err != nil {
		return nil, err
	}

	msg := extractMsg{A: make([][]byte, len(a)), ProofT: proof.T.Bytes(), ProofR: proof.R.Bytes()}
	for k, v := range a {
		msg.A[k] = v.Bytes()
	}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("dkg: encoding extraction: %w", err)
	}
	if _, err := sess.Broadcast(payload); err != nil {
		return nil, fmt.Errorf("dkg: broadcasting extraction: %w", err)
	}

	yj := make(map[party.ID]*bigint.Int, res.QUAL.Len())
	feldman := make(map[party.ID][]*bigint.Int, res.QUAL.Len())
	qual := make(party.IDSlice, 0, res.QUAL.Len())
	for _, dealer := range res.QUAL {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		var got extractMsg
		if dealer == self {
			got = msg
		} else {
			rawPayload, ok := sess.DeliverFrom(dealer, remaining)
			if !ok {
				continue
			}
			if err := cbor.Unmarshal(rawPayload, &got); err != nil {
				continue
			}
		}
		av := make([]*bigint.Int, len(got.A))
		for i, b := range got.A {
			av[i] = bigint.FromBytes(b)
		}
		if len(av) == 0 {
			continue
		}
		sp := &pok.SchnorrProof{T: bigint.FromBytes(got.ProofT), R: bigint.FromBytes(got.ProofR)}
		ok, err := pok.VerifySchnorr(grp, grp.G, av[0], sp)
		if err != nil || !ok {
			// A dealer whose extraction proof fails is excluded from the
			// public key and from this epoch's QUAL, per the side channel's
			// "corrupted parties never cause a globally-correct protocol
			// to return failure" policy.
			continue
		}
		yj[dealer] = av[0]
		feldman[dealer] = av
		qual = append(qual, dealer)
	}
	if qual.Len() < h.N()-h.Threshold() {
		return nil, protocolerr.New(protocolerr.Unqualified, "dkg: only %d of %d required dealers passed extraction", qual.Len(), h.N()-h.Threshold())
	}

	y := bigint.NewInt(1)
	for _, dealer := range qual {
		var err error
		y, err = grp.Mul(y, yj[dealer])
		if err != nil {
			return nil, err
		}
	}

	commitsOut := make(map[party.ID][]*bigint.Int, qual.Len())
	feldmanOut := make(map[party.ID][]*bigint.Int, qual.Len())
	for _, dealer := range qual {
		commitsOut[dealer] = res.Commitments[dealer]
		feldmanOut[dealer] = feldman[dealer]
	}

	return &Config{
		Grp:                grp,
		N:                  h.N(),
		T:                  h.Threshold(),
		Self:               self,
		QUAL:               qual,
		X:                  res.X,
		Xp:                 res.Xp,
		Y:                  y,
		Yj:                 yj,
		Commitments:        commitsOut,
		FeldmanCommitments: feldmanOut,
	}, nil
}

// CheckKey verifies the local invariant CheckKey checks: that
// this party's combined share is consistent with the product of every
// qualified dealer's Pedersen commitments, raised to this party's
// sharing point.
func (c *Config) CheckKey(params *pedersen.Params) (bool, error) {
	lhs, err := params.Commit(c.X, c.Xp)
	if err != nil {
		return false, err
	}
	grp := c.Grp
	point := bigint.NewInt(int64(c.Self.Point()))
	rhs := bigint.NewInt(1)
	for _, dealer := range c.QUAL {
		commits := c.Commitments[dealer]
		for k, cjk := range commits {
			exp := bigint.NewInt(1)
			for i := 0; i < k; i++ {
				exp = exp.Mul(point)
				exp, err = exp.Mod(grp.Q)
				if err != nil {
					return false, err
				}
			}
			term, err := grp.Exp(cjk, exp)
			if err != nil {
				return false, err
			}
			rhs, err = grp.Mul(rhs, term)
			if err != nil {
				return false, err
			}
		}
	}
	return lhs.Equal(rhs), nil
}

// Refresh runs a fresh Joint-RVSS of the zero polynomial and folds the
// resulting (delta_i, delta'_i) into this Config's shares, leaving y
// unchanged (Refresh).
func Refresh(h *round.Helper, ch *aiou.Channels, sess *rbc.Session, params *pedersen.Params, r io.Reader, prev *Config, epoch string, timeout time.Duration) (*Config, error) {
	h.Log().Logf("dkg[%s]: starting share refresh", epoch)
	res, err := vss.Run(h, ch, sess, params, r, "dkg-refresh-"+epoch, bigint.NewInt(0), timeout)
	if err != nil {
		return nil, err
	}
	if res.QUAL.Len() < h.N()-h.Threshold() {
		return nil, protocolerr.New(protocolerr.Unqualified, "dkg: refresh QUAL too small: %d of %d required", res.QUAL.Len(), h.N()-h.Threshold())
	}

	x, err := prev.X.Add(res.X).Mod(h.Group().Q)
	if err != nil {
		return nil, err
	}
	xp, err := prev.Xp.Add(res.Xp).Mod(h.Group().Q)
	if err != nil {
		return nil, err
	}

	// The long-term QUAL, Yj, Commitments, and FeldmanCommitments from
	// key generation are unaffected by a zero-sharing refresh; only the
	// additive shares change, which is exactly the required invariant:
	// "y unchanged; adversarial knowledge from previous epochs becomes
	// useless."
	next := *prev
	next.X = x
	next.Xp = xp
	h.Log().Logf("dkg[%s]: share refresh complete", epoch)
	return &next, nil
}
