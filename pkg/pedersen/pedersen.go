// Package pedersen implements the Pedersen commitment scheme: a
// scalar variant, a vector variant over independently-derived
// generators, and a trapdoor variant for privileged setup roles.
package pedersen

import (
	"io"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
)

// Params holds the commitment's generators. G and H must both be
// members of the prime-order subgroup with log_G H unknown.
type Params struct {
	Grp  *group.Group
	G, H *bigint.Int
}

// NewParams builds commitment parameters from a group whose H generator
// has already been set (e.g. via group.Generate(..., withH=true)).
func NewParams(grp *group.Group) *Params {
	return &Params{Grp: grp, G: grp.G, H: grp.H}
}

// Commit returns g^msg * h^r mod p.
func (p *Params) Commit(msg, r *bigint.Int) (*bigint.Int, error) {
	gm, err := p.Grp.Exp(p.G, msg)
	if err != nil {
		return nil, err
	}
	hr, err := p.Grp.Exp(p.H, r)
	if err != nil {
		return nil, err
	}
	return p.Grp.Mul(gm, hr)
}

// Verify reports whether c == Commit(msg, r). Binding relies on
// discrete-log hardness; hiding is perfect regardless of the adversary's
// power.
func (p *Params) Verify(c, msg, r *bigint.Int) (bool, error) {
	expected, err := p.Commit(msg, r)
	if err != nil {
		return false, err
	}
	return expected.Equal(c), nil
}

// VectorParams holds n+1 independent generators {g_0, ..., g_n} (g_0
// plays the role of the blinding generator) used to commit to a vector
// of n messages in a single value.
type VectorParams struct {
	Grp *group.Group
	Gs  []*bigint.Int // Gs[0] blinds, Gs[1:] commit to message coordinates
}

// NewVectorParamsPublicCoin builds n+1 independent generators via the
// public-coin setup: each g_i is g raised to a
// random scalar supplied by coinFlip (an EDCF instance or any source of
// agreed, unpredictable scalars), so that no party learns a discrete-log
// relation between the generators.
func NewVectorParamsPublicCoin(grp *group.Group, n int, coinFlip func() (*bigint.Int, error)) (*VectorParams, error) {
	gs := make([]*bigint.Int, n+1)
	for i := range gs {
		c, err := coinFlip()
		if err != nil {
			return nil, err
		}
		g, err := grp.Exp(grp.G, c)
		if err != nil {
			return nil, err
		}
		gs[i] = g
	}
	return &VectorParams{Grp: grp, Gs: gs}, nil
}

// Commit returns g_0^r * Prod_i g_{i+1}^{msgs[i]} mod p.
func (v *VectorParams) Commit(msgs []*bigint.Int, r *bigint.Int) (*bigint.Int, error) {
	acc, err := v.Grp.Exp(v.Gs[0], r)
	if err != nil {
		return nil, err
	}
	for i, m := range msgs {
		term, err := v.Grp.Exp(v.Gs[i+1], m)
		if err != nil {
			return nil, err
		}
		acc, err = v.Grp.Mul(acc, term)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Verify checks a vector commitment opening.
func (v *VectorParams) Verify(c *bigint.Int, msgs []*bigint.Int, r *bigint.Int) (bool, error) {
	expected, err := v.Commit(msgs, r)
	if err != nil {
		return false, err
	}
	return expected.Equal(c), nil
}

// Trapdoor is a privileged "trusted setup" instance that additionally
// knows tau = log_G H, allowing it to open any commitment as any
// message. It must never be constructed by a protocol
// party; it exists for test/setup tooling only.
type Trapdoor struct {
	Params
	Tau *bigint.Int
}

// NewTrapdoor builds a commitment scheme together with its trapdoor: H
// is set to G^tau for a freshly sampled tau.
func NewTrapdoor(r io.Reader, grp *group.Group) (*Trapdoor, error) {
	tau, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, err
	}
	h, err := grp.Exp(grp.G, tau)
	if err != nil {
		return nil, err
	}
	return &Trapdoor{Params: Params{Grp: grp, G: grp.G, H: h}, Tau: tau}, nil
}

// Open returns r' such that Commit(msg', r') == Commit(msg, r) for the
// given desired msg', using the trapdoor: r' = r + (msg-msg')/tau mod
// q.
func (t *Trapdoor) Open(msg, r, desiredMsg *bigint.Int) (*bigint.Int, error) {
	diff := msg.Sub(desiredMsg)
	tauInv, err := t.Tau.ModInverse(t.Grp.Q)
	if err != nil {
		return nil, err
	}
	delta := diff.Mul(tauInv)
	sum := r.Add(delta)
	return sum.Mod(t.Grp.Q)
}
