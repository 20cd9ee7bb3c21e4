package vss

import (
	"io"

	"github.com/luxfi/tmcgcore/pkg/bigint"
)

// Polynomial is a degree-t polynomial over Z_q, stored as
// Coeffs[0..t] with Coeffs[0] the secret constant term.
type Polynomial struct {
	Coeffs []*bigint.Int
}

// SamplePolynomial draws a fresh random degree-t polynomial over Z_q,
// with an optional fixed constant term (used by Refresh to force the
// zero polynomial, Refresh).
func SamplePolynomial(r io.Reader, q *bigint.Int, degree int, constantTerm *bigint.Int) (*Polynomial, error) {
	coeffs := make([]*bigint.Int, degree+1)
	if constantTerm != nil {
		coeffs[0] = constantTerm
	} else {
		c, err := bigint.UniformMod(r, q)
		if err != nil {
			return nil, err
		}
		coeffs[0] = c
	}
	for k := 1; k <= degree; k++ {
		c, err := bigint.UniformMod(r, q)
		if err != nil {
			return nil, err
		}
		coeffs[k] = c
	}
	return &Polynomial{Coeffs: coeffs}, nil
}

// Eval evaluates the polynomial at x modulo q using Horner's method.
func (p *Polynomial) Eval(x, q *bigint.Int) (*bigint.Int, error) {
	acc := bigint.NewInt(0)
	var err error
	for k := len(p.Coeffs) - 1; k >= 0; k-- {
		acc = acc.Mul(x)
		acc, err = acc.Mod(q)
		if err != nil {
			return nil, err
		}
		acc = acc.Add(p.Coeffs[k])
		acc, err = acc.Mod(q)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// EvalAtPoint evaluates the polynomial at the sharing point assigned to
// a party ID (always id+1, never 0).
func (p *Polynomial) EvalAtPoint(point uint64, q *bigint.Int) (*bigint.Int, error) {
	return p.Eval(bigint.NewInt(int64(point)), q)
}

// powMod returns x^k mod q for a small non-negative integer exponent k,
// used to raise commitments to party-point powers during verification.
func powMod(x *bigint.Int, k int, q *bigint.Int) (*bigint.Int, error) {
	acc := bigint.NewInt(1)
	base, err := x.Mod(q)
	if err != nil {
		return nil, err
	}
	for i := 0; i < k; i++ {
		acc = acc.Mul(base)
		acc, err = acc.Mod(q)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
