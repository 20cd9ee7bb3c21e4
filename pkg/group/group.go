// Package group implements the prime-order DDH-hard subgroup of
// (Z/pZ)* that every protocol in the core runs over.
package group

import (
	"fmt"
	"io"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/hash"
)

// SecurityLevel bounds the Miller-Rabin iteration count and default CRS
// bit sizes; callers pick a smaller level for tests (the
// tiny-group scenario) and a production level otherwise.
type SecurityLevel struct {
	PrimeBits          int
	MillerRabinRounds  int
}

// Toy is a deliberately tiny, insecure level used only by tests that
// need arithmetic they can check by hand.
var Toy = SecurityLevel{PrimeBits: 32, MillerRabinRounds: 20}

// Production is a conservative default for real deployments.
var Production = SecurityLevel{PrimeBits: 3072, MillerRabinRounds: bigint.DefaultMillerRabinRounds}

// Group holds the public common reference string (p, q, g[, h, k]).
// Once constructed, a Group's fields are never mutated: "reading from
// the CRS is read-only after construction", so Group is
// always passed by value or as an immutable shared pointer.
type Group struct {
	P, Q *bigint.Int // p = k*q + 1, both prime
	G    *bigint.Int // generator of the order-q subgroup
	H    *bigint.Int // optional second generator, log_g H unknown
	K    *bigint.Int // cofactor
	verifiableG bool
}

// Generate builds a fresh Group of the requested bit sizes. If
// verifiableG is set, g (and, if withH, h) are derived deterministically
// from (p, q, k) by hashing into Zp and raising to the cofactor k,
// retrying on a degenerate result, so that log_g h is unknown to
// anyone, including the generator.
func Generate(r io.Reader, level SecurityLevel, verifiableG, withH bool) (*Group, error) {
	q, p, err := bigint.GenerateSophieGermain(r, level.PrimeBits, level.MillerRabinRounds)
	if err != nil {
		return nil, fmt.Errorf("group: generating safe prime: %w", err)
	}
	k := bigint.NewInt(2)

	g, err := deriveGenerator(p, q, k, verifiableG, "g", r)
	if err != nil {
		return nil, err
	}

	grp := &Group{P: p, Q: q, G: g, K: k, verifiableG: verifiableG}
	if withH {
		h, err := deriveGenerator(p, q, k, verifiableG, "h", r)
		if err != nil {
			return nil, err
		}
		grp.H = h
	}
	return grp, nil
}

// deriveGenerator returns g = Hash(label, p, q, k, ctr)^k mod p,
// retrying with an incremented counter whenever the result is 0 or 1,
// for the verifiable-g mode; for the non-verifiable mode it samples a
// uniformly random element instead.
func deriveGenerator(p, q, k *bigint.Int, verifiable bool, label string, r io.Reader) (*bigint.Int, error) {
	if !verifiable {
		return randomElement(r, p, q)
	}
	for ctr := uint64(0); ; ctr++ {
		digest := hash.New("tmcgcore/group-generator").
			WriteBytes([]byte(label)).
			WriteInt(p.Big()).WriteInt(q.Big()).WriteInt(k.Big()).
			WriteUint64(ctr)
		x := bigint.FromBytes(digest.Sum())
		xModP, err := x.Mod(p)
		if err != nil {
			return nil, err
		}
		g, err := xModP.Exp(k, p)
		if err != nil {
			return nil, err
		}
		if g.Cmp(bigint.NewInt(0)) == 0 || g.Cmp(bigint.NewInt(1)) == 0 {
			continue
		}
		return g, nil
	}
}

func randomElement(r io.Reader, p, q *bigint.Int) (*bigint.Int, error) {
	x, err := bigint.UniformMod(r, p)
	if err != nil {
		return nil, err
	}
	kCofactor, err := p.Sub(bigint.NewInt(1)).Div(q)
	if err != nil {
		return nil, err
	}
	g, err := x.Exp(kCofactor, p)
	if err != nil {
		return nil, err
	}
	if g.Cmp(bigint.NewInt(0)) == 0 || g.Cmp(bigint.NewInt(1)) == 0 {
		return randomElement(r, p, q)
	}
	return g, nil
}

// CheckGroup verifies the group invariants: p, q prime; q | p-1;
// g != 1 and g^q == 1 mod p; and, for a verifiable-g group, that g (and
// h, if present) re-derive to the same value from (p, q, k).
func (grp *Group) CheckGroup() error {
	if !grp.P.ProbablyPrime(0) {
		return fmt.Errorf("group: p is not prime")
	}
	if !grp.Q.ProbablyPrime(0) {
		return fmt.Errorf("group: q is not prime")
	}
	pMinus1 := grp.P.Sub(bigint.NewInt(1))
	qk := grp.Q.Mul(grp.K)
	if !qk.Equal(pMinus1) {
		return fmt.Errorf("group: q does not divide p-1 with cofactor k")
	}
	if grp.G.Cmp(bigint.NewInt(1)) == 0 {
		return fmt.Errorf("group: g == 1")
	}
	gq, err := grp.G.Exp(grp.Q, grp.P)
	if err != nil {
		return err
	}
	if !gq.Equal(bigint.NewInt(1)) {
		return fmt.Errorf("group: g^q != 1 mod p")
	}
	if grp.verifiableG {
		g2, err := deriveGenerator(grp.P, grp.Q, grp.K, true, "g", nil)
		if err != nil {
			return err
		}
		if !g2.Equal(grp.G) {
			return fmt.Errorf("group: g does not re-derive from (p,q,k)")
		}
		if grp.H != nil {
			h2, err := deriveGenerator(grp.P, grp.Q, grp.K, true, "h", nil)
			if err != nil {
				return err
			}
			if !h2.Equal(grp.H) {
				return fmt.Errorf("group: h does not re-derive from (p,q,k)")
			}
		}
	}
	return nil
}

// IsMember reports whether x is a member of the order-q subgroup:
// 1 < x < p and x^q == 1 mod p.
func (grp *Group) IsMember(x *bigint.Int) bool {
	if x.Cmp(bigint.NewInt(1)) <= 0 || x.Cmp(grp.P) >= 0 {
		return false
	}
	xq, err := x.Exp(grp.Q, grp.P)
	if err != nil {
		return false
	}
	return xq.Equal(bigint.NewInt(1))
}

// RandomElement returns g^r mod p for a uniformly random r in Zq.
func (grp *Group) RandomElement(r io.Reader) (*bigint.Int, error) {
	exp, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, err
	}
	return grp.G.Exp(exp, grp.P)
}

// IndexElement returns a deterministic, collision-free injection
// i -> Gp used for canonical public reference points (e.g. per-party
// verification anchors), matching the index_element
// construction supplemented from original_source.
func (grp *Group) IndexElement(i uint64) (*bigint.Int, error) {
	for ctr := uint64(0); ; ctr++ {
		digest := hash.New("tmcgcore/group-index-element").WriteUint64(i).WriteUint64(ctr)
		x := bigint.FromBytes(digest.Sum())
		xModP, err := x.Mod(grp.P)
		if err != nil {
			return nil, err
		}
		elem, err := xModP.Exp(grp.K, grp.P)
		if err != nil {
			return nil, err
		}
		if elem.Cmp(bigint.NewInt(0)) == 0 || elem.Cmp(bigint.NewInt(1)) == 0 {
			continue
		}
		return elem, nil
	}
}

// Exp returns base^exp mod p, the group's modular exponentiation.
func (grp *Group) Exp(base, exp *bigint.Int) (*bigint.Int, error) {
	return base.Exp(exp, grp.P)
}

// Mul returns a*b mod p.
func (grp *Group) Mul(a, b *bigint.Int) (*bigint.Int, error) {
	return a.Mul(b).Mod(grp.P)
}

// Inv returns a^-1 mod p.
func (grp *Group) Inv(a *bigint.Int) (*bigint.Int, error) {
	return a.ModInverse(grp.P)
}
