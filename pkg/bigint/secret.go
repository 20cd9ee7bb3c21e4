package bigint

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// Secret holds a secret scalar in a fixed-announced-length saferith.Nat
// so that arithmetic on it does not leak its true bit length through
// timing, a "secure mode" / zeroizing-arena
// requirement. Secret values must never be logged or compared with a
// non-constant-time Cmp.
type Secret struct {
	nat  *saferith.Nat
	bits int
}

// NewSecret wraps x as a secret of the given announced bit length (the
// modulus' bit length is the natural choice).
func NewSecret(x *Int, bits int) *Secret {
	return &Secret{nat: x.toNat(bits), bits: bits}
}

// SecretFromUint64 builds a small secret, e.g. a party index used as a
// polynomial evaluation point.
func SecretFromUint64(x uint64, bits int) *Secret {
	n := new(saferith.Nat).SetUint64(x)
	if bits > 0 {
		n = n.Resize(bits)
	}
	return &Secret{nat: n, bits: bits}
}

// Int exposes the secret's value as a public Int. Only call this once
// the value is no longer secret (e.g. after it has been published as
// part of a completed protocol, or in tests).
func (s *Secret) Int() *Int { return natToInt(s.nat) }

// Equal performs a constant-time comparison, satisfying the
// "equality is constant-time for secrets" requirement.
func (s *Secret) Equal(o *Secret) bool {
	return s.nat.Eq(o.nat) == 1
}

// Modulus wraps a public modulus for use with Secret arithmetic.
type Modulus struct {
	m *saferith.Modulus
}

// NewModulus builds a Modulus from a public Int. m must be odd and
// positive; safe-prime p as produced by GenerateSafePrime always
// qualifies.
func NewModulus(m *Int) *Modulus {
	return &Modulus{m: saferith.ModulusFromBytes(m.v.Bytes())}
}

// ModAdd returns (a+b) mod m.
func (m *Modulus) ModAdd(a, b *Secret) *Secret {
	return &Secret{nat: new(saferith.Nat).ModAdd(a.nat, b.nat, m.m), bits: m.m.BitLen()}
}

// ModSub returns (a-b) mod m.
func (m *Modulus) ModSub(a, b *Secret) *Secret {
	neg := new(saferith.Nat).ModNeg(b.nat, m.m)
	return &Secret{nat: new(saferith.Nat).ModAdd(a.nat, neg, m.m), bits: m.m.BitLen()}
}

// ModMul returns (a*b) mod m.
func (m *Modulus) ModMul(a, b *Secret) *Secret {
	return &Secret{nat: new(saferith.Nat).ModMul(a.nat, b.nat, m.m), bits: m.m.BitLen()}
}

// Exp returns base^exp mod m using saferith's constant-time
// exponentiation for secret exponents (no blinding), for constant-time
// modexp requirement. base is treated as public (it is almost always a
// CRS generator), exp as secret.
func (m *Modulus) Exp(base *Int, exp *Secret) *Int {
	baseNat := new(saferith.Nat).SetBytes(base.v.Bytes())
	out := new(saferith.Nat).Exp(baseNat, exp.nat, m.m)
	return natToInt(out)
}

// BlindedExp computes a^e mod p for secret e against a public modulus p
// using re-randomized blinding: it samples r <- Zp* and computes
// (a*r^q)^e * r^{-eq mod q} so that repeated calls with the same
// exponent leak different intermediate values, via blinding
// construction. q must be the order of the subgroup generated by a.
func BlindedExp(a, e, p, q *Int) (*Int, error) {
	if p.v.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("%w: modulus must be > 1", ErrDomain)
	}
	var r *Int
	for {
		cand, err := UniformMod(rand.Reader, p)
		if err != nil {
			return nil, err
		}
		if cand.Sign() > 0 {
			r = cand
			break
		}
	}
	// blinded base: a' = a * r^q mod p
	rq, err := r.Exp(q, p)
	if err != nil {
		return nil, err
	}
	aBlinded := a.Mul(rq)
	aBlinded, err = aBlinded.Mod(p)
	if err != nil {
		return nil, err
	}
	resultBlinded, err := aBlinded.Exp(e, p)
	if err != nil {
		return nil, err
	}
	// unblind: (a*r^q)^e = a^e * r^{qe}, so multiplying by the inverse
	// of corr = r^{qe} leaves exactly a^e.
	corrExp := q.Mul(e)
	corr, err := r.Exp(corrExp, p)
	if err != nil {
		return nil, err
	}
	corrInv, err := corr.ModInverse(p)
	if err != nil {
		return nil, err
	}
	out := resultBlinded.Mul(corrInv)
	return out.Mod(p)
}

// FixedBase precomputes a table for repeated exponentiation with a
// fixed base, exposing the init/precompute/powm/done lifecycle
// the literature calls "fpowm".
type FixedBase struct {
	base, modulus *Int
	table         []*Int // table[k] = base^(2^k) mod modulus
	bits          int
}

// Init allocates a FixedBase for the given base/modulus pair without
// computing the table yet.
func (fb *FixedBase) Init(base, modulus *Int, bits int) {
	fb.base = base
	fb.modulus = modulus
	fb.bits = bits
	fb.table = nil
}

// Precompute fills the squaring table. Must be called once before Powm.
func (fb *FixedBase) Precompute() error {
	table := make([]*Int, fb.bits)
	cur := fb.base
	for i := 0; i < fb.bits; i++ {
		table[i] = cur
		var err error
		cur, err = cur.Mul(cur).Mod(fb.modulus)
		if err != nil {
			return err
		}
	}
	fb.table = table
	return nil
}

// Powm computes base^exp mod modulus using the precomputed table via
// square-and-multiply over the cached powers of two.
func (fb *FixedBase) Powm(exp *Int) (*Int, error) {
	if fb.table == nil {
		return nil, fmt.Errorf("bigint: FixedBase.Powm called before Precompute")
	}
	result := NewInt(1)
	e := new(big.Int).Set(exp.v)
	for i := 0; i < fb.bits && e.Sign() != 0; i++ {
		if e.Bit(0) == 1 {
			result = result.Mul(fb.table[i])
			var err error
			result, err = result.Mod(fb.modulus)
			if err != nil {
				return nil, err
			}
		}
		e.Rsh(e, 1)
	}
	return result, nil
}

// Done releases the precomputed table.
func (fb *FixedBase) Done() {
	fb.table = nil
}
