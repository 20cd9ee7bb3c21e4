// Package bigint implements the arbitrary-precision integer layer
// described by the core's Bigint contract: construction from several
// encodings, the usual ring operations, modular exponentiation (plain
// and blinded/constant-time), primality testing, safe-prime generation,
// and rejection-sampled uniform residues.
//
// Public values (p, q, g, commitments) are plain *big.Int wrappers:
// math/big already implements GCD, Jacobi symbols, ProbablyPrime and
// modular square roots correctly and no third-party library does this
// better, so Int is deliberately stdlib-only. Secret scalars that need
// to resist timing/cache side channels go through Secret, which is
// backed by github.com/cronokirby/saferith's fixed-length Nat
// arithmetic rather than math/big.
package bigint

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/cronokirby/saferith"
)

// Errors surfaced by domain violations in this package.
var (
	ErrDomain    = errors.New("bigint: domain error")
	ErrEncoding  = errors.New("bigint: invalid encoding")
	ErrNoInverse = errors.New("bigint: modular inverse does not exist")
)

// Int is an arbitrary precision public integer.
type Int struct {
	v *big.Int
}

// NewInt builds an Int from an int64.
func NewInt(x int64) *Int {
	return &Int{v: big.NewInt(x)}
}

// FromBigInt wraps a copy of an existing *big.Int.
func FromBigInt(v *big.Int) *Int {
	return &Int{v: new(big.Int).Set(v)}
}

// FromString parses s in the given base (2-36). An empty or malformed
// string is ErrEncoding.
func FromString(s string, base int) (*Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEncoding
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, ErrEncoding
	}
	return &Int{v: v}, nil
}

// FromBytes interprets b as a big-endian unsigned magnitude.
func FromBytes(b []byte) *Int {
	return &Int{v: new(big.Int).SetBytes(b)}
}

// Big returns the underlying *big.Int. Callers must not mutate it.
func (a *Int) Big() *big.Int { return a.v }

// String renders a in base 36, matching the CRS serialization's default
// radix.
func (a *Int) String() string { return a.v.Text(36) }

// Text renders a in the given base.
func (a *Int) Text(base int) string { return a.v.Text(base) }

// Bytes returns the big-endian unsigned magnitude.
func (a *Int) Bytes() []byte { return a.v.Bytes() }

func op2(a, b *Int, f func(z, x, y *big.Int) *big.Int) *Int {
	return &Int{v: f(new(big.Int), a.v, b.v)}
}

// Add returns a+b.
func (a *Int) Add(b *Int) *Int { return op2(a, b, (*big.Int).Add) }

// Sub returns a-b, normalizing so that -0 compares equal to 0 (the
// negative-zero workaround).
func (a *Int) Sub(b *Int) *Int {
	r := op2(a, b, (*big.Int).Sub)
	r.normalizeZero()
	return r
}

// Mul returns a*b.
func (a *Int) Mul(b *Int) *Int { return op2(a, b, (*big.Int).Mul) }

// Div returns the truncated quotient a/b.
func (a *Int) Div(b *Int) (*Int, error) {
	if b.v.Sign() == 0 {
		return nil, fmt.Errorf("%w: division by zero", ErrDomain)
	}
	return op2(a, b, (*big.Int).Quo), nil
}

// Mod returns a mod b for b > 0 (Euclidean remainder, always
// non-negative).
func (a *Int) Mod(b *Int) (*Int, error) {
	if b.v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive", ErrDomain)
	}
	r := op2(a, b, (*big.Int).Mod)
	r.normalizeZero()
	return r, nil
}

// Neg returns -a, normalized so Neg(0) == 0.
func (a *Int) Neg() *Int {
	r := &Int{v: new(big.Int).Neg(a.v)}
	r.normalizeZero()
	return r
}

// Abs returns |a|.
func (a *Int) Abs() *Int { return &Int{v: new(big.Int).Abs(a.v)} }

// Mul2Exp returns a * 2^k.
func (a *Int) Mul2Exp(k uint) *Int { return &Int{v: new(big.Int).Lsh(a.v, k)} }

// Div2Exp returns a / 2^k (arithmetic shift, truncating toward zero for
// non-negative a, which is all this package ever shifts).
func (a *Int) Div2Exp(k uint) *Int { return &Int{v: new(big.Int).Rsh(a.v, k)} }

// Sign returns -1, 0, or 1.
func (a *Int) Sign() int { return a.v.Sign() }

// Cmp compares a to b.
func (a *Int) Cmp(b *Int) int { return a.v.Cmp(b.v) }

// Equal reports whether a == b. This is not constant-time; use
// Secret.Equal for secret comparisons.
func (a *Int) Equal(b *Int) bool { return a.v.Cmp(b.v) == 0 }

// IsZero reports whether a == 0.
func (a *Int) IsZero() bool { return a.v.Sign() == 0 }

func (a *Int) normalizeZero() {
	if a.v.Sign() == 0 {
		a.v.SetInt64(0)
	}
}

// Exp returns a^e mod m. It rejects m <= 1.
func (a *Int) Exp(e, m *Int) (*Int, error) {
	if m.v.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("%w: modulus must be > 1", ErrDomain)
	}
	return &Int{v: new(big.Int).Exp(a.v, e.v, m.v)}, nil
}

// ModInverse returns a^-1 mod m, or ErrNoInverse if gcd(a, m) != 1.
func (a *Int) ModInverse(m *Int) (*Int, error) {
	r := new(big.Int).ModInverse(a.v, m.v)
	if r == nil {
		return nil, ErrNoInverse
	}
	return &Int{v: r}, nil
}

// GCD returns gcd(a, b).
func (a *Int) GCD(b *Int) *Int {
	return &Int{v: new(big.Int).GCD(nil, nil, a.v.Abs(new(big.Int).Set(a.v)), b.v.Abs(new(big.Int).Set(b.v)))}
}

// Jacobi returns the Jacobi symbol (a/m).
func (a *Int) Jacobi(m *Int) int { return big.Jacobi(a.v, m.v) }

// ModSqrt returns a square root of a modulo the prime p, if one exists.
func (a *Int) ModSqrt(p *Int) (*Int, bool) {
	r := new(big.Int).ModSqrt(a.v, p.v)
	if r == nil {
		return nil, false
	}
	return &Int{v: r}, true
}

// ModSqrtPQ returns a square root of a modulo n = p*q for distinct
// primes p, q, using CRT composition of the two prime-modulus roots.
// Returns false if a has no square root mod p or mod q.
func ModSqrtPQ(a, p, q *Int) (*Int, bool) {
	n := p.Mul(q)
	rp, ok := a.ModSqrt(p)
	if !ok {
		return nil, false
	}
	rq, ok := a.ModSqrt(q)
	if !ok {
		return nil, false
	}
	// CRT: find x = rp mod p, x = rq mod q
	qInv, err := q.ModInverse(p)
	if err != nil {
		return nil, false
	}
	t, err := rp.Sub(rq).Mul(qInv).Mod(p)
	if err != nil {
		return nil, false
	}
	x, err := rq.Add(q.Mul(t)).Mod(n)
	if err != nil {
		return nil, false
	}
	return x, true
}

// ProbablyPrime runs a Miller-Rabin test with the given number of
// rounds (0 uses the package default of 64).
func (a *Int) ProbablyPrime(iterations int) bool {
	if iterations <= 0 {
		iterations = DefaultMillerRabinRounds
	}
	return a.v.ProbablyPrime(iterations)
}

// DefaultMillerRabinRounds is the default primality-test iteration
// count required for safe-prime generation.
const DefaultMillerRabinRounds = 64

// RandomTier selects the entropy quality used to seed uniform sampling
// and key material.
type RandomTier int

const (
	// Weak uses a fast, non-cryptographic PRNG seeded once from OS
	// entropy; suitable only for non-secret test values.
	Weak RandomTier = iota
	// Strong is seeded once from OS entropy and then stretched.
	Strong
	// VeryStrong reads directly from the blocking OS entropy source for
	// every call.
	VeryStrong
)

// Reader returns an io.Reader for the requested entropy tier.
func Reader(tier RandomTier) io.Reader {
	switch tier {
	case Weak:
		return newWeakReader()
	case Strong:
		return newStrongReader()
	default:
		return rand.Reader
	}
}

// UniformMod returns a uniformly random value in [0, m) using rejection
// sampling to avoid modulo bias, reading from r.
func UniformMod(r io.Reader, m *Int) (*Int, error) {
	if m.v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive", ErrDomain)
	}
	bitLen := m.v.BitLen()
	byteLen := (bitLen + 7) / 8
	mask := byte(0xff)
	if bitLen%8 != 0 {
		mask = byte(1<<uint(bitLen%8)) - 1
	}
	buf := make([]byte, byteLen)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("bigint: reading entropy: %w", err)
		}
		buf[0] &= mask
		candidate := new(big.Int).SetBytes(buf)
		if candidate.Cmp(m.v) < 0 {
			return &Int{v: candidate}, nil
		}
	}
}

// Pool amortizes UniformMod by caching k precomputed residues modulo m,
// ("the generator caches a pool of k precomputed
// uniform residues mod m").
type Pool struct {
	r    io.Reader
	m    *Int
	size int
	buf  []*Int
}

// NewPool creates a residue pool of the given size, modulus, and
// entropy tier.
func NewPool(tier RandomTier, m *Int, size int) *Pool {
	return &Pool{r: Reader(tier), m: m, size: size}
}

// Next returns the next uniform residue, refilling the cache as needed.
func (p *Pool) Next() (*Int, error) {
	if len(p.buf) == 0 {
		fresh := make([]*Int, 0, p.size)
		for i := 0; i < p.size; i++ {
			v, err := UniformMod(p.r, p.m)
			if err != nil {
				return nil, err
			}
			fresh = append(fresh, v)
		}
		p.buf = fresh
	}
	v := p.buf[len(p.buf)-1]
	p.buf = p.buf[:len(p.buf)-1]
	return v, nil
}

// toNat converts a non-negative Int into a saferith.Nat announced to at
// least bits bits, for use with the blinded/constant-time path.
func (a *Int) toNat(bits int) *saferith.Nat {
	n := new(saferith.Nat).SetBytes(a.v.Bytes())
	if bits > 0 {
		n = n.Resize(bits)
	}
	return n
}

// natToInt converts a saferith.Nat back into a public Int.
func natToInt(n *saferith.Nat) *Int {
	return &Int{v: new(big.Int).SetBytes(n.Bytes())}
}
