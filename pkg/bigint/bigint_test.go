package bigint_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/bigint"
)

func TestArithmetic(t *testing.T) {
	a := bigint.NewInt(7)
	b := bigint.NewInt(3)

	assert.Equal(t, int64(10), bigint.NewInt(0).Add(a).Add(b).Big().Int64())
	assert.Equal(t, int64(4), a.Sub(b).Big().Int64())
	assert.Equal(t, int64(21), a.Mul(b).Big().Int64())

	q, err := a.Div(b)
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.Big().Int64())

	m, err := a.Mod(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Big().Int64())

	_, err = a.Div(bigint.NewInt(0))
	assert.ErrorIs(t, err, bigint.ErrDomain)
}

func TestNegativeZeroNormalizes(t *testing.T) {
	a := bigint.NewInt(5)
	zero := a.Sub(a)
	assert.True(t, zero.IsZero())
	assert.Equal(t, 0, zero.Sign())

	neg := zero.Neg()
	assert.True(t, neg.IsZero())
	assert.True(t, neg.Equal(bigint.NewInt(0)))
}

func TestModInverse(t *testing.T) {
	a := bigint.NewInt(3)
	m := bigint.NewInt(11)
	inv, err := a.ModInverse(m)
	require.NoError(t, err)
	prod, err := a.Mul(inv).Mod(m)
	require.NoError(t, err)
	assert.Equal(t, int64(1), prod.Big().Int64())

	_, err = bigint.NewInt(2).ModInverse(bigint.NewInt(4))
	assert.ErrorIs(t, err, bigint.ErrNoInverse)
}

func TestExpRejectsTrivialModulus(t *testing.T) {
	_, err := bigint.NewInt(2).Exp(bigint.NewInt(3), bigint.NewInt(1))
	assert.ErrorIs(t, err, bigint.ErrDomain)

	r, err := bigint.NewInt(2).Exp(bigint.NewInt(10), bigint.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(24), r.Big().Int64())
}

func TestFromStringRoundTrips(t *testing.T) {
	x, err := bigint.FromString("z0", 36)
	require.NoError(t, err)
	assert.Equal(t, "z0", x.String())

	_, err = bigint.FromString("", 36)
	assert.ErrorIs(t, err, bigint.ErrEncoding)

	_, err = bigint.FromString("not-a-number!!", 10)
	assert.ErrorIs(t, err, bigint.ErrEncoding)
}

func TestUniformModStaysInRange(t *testing.T) {
	m := bigint.NewInt(1000)
	for i := 0; i < 50; i++ {
		v, err := bigint.UniformMod(rand.Reader, m)
		require.NoError(t, err)
		assert.True(t, v.Sign() >= 0)
		assert.True(t, v.Cmp(m) < 0)
	}
}

func TestPoolAmortizesSampling(t *testing.T) {
	pool := bigint.NewPool(bigint.Strong, bigint.NewInt(997), 4)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		v, err := pool.Next()
		require.NoError(t, err)
		assert.True(t, v.Cmp(bigint.NewInt(997)) < 0)
		seen[v.String()] = true
	}
}

func TestProbablyPrime(t *testing.T) {
	assert.True(t, bigint.NewInt(23).ProbablyPrime(0))
	assert.False(t, bigint.NewInt(24).ProbablyPrime(0))
}

func TestGenerateSophieGermain(t *testing.T) {
	q, p, err := bigint.GenerateSophieGermain(rand.Reader, 32, 20)
	require.NoError(t, err)
	assert.True(t, q.ProbablyPrime(20))
	assert.True(t, p.ProbablyPrime(20))

	expected := q.Mul2Exp(1).Add(bigint.NewInt(1))
	assert.True(t, p.Equal(expected), "p must equal 2q+1")
}

func TestFixedBaseMatchesPlainExp(t *testing.T) {
	base := bigint.NewInt(5)
	modulus := bigint.NewInt(23 * 47)
	exp := bigint.NewInt(12345)

	want, err := base.Exp(exp, modulus)
	require.NoError(t, err)

	var fb bigint.FixedBase
	fb.Init(base, modulus, 32)
	require.NoError(t, fb.Precompute())
	got, err := fb.Powm(exp)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	fb.Done()
}

func TestBlindedExpMatchesPlainExp(t *testing.T) {
	// small safe-prime subgroup: p = 23, q = 11, g = 2 (order 11: 2^11 mod 23 == 1)
	p := bigint.NewInt(23)
	q := bigint.NewInt(11)
	g := bigint.NewInt(2)
	e := bigint.NewInt(7)

	want, err := g.Exp(e, p)
	require.NoError(t, err)

	got, err := bigint.BlindedExp(g, e, p, q)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestAbsAndDiv2Exp(t *testing.T) {
	neg := bigint.NewInt(0).Sub(bigint.NewInt(5))
	assert.Equal(t, int64(5), neg.Abs().Big().Int64())
	assert.Equal(t, int64(5), bigint.NewInt(5).Abs().Big().Int64())

	assert.Equal(t, int64(5), bigint.NewInt(20).Div2Exp(2).Big().Int64())
	assert.Equal(t, int64(1), bigint.NewInt(20).Div2Exp(4).Big().Int64())
}

func TestGCDAndJacobi(t *testing.T) {
	g := bigint.NewInt(48).GCD(bigint.NewInt(18))
	assert.Equal(t, int64(6), g.Big().Int64())

	// 2 is a quadratic residue mod 7 (3^2 = 9 = 2 mod 7).
	assert.Equal(t, 1, bigint.NewInt(2).Jacobi(bigint.NewInt(7)))
	// 3 is not a quadratic residue mod 7.
	assert.Equal(t, -1, bigint.NewInt(3).Jacobi(bigint.NewInt(7)))
}

func TestModSqrt(t *testing.T) {
	p := bigint.NewInt(23)
	// 4 is a QR mod 23 (2^2 = 4).
	root, ok := bigint.NewInt(4).ModSqrt(p)
	require.True(t, ok)
	squared, err := root.Mul(root).Mod(p)
	require.NoError(t, err)
	assert.Equal(t, int64(4), squared.Big().Int64())

	// A non-residue has no square root.
	_, ok = bigint.NewInt(5).ModSqrt(p)
	assert.False(t, ok)
}

func TestModSqrtPQ(t *testing.T) {
	p, q := bigint.NewInt(11), bigint.NewInt(23)
	n := p.Mul(q)
	x := bigint.NewInt(4) // 2^2 mod both primes
	root, ok := bigint.ModSqrtPQ(x, p, q)
	require.True(t, ok)
	squared, err := root.Mul(root).Mod(n)
	require.NoError(t, err)
	assert.Equal(t, x.Big().Int64(), squared.Big().Int64())
}

func TestSecretFromUint64(t *testing.T) {
	s := bigint.SecretFromUint64(42, 16)
	assert.Equal(t, int64(42), s.Int().Big().Int64())

	same := bigint.NewSecret(bigint.NewInt(42), 16)
	assert.True(t, s.Equal(same))
}

func TestSecretEqualAndModArithmetic(t *testing.T) {
	m := bigint.NewModulus(bigint.NewInt(23))
	a := bigint.NewSecret(bigint.NewInt(7), 16)
	b := bigint.NewSecret(bigint.NewInt(3), 16)

	sum := m.ModAdd(a, b)
	assert.Equal(t, int64(10), sum.Int().Big().Int64())

	diff := m.ModSub(a, b)
	assert.Equal(t, int64(4), diff.Int().Big().Int64())

	prod := m.ModMul(a, b)
	assert.Equal(t, int64(21), prod.Int().Big().Int64())

	same := bigint.NewSecret(bigint.NewInt(7), 16)
	assert.True(t, a.Equal(same))
	assert.False(t, a.Equal(b))
}
