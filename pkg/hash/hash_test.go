package hash_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/tmcgcore/pkg/hash"
)

func TestSumIsDeterministicAndDomainSeparated(t *testing.T) {
	d1 := hash.New("domain-a").WriteBytes([]byte("x")).Sum()
	d2 := hash.New("domain-a").WriteBytes([]byte("x")).Sum()
	d3 := hash.New("domain-b").WriteBytes([]byte("x")).Sum()
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}

func TestWriteDomainDistinguishesSiblingUses(t *testing.T) {
	base := func(tag string) []byte {
		return hash.New("rbc-vote").WriteUint64(7).WriteDomain(tag).Sum()
	}
	assert.NotEqual(t, base("ECHO"), base("READY"))
}

func TestSumToZqStaysInRange(t *testing.T) {
	q := big.NewInt(11)
	c := hash.New("d").WriteInt(big.NewInt(12345)).SumToZq(q)
	assert.True(t, c.Sign() >= 0)
	assert.True(t, c.Cmp(q) < 0)
}

func TestSchnorrChallengeIsDeterministic(t *testing.T) {
	q := big.NewInt(11)
	g, y, tt := big.NewInt(2), big.NewInt(3), big.NewInt(4)
	c1 := hash.SchnorrChallenge(q, g, y, tt)
	c2 := hash.SchnorrChallenge(q, g, y, tt)
	assert.Equal(t, c1, c2)
	assert.True(t, c1.Cmp(q) < 0)
}

func TestEqualityChallengeDiffersFromSchnorrChallenge(t *testing.T) {
	q := big.NewInt(11)
	g1, y1, g2, y2, t1, t2 := big.NewInt(2), big.NewInt(3), big.NewInt(5), big.NewInt(7), big.NewInt(4), big.NewInt(6)
	eq := hash.EqualityChallenge(q, g1, y1, g2, y2, t1, t2)
	sc := hash.SchnorrChallenge(q, g1, y1, t1)
	assert.NotEqual(t, eq, sc)
}
