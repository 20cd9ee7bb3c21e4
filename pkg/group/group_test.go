package group_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
)

func TestTinyGroupScenario(t *testing.T) {
	// Scenario 1 from spec §8: p=23, q=11, g=2.
	grp := &group.Group{
		P: bigint.NewInt(23),
		Q: bigint.NewInt(11),
		G: bigint.NewInt(2),
		K: bigint.NewInt(2),
	}
	require.NoError(t, grp.CheckGroup())
	assert.True(t, grp.IsMember(bigint.NewInt(2)))
	assert.False(t, grp.IsMember(bigint.NewInt(1)))
	assert.False(t, grp.IsMember(bigint.NewInt(5))) // not a quadratic residue in the order-11 subgroup
}

func TestGenerateProducesValidGroup(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, false, false)
	require.NoError(t, err)
	require.NoError(t, grp.CheckGroup())
}

func TestGenerateVerifiableGRederives(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)
	require.NoError(t, grp.CheckGroup())
	assert.NotNil(t, grp.H)
}

func TestCheckGroupRejectsNonMemberGenerator(t *testing.T) {
	// p=23, q=11, k=2: the order-11 subgroup is the quadratic residues
	// mod 23; 5 is not among them, so g^q != 1 mod p.
	bad := &group.Group{
		P: bigint.NewInt(23),
		Q: bigint.NewInt(11),
		G: bigint.NewInt(5),
		K: bigint.NewInt(2),
	}
	assert.Error(t, bad.CheckGroup())
}

func TestRandomElementIsMember(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, false, false)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		el, err := grp.RandomElement(rand.Reader)
		require.NoError(t, err)
		assert.True(t, grp.IsMember(el))
	}
}

func TestIndexElementIsDeterministicAndMember(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, false, false)
	require.NoError(t, err)

	e1, err := grp.IndexElement(3)
	require.NoError(t, err)
	e2, err := grp.IndexElement(3)
	require.NoError(t, err)
	assert.True(t, e1.Equal(e2), "IndexElement must be deterministic for a fixed index")
	assert.True(t, grp.IsMember(e1))

	e3, err := grp.IndexElement(4)
	require.NoError(t, err)
	assert.False(t, e1.Equal(e3), "distinct indices should not collide in practice")
}
