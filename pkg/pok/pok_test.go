package pok_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/pok"
)

func TestSchnorrProveVerify(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, false, false)
	require.NoError(t, err)

	x, err := bigint.UniformMod(rand.Reader, grp.Q)
	require.NoError(t, err)
	y, err := grp.Exp(grp.G, x)
	require.NoError(t, err)

	proof, err := pok.ProveSchnorr(rand.Reader, grp, grp.G, y, x)
	require.NoError(t, err)

	ok, err := pok.VerifySchnorr(grp, grp.G, y, proof)
	require.NoError(t, err)
	assert.True(t, ok)

	// Tampering with the response must make verification fail.
	tampered := &pok.SchnorrProof{T: proof.T, R: proof.R.Add(bigint.NewInt(1))}
	ok, err = pok.VerifySchnorr(grp, grp.G, y, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEqualityOfDlogsProveVerify(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)

	x, err := bigint.UniformMod(rand.Reader, grp.Q)
	require.NoError(t, err)
	y1, err := grp.Exp(grp.G, x)
	require.NoError(t, err)
	y2, err := grp.Exp(grp.H, x)
	require.NoError(t, err)

	proof, err := pok.ProveEquality(rand.Reader, grp, grp.G, y1, grp.H, y2, x)
	require.NoError(t, err)

	ok, err := pok.VerifyEquality(grp, grp.G, y1, grp.H, y2, proof)
	require.NoError(t, err)
	assert.True(t, ok)

	// A proof for an unrelated y2 must not verify.
	otherX, err := bigint.UniformMod(rand.Reader, grp.Q)
	require.NoError(t, err)
	wrongY2, err := grp.Exp(grp.H, otherX)
	require.NoError(t, err)
	ok, err = pok.VerifyEquality(grp, grp.G, y1, grp.H, wrongY2, proof)
	require.NoError(t, err)
	assert.False(t, ok)
}
