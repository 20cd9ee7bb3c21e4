package group_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/group"
)

func TestEncodeDecodeCRSRoundTrips(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, false, false)
	require.NoError(t, err)

	record := grp.EncodeCRS()
	got, err := group.DecodeCRS(record)
	require.NoError(t, err)

	assert.True(t, got.P.Equal(grp.P))
	assert.True(t, got.Q.Equal(grp.Q))
	assert.True(t, got.G.Equal(grp.G))
	assert.True(t, got.K.Equal(grp.K))
	assert.NoError(t, got.CheckGroup())
}

func TestDecodeCRSRejectsMalformedRecords(t *testing.T) {
	cases := map[string]string{
		"wrong tag":        "notcrs|a|b|c|d|",
		"missing field":    "crs|a|b|c|",
		"trailing garbage": "crs|a|b|c|d|e|",
		"non-digit field":  "crs|1!|b|2|2|",
		"k not greater 1":  "crs|17|8|2|1|",
	}
	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := group.DecodeCRS(record)
			assert.Error(t, err)
		})
	}
}

func TestDecodeCRSAcceptsFixedRecord(t *testing.T) {
	// p=23, q=11, g=2, k=2; in base 36, 23 is "n" and 11 is "b".
	grp, err := group.DecodeCRS("crs|n|b|2|2|")
	require.NoError(t, err)
	assert.Equal(t, "23", grp.P.Text(10))
	assert.Equal(t, "11", grp.Q.Text(10))
}
