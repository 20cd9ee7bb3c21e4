package round_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pool"
	"github.com/luxfi/tmcgcore/pkg/protolog"
)

func TestHelperAccessors(t *testing.T) {
	grp := &group.Group{P: bigint.NewInt(23), Q: bigint.NewInt(11), G: bigint.NewInt(2), K: bigint.NewInt(2)}
	ids := []party.ID{2, 0, 1, 3}
	h := round.NewHelper("tmcgcore/test", 1, ids, 1, grp, []byte("ssid-1"), pool.NewPool(1))

	assert.Equal(t, party.ID(1), h.SelfID())
	assert.Equal(t, party.NewIDSlice(ids), h.PartyIDs())
	assert.Equal(t, party.IDSlice{0, 2, 3}, h.OtherPartyIDs())
	assert.Equal(t, 4, h.N())
	assert.Equal(t, 1, h.Threshold())
	assert.Same(t, grp, h.Group())
	assert.Equal(t, []byte("ssid-1"), h.SSID())
	assert.Equal(t, "tmcgcore/test", h.ProtocolID())
	assert.NotNil(t, h.Pool())
}

func TestHelperLogDefaultsToDiscardThenSetLog(t *testing.T) {
	h := round.NewHelper("tmcgcore/test", 0, []party.ID{0}, 0, nil, nil, nil)
	assert.Equal(t, protolog.Discard, h.Log())

	c := &protolog.Collector{}
	h.SetLog(c)
	h.Log().Logf("hello %d", 1)
	assert.Equal(t, []string{"hello 1"}, c.Lines)

	h.SetLog(nil)
	assert.Equal(t, protolog.Discard, h.Log())
}
