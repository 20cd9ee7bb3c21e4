package aiou_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/party"
)

func buildPair(t *testing.T) (a, b *aiou.Channels) {
	t.Helper()
	net := aiou.NewNetwork()
	var err error
	a, err = aiou.New(0, map[party.ID]aiou.Link{1: net.Link(0, 1)}, "pair-secret")
	require.NoError(t, err)
	b, err = aiou.New(1, map[party.ID]aiou.Link{0: net.Link(1, 0)}, "pair-secret")
	require.NoError(t, err)
	return a, b
}

func TestSendReceiveDirect(t *testing.T) {
	a, b := buildPair(t)
	require.NoError(t, a.Send(1, []byte("hello")))

	res := b.Receive(aiou.Direct, 0, aiou.Short)
	require.True(t, res.Delivered)
	assert.Equal(t, party.ID(0), res.From)
	assert.Equal(t, []byte("hello"), res.Payload)

	cnt, ok := a.Counters(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cnt.NumWrite)
	assert.Equal(t, uint64(1), cnt.NumEncrypted)

	cntB, ok := b.Counters(0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cntB.NumRead)
	assert.Equal(t, uint64(1), cntB.NumDecrypted)
	assert.Equal(t, uint64(1), cntB.NumAuthenticated)
}

func TestReceiveTimesOutWithoutDisconnecting(t *testing.T) {
	_, b := buildPair(t)
	res := b.Receive(aiou.Direct, 0, aiou.Short)
	assert.False(t, res.Delivered)
	cnt, ok := b.Counters(0)
	require.True(t, ok, "a timed-out peer is not removed")
	assert.Equal(t, uint64(0), cnt.NumRead)
}

func TestOrderedDeliveryAcrossMultipleMessages(t *testing.T) {
	a, b := buildPair(t)
	require.NoError(t, a.Send(1, []byte("one")))
	require.NoError(t, a.Send(1, []byte("two")))

	r1 := b.Receive(aiou.Direct, 0, aiou.Short)
	require.True(t, r1.Delivered)
	assert.Equal(t, []byte("one"), r1.Payload)

	r2 := b.Receive(aiou.Direct, 0, aiou.Short)
	require.True(t, r2.Delivered)
	assert.Equal(t, []byte("two"), r2.Payload)
}

func TestSendToUnknownPeerFails(t *testing.T) {
	a, _ := buildPair(t)
	err := a.Send(99, []byte("x"))
	assert.Error(t, err)
}

func TestRoundRobinDeliversFromEitherPeer(t *testing.T) {
	net := aiou.NewNetwork()
	self, err := aiou.New(0, map[party.ID]aiou.Link{
		1: net.Link(0, 1),
		2: net.Link(0, 2),
	}, "rr-secret")
	require.NoError(t, err)
	peer1, err := aiou.New(1, map[party.ID]aiou.Link{0: net.Link(1, 0)}, "rr-secret")
	require.NoError(t, err)
	peer2, err := aiou.New(2, map[party.ID]aiou.Link{0: net.Link(2, 0)}, "rr-secret")
	require.NoError(t, err)

	require.NoError(t, peer2.Send(0, []byte("from-2")))
	res := self.Receive(aiou.RoundRobin, 0, aiou.Short)
	require.True(t, res.Delivered)
	assert.Equal(t, party.ID(2), res.From)

	require.NoError(t, peer1.Send(0, []byte("from-1")))
	res2 := self.Receive(aiou.Any, 0, aiou.Short)
	require.True(t, res2.Delivered)
	assert.Equal(t, party.ID(1), res2.From)
}

func TestTimeoutDurations(t *testing.T) {
	assert.Equal(t, 5*time.Second, aiou.Short.Duration())
	assert.Equal(t, 30*time.Second, aiou.Middle.Duration())
	assert.Equal(t, 2*time.Minute, aiou.Long.Duration())
	assert.Equal(t, 10*time.Minute, aiou.VeryLong.Duration())
	assert.Equal(t, time.Hour, aiou.ExtremelyLong.Duration())
}
