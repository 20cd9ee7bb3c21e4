package tdss_test

import (
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/rbc"
	"github.com/luxfi/tmcgcore/protocols/dkg"
	"github.com/luxfi/tmcgcore/protocols/tdss"
)

func buildNetwork(t *testing.T, ids []party.ID) map[party.ID]*aiou.Channels {
	t.Helper()
	net := aiou.NewNetwork()
	channels := make(map[party.ID]*aiou.Channels, len(ids))
	for _, self := range ids {
		links := make(map[party.ID]aiou.Link)
		for _, peer := range ids {
			if peer == self {
				continue
			}
			links[peer] = net.Link(int(self), int(peer))
		}
		ch, err := aiou.New(self, links, "tdss-test-secret")
		require.NoError(t, err)
		channels[self] = ch
	}
	return channels
}

func buildSessions(ids []party.ID, threshold int, channels map[party.ID]*aiou.Channels) map[party.ID]*rbc.Session {
	sessions := make(map[party.ID]*rbc.Session, len(ids))
	for _, id := range ids {
		sessions[id] = rbc.NewSession(id, ids, threshold, rbc.NewAIOUTransport(channels[id]))
	}
	return sessions
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)
	params := pedersen.NewParams(grp)

	ids := []party.ID{0, 1, 2, 3}
	const threshold = 1

	channels := buildNetwork(t, ids)
	sessions := buildSessions(ids, threshold, channels)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	// Long-term key generation.
	longTerm := make(map[party.ID]*dkg.Config, len(ids))
	{
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id party.ID) {
				defer wg.Done()
				h := round.NewHelper("tmcgcore/tdss-test", id, ids, threshold, grp, []byte("ssid"), nil)
				cfg, err := dkg.Generate(h, channels[id], sessions[id], params, rand.Reader, "longterm", 10*time.Second)
				require.NoError(t, err)
				mu.Lock()
				longTerm[id] = cfg
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}

	y := longTerm[ids[0]].Y
	msg := []byte("threshold DSS over a safe-prime group")
	msgHash := tdss.HashMessage(grp.Q, msg)

	sigs := make(map[party.ID]*tdss.Signature, len(ids))
	{
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id party.ID) {
				defer wg.Done()
				h := round.NewHelper("tmcgcore/tdss-test", id, ids, threshold, grp, []byte("ssid"), nil)
				sig, err := tdss.Sign(h, channels[id], sessions[id], params, longTerm[id], msgHash, rand.Reader, "sig0", 10*time.Second)
				require.NoError(t, err)
				mu.Lock()
				sigs[id] = sig
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}

	first := sigs[ids[0]]
	for _, id := range ids[1:] {
		assert.True(t, first.R.Equal(sigs[id].R), "all signers must agree on r")
		assert.True(t, first.S.Equal(sigs[id].S), "all signers must agree on s")
	}

	ok, err := tdss.Verify(grp, msgHash, first, y)
	require.NoError(t, err)
	assert.True(t, ok, "signature must verify against the long-term public key")

	wrongHash := tdss.HashMessage(grp.Q, []byte("a different message"))
	ok, err = tdss.Verify(grp, wrongHash, first, y)
	require.NoError(t, err)
	assert.False(t, ok, "signature must not verify against a different message")
}
