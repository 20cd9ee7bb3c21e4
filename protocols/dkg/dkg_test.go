package dkg_test

import (
	"bytes"
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
		ch, err := aiou.New(self, links, "dkg-test-secret")
		require.NoError(t, err)
		channels[self] = ch
	}
	return channels
}

func runDKG(t *testing.T, ids []party.ID, threshold int, grp *group.Group, params *pedersen.Params, channels map[party.ID]*aiou.Channels, sessions map[party.ID]*rbc.Session, epoch string) map[party.ID]*dkg.Config {
	t.Helper()
	results := make(map[party.ID]*dkg.Config, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			h := round.NewHelper("tmcgcore/dkg-test", id, ids, threshold, grp, []byte("ssid"), nil)
			cfg, err := dkg.Generate(h, channels[id], sessions[id], params, rand.Reader, epoch, 10*time.Second)
			require.NoError(t, err)
			mu.Lock()
			results[id] = cfg
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}

func TestGenerateProducesConsistentPublicKey(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)
	params := pedersen.NewParams(grp)

	ids := []party.ID{0, 1, 2, 3}
	const threshold = 1

	channels := buildNetwork(t, ids)
	sessions := make(map[party.ID]*rbc.Session, len(ids))
	for _, id := range ids {
		sessions[id] = rbc.NewSession(id, ids, threshold, rbc.NewAIOUTransport(channels[id]))
	}
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	results := runDKG(t, ids, threshold, grp, params, channels, sessions, "epoch0")

	for _, id := range ids {
		cfg := results[id]
		assert.Equal(t, len(ids), cfg.QUAL.Len())
		ok, err := cfg.CheckKey(params)
		require.NoError(t, err)
		assert.True(t, ok, "CheckKey must hold for party %d", id)
	}

	first := results[ids[0]].Y
	for _, id := range ids[1:] {
		assert.True(t, first.Equal(results[id].Y), "every party must agree on the public key y")
	}
}

func TestSharePublicKeyMatchesActualShare(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)
	params := pedersen.NewParams(grp)

	ids := []party.ID{0, 1, 2, 3}
	const threshold = 1

	channels := buildNetwork(t, ids)
	sessions := make(map[party.ID]*rbc.Session, len(ids))
	for _, id := range ids {
		sessions[id] = rbc.NewSession(id, ids, threshold, rbc.NewAIOUTransport(channels[id]))
	}
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	results := runDKG(t, ids, threshold, grp, params, channels, sessions, "epoch-sharekey")

	for _, id := range ids {
		cfg := results[id]
		want, err := grp.Exp(grp.G, cfg.X)
		require.NoError(t, err)
		got, err := cfg.SharePublicKey(id)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "SharePublicKey(%d) must equal g^x_i for party's own share", id)

		// Every other party's view of cfg's Feldman commitments agrees,
		// since they all received the same broadcast.
		other := results[ids[(int(id)+1)%len(ids)]]
		gotFromOther, err := other.SharePublicKey(id)
		require.NoError(t, err)
		assert.True(t, want.Equal(gotFromOther), "every party must reconstruct the same share public key for party %d", id)
	}
}

func TestExportImportRoundTrips(t *testing.T) {
	grp, err := group.Generate(rand.Reader, group.Toy, true, true)
	require.NoError(t, err)
	params := pedersen.NewParams(grp)

	ids := []party.ID{0, 1, 2, 3}
	const threshold = 1

	channels := buildNetwork(t, ids)
	sessions := make(map[party.ID]*rbc.Session, len(ids))
	for _, id := range ids {
		sessions[id] = rbc.NewSession(id, ids, threshold, rbc.NewAIOUTransport(channels[id]))
	}
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	results := runDKG(t, ids, threshold, grp, params, channels, sessions, "epoch-roundtrip")
	cfg := results[ids[0]]

	var buf bytes.Buffer
	require.NoError(t, cfg.Export(&buf))

	parsed, err := dkg.Import(&buf)
	require.NoError(t, err)

	assert.True(t, cfg.Y.Equal(parsed.Y))
	assert.True(t, cfg.X.Equal(parsed.X))
	assert.True(t, cfg.Xp.Equal(parsed.Xp))
	assert.Equal(t, cfg.QUAL, parsed.QUAL)
}
