package decrypt_test

import (
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/rbc"
	"github.com/luxfi/tmcgcore/protocols/decrypt"
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
		ch, err := aiou.New(self, links, "decrypt-test-secret")
		require.NoError(t, err)
		channels[self] = ch
	}
	return channels
}

func runGroup(t *testing.T, ids []party.ID, threshold int, grp *group.Group, params *pedersen.Params, channels map[party.ID]*aiou.Channels, sessions map[party.ID]*rbc.Session, epoch string) map[party.ID]*dkg.Config {
	t.Helper()
	configs := make(map[party.ID]*dkg.Config, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			h := round.NewHelper("tmcgcore/decrypt-test", id, ids, threshold, grp, []byte("ssid"), nil)
			cfg, err := dkg.Generate(h, channels[id], sessions[id], params, rand.Reader, epoch, 10*time.Second)
			require.NoError(t, err)
			mu.Lock()
			configs[id] = cfg
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return configs
}

func TestRunRecoversPlaintext(t *testing.T) {
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

	configs := runGroup(t, ids, threshold, grp, params, channels, sessions, "epoch0")

	y := configs[ids[0]].Y
	plaintext, err := grp.RandomElement(rand.Reader)
	require.NoError(t, err)

	k, err := bigint.UniformMod(rand.Reader, grp.Q)
	require.NoError(t, err)
	gk, err := grp.Exp(grp.G, k)
	require.NoError(t, err)
	yk, err := grp.Exp(y, k)
	require.NoError(t, err)
	myk, err := grp.Mul(plaintext, yk)
	require.NoError(t, err)
	ct := &decrypt.Ciphertext{Gk: gk, Myk: myk}

	results := make(map[party.ID]*bigint.Int, len(ids))
	{
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id party.ID) {
				defer wg.Done()
				h := round.NewHelper("tmcgcore/decrypt-test", id, ids, threshold, grp, []byte("ssid"), nil)
				m, err := decrypt.Run(h, sessions[id], configs[id], ct, rand.Reader, "decrypt0", 10*time.Second)
				require.NoError(t, err)
				mu.Lock()
				results[id] = m
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}

	for _, id := range ids {
		assert.True(t, plaintext.Equal(results[id]), "party %d must recover the original plaintext", id)
	}
}

func TestCheckCiphertextRejectsBadGk(t *testing.T) {
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

	configs := runGroup(t, ids, threshold, grp, params, channels, sessions, "epoch-bad")

	bad := &decrypt.Ciphertext{Gk: grp.P.Sub(bigint.NewInt(1)), Myk: bigint.NewInt(3)}
	err = decrypt.CheckCiphertext(configs[ids[0]], bad)
	assert.Error(t, err, "gk=p-1 has order 2, so it is not a member of the prime-order subgroup")
}
