// Package test provides small, deterministic helpers shared by this
// module's unit tests: a party ID generator and an in-memory AIOU
// network builder, mirroring the teacher's own internal/test.PartyIDs
// helper referenced throughout its protocol test suites.
package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/party"
)

// PartyIDs returns the deterministic set {0, ..., n-1}.
func PartyIDs(n int) []party.ID {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i)
	}
	return ids
}

// BuildChannels wires a fully-connected in-memory AIOU mesh among ids,
// sharing one key-derivation secret across every pair (adequate for
// tests; real deployments use a distinct secret per pair).
func BuildChannels(t testing.TB, ids []party.ID, secret string) map[party.ID]*aiou.Channels {
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
		ch, err := aiou.New(self, links, secret)
		require.NoError(t, err)
		channels[self] = ch
	}
	return channels
}
