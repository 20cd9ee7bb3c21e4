package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/luxfi/tmcgcore/internal/round"
	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/pkg/pool"
	"github.com/luxfi/tmcgcore/pkg/rbc"
)

// demoSecurityLevel is the default group size for the CLI: large enough
// to exercise real safe-prime arithmetic, small enough that keygen
// finishes in a few seconds on a laptop. Pass --bits for a larger,
// deployment-grade group instead.
var demoSecurityLevel = group.SecurityLevel{PrimeBits: 512, MillerRabinRounds: 32}

// simulation is the shared in-process network and per-party RBC/AIOU
// plumbing every subcommand needs to drive a protocol among a set of
// simulated local parties.
type simulation struct {
	ids      party.IDSlice
	channels map[party.ID]*aiou.Channels
	sessions map[party.ID]*rbc.Session
}

func newSimulation(ids []party.ID, threshold int, secret string) *simulation {
	sortedIDs := party.NewIDSlice(ids)
	net := aiou.NewNetwork()
	channels := make(map[party.ID]*aiou.Channels, len(sortedIDs))
	for _, self := range sortedIDs {
		links := make(map[party.ID]aiou.Link)
		for _, peer := range sortedIDs {
			if peer == self {
				continue
			}
			links[peer] = net.Link(int(self), int(peer))
		}
		ch, err := aiou.New(self, links, secret)
		if err != nil {
			// Link construction only fails on malformed input; every link
			// here comes from the same in-process Network, so this can't
			// happen in practice.
			panic(fmt.Sprintf("tmcg-cli: building channels for party %d: %v", self, err))
		}
		channels[self] = ch
	}
	sessions := make(map[party.ID]*rbc.Session, len(sortedIDs))
	for _, id := range sortedIDs {
		sessions[id] = rbc.NewSession(id, sortedIDs, threshold, rbc.NewAIOUTransport(channels[id]))
	}
	return &simulation{ids: sortedIDs, channels: channels, sessions: sessions}
}

func (s *simulation) close() {
	for _, sess := range s.sessions {
		sess.Close()
	}
}

func (s *simulation) helper(protocolID string, self party.ID, threshold int, grp *group.Group, ssid string) *round.Helper {
	return round.NewHelper(protocolID, self, s.ids, threshold, grp, []byte(ssid), pool.NewPool(0))
}

// buildGroup either generates a fresh group of the requested size or, in
// toy mode, the small insecure group the protocol test suites use.
func buildGroup(toy bool, bits int) (*group.Group, *pedersen.Params, error) {
	level := demoSecurityLevel
	switch {
	case toy:
		level = group.Toy
	case bits > 0:
		level = group.SecurityLevel{PrimeBits: bits, MillerRabinRounds: 32}
	}
	grp, err := group.Generate(rand.Reader, level, true, true)
	if err != nil {
		return nil, nil, fmt.Errorf("generating group: %w", err)
	}
	return grp, pedersen.NewParams(grp), nil
}

func idsUpTo(n int) []party.ID {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i)
	}
	return ids
}

func parseIDList(csv string) (party.IDSlice, error) {
	var ids []party.ID
	cur := 0
	any := false
	for _, r := range csv {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int(r-'0')
			any = true
		case r == ',':
			if !any {
				return nil, fmt.Errorf("malformed party list %q", csv)
			}
			ids = append(ids, party.ID(cur))
			cur, any = 0, false
		case r == ' ':
			continue
		default:
			return nil, fmt.Errorf("malformed party list %q", csv)
		}
	}
	if any {
		ids = append(ids, party.ID(cur))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty party list")
	}
	return party.NewIDSlice(ids), nil
}

func defaultTimeout() time.Duration { return 2 * time.Minute }

// rbcByzantineTolerance returns the largest t satisfying t <= (n-1)/3,
// the Byzantine-tolerance bound required of any RBC session run among
// n parties. Sub-protocols that run over a signer/decryptor
// subset smaller than the full n must size the session's own tolerance
// to that subset, not the long-term key's threshold, or quorums
// requiring more votes than there are participants can never be met.
func rbcByzantineTolerance(n int) int {
	return (n - 1) / 3
}
