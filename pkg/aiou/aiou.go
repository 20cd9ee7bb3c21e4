package aiou

import (
	"fmt"
	"time"

	"github.com/luxfi/tmcgcore/pkg/party"
)

// Policy selects how Receive picks which peer to consume from next,
// 
type Policy int

const (
	// Direct consumes only from a specific peer.
	Direct Policy = iota
	// RoundRobin tries peers starting after the last delivered one, so
	// a slow or faulty peer cannot monopolize the receive path (a
	// fairness requirement).
	RoundRobin
	// Any delivers from whichever peer has a pending message first.
	Any
)

// Result is the outcome of a Receive call.
type Result struct {
	From    party.ID
	Payload []byte
	// Delivered is false on a timeout; no error is returned in that
	// case because a timeout is advisory, not a failure.
	Delivered bool
}

// Channels manages one party's AIOU endpoints to every peer.
type Channels struct {
	self  party.ID
	peers map[party.ID]*PeerState
	order []party.ID // for round-robin scheduling
	last  int
}

// New builds an AIOU endpoint set for self, with one PeerState per
// entry in links, each keyed by peer ID and using secret as the shared
// key-derivation string (in practice distinct per pair; tests may share
// one for simplicity).
func New(self party.ID, links map[party.ID]Link, secret string) (*Channels, error) {
	c := &Channels{self: self, peers: make(map[party.ID]*PeerState, len(links))}
	for peer, link := range links {
		salt := saltFor(self, peer)
		ps, err := newPeerState(link, secret, salt)
		if err != nil {
			return nil, fmt.Errorf("aiou: peer %d: %w", peer, err)
		}
		c.peers[peer] = ps
		c.order = append(c.order, peer)
	}
	return c, nil
}

func saltFor(a, b party.ID) []byte {
	if a > b {
		a, b = b, a
	}
	return []byte(fmt.Sprintf("%d|%d", a, b))
}

// Send writes payload to peer, returning protocolerr-style failure if
// the peer's channel has already collapsed (the "unreachable"
// failure mode).
func (c *Channels) Send(peer party.ID, payload []byte) error {
	ps, ok := c.peers[peer]
	if !ok {
		return fmt.Errorf("aiou: no channel to peer %d", peer)
	}
	return ps.send(payload)
}

// Receive consumes one message according to policy, waiting up to
// timeout. direct must be set when policy == Direct.
func (c *Channels) Receive(policy Policy, direct party.ID, timeout Timeout) Result {
	switch policy {
	case Direct:
		return c.receiveFrom(direct, timeout)
	case RoundRobin:
		return c.receiveRoundRobin(timeout)
	default:
		return c.receiveAny(timeout)
	}
}

func (c *Channels) receiveFrom(peer party.ID, timeout Timeout) Result {
	ps, ok := c.peers[peer]
	if !ok || ps.Unreachable() {
		return Result{From: peer, Delivered: false}
	}
	payload, ok := receiveWithTimeout(ps, timeout.Duration())
	if !ok {
		return Result{From: peer, Delivered: false}
	}
	return Result{From: peer, Payload: payload, Delivered: true}
}

// receiveRoundRobin tries peers starting just after the last one
// delivered from, so one slow peer never starves the others.
func (c *Channels) receiveRoundRobin(timeout Timeout) Result {
	n := len(c.order)
	if n == 0 {
		return Result{}
	}
	deadline := time.Now().Add(timeout.Duration())
	for time.Now().Before(deadline) {
		for i := 0; i < n; i++ {
			idx := (c.last + 1 + i) % n
			peer := c.order[idx]
			ps := c.peers[peer]
			if ps.Unreachable() {
				continue
			}
			if payload, ok := tryReceive(ps); ok {
				c.last = idx
				return Result{From: peer, Payload: payload, Delivered: true}
			}
		}
		time.Sleep(time.Millisecond)
	}
	return Result{Delivered: false}
}

// receiveAny delivers from whichever peer has a pending message first.
func (c *Channels) receiveAny(timeout Timeout) Result {
	deadline := time.Now().Add(timeout.Duration())
	for time.Now().Before(deadline) {
		for _, peer := range c.order {
			ps := c.peers[peer]
			if ps.Unreachable() {
				continue
			}
			if payload, ok := tryReceive(ps); ok {
				return Result{From: peer, Payload: payload, Delivered: true}
			}
		}
		time.Sleep(time.Millisecond)
	}
	return Result{Delivered: false}
}

// tryReceive attempts a non-blocking-ish single frame read, treating
// dropped (replayed/unauthenticated) frames as "nothing useful yet" and
// continuing to look elsewhere rather than surfacing an error, matching
// ("messages dropped if out of order or replayed").
func tryReceive(ps *PeerState) ([]byte, bool) {
	type res struct {
		payload []byte
		err     error
	}
	ch := make(chan res, 1)
	go func() {
		payload, err := ps.receiveOnce()
		ch <- res{payload, err}
	}()
	select {
	case r := <-ch:
		if r.err == errDropped {
			return nil, false
		}
		if r.err != nil {
			return nil, false
		}
		return r.payload, true
	case <-time.After(time.Millisecond):
		return nil, false
	}
}

func receiveWithTimeout(ps *PeerState, d time.Duration) ([]byte, bool) {
	type res struct {
		payload []byte
		err     error
	}
	ch := make(chan res, 1)
	go func() {
		for {
			payload, err := ps.receiveOnce()
			if err == errDropped {
				continue
			}
			ch <- res{payload, err}
			return
		}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, false
		}
		return r.payload, true
	case <-time.After(d):
		return nil, false
	}
}

// Counters returns the per-peer observability counters.
func (c *Channels) Counters(peer party.ID) (Counters, bool) {
	ps, ok := c.peers[peer]
	if !ok {
		return Counters{}, false
	}
	return ps.Counters(), true
}
