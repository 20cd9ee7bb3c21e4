// Package aiou implements the asynchronous authenticated/encrypted
// unicast channel abstraction: per-peer framed,
// counter-protected delivery with pluggable receive scheduling and
// advisory timeouts.
//
// Transport, file I/O, and process plumbing are out of scope;
// Network below is an in-memory bus used for local simulation (the
// CLI's keygen/refresh/sign/decrypt subcommands and the tests), not a
// production transport. Real deployments plug in any io.ReadWriteCloser
// pair as a Link.
package aiou

import (
	"io"
	"sync"
)

// Link is the per-peer transport primitive AIOU sits on top of: a
// reliable, order-preserving byte stream in each direction. A real
// deployment might back this with TCP, QUIC, or a Unix socket; none of
// those are provided here.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
}

// pipeLink adapts an io.Reader/io.Writer pair (as produced by Network)
// into a Link.
type pipeLink struct {
	io.Reader
	io.Writer
	closeFn func() error
}

func (p *pipeLink) Close() error {
	if p.closeFn != nil {
		return p.closeFn()
	}
	return nil
}

// Network is a fully-connected in-memory mesh connecting N simulated
// parties, used for local testing, benchmarking, and the CLI's
// single-process demonstrations.
type Network struct {
	mu    sync.Mutex
	links map[[2]int]*memLink
}

// NewNetwork builds an empty mesh; links are created lazily by Link.
func NewNetwork() *Network {
	return &Network{links: make(map[[2]int]*memLink)}
}

// Link returns the bidirectional Link between parties i and j from i's
// point of view. Calling Link(j, i) returns the other end of the same
// pipe.
func (n *Network) Link(i, j int) Link {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := orderedPair(i, j)
	l, ok := n.links[key]
	if !ok {
		l = newMemLink()
		n.links[key] = l
	}
	if i < j {
		return l.sideA()
	}
	return l.sideB()
}

func orderedPair(i, j int) [2]int {
	if i < j {
		return [2]int{i, j}
	}
	return [2]int{j, i}
}

// memLink is a pair of unbounded in-memory queues forming a full-duplex
// pipe between two simulated parties.
type memLink struct {
	aToB *queue
	bToA *queue
}

func newMemLink() *memLink {
	return &memLink{aToB: newQueue(), bToA: newQueue()}
}

func (l *memLink) sideA() Link { return &pipeLink{Reader: l.bToA, Writer: l.aToB} }
func (l *memLink) sideB() Link { return &pipeLink{Reader: l.aToB, Writer: l.bToA} }
