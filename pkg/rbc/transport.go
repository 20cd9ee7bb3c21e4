package rbc

import (
	"time"

	"github.com/luxfi/tmcgcore/pkg/aiou"
	"github.com/luxfi/tmcgcore/pkg/party"
)

// Transport is what a Session needs from the point-to-point network:
// send a framed message to one peer, and receive the next one from
// whichever peer has something pending. RBC is built strictly on top
// of this, never assuming a native multicast primitive.
type Transport interface {
	SendTo(to party.ID, payload []byte) error
	ReceiveAny(timeout time.Duration) (from party.ID, payload []byte, ok bool)
}

// aiouTransport adapts pkg/aiou's per-peer Channels into a Transport,
// using the round-robin policy for ReceiveAny so a single noisy sender
// cannot starve delivery from the others.
type aiouTransport struct {
	ch *aiou.Channels
}

// NewAIOUTransport wraps an aiou.Channels for use by a Session.
func NewAIOUTransport(ch *aiou.Channels) Transport {
	return &aiouTransport{ch: ch}
}

func (t *aiouTransport) SendTo(to party.ID, payload []byte) error {
	return t.ch.Send(to, payload)
}

func (t *aiouTransport) ReceiveAny(timeout time.Duration) (party.ID, []byte, bool) {
	res := t.ch.Receive(aiou.RoundRobin, 0, timeoutFor(timeout))
	return res.From, res.Payload, res.Delivered
}

// timeoutFor approximates an arbitrary duration with the closest named
// aiou.Timeout tier the pump loop uses for a single poll; the Session's
// own deadline is what actually bounds the overall wait.
func timeoutFor(d time.Duration) aiou.Timeout {
	switch {
	case d <= aiou.Short.Duration():
		return aiou.Short
	case d <= aiou.Middle.Duration():
		return aiou.Middle
	case d <= aiou.Long.Duration():
		return aiou.Long
	case d <= aiou.VeryLong.Duration():
		return aiou.VeryLong
	default:
		return aiou.ExtremelyLong
	}
}
