// Package round provides the shared round-bookkeeping every multi-party
// protocol run needs: a Number type and a Helper embedding the
// session's fixed parameters (self ID, party set, threshold, group,
// session ID, pool).
//
// Rounds here are not driven by an external Handler's Accept/Finalize
// state machine: instead, AIOU.Send/Receive and RBC.Broadcast/
// DeliverFrom/Sync are themselves the blocking, timeout-bearing
// suspension points, so a protocol object (VSS, DKG, tDSS, Decryptor)
// advances its own rounds by calling those primitives directly, in
// order, on a single logical thread of control. Helper supplies the
// bookkeeping those calls need without requiring a generic
// message-dispatch engine on top.
package round

import (
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pool"
	"github.com/luxfi/tmcgcore/pkg/protolog"
)

// Number identifies a round within a protocol run, starting at 1.
type Number int

// Helper holds the parameters common to every round of a protocol
// instance: who we are, who else is participating, the threshold, the
// group we operate over, and the session identifying this run.
type Helper struct {
	self       party.ID
	partyIDs   party.IDSlice
	threshold  int
	grp        *group.Group
	sessionID  []byte
	protocolID string
	pl         *pool.Pool
	log        protolog.Sink
}

// NewHelper builds a Helper for a new protocol run. Logging defaults to
// protolog.Discard; use SetLog to attach a real sink.
func NewHelper(protocolID string, self party.ID, partyIDs []party.ID, threshold int, grp *group.Group, sessionID []byte, pl *pool.Pool) *Helper {
	return &Helper{
		self:       self,
		partyIDs:   party.NewIDSlice(partyIDs),
		threshold:  threshold,
		grp:        grp,
		sessionID:  append([]byte(nil), sessionID...),
		protocolID: protocolID,
		pl:         pl,
		log:        protolog.Discard,
	}
}

// SetLog attaches a sink that every subsequent Log call on this Helper
// writes to. Passing nil restores the default, which discards lines.
func (h *Helper) SetLog(sink protolog.Sink) {
	if sink == nil {
		sink = protolog.Discard
	}
	h.log = sink
}

// Log returns the sink round implementations should narrate progress
// to; it is never nil.
func (h *Helper) Log() protolog.Sink { return h.log }

// SelfID returns this party's own identifier.
func (h *Helper) SelfID() party.ID { return h.self }

// PartyIDs returns the full, sorted participant set for this run.
func (h *Helper) PartyIDs() party.IDSlice { return h.partyIDs }

// OtherPartyIDs returns every participant except self.
func (h *Helper) OtherPartyIDs() party.IDSlice { return h.partyIDs.Other(h.self) }

// N is the number of participants in this run.
func (h *Helper) N() int { return h.partyIDs.Len() }

// Threshold is t, the largest number of corrupted parties the run
// tolerates; shares lie on degree-t polynomials, so t+1 of them are
// needed to reconstruct.
func (h *Helper) Threshold() int { return h.threshold }

// Group returns the discrete-log group this run operates over.
func (h *Helper) Group() *group.Group { return h.grp }

// SSID returns the session ID bytes identifying this protocol run,
// used both as an RBC session label and as domain separation in
// Fiat-Shamir challenges.
func (h *Helper) SSID() []byte { return h.sessionID }

// ProtocolID names the protocol (e.g. "tmcgcore/dkg") for logging and
// wire-message tagging.
func (h *Helper) ProtocolID() string { return h.protocolID }

// Pool returns the worker pool used to parallelize independent modexp
// or proof-verification work, or nil for sequential execution.
func (h *Helper) Pool() *pool.Pool { return h.pl }
