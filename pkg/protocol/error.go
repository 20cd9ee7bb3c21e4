// Package protocol defines the culprit-carrying error type for a
// protocol run that aborts.
package protocol

import (
	"fmt"

	"github.com/luxfi/tmcgcore/pkg/party"
)

// Error is returned when a protocol run aborts. Culprits names the
// parties whose misbehavior (or, for liveness failures, absence) caused
// the abort; it's empty for environmental/catastrophic failures.
type Error struct {
	Culprits []party.ID
	Err      error
}

func (e Error) Error() string {
	if len(e.Culprits) == 0 {
		return fmt.Sprintf("protocol aborted: %v", e.Err)
	}
	return fmt.Sprintf("protocol aborted: %v (culprits: %v)", e.Err, e.Culprits)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e Error) Unwrap() error { return e.Err }
