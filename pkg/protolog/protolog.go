// Package protolog defines a forensic side channel:
// every round emits a human-readable log entry, but the return value of
// a protocol call is always a pure success/failure. Callers who want
// behavior-only can pass Discard; callers who want detail plug in any
// sink that satisfies this interface.
package protolog

import "fmt"

// Sink receives log lines from a running protocol.
type Sink interface {
	Logf(format string, args ...interface{})
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Logf(string, ...interface{}) {}

// Collector is a Sink that accumulates lines in memory, for tests and
// for callers that want to inspect the whole round-by-round narrative
// after the fact.
type Collector struct {
	Lines []string
}

// Logf records a formatted line.
func (c *Collector) Logf(format string, args ...interface{}) {
	c.Lines = append(c.Lines, fmt.Sprintf(format, args...))
}
