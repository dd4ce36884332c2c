// Package events publishes flag and snapshot lifecycle messages for
// downstream consumers (dashboards, notification pipelines). Publishing
// is best-effort: the engine never fails a request over a bus error.
package events

// Subject constants for the proctoring message bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	// SubjectFlagsRaised carries newly raised flags for a session.
	SubjectFlagsRaised = "proctor.flags.raised"

	// SubjectSessionSnapshot carries refreshed session snapshots.
	SubjectSessionSnapshot = "proctor.sessions.snapshot"
)
