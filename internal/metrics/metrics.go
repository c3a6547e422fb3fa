// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Scoring metrics
	IncPredictionScored(tier string)
	ObserveScoringDuration(duration time.Duration)
	IncPredictionPersistFailed()

	// Model lifecycle
	IncModelReload(status string) // status: "success" or "failure"

	// Access gateway
	IncAuthFailure(reason string)
	IncIdentityCacheHit()
	IncIdentityCacheMiss()
	IncRateLimited(scope string) // scope: "user" or "ip"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
