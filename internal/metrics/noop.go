package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncPredictionScored(tier string)               {}
func (n *NoopRecorder) ObserveScoringDuration(duration time.Duration) {}
func (n *NoopRecorder) IncPredictionPersistFailed()                   {}
func (n *NoopRecorder) IncModelReload(status string)                  {}
func (n *NoopRecorder) IncAuthFailure(reason string)                  {}
func (n *NoopRecorder) IncIdentityCacheHit()                          {}
func (n *NoopRecorder) IncIdentityCacheMiss()                         {}
func (n *NoopRecorder) IncRateLimited(scope string)                   {}
