package resample

import "golang.org/x/time/rate"

// ProgressReporter receives progress updates while folds complete.
type ProgressReporter interface {
	// OnProgress is called with the number of finished folds.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Throttle wraps a reporter so it fires at most perSecond times per
// second. The final update (current == total) always gets through so
// completion is never missed.
func Throttle(r ProgressReporter, perSecond float64) ProgressReporter {
	return &throttledReporter{
		inner:   r,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type throttledReporter struct {
	inner   ProgressReporter
	limiter *rate.Limiter
}

func (t *throttledReporter) OnProgress(current, total int) {
	if current == total || t.limiter.Allow() {
		t.inner.OnProgress(current, total)
	}
}
