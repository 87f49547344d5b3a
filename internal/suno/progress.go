package suno

import "time"

// progressTracker maps provider statuses to a 0-100 progress value that never
// decreases, with one documented exception: a provider failure resets to 0,
// because the provider may retry internally and start over.
//
// While a task sits in RUNNING the value creeps with elapsed time so the bar
// doesn't stall, capped at 75 until the provider reports real progress.
type progressTracker struct {
	last    int
	prev    TaskStatus
	start   time.Time
	maxWait time.Duration
}

func newProgressTracker(start time.Time, maxWait time.Duration) *progressTracker {
	return &progressTracker{start: start, maxWait: maxWait}
}

func (t *progressTracker) update(status TaskStatus, now time.Time) int {
	p := t.last

	switch {
	case status == StatusSuccess:
		p = 100
	case status == StatusTextSuccess:
		p = max(t.last, 40)
	case status == StatusFirstSuccess:
		p = max(t.last, 80)
	case status == StatusRunning && t.prev != StatusRunning:
		p = max(t.last, 20)
	case status == StatusRunning:
		elapsed := float64(now.Sub(t.start)) / float64(t.maxWait)
		creep := 20 + elapsed*60
		if creep > 75 {
			creep = 75
		}
		p = max(t.last, int(creep+0.5))
	case status.Failed():
		p = 0
	default:
		// PENDING or an unrecognized status: hold position
		p = max(t.last, 0)
	}

	t.prev = status
	t.last = p
	return p
}
