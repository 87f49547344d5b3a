package sync

import "time"

// seekTolerance is how far a follower's playback position may drift from the
// host's cue before it seeks. Small enough to feel synchronized, large enough
// to survive polling jitter.
const seekTolerance = 400 * time.Millisecond

// PlaybackOffset computes where playback should be right now given the cue
// timestamp the host wrote when it pressed play. Clock skew can make the cue
// sit slightly in the future; that clamps to zero.
func PlaybackOffset(now time.Time, cueAt *time.Time) time.Duration {
	if cueAt == nil {
		return 0
	}
	off := now.Sub(*cueAt)
	if off < 0 {
		return 0
	}
	return off
}

// NeedsSeek reports whether the local playback position has drifted out of
// tolerance from the expected offset.
func NeedsSeek(offset, position time.Duration) bool {
	diff := offset - position
	if diff < 0 {
		diff = -diff
	}
	return diff > seekTolerance
}
