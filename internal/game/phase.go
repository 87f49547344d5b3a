package game

import "github.com/kiliankoe/cacophony/internal/store"

// Phase is the client-derived view of where a round stands. It is never
// persisted; every client re-derives it on each poll tick, which is how
// independent clients converge without a broadcast channel.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseSelecting  Phase = "selecting"
	PhaseGenerating Phase = "generating"
	PhaseListening  Phase = "listening"
	PhaseResults    Phase = "results"
)

// DerivePhase maps round status, the submission set and the artist count to a
// phase. Priority order matters: an in-flight generation job wins over
// everything else.
func DerivePhase(roundStatus store.RoundStatus, submissions []store.Submission, totalArtists int) Phase {
	for _, sub := range submissions {
		if sub.SongStatus == store.SongPending || sub.SongStatus == store.SongGenerating {
			return PhaseGenerating
		}
	}
	switch roundStatus {
	case store.RoundSelecting:
		if totalArtists > 0 && len(submissions) == totalArtists {
			return PhaseListening
		}
		return PhaseSelecting
	case store.RoundCompleted:
		return PhaseResults
	default:
		return PhaseListening
	}
}
