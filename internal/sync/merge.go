package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
)

// snapshot is one poll's worth of freshly fetched server state.
type snapshot struct {
	room    store.Room
	players []store.Player
	round   store.Round
	hand    []store.HandCard
	subs    []store.Submission
	now     time.Time
}

// mergeParams are the per-client constants the merge needs.
type mergeParams struct {
	selfID        uuid.UUID
	timerDuration time.Duration
	inactivity    time.Duration
}

// mergeSnapshot derives the next state from (previous state, fresh snapshot).
// Pure and total, so the poll/merge cycle is testable without timers.
//
// Locally-owned fields are carried over from prev rather than rebuilt: the
// selected card and blank draft have no server representation, the countdown
// timer only resets when the phase transitions INTO selecting (otherwise
// every poll tick would restart it), and generation progress is driven by the
// orchestrator callback while a job is in flight. The listening cursor is
// taken from the server for followers; the host is the one writing it, so it
// keeps its local copy to avoid echo flicker.
func mergeSnapshot(prev GameState, snap snapshot, p mergeParams) GameState {
	subs := make([]SubmissionView, 0, len(snap.subs))
	for _, row := range snap.subs {
		name := row.Player.Username
		if name == "" {
			name = "Player"
		}
		subs = append(subs, SubmissionView{
			ID:             row.ID,
			PlayerID:       row.PlayerID,
			PlayerName:     name,
			Lyric:          game.ComposeLyric(row.CardText, row.FilledBlanks),
			SongURL:        row.SongURL,
			SongStatus:     row.SongStatus,
			SongError:      row.SongError,
			TimedLyrics:    row.TimedLyrics,
			ProducerRating: row.ProducerRating,
			IsWinner:       row.IsWinner,
		})
	}

	submitted := make(map[uuid.UUID]bool, len(subs))
	for _, s := range subs {
		submitted[s.PlayerID] = true
	}

	players := make([]PlayerView, 0, len(snap.players))
	totalArtists := 0
	for _, row := range snap.players {
		isProducer := row.ID == snap.round.ProducerID
		if !isProducer {
			totalArtists++
		}
		inactive := false
		if row.LastActiveAt != nil && snap.now.Sub(*row.LastActiveAt) > p.inactivity {
			inactive = true
		}
		players = append(players, PlayerView{
			ID:         row.ID,
			Name:       row.Username,
			Score:      row.Score,
			JoinOrder:  row.JoinOrder,
			IsProducer: isProducer,
			Submitted:  submitted[row.ID],
			IsYou:      row.ID == p.selfID,
			IsHost:     row.IsHost(),
			Inactive:   inactive,
		})
	}

	hand := make([]HandCardView, 0, len(snap.hand))
	for _, card := range snap.hand {
		hand = append(hand, HandCardView{
			ID:         card.ID,
			Display:    card.CardText,
			Template:   card.Template,
			BlankCount: card.BlankCount,
			IsPlayed:   card.IsPlayed,
		})
	}

	phase := game.DerivePhase(snap.round.Status, snap.subs, totalArtists)
	if snap.room.Status == store.RoomWaiting {
		phase = game.PhaseWaiting
	}

	next := GameState{
		Phase:        phase,
		RoomID:       snap.room.ID,
		RoundID:      snap.round.ID,
		RoundNumber:  snap.round.RoundNumber,
		TargetRounds: snap.room.TargetRounds,
		VibeCard:     snap.round.VibeCard,
		Players:      players,
		Hand:         hand,
		Submissions:  subs,
		Winner:       snap.round.WinnerID,
		Paused:       snap.room.IsPaused,
		Loading:      false,
		Err:          "", // a successful poll clears any stale action error
	}

	// locally-owned UI state survives the merge
	next.SelectedCard = prev.SelectedCard
	next.FilledBlanks = prev.FilledBlanks

	if phase == game.PhaseSelecting && prev.Phase != game.PhaseSelecting {
		next.Timer = int(p.timerDuration / time.Second)
	} else {
		next.Timer = prev.Timer
	}

	if phase == game.PhaseGenerating {
		next.GenerationProgress = prev.GenerationProgress
	} else {
		next.GenerationProgress = 100
	}

	// listening cursor: the host drives it and keeps its local copy, every
	// other client adopts whatever the host last wrote
	if self, ok := next.You(); ok && self.IsHost {
		next.CurrentSongIndex = prev.CurrentSongIndex
		next.IsPlaying = prev.IsPlaying
		next.ListeningCueAt = prev.ListeningCueAt
	} else {
		next.CurrentSongIndex = snap.round.ListeningSongIndex
		next.IsPlaying = snap.round.ListeningIsPlaying
		next.ListeningCueAt = snap.round.ListeningCueAt
	}

	return next
}
