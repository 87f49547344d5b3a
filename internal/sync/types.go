// Package sync owns the client-side game state: a single snapshot derived
// from the shared store on every poll tick, plus the action surface the UI
// calls. No client is authoritative; all of them converge by re-deriving the
// same view from the same rows.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
	"github.com/kiliankoe/cacophony/internal/suno"
)

// Accessor is the slice of the data accessor the engine and lobby consume.
// *store.Store satisfies it; tests plug in an in-memory fake.
type Accessor interface {
	RoomByCode(ctx context.Context, code string) (store.Room, error)
	RoomCodeTaken(ctx context.Context, code string) (bool, error)
	InsertRoom(ctx context.Context, room store.Room) (store.Room, error)
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status store.RoomStatus) error
	PauseRoom(ctx context.Context, roomID uuid.UUID) error
	ResumeRoom(ctx context.Context, roomID uuid.UUID) error
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
	AvailableRooms(ctx context.Context) ([]store.RoomListing, error)

	PlayersForRoom(ctx context.Context, roomID uuid.UUID) ([]store.Player, error)
	InsertPlayer(ctx context.Context, player store.Player) (store.Player, error)
	UpdateUsername(ctx context.Context, playerID uuid.UUID, username string) error
	AwardPoint(ctx context.Context, playerID uuid.UUID) error
	TouchPlayer(ctx context.Context, playerID uuid.UUID) error
	DeletePlayer(ctx context.Context, playerID uuid.UUID) error

	LatestRound(ctx context.Context, roomID uuid.UUID) (*store.Round, error)
	InsertRound(ctx context.Context, round store.Round) (store.Round, error)
	UpdateRoundStatus(ctx context.Context, roundID uuid.UUID, status store.RoundStatus, winnerID *uuid.UUID) error
	UpdateListening(ctx context.Context, roundID uuid.UUID, patch store.ListeningPatch) error

	InsertHandCards(ctx context.Context, cards []store.HandCard) error
	HandForPlayer(ctx context.Context, roundID, playerID uuid.UUID) ([]store.HandCard, error)
	MarkCardPlayed(ctx context.Context, cardID uuid.UUID) error

	SubmissionsForRound(ctx context.Context, roundID uuid.UUID) ([]store.Submission, error)
	SubmissionForPlayer(ctx context.Context, roundID, playerID uuid.UUID) (*store.Submission, error)
	InsertSubmission(ctx context.Context, sub store.Submission) (store.Submission, error)
	UpdateSubmission(ctx context.Context, submissionID uuid.UUID, patch store.SubmissionPatch) error
	SetSubmissionWinner(ctx context.Context, submissionID uuid.UUID) error
	SetProducerRating(ctx context.Context, submissionID uuid.UUID, rating int) error
}

var _ Accessor = (*store.Store)(nil)

// Generator is the slice of the generation orchestrator the engine consumes.
// *suno.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req suno.GenerateRequest) (string, error)
	AwaitCompletion(ctx context.Context, taskID string, onProgress func(int), opts suno.AwaitOptions) (suno.RecordInfo, error)
	TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]suno.AlignedWord, error)
}

type PlayerView struct {
	ID         uuid.UUID
	Name       string
	Score      int
	JoinOrder  int
	IsProducer bool
	Submitted  bool
	IsYou      bool
	IsHost     bool
	Inactive   bool
}

type HandCardView struct {
	ID         uuid.UUID
	Display    string
	Template   string
	BlankCount int
	IsPlayed   bool
}

type SubmissionView struct {
	ID             uuid.UUID
	PlayerID       uuid.UUID
	PlayerName     string
	Lyric          string
	SongURL        string
	SongStatus     store.SongStatus
	SongError      string
	TimedLyrics    store.LyricSegments
	ProducerRating *int
	IsWinner       bool
}

// GameState is the engine's full snapshot. Most of it is re-derived from the
// store each poll; SelectedCard, FilledBlanks, Timer, GenerationProgress and
// (on the host) the listening cursor are locally owned and survive merges.
type GameState struct {
	Phase        game.Phase
	RoomID       uuid.UUID
	RoundID      uuid.UUID
	RoundNumber  int
	TargetRounds int
	VibeCard     string

	Players     []PlayerView
	Hand        []HandCardView
	Submissions []SubmissionView

	SelectedCard *HandCardView
	FilledBlanks map[string]string

	CurrentSongIndex int
	IsPlaying        bool
	ListeningCueAt   *time.Time

	GenerationProgress int
	Timer              int // seconds left on the selection countdown
	Winner             *uuid.UUID
	Paused             bool
	Loading            bool
	Err                string
}

// You returns the view of the local player, if present.
func (s GameState) You() (PlayerView, bool) {
	for _, p := range s.Players {
		if p.IsYou {
			return p, true
		}
	}
	return PlayerView{}, false
}

// Producer returns the round's producer, if present.
func (s GameState) Producer() (PlayerView, bool) {
	for _, p := range s.Players {
		if p.IsProducer {
			return p, true
		}
	}
	return PlayerView{}, false
}

// TotalArtists counts the non-producer players.
func (s GameState) TotalArtists() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsProducer {
			n++
		}
	}
	return n
}

// SubmittedCount counts artists who have submitted this round.
func (s GameState) SubmittedCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsProducer && p.Submitted {
			n++
		}
	}
	return n
}
