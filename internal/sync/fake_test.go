package sync

import (
	"context"
	"errors"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiliankoe/cacophony/internal/store"
	"github.com/kiliankoe/cacophony/internal/suno"
)

// fakeStore is an in-memory Accessor. It mimics the real accessor's ordering
// guarantees (players by join order, submissions by creation order) and counts
// mutating calls so tests can assert that guarded actions touch nothing.
type fakeStore struct {
	mu      stdsync.Mutex
	rooms   []store.Room
	players []store.Player
	rounds  []store.Round
	cards   []store.HandCard
	subs    []store.Submission

	writes int
}

func fill(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func (f *fakeStore) RoomByCode(_ context.Context, code string) (store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.RoomCode == code {
			return r, nil
		}
	}
	return store.Room{}, store.ErrRoomNotFound
}

func (f *fakeStore) RoomCodeTaken(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.RoomCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertRoom(_ context.Context, room store.Room) (store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	room.ID = fill(room.ID)
	room.CreatedAt = time.Now()
	f.rooms = append(f.rooms, room)
	return room, nil
}

func (f *fakeStore) UpdateRoomStatus(_ context.Context, roomID uuid.UUID, status store.RoomStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].Status = status
			return nil
		}
	}
	return store.ErrRoomNotFound
}

func (f *fakeStore) PauseRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	now := time.Now()
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].IsPaused = true
			f.rooms[i].PausedAt = &now
			return nil
		}
	}
	return store.ErrRoomNotFound
}

func (f *fakeStore) ResumeRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].IsPaused = false
			f.rooms[i].PausedAt = nil
			return nil
		}
	}
	return store.ErrRoomNotFound
}

func (f *fakeStore) DeleteRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms = append(f.rooms[:i], f.rooms[i+1:]...)
			return nil
		}
	}
	return store.ErrRoomNotFound
}

func (f *fakeStore) AvailableRooms(_ context.Context) ([]store.RoomListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.RoomListing
	for _, r := range f.rooms {
		if r.Status != store.RoomWaiting {
			continue
		}
		count := 0
		for _, p := range f.players {
			if p.RoomID == r.ID {
				count++
			}
		}
		out = append(out, store.RoomListing{Room: r, PlayerCount: count})
	}
	return out, nil
}

func (f *fakeStore) PlayersForRoom(_ context.Context, roomID uuid.UUID) ([]store.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Player
	for _, p := range f.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out, nil
}

func (f *fakeStore) InsertPlayer(_ context.Context, player store.Player) (store.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	player.ID = fill(player.ID)
	now := time.Now()
	player.LastActiveAt = &now
	f.players = append(f.players, player)
	return player, nil
}

func (f *fakeStore) UpdateUsername(_ context.Context, playerID uuid.UUID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players[i].Username = username
			return nil
		}
	}
	return errors.New("player not found")
}

func (f *fakeStore) AwardPoint(_ context.Context, playerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players[i].Score++
			return nil
		}
	}
	return errors.New("player not found")
}

func (f *fakeStore) TouchPlayer(_ context.Context, playerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	now := time.Now()
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players[i].LastActiveAt = &now
			return nil
		}
	}
	return errors.New("player not found")
}

func (f *fakeStore) DeletePlayer(_ context.Context, playerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players = append(f.players[:i], f.players[i+1:]...)
			return nil
		}
	}
	return errors.New("player not found")
}

func (f *fakeStore) LatestRound(_ context.Context, roomID uuid.UUID) (*store.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *store.Round
	for i := range f.rounds {
		r := f.rounds[i]
		if r.RoomID != roomID {
			continue
		}
		if latest == nil || r.RoundNumber > latest.RoundNumber {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (f *fakeStore) InsertRound(_ context.Context, round store.Round) (store.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	round.ID = fill(round.ID)
	round.CreatedAt = time.Now()
	f.rounds = append(f.rounds, round)
	return round, nil
}

func (f *fakeStore) UpdateRoundStatus(_ context.Context, roundID uuid.UUID, status store.RoundStatus, winnerID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.rounds {
		if f.rounds[i].ID == roundID {
			f.rounds[i].Status = status
			if winnerID != nil {
				f.rounds[i].WinnerID = winnerID
			}
			return nil
		}
	}
	return errors.New("round not found")
}

func (f *fakeStore) UpdateListening(_ context.Context, roundID uuid.UUID, patch store.ListeningPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.rounds {
		if f.rounds[i].ID != roundID {
			continue
		}
		if patch.SongIndex != nil {
			f.rounds[i].ListeningSongIndex = *patch.SongIndex
		}
		if patch.IsPlaying != nil {
			f.rounds[i].ListeningIsPlaying = *patch.IsPlaying
		}
		cue := time.Now()
		if patch.CueAt != nil {
			cue = *patch.CueAt
		}
		f.rounds[i].ListeningCueAt = &cue
		return nil
	}
	return errors.New("round not found")
}

func (f *fakeStore) InsertHandCards(_ context.Context, cards []store.HandCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for _, c := range cards {
		c.ID = fill(c.ID)
		f.cards = append(f.cards, c)
	}
	return nil
}

func (f *fakeStore) HandForPlayer(_ context.Context, roundID, playerID uuid.UUID) ([]store.HandCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.HandCard
	for _, c := range f.cards {
		if c.RoundID == roundID && c.PlayerID == playerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeStore) MarkCardPlayed(_ context.Context, cardID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.cards {
		if f.cards[i].ID == cardID {
			f.cards[i].IsPlayed = true
			return nil
		}
	}
	return errors.New("card not found")
}

func (f *fakeStore) SubmissionsForRound(_ context.Context, roundID uuid.UUID) ([]store.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Submission
	for _, s := range f.subs {
		if s.RoundID != roundID {
			continue
		}
		for _, p := range f.players {
			if p.ID == s.PlayerID {
				s.Player = p
				break
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) SubmissionForPlayer(_ context.Context, roundID, playerID uuid.UUID) (*store.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].RoundID == roundID && f.subs[i].PlayerID == playerID {
			cp := f.subs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertSubmission(_ context.Context, sub store.Submission) (store.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	sub.ID = fill(sub.ID)
	sub.CreatedAt = time.Now()
	if sub.SongStatus == "" {
		sub.SongStatus = store.SongPending
	}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeStore) UpdateSubmission(_ context.Context, submissionID uuid.UUID, patch store.SubmissionPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.subs {
		if f.subs[i].ID != submissionID {
			continue
		}
		if patch.SunoTaskID != nil {
			f.subs[i].SunoTaskID = *patch.SunoTaskID
		}
		if patch.SongStatus != nil {
			f.subs[i].SongStatus = *patch.SongStatus
		}
		if patch.SongURL != nil {
			f.subs[i].SongURL = *patch.SongURL
		}
		if patch.SongError != nil {
			f.subs[i].SongError = *patch.SongError
		}
		if patch.TimedLyrics != nil {
			f.subs[i].TimedLyrics = *patch.TimedLyrics
		}
		return nil
	}
	return errors.New("submission not found")
}

func (f *fakeStore) SetSubmissionWinner(_ context.Context, submissionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.subs {
		if f.subs[i].ID == submissionID {
			f.subs[i].IsWinner = true
			return nil
		}
	}
	return errors.New("submission not found")
}

func (f *fakeStore) SetProducerRating(_ context.Context, submissionID uuid.UUID, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i := range f.subs {
		if f.subs[i].ID == submissionID {
			f.subs[i].ProducerRating = &rating
			return nil
		}
	}
	return errors.New("submission not found")
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

var _ Accessor = (*fakeStore)(nil)

// fakeGenerator resolves every job instantly.
type fakeGenerator struct {
	mu            stdsync.Mutex
	generateCalls int
	genErr        error
	awaitErr      error
	audioURL      string
	progress      []int
	words         []suno.AlignedWord
	lastReq       suno.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req suno.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generateCalls++
	g.lastReq = req
	if g.genErr != nil {
		return "", g.genErr
	}
	return "task-1", nil
}

func (g *fakeGenerator) AwaitCompletion(_ context.Context, taskID string, onProgress func(int), _ suno.AwaitOptions) (suno.RecordInfo, error) {
	g.mu.Lock()
	progress := g.progress
	awaitErr := g.awaitErr
	audioURL := g.audioURL
	g.mu.Unlock()

	if onProgress != nil {
		for _, p := range progress {
			onProgress(p)
		}
	}
	if awaitErr != nil {
		return suno.RecordInfo{}, awaitErr
	}
	if audioURL == "" {
		audioURL = "https://cdn.example/song.mp3"
	}
	return suno.RecordInfo{
		TaskID: taskID,
		Status: suno.StatusSuccess,
		Tracks: []suno.Track{{ID: "a1", AudioURL: audioURL}},
	}, nil
}

func (g *fakeGenerator) TimestampedLyrics(_ context.Context, _, _ string) ([]suno.AlignedWord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.words == nil {
		return nil, errors.New("no aligned words")
	}
	return g.words, nil
}

var _ Generator = (*fakeGenerator)(nil)
