package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
	"github.com/kiliankoe/cacophony/internal/suno"
)

// Guard failures (wrong role, already submitted, paused, ...) are silent
// no-ops across all actions. External-call failures land on state.Err and the
// action stops where it was; earlier writes of the same action are not rolled
// back. The next successful poll clears the error.

// SelectCard picks a card from the local hand and initializes the blank
// draft. Producers and players who already submitted can't select.
func (e *Engine) SelectCard(cardID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	you, ok := e.state.You()
	if !ok || you.IsProducer || you.Submitted {
		return
	}
	for i := range e.state.Hand {
		if e.state.Hand[i].ID == cardID && !e.state.Hand[i].IsPlayed {
			card := e.state.Hand[i]
			blanks := make(map[string]string, card.BlankCount)
			for b := 0; b < card.BlankCount; b++ {
				blanks[strconv.Itoa(b)] = ""
			}
			e.state.SelectedCard = &card
			e.state.FilledBlanks = blanks
			return
		}
	}
}

// UpdateBlank stores the player's text for one blank of the selected card.
func (e *Engine) UpdateBlank(index int, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.SelectedCard == nil {
		return
	}
	if e.state.FilledBlanks == nil {
		e.state.FilledBlanks = map[string]string{}
	}
	e.state.FilledBlanks[strconv.Itoa(index)] = value
}

// SubmitCard turns the selected card into a submission and drives its song
// generation to a terminal state. Submitting twice is safe: the second call
// finds the existing row and stops. A failed generation still counts as a
// submitted turn; the round carries on with a fallback audio URL.
func (e *Engine) SubmitCard(ctx context.Context) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	you, ok := state.You()
	if !ok || state.Paused || state.SelectedCard == nil || state.RoundID == uuid.Nil || you.Submitted {
		return
	}
	card := *state.SelectedCard
	blanks := state.FilledBlanks

	existing, err := e.store.SubmissionForPlayer(ctx, state.RoundID, e.playerID)
	if err != nil {
		e.setErr(err)
		return
	}
	if existing != nil {
		e.finishSubmit()
		return
	}

	template := card.Template
	if template == "" {
		template = card.Display
	}
	sub, err := e.store.InsertSubmission(ctx, store.Submission{
		RoundID:      state.RoundID,
		PlayerID:     e.playerID,
		HandCardID:   &card.ID,
		CardText:     template,
		FilledBlanks: blanks,
		SongStatus:   store.SongPending,
	})
	if err != nil {
		e.setErr(err)
		return
	}
	if err := e.store.MarkCardPlayed(ctx, card.ID); err != nil {
		e.setErr(err)
		return
	}

	e.generateSong(ctx, sub.ID, state.VibeCard, game.ComposeLyric(template, blanks))
	e.finishSubmit()
}

// generateSong runs the request/await cycle for one submission and records
// the terminal outcome on its row. Generation failures never bubble to
// state.Err: the failed submission with its fallback URL is the outcome.
func (e *Engine) generateSong(ctx context.Context, submissionID uuid.UUID, vibe, lyric string) {
	taskID, err := e.songs.Generate(ctx, suno.GenerateRequest{
		Prompt:       buildPrompt(vibe, lyric),
		Style:        vibe,
		Title:        lyric,
		CustomMode:   true,
		Instrumental: false,
		Model:        e.cfg.SunoModel,
	})
	if err != nil {
		e.failSubmission(ctx, submissionID, err)
		return
	}

	if err := e.store.UpdateSubmission(ctx, submissionID, store.SubmissionPatch{
		SunoTaskID: &taskID,
		SongStatus: ptr(store.SongGenerating),
	}); err != nil {
		e.setErr(err)
		return
	}

	info, err := e.songs.AwaitCompletion(ctx, taskID, e.setProgress, suno.AwaitOptions{
		MaxWait:      e.cfg.SunoMaxWait,
		PollInterval: e.cfg.SunoPollInterval,
	})
	if err != nil {
		e.failSubmission(ctx, submissionID, err)
		return
	}
	audioURL, err := info.FirstAudioURL()
	if err != nil {
		e.failSubmission(ctx, submissionID, err)
		return
	}

	patch := store.SubmissionPatch{
		SongStatus: ptr(store.SongCompleted),
		SongURL:    &audioURL,
	}
	// karaoke data is nice to have, the song stands without it
	if words, err := e.songs.TimestampedLyrics(ctx, taskID, info.Tracks[0].ID); err != nil {
		e.log.Debug().Err(err).Msg("no timestamped lyrics for this track")
	} else {
		segments := make(store.LyricSegments, 0, len(words))
		for _, w := range words {
			segments = append(segments, store.LyricSegment{Text: w.Word, StartTime: w.StartS, EndTime: w.EndS})
		}
		patch.TimedLyrics = &segments
	}

	if err := e.store.UpdateSubmission(ctx, submissionID, patch); err != nil {
		e.setErr(err)
	}
}

func (e *Engine) failSubmission(ctx context.Context, submissionID uuid.UUID, cause error) {
	e.log.Warn().Err(cause).Str("submission", submissionID.String()).Msg("song generation failed, using fallback")
	msg := cause.Error()
	if err := e.store.UpdateSubmission(ctx, submissionID, store.SubmissionPatch{
		SongStatus: ptr(store.SongFailed),
		SongURL:    &e.cfg.FallbackAudioURL,
		SongError:  &msg,
	}); err != nil {
		e.setErr(err)
	}
}

func (e *Engine) finishSubmit() {
	e.mu.Lock()
	for i := range e.state.Players {
		if e.state.Players[i].IsYou {
			e.state.Players[i].Submitted = true
		}
	}
	e.state.SelectedCard = nil
	e.state.FilledBlanks = nil
	e.mu.Unlock()
	e.requestPoll()
}

func (e *Engine) setProgress(p int) {
	e.mu.Lock()
	e.state.GenerationProgress = p
	e.mu.Unlock()
}

// TogglePlay flips shared playback. Host only; followers pick the new cursor
// up on their next poll.
func (e *Engine) TogglePlay(ctx context.Context) {
	e.mu.Lock()
	if e.playerID != e.hostPlayerID || e.state.Paused || e.state.RoundID == uuid.Nil {
		e.mu.Unlock()
		return
	}
	e.state.IsPlaying = !e.state.IsPlaying
	playing := e.state.IsPlaying
	index := e.state.CurrentSongIndex
	roundID := e.state.RoundID
	e.mu.Unlock()

	if err := e.store.UpdateListening(ctx, roundID, store.ListeningPatch{
		SongIndex: &index,
		IsPlaying: &playing,
	}); err != nil {
		e.setErr(err)
	}
}

// NextSong advances shared playback to the next submission. Host only.
func (e *Engine) NextSong(ctx context.Context) {
	e.mu.Lock()
	if e.playerID != e.hostPlayerID || e.state.Paused || e.state.RoundID == uuid.Nil {
		e.mu.Unlock()
		return
	}
	if e.state.CurrentSongIndex >= len(e.state.Submissions)-1 {
		e.mu.Unlock()
		return
	}
	e.state.CurrentSongIndex++
	e.state.IsPlaying = false
	index := e.state.CurrentSongIndex
	playing := false
	roundID := e.state.RoundID
	e.mu.Unlock()

	if err := e.store.UpdateListening(ctx, roundID, store.ListeningPatch{
		SongIndex: &index,
		IsPlaying: &playing,
	}); err != nil {
		e.setErr(err)
	}
}

// SelectWinner lets the producer crown a submission: winner flag, round
// completed, one point awarded.
func (e *Engine) SelectWinner(ctx context.Context, playerID uuid.UUID) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	you, ok := state.You()
	if !ok || !you.IsProducer || state.Paused || state.RoundID == uuid.Nil {
		return
	}
	var winning *SubmissionView
	for i := range state.Submissions {
		if state.Submissions[i].PlayerID == playerID {
			winning = &state.Submissions[i]
			break
		}
	}
	if winning == nil {
		return
	}

	if err := e.store.SetSubmissionWinner(ctx, winning.ID); err != nil {
		e.setErr(err)
		return
	}
	if err := e.store.UpdateRoundStatus(ctx, state.RoundID, store.RoundCompleted, &playerID); err != nil {
		e.setErr(err)
		return
	}
	if err := e.store.AwardPoint(ctx, playerID); err != nil {
		e.setErr(err)
		return
	}

	e.mu.Lock()
	e.state.Winner = &playerID
	e.state.Phase = game.PhaseResults
	e.mu.Unlock()
	e.requestPoll()
}

// RateSong records the producer's 1-5 star rating on a submission while
// listening. Ratings are flavor only and never affect scoring.
func (e *Engine) RateSong(ctx context.Context, submissionID uuid.UUID, rating int) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	you, ok := state.You()
	if !ok || !you.IsProducer || state.Paused {
		return
	}
	if rating < 1 || rating > 5 {
		return
	}
	if err := e.store.SetProducerRating(ctx, submissionID, rating); err != nil {
		e.setErr(err)
		return
	}
	e.requestPoll()
}

// NextRound creates the following round once the current one is completed.
// Any non-paused client may call this; two clients racing it can still
// double-create (see bootstrapRound).
func (e *Engine) NextRound(ctx context.Context) {
	e.mu.Lock()
	paused := e.state.Paused
	e.mu.Unlock()
	if paused {
		return
	}

	room, err := e.store.RoomByCode(ctx, e.roomCode)
	if err != nil {
		e.setErr(err)
		return
	}
	latest, err := e.store.LatestRound(ctx, room.ID)
	if err != nil {
		e.setErr(err)
		return
	}
	if latest != nil && latest.Status != store.RoundCompleted {
		return
	}
	next := 1
	if latest != nil {
		next = latest.RoundNumber + 1
	}

	players, err := e.store.PlayersForRoom(ctx, room.ID)
	if err != nil {
		e.setErr(err)
		return
	}
	if _, err := e.bootstrapRound(ctx, room.ID, players, next); err != nil {
		e.setErr(err)
		return
	}
	e.requestPoll()
}

// PauseGame suspends all mutating actions and slows polling. Host only.
func (e *Engine) PauseGame(ctx context.Context) {
	e.mu.Lock()
	roomID := e.state.RoomID
	isHost := e.playerID == e.hostPlayerID
	e.mu.Unlock()
	if !isHost || roomID == uuid.Nil {
		return
	}
	if err := e.store.PauseRoom(ctx, roomID); err != nil {
		e.setErr(err)
		return
	}
	e.mu.Lock()
	e.state.Paused = true
	e.mu.Unlock()
	e.requestPoll()
}

// ResumeGame lifts a pause. Host only.
func (e *Engine) ResumeGame(ctx context.Context) {
	e.mu.Lock()
	roomID := e.state.RoomID
	isHost := e.playerID == e.hostPlayerID
	e.mu.Unlock()
	if !isHost || roomID == uuid.Nil {
		return
	}
	if err := e.store.ResumeRoom(ctx, roomID); err != nil {
		e.setErr(err)
		return
	}
	e.mu.Lock()
	e.state.Paused = false
	e.mu.Unlock()
	e.requestPoll()
}

// KickPlayer removes a player from the room. Host only, never self; the next
// poll drops them from every derived view.
func (e *Engine) KickPlayer(ctx context.Context, playerID uuid.UUID) {
	e.mu.Lock()
	isHost := e.playerID == e.hostPlayerID
	e.mu.Unlock()
	if !isHost || playerID == e.playerID {
		return
	}
	if err := e.store.DeletePlayer(ctx, playerID); err != nil {
		e.setErr(err)
		return
	}
	e.requestPoll()
}

// TouchActivity bumps the local player's last-active timestamp.
func (e *Engine) TouchActivity(ctx context.Context) {
	if err := e.store.TouchPlayer(ctx, e.playerID); err != nil {
		e.setErr(err)
	}
}

// FormatTimer renders the countdown as m:ss for display.
func (e *Engine) FormatTimer() string {
	e.mu.Lock()
	t := e.state.Timer
	e.mu.Unlock()
	return fmt.Sprintf("%d:%02d", t/60, t%60)
}

func buildPrompt(vibe, lyric string) string {
	return fmt.Sprintf("Create a %s song with this lyric: %q. Make it catchy and memorable.", strings.ToLower(vibe), lyric)
}

func ptr[T any](v T) *T { return &v }
