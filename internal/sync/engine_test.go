package sync

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/cacophony/internal/config"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
	"github.com/kiliankoe/cacophony/internal/suno"
)

func testConfig() config.Config {
	return config.Config{
		TimerDuration:       60 * time.Second,
		HandSize:            5,
		MinPlayers:          3,
		MaxPlayers:          8,
		TargetRounds:        5,
		PollActive:          10 * time.Millisecond,
		PollPaused:          20 * time.Millisecond,
		PollLobby:           10 * time.Millisecond,
		InactivityThreshold: 3 * time.Minute,
		SunoModel:           "V4_5",
		SunoMaxWait:         time.Second,
		SunoPollInterval:    time.Millisecond,
		FallbackAudioURL:    "https://example.com/fallback.wav",
	}
}

// seedRoom creates an in-progress room with the given players seated in join
// order. The first name is the host.
func seedRoom(t *testing.T, fs *fakeStore, status store.RoomStatus, names ...string) (store.Room, []store.Player) {
	t.Helper()
	ctx := context.Background()
	room, err := fs.InsertRoom(ctx, store.Room{RoomCode: "ABCDEF", Status: status, TargetRounds: 5})
	require.NoError(t, err)

	players := make([]store.Player, 0, len(names))
	for i, name := range names {
		p, err := fs.InsertPlayer(ctx, store.Player{RoomID: room.ID, Username: name, JoinOrder: i})
		require.NoError(t, err)
		players = append(players, p)
	}
	return room, players
}

func newTestEngine(fs *fakeStore, gen *fakeGenerator, playerID uuid.UUID) *Engine {
	return NewEngine(testConfig(), fs, gen, "ABCDEF", playerID, zerolog.Nop())
}

// fillAndSubmit picks the first unplayed card, fills every blank with the
// given word and submits.
func fillAndSubmit(t *testing.T, e *Engine, word string) {
	t.Helper()
	state := e.State()
	require.NotEmpty(t, state.Hand)
	e.SelectCard(state.Hand[0].ID)

	state = e.State()
	require.NotNil(t, state.SelectedCard)
	for i := 0; i < state.SelectedCard.BlankCount; i++ {
		e.UpdateBlank(i, word)
	}
	e.SubmitCard(context.Background())
}

func TestRefreshBootstrapsFirstRound(t *testing.T) {
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	e := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	e.Refresh(context.Background())

	state := e.State()
	assert.Equal(t, game.PhaseSelecting, state.Phase)
	assert.Equal(t, 1, state.RoundNumber)
	assert.Equal(t, 60, state.Timer)
	assert.False(t, state.Loading)

	// producer is the host (join order 0), so bob holds a hand and alice none
	producer, ok := state.Producer()
	require.True(t, ok)
	assert.Equal(t, "alice", producer.Name)
	assert.Len(t, state.Hand, 5)

	aliceHand, err := fs.HandForPlayer(context.Background(), state.RoundID, players[0].ID)
	require.NoError(t, err)
	assert.Empty(t, aliceHand)
}

func TestRefreshLeavesWaitingRoomAlone(t *testing.T) {
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomWaiting, "alice", "bob", "cara")

	e := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	e.Refresh(context.Background())

	assert.Equal(t, game.PhaseWaiting, e.State().Phase)
	rounds, err := fs.LatestRound(context.Background(), e.State().RoomID)
	require.NoError(t, err)
	assert.Nil(t, rounds, "no round may be created before the game starts")
}

func TestFullRoundFlow(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	alice := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	bob := newTestEngine(fs, &fakeGenerator{
		progress: []int{20, 80, 100},
		words: []suno.AlignedWord{
			{Word: "my", Success: true, StartS: 0.1, EndS: 0.4},
			{Word: "cat", Success: true, StartS: 0.4, EndS: 0.9},
		},
	}, players[1].ID)
	cara := newTestEngine(fs, &fakeGenerator{}, players[2].ID)

	bob.Refresh(ctx)
	cara.Refresh(ctx)
	alice.Refresh(ctx)

	fillAndSubmit(t, bob, "pizza")
	assert.Equal(t, 100, bob.State().GenerationProgress)

	// one of two artists in, everyone else still selects
	cara.Refresh(ctx)
	assert.Equal(t, game.PhaseSelecting, cara.State().Phase)

	fillAndSubmit(t, cara, "moonlight")

	alice.Refresh(ctx)
	state := alice.State()
	assert.Equal(t, game.PhaseListening, state.Phase)
	require.Len(t, state.Submissions, 2)
	for _, sub := range state.Submissions {
		assert.Equal(t, store.SongCompleted, sub.SongStatus)
		assert.Equal(t, "https://cdn.example/song.mp3", sub.SongURL)
		assert.NotContains(t, sub.Lyric, "{", "lyric must have all placeholders replaced")
		if sub.PlayerID == players[1].ID {
			require.Len(t, sub.TimedLyrics, 2)
			assert.Equal(t, "my", sub.TimedLyrics[0].Text)
		}
	}

	alice.SelectWinner(ctx, players[1].ID)
	state = alice.State()
	assert.Equal(t, game.PhaseResults, state.Phase)
	require.NotNil(t, state.Winner)
	assert.Equal(t, players[1].ID, *state.Winner)

	bob.Refresh(ctx)
	state = bob.State()
	assert.Equal(t, game.PhaseResults, state.Phase)
	you, ok := state.You()
	require.True(t, ok)
	assert.Equal(t, 1, you.Score)
}

func TestSubmitCardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	gen := &fakeGenerator{}
	bob := newTestEngine(fs, gen, players[1].ID)
	bob.Refresh(ctx)
	fillAndSubmit(t, bob, "pizza")

	// the local guard catches a repeat submit after a refresh
	bob.Refresh(ctx)
	state := bob.State()
	bob.SelectCard(state.Hand[1].ID)
	bob.SubmitCard(ctx)

	// a stale client that never saw its own row stops at the store check
	stale := newTestEngine(fs, gen, players[1].ID)
	stale.Refresh(ctx)
	stale.mu.Lock()
	for i := range stale.state.Players {
		if stale.state.Players[i].IsYou {
			stale.state.Players[i].Submitted = false
		}
	}
	card := stale.state.Hand[1]
	stale.state.SelectedCard = &card
	stale.state.FilledBlanks = map[string]string{"0": "again"}
	stale.mu.Unlock()
	stale.SubmitCard(ctx)

	subs, err := fs.SubmissionsForRound(ctx, state.RoundID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 1, gen.generateCalls)
}

func TestSubmitCardFailureUsesFallbackAudio(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	gen := &fakeGenerator{awaitErr: context.DeadlineExceeded}
	bob := newTestEngine(fs, gen, players[1].ID)
	bob.Refresh(ctx)
	fillAndSubmit(t, bob, "pizza")

	subs, err := fs.SubmissionsForRound(ctx, bob.State().RoundID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, store.SongFailed, subs[0].SongStatus)
	assert.Equal(t, "https://example.com/fallback.wav", subs[0].SongURL)
	assert.NotEmpty(t, subs[0].SongError)

	// a failed song still counts as this player's turn
	bob.Refresh(ctx)
	assert.Empty(t, bob.State().Err, "generation failure is not a sync error")
	you, ok := bob.State().You()
	require.True(t, ok)
	assert.True(t, you.Submitted)
}

func TestSubmitCardBuildsGenerationPrompt(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	gen := &fakeGenerator{}
	bob := newTestEngine(fs, gen, players[1].ID)
	bob.Refresh(ctx)
	fillAndSubmit(t, bob, "pizza")

	req := gen.lastReq
	assert.Contains(t, req.Prompt, "Create a ")
	assert.Contains(t, req.Prompt, "Make it catchy and memorable.")
	assert.True(t, req.CustomMode)
	assert.Equal(t, "V4_5", req.Model)
}

func TestPausedRoomRefusesMutatingActions(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	alice := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	bob.Refresh(ctx)
	alice.Refresh(ctx)

	alice.PauseGame(ctx)
	bob.Refresh(ctx)
	require.True(t, bob.State().Paused)

	before := fs.writeCount()
	bob.SelectCard(bob.State().Hand[0].ID)
	bob.SubmitCard(ctx)
	alice.SelectWinner(ctx, players[1].ID)
	bob.NextRound(ctx)
	bob.TogglePlay(ctx)
	assert.Equal(t, before, fs.writeCount(), "paused rooms accept no writes")

	alice.ResumeGame(ctx)
	bob.Refresh(ctx)
	assert.False(t, bob.State().Paused)
}

func TestNextRoundRotatesProducer(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	bob.Refresh(ctx)

	// the current round must finish before anyone can advance
	bob.NextRound(ctx)
	assert.Equal(t, 1, bob.State().RoundNumber)

	require.NoError(t, fs.UpdateRoundStatus(ctx, bob.State().RoundID, store.RoundCompleted, &players[2].ID))
	bob.NextRound(ctx)
	bob.Refresh(ctx)

	state := bob.State()
	assert.Equal(t, 2, state.RoundNumber)
	producer, ok := state.Producer()
	require.True(t, ok)
	assert.Equal(t, "bob", producer.Name, "round 2 producer is join order 1")

	// the new producer holds no hand this round
	assert.Empty(t, state.Hand)
}

func TestProducerGuards(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	alice := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	alice.Refresh(ctx)
	bob.Refresh(ctx)

	// the producer never selects a card
	alice.SelectCard(uuid.New())
	assert.Nil(t, alice.State().SelectedCard)

	// non-producers never pick winners
	before := fs.writeCount()
	bob.SelectWinner(ctx, players[2].ID)
	assert.Equal(t, before, fs.writeCount())
}

func TestHostGuards(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	bob.Refresh(ctx)

	before := fs.writeCount()
	bob.TogglePlay(ctx)
	bob.NextSong(ctx)
	bob.PauseGame(ctx)
	bob.KickPlayer(ctx, players[2].ID)
	assert.Equal(t, before, fs.writeCount(), "non-hosts own neither playback nor room control")
}

func TestListeningCursorHostWritesFollowerReads(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	alice := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	cara := newTestEngine(fs, &fakeGenerator{}, players[2].ID)
	alice.Refresh(ctx)
	bob.Refresh(ctx)
	cara.Refresh(ctx)

	fillAndSubmit(t, bob, "pizza")
	fillAndSubmit(t, cara, "moonlight")
	alice.Refresh(ctx)
	require.Equal(t, game.PhaseListening, alice.State().Phase)

	alice.TogglePlay(ctx)
	assert.True(t, alice.State().IsPlaying)

	bob.Refresh(ctx)
	assert.True(t, bob.State().IsPlaying, "followers adopt the host's cursor")
	assert.Equal(t, 0, bob.State().CurrentSongIndex)

	alice.NextSong(ctx)
	bob.Refresh(ctx)
	assert.Equal(t, 1, bob.State().CurrentSongIndex)
	assert.False(t, bob.State().IsPlaying, "advancing starts the next song paused")

	// already on the last of two songs, NextSong has nowhere to go
	alice.NextSong(ctx)
	bob.Refresh(ctx)
	assert.Equal(t, 1, bob.State().CurrentSongIndex)
}

func TestCountdownTicksOnlyWhileSelecting(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	bob.Refresh(ctx)
	require.Equal(t, 60, bob.State().Timer)

	bob.countdownTick()
	bob.countdownTick()
	assert.Equal(t, 58, bob.State().Timer)

	// a poll must not restart the countdown mid-phase
	bob.Refresh(ctx)
	assert.Equal(t, 58, bob.State().Timer)
	assert.Equal(t, "0:58", bob.FormatTimer())
}

func TestRateSongIsProducerOnly(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	alice := newTestEngine(fs, &fakeGenerator{}, players[0].ID)
	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	alice.Refresh(ctx)
	bob.Refresh(ctx)
	fillAndSubmit(t, bob, "pizza")
	alice.Refresh(ctx)

	subID := alice.State().Submissions[0].ID

	bob.RateSong(ctx, subID, 5)
	alice.RateSong(ctx, subID, 9)
	alice.RateSong(ctx, subID, 4)

	subs, err := fs.SubmissionsForRound(ctx, alice.State().RoundID)
	require.NoError(t, err)
	require.NotNil(t, subs[0].ProducerRating)
	assert.Equal(t, 4, *subs[0].ProducerRating)
}

func TestSelectCardInitializesBlankDraft(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	_, players := seedRoom(t, fs, store.RoomInProgress, "alice", "bob", "cara")

	bob := newTestEngine(fs, &fakeGenerator{}, players[1].ID)
	bob.Refresh(ctx)

	card := bob.State().Hand[0]
	bob.SelectCard(card.ID)

	state := bob.State()
	require.NotNil(t, state.SelectedCard)
	assert.Len(t, state.FilledBlanks, card.BlankCount)
	for i := 0; i < card.BlankCount; i++ {
		v, ok := state.FilledBlanks[strconv.Itoa(i)]
		assert.True(t, ok)
		assert.Empty(t, v)
	}
}
