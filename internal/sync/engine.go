package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kiliankoe/cacophony/internal/config"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
)

// Engine is the game-state synchronizer for one client in one room. It polls
// the shared store, merges each snapshot into its state and exposes the
// phase-driven actions. All methods are safe for concurrent use.
type Engine struct {
	cfg   config.Config
	store Accessor
	songs Generator
	log   zerolog.Logger

	roomCode string
	playerID uuid.UUID

	mu    stdsync.Mutex
	state GameState

	// host designation snapshot, captured on first load
	hostPlayerID uuid.UUID

	pollNow chan struct{}
}

func NewEngine(cfg config.Config, acc Accessor, songs Generator, roomCode string, playerID uuid.UUID, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    acc,
		songs:    songs,
		log:      log.With().Str("component", "sync").Str("room", roomCode).Logger(),
		roomCode: roomCode,
		playerID: playerID,
		state: GameState{
			Phase:   game.PhaseWaiting,
			Loading: true,
		},
		pollNow: make(chan struct{}, 1),
	}
}

// State returns a copy of the current snapshot.
func (e *Engine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run drives the two periodic tasks until the context is cancelled: the data
// poll (slower while the room is paused) and the one-second countdown tick.
// Both handles are cleaned up on return, so cancelling the context is enough
// to stop a navigated-away client from leaking its loops.
func (e *Engine) Run(ctx context.Context) error {
	e.Refresh(ctx)

	poll := time.NewTimer(e.pollInterval())
	defer poll.Stop()
	countdown := time.NewTicker(time.Second)
	defer countdown.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			e.Refresh(ctx)
			poll.Reset(e.pollInterval())
		case <-e.pollNow:
			e.Refresh(ctx)
			if !poll.Stop() {
				select {
				case <-poll.C:
				default:
				}
			}
			poll.Reset(e.pollInterval())
		case <-countdown.C:
			e.countdownTick()
		}
	}
}

func (e *Engine) pollInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Paused {
		return e.cfg.PollPaused
	}
	return e.cfg.PollActive
}

// countdownTick decrements the selection timer. Cosmetic only: hitting zero
// does not force a submission.
func (e *Engine) countdownTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase == game.PhaseSelecting && !e.state.Paused && e.state.Timer > 0 {
		e.state.Timer--
	}
}

// requestPoll schedules an immediate re-poll without blocking.
func (e *Engine) requestPoll() {
	select {
	case e.pollNow <- struct{}{}:
	default:
	}
}

// Refresh fetches a full snapshot and merges it. If the room has no round
// yet, this client creates round 1 itself; any client may do this, first
// writer wins at the store (see bootstrapRound).
func (e *Engine) Refresh(ctx context.Context) {
	room, err := e.store.RoomByCode(ctx, e.roomCode)
	if err != nil {
		e.setErr(err)
		return
	}
	players, err := e.store.PlayersForRoom(ctx, room.ID)
	if err != nil {
		e.setErr(err)
		return
	}

	round, err := e.store.LatestRound(ctx, room.ID)
	if err != nil {
		e.setErr(err)
		return
	}
	if round == nil && room.Status == store.RoomInProgress {
		created, err := e.bootstrapRound(ctx, room.ID, players, 1)
		if err != nil {
			e.setErr(err)
			return
		}
		round = &created
	}
	if round == nil {
		// room still gathering players; nothing to derive yet
		e.mu.Lock()
		e.state.Phase = game.PhaseWaiting
		e.state.RoomID = room.ID
		e.state.Paused = room.IsPaused
		e.state.Loading = false
		e.mu.Unlock()
		return
	}

	var hand []store.HandCard
	var subs []store.Submission
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hand, err = e.store.HandForPlayer(gctx, round.ID, e.playerID)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = e.store.SubmissionsForRound(gctx, round.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		e.setErr(err)
		return
	}

	snap := snapshot{
		room:    room,
		players: players,
		round:   *round,
		hand:    hand,
		subs:    subs,
		now:     time.Now().UTC(),
	}

	e.mu.Lock()
	if e.hostPlayerID == uuid.Nil {
		for _, p := range players {
			if p.IsHost() {
				e.hostPlayerID = p.ID
				break
			}
		}
	}
	prev := e.state
	e.state = mergeSnapshot(prev, snap, mergeParams{
		selfID:        e.playerID,
		timerDuration: e.cfg.TimerDuration,
		inactivity:    e.cfg.InactivityThreshold,
	})
	phase := e.state.Phase
	e.mu.Unlock()

	if prev.Phase != phase {
		e.log.Info().Str("from", string(prev.Phase)).Str("to", string(phase)).Msg("phase transition")
	}
}

// bootstrapRound creates the given round number: deterministic producer,
// random vibe prompt, hands dealt to every artist. There is no uniqueness
// guard on (room, round_number), so two clients racing here can both insert;
// last writer wins at the store. Known limitation of the polling design.
func (e *Engine) bootstrapRound(ctx context.Context, roomID uuid.UUID, players []store.Player, roundNumber int) (store.Round, error) {
	producer, err := game.DeriveProducer(players, roundNumber)
	if err != nil {
		return store.Round{}, err
	}
	round, err := e.store.InsertRound(ctx, store.Round{
		RoomID:      roomID,
		RoundNumber: roundNumber,
		ProducerID:  producer.ID,
		VibeCard:    game.PickVibeCard(),
		Status:      store.RoundSelecting,
	})
	if err != nil {
		return store.Round{}, err
	}
	if err := dealHands(ctx, e.store, round.ID, players, producer.ID, e.cfg.HandSize); err != nil {
		return store.Round{}, err
	}
	e.log.Info().Int("round", roundNumber).Str("producer", producer.Username).Msg("round created")
	return round, nil
}

func (e *Engine) setErr(err error) {
	e.log.Warn().Err(err).Msg("sync error")
	e.mu.Lock()
	e.state.Err = err.Error()
	e.state.Loading = false
	e.mu.Unlock()
}

// dealHands inserts a shuffled hand for every non-producer player.
func dealHands(ctx context.Context, acc Accessor, roundID uuid.UUID, players []store.Player, producerID uuid.UUID, handSize int) error {
	var cards []store.HandCard
	for _, p := range players {
		if p.ID == producerID {
			continue
		}
		for i, tmpl := range game.DealHand(handSize) {
			cards = append(cards, store.HandCard{
				RoundID:    roundID,
				PlayerID:   p.ID,
				CardText:   tmpl.Display,
				Template:   tmpl.Template,
				BlankCount: tmpl.BlankCount,
				Position:   i,
			})
		}
	}
	return acc.InsertHandCards(ctx, cards)
}
