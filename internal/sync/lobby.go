package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kiliankoe/cacophony/internal/config"
	"github.com/kiliankoe/cacophony/internal/game"
	"github.com/kiliankoe/cacophony/internal/store"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrGameStarted   = errors.New("game has already started")
	ErrNameTaken     = errors.New("username is taken in this room")
	ErrNotEnough     = errors.New("not enough players to start")
	ErrNoFreeRoomKey = errors.New("no free room code found")
)

// Lobby covers everything before a game starts: creating rooms, joining them
// and kicking the first round off. Unlike the engine it holds no state of its
// own; every call round-trips the store.
type Lobby struct {
	cfg   config.Config
	store Accessor
	log   zerolog.Logger
}

func NewLobby(cfg config.Config, acc Accessor, log zerolog.Logger) *Lobby {
	return &Lobby{cfg: cfg, store: acc, log: log.With().Str("component", "lobby").Logger()}
}

// CreateRoom makes a fresh room and seats its creator as the host. Room codes
// collide rarely; a handful of retries is plenty.
func (l *Lobby) CreateRoom(ctx context.Context, username string) (store.Room, store.Player, error) {
	var code string
	for attempt := 0; ; attempt++ {
		code = game.NewRoomCode()
		taken, err := l.store.RoomCodeTaken(ctx, code)
		if err != nil {
			return store.Room{}, store.Player{}, err
		}
		if !taken {
			break
		}
		if attempt >= 9 {
			return store.Room{}, store.Player{}, fmt.Errorf("%w after %d attempts", ErrNoFreeRoomKey, attempt+1)
		}
	}

	room, err := l.store.InsertRoom(ctx, store.Room{
		RoomCode:     code,
		Status:       store.RoomWaiting,
		TargetRounds: l.cfg.TargetRounds,
	})
	if err != nil {
		return store.Room{}, store.Player{}, err
	}

	player, err := l.store.InsertPlayer(ctx, store.Player{
		RoomID:    room.ID,
		Username:  displayName(username),
		JoinOrder: 0,
	})
	if err != nil {
		return store.Room{}, store.Player{}, err
	}

	l.log.Info().Str("room", room.RoomCode).Str("host", player.Username).Msg("room created")
	return room, player, nil
}

// Join seats a player in an existing room. Rooms that already started, full
// rooms and duplicate names (compared case-insensitively) are refused.
func (l *Lobby) Join(ctx context.Context, code, username string) (store.Room, store.Player, error) {
	room, err := l.store.RoomByCode(ctx, game.NormalizeRoomCode(code))
	if err != nil {
		return store.Room{}, store.Player{}, err
	}
	if room.Status != store.RoomWaiting {
		return store.Room{}, store.Player{}, fmt.Errorf("room %s: %w", room.RoomCode, ErrGameStarted)
	}

	players, err := l.store.PlayersForRoom(ctx, room.ID)
	if err != nil {
		return store.Room{}, store.Player{}, err
	}
	if len(players) >= l.cfg.MaxPlayers {
		return store.Room{}, store.Player{}, fmt.Errorf("room %s: %w", room.RoomCode, ErrRoomFull)
	}

	name := displayName(username)
	for _, p := range players {
		if strings.EqualFold(p.Username, name) {
			return store.Room{}, store.Player{}, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
	}

	joinOrder := 0
	for _, p := range players {
		if p.JoinOrder >= joinOrder {
			joinOrder = p.JoinOrder + 1
		}
	}

	player, err := l.store.InsertPlayer(ctx, store.Player{
		RoomID:    room.ID,
		Username:  name,
		JoinOrder: joinOrder,
	})
	if err != nil {
		return store.Room{}, store.Player{}, err
	}

	l.log.Info().Str("room", room.RoomCode).Str("player", player.Username).Int("join_order", joinOrder).Msg("player joined")
	return room, player, nil
}

// Rename updates a seated player's display name.
func (l *Lobby) Rename(ctx context.Context, playerID uuid.UUID, username string) error {
	return l.store.UpdateUsername(ctx, playerID, displayName(username))
}

// Leave removes a player from a waiting room. A departing host takes the room
// down with them; everyone else just frees their seat.
func (l *Lobby) Leave(ctx context.Context, roomID, playerID uuid.UUID) error {
	players, err := l.store.PlayersForRoom(ctx, roomID)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.ID == playerID && p.IsHost() {
			l.log.Info().Str("room", roomID.String()).Msg("host left, closing room")
			return l.store.DeleteRoom(ctx, roomID)
		}
	}
	return l.store.DeletePlayer(ctx, playerID)
}

// StartGame flips the room to in-progress and bootstraps round 1 so joiners
// see a fully formed game on their next poll.
func (l *Lobby) StartGame(ctx context.Context, roomID uuid.UUID) error {
	players, err := l.store.PlayersForRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if len(players) < l.cfg.MinPlayers {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnough, l.cfg.MinPlayers, len(players))
	}

	if err := l.store.UpdateRoomStatus(ctx, roomID, store.RoomInProgress); err != nil {
		return err
	}

	producer, err := game.DeriveProducer(players, 1)
	if err != nil {
		return err
	}
	round, err := l.store.InsertRound(ctx, store.Round{
		RoomID:      roomID,
		RoundNumber: 1,
		ProducerID:  producer.ID,
		VibeCard:    game.PickVibeCard(),
		Status:      store.RoundSelecting,
	})
	if err != nil {
		return err
	}
	if err := dealHands(ctx, l.store, round.ID, players, producer.ID, l.cfg.HandSize); err != nil {
		return err
	}

	l.log.Info().Str("room", roomID.String()).Int("players", len(players)).Msg("game started")
	return nil
}

// AvailableRooms lists joinable rooms with their current headcount.
func (l *Lobby) AvailableRooms(ctx context.Context) ([]store.RoomListing, error) {
	return l.store.AvailableRooms(ctx)
}

// RoomSnapshot is one lobby poll's worth of state for a waiting room.
type RoomSnapshot struct {
	Room    store.Room
	Players []store.Player
	Started bool
}

// Snapshot fetches the room and its seats once.
func (l *Lobby) Snapshot(ctx context.Context, code string) (RoomSnapshot, error) {
	room, err := l.store.RoomByCode(ctx, game.NormalizeRoomCode(code))
	if err != nil {
		return RoomSnapshot{}, err
	}
	players, err := l.store.PlayersForRoom(ctx, room.ID)
	if err != nil {
		return RoomSnapshot{}, err
	}
	return RoomSnapshot{Room: room, Players: players, Started: room.Status != store.RoomWaiting}, nil
}

// Watch polls the room until it starts, the room disappears or the context is
// cancelled, delivering each snapshot to onUpdate.
func (l *Lobby) Watch(ctx context.Context, code string, onUpdate func(RoomSnapshot)) error {
	ticker := time.NewTicker(l.cfg.PollLobby)
	defer ticker.Stop()

	for {
		snap, err := l.Snapshot(ctx, code)
		if err != nil {
			return err
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.Started {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// displayName trims the given name or invents a guest name when it is empty.
func displayName(username string) string {
	name := strings.TrimSpace(username)
	if name == "" {
		name = "Guest-" + strings.ToLower(gofakeit.LetterN(5))
	}
	return name
}
