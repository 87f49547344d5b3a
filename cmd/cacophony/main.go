package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiliankoe/cacophony/internal/config"
	"github.com/kiliankoe/cacophony/internal/store"
	"github.com/kiliankoe/cacophony/internal/suno"
	"github.com/kiliankoe/cacophony/internal/sync"
)

const version = "v0.3.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		createRoom  = flag.Bool("create", false, "Create a new room and host it")
		joinCode    = flag.String("join", "", "Join an existing room by code")
		listRooms   = flag.Bool("rooms", false, "List joinable rooms and exit")
		playerName  = flag.String("name", "", "Display name (a guest name is invented if empty)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Cacophony - AI song party game client

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --create        Create a new room and host it
  --join CODE     Join an existing room by its 6-letter code
  --rooms         List joinable rooms and exit
  --name NAME     Display name (a guest name is invented if empty)

Environment Variables:
  DATABASE_URL           Postgres connection string (required)
  SUNO_API_KEY           sunoapi.org API key (required to generate songs)
  SUNO_API_BASE_URL      API base URL (default: https://api.sunoapi.org)
  SUNO_MODEL_VERSION     Generation model (default: V4_5)
  SUNO_MAX_WAIT_TIME     Max wait for a generation job (default: 5m)
  GAME_TIMER_DURATION    Selection countdown (default: 60s)
  GAME_HAND_SIZE         Cards dealt per artist (default: 5)
  MIN_PLAYERS_TO_START   Minimum headcount to start (default: 3)
  MAX_PLAYERS            Room capacity (default: 8)
  POLL_INTERVAL_ACTIVE   Game poll interval (default: 2500ms)
  FALLBACK_AUDIO_URL     Audio used when generation fails
  DEBUG_LOGS             Verbose logging (default: false)

Examples:
  %s --create --name alice         Host a fresh room
  %s --join QXJ42K --name bob      Join room QXJ42K
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Cacophony %s\n", version)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg := config.FromEnv()
	if !cfg.Debug {
		log = log.Level(zerolog.InfoLevel)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := store.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lobby := sync.NewLobby(cfg, db, log)

	if *listRooms {
		rooms, err := lobby.AvailableRooms(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list rooms")
		}
		if len(rooms) == 0 {
			fmt.Println("No open rooms right now. Create one with --create.")
			return
		}
		for _, r := range rooms {
			fmt.Printf("%s  %d player(s)  opened %s\n", r.RoomCode, r.PlayerCount, r.CreatedAt.Format(time.Kitchen))
		}
		return
	}

	var (
		room   store.Room
		player store.Player
	)
	switch {
	case *createRoom:
		room, player, err = lobby.CreateRoom(ctx, *playerName)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create room")
		}
		fmt.Printf("Room %s created. Share the code, the game starts at %d players.\n", room.RoomCode, cfg.MinPlayers)
	case *joinCode != "":
		room, player, err = lobby.Join(ctx, *joinCode, *playerName)
		if err != nil {
			log.Fatal().Err(err).Msg("could not join room")
		}
		fmt.Printf("Joined room %s as %s.\n", room.RoomCode, player.Username)
	default:
		fmt.Println("Nothing to do: pass --create, --join CODE or --rooms. See --help.")
		return
	}

	// wait in the lobby until the game starts; the host kicks it off once
	// enough players are seated
	err = lobby.Watch(ctx, room.RoomCode, func(snap sync.RoomSnapshot) {
		if snap.Started {
			return
		}
		log.Info().Int("players", len(snap.Players)).Int("needed", cfg.MinPlayers).Msg("waiting for players")
		if player.IsHost() && len(snap.Players) >= cfg.MinPlayers {
			if err := lobby.StartGame(ctx, room.ID); err != nil {
				log.Warn().Err(err).Msg("could not start game")
			}
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Fatal().Err(err).Msg("lobby failed")
	}

	songs := suno.NewClient(cfg.SunoAPIKey, cfg.SunoBaseURL, cfg.SunoCallbackURL, log)
	engine := sync.NewEngine(cfg, db, songs, room.RoomCode, player.ID, log)

	log.Info().Str("room", room.RoomCode).Str("player", player.Username).Msg("game on")
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("sync engine failed")
	}
}
