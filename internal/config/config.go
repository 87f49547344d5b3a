package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the engine and orchestrator need. It is built
// once in cmd and injected; nothing deeper in the call tree reads the
// environment.
type Config struct {
	DatabaseURL string

	// game mechanics
	TimerDuration time.Duration // selection countdown
	HandSize      int
	MinPlayers    int
	MaxPlayers    int
	TargetRounds  int

	// polling
	PollActive          time.Duration
	PollPaused          time.Duration
	PollLobby           time.Duration
	InactivityThreshold time.Duration

	// suno generation API
	SunoBaseURL      string
	SunoAPIKey       string
	SunoModel        string
	SunoCallbackURL  string
	SunoMaxWait      time.Duration
	SunoPollInterval time.Duration

	// played when generation fails so the round can still reach listening
	FallbackAudioURL string

	Debug bool
}

// FromEnv loads a .env file if one is present and reads all settings with
// their defaults. Missing .env is fine; real env vars win either way.
func FromEnv() Config {
	_ = godotenv.Load()

	c := Config{}
	c.DatabaseURL = os.Getenv("DATABASE_URL")

	c.TimerDuration = getdur("GAME_TIMER_DURATION", 60*time.Second)
	c.HandSize = getint("GAME_HAND_SIZE", 5)
	c.MinPlayers = getint("MIN_PLAYERS_TO_START", 3)
	c.MaxPlayers = getint("MAX_PLAYERS", 8)
	c.TargetRounds = getint("DEFAULT_TARGET_ROUNDS", 5)

	c.PollActive = getdur("POLL_INTERVAL_ACTIVE", 2500*time.Millisecond)
	c.PollPaused = getdur("POLL_INTERVAL_PAUSED", 5*time.Second)
	c.PollLobby = getdur("LOBBY_POLL_INTERVAL", 2*time.Second)
	c.InactivityThreshold = getdur("INACTIVITY_THRESHOLD", 3*time.Minute)

	c.SunoBaseURL = getenv("SUNO_API_BASE_URL", "https://api.sunoapi.org")
	c.SunoAPIKey = os.Getenv("SUNO_API_KEY")
	c.SunoModel = getenv("SUNO_MODEL_VERSION", "V4_5")
	c.SunoCallbackURL = getenv("SUNO_CALLBACK_URL", "https://dummy-callback.com/polling-mode")
	c.SunoMaxWait = getdur("SUNO_MAX_WAIT_TIME", 5*time.Minute)
	c.SunoPollInterval = getdur("SUNO_POLL_INTERVAL", 3*time.Second)

	c.FallbackAudioURL = getenv("FALLBACK_AUDIO_URL", "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav")

	c.Debug = getenv("DEBUG_LOGS", "false") == "true"
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getdur accepts Go duration strings ("2500ms", "3m") or bare milliseconds.
func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
