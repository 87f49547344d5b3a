// Package store is the typed data accessor for the shared game state. Every
// client talks to the same Postgres database through these models; there is no
// server process in between, so all coordination happens via last-write-wins
// row updates and the poll loop in internal/sync.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomCompleted  RoomStatus = "completed"
)

type RoundStatus string

const (
	RoundSelecting RoundStatus = "selecting"
	RoundCompleted RoundStatus = "completed"
)

// SongStatus tracks a submission's generation lifecycle. The client-side
// phases "generating" and "listening" are derived from these, never stored.
type SongStatus string

const (
	SongPending    SongStatus = "pending"
	SongGenerating SongStatus = "generating"
	SongCompleted  SongStatus = "completed"
	SongFailed     SongStatus = "failed"
)

// IDs are generated client-side (every insert originates in a player's
// client), so all primary keys are UUIDs.

type Room struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomCode     string     `gorm:"size:6;uniqueIndex;not null"`
	Status       RoomStatus `gorm:"size:16;not null;default:waiting"`
	TargetRounds int        `gorm:"not null;default:5"`
	IsPaused     bool       `gorm:"not null;default:false"`
	PausedAt     *time.Time
	CreatedAt    time.Time

	Players []Player `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Rounds  []Round  `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

// Player belongs to a room. JoinOrder doubles as the host designation:
// join order 0 is the host.
type Player struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID       uuid.UUID `gorm:"type:uuid;index;not null"`
	Username     string    `gorm:"size:32;not null"`
	Score        int       `gorm:"not null;default:0"`
	JoinOrder    int       `gorm:"not null"`
	LastActiveAt *time.Time
	CreatedAt    time.Time
}

func (p Player) IsHost() bool { return p.JoinOrder == 0 }

// Round owns its hand cards and submissions. The listening_* columns form the
// shared playback cursor written by the host client and read by everyone else.
type Round struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	RoomID      uuid.UUID   `gorm:"type:uuid;index;not null"`
	RoundNumber int         `gorm:"not null"`
	ProducerID  uuid.UUID   `gorm:"type:uuid;not null"`
	VibeCard    string      `gorm:"column:vibe_card_text;not null"`
	Status      RoundStatus `gorm:"size:16;not null;default:selecting"`
	WinnerID    *uuid.UUID  `gorm:"type:uuid"`

	ListeningSongIndex int  `gorm:"not null;default:0"`
	ListeningIsPlaying bool `gorm:"not null;default:false"`
	ListeningCueAt     *time.Time

	CreatedAt time.Time

	HandCards   []HandCard   `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE"`
	Submissions []Submission `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE"`
}

type HandCard struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID    uuid.UUID `gorm:"type:uuid;index;not null"`
	PlayerID   uuid.UUID `gorm:"type:uuid;index;not null"`
	CardText   string    `gorm:"column:lyric_card_text;not null"`
	Template   string
	BlankCount int  `gorm:"not null;default:0"`
	Position   int  `gorm:"not null"`
	IsPlayed   bool `gorm:"not null;default:false"`
}

type Submission struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoundID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	PlayerID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	HandCardID   *uuid.UUID `gorm:"type:uuid"`
	CardText     string     `gorm:"column:lyric_card_text;not null"`
	FilledBlanks BlankMap   `gorm:"type:jsonb"`

	SunoTaskID  string
	SongStatus  SongStatus `gorm:"size:16;not null;default:pending"`
	SongURL     string
	SongError   string
	TimedLyrics LyricSegments `gorm:"type:jsonb"`

	ProducerRating *int
	IsWinner       bool `gorm:"not null;default:false"`
	CreatedAt      time.Time

	Player Player `gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}

// BlankMap maps blank index (as string) to the player's fill-in text.
type BlankMap map[string]string

func (m BlankMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *BlankMap) Scan(src any) error {
	return scanJSON(src, m)
}

// LyricSegment is one timestamped word of a generated song, used for karaoke
// style display during listening.
type LyricSegment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

type LyricSegments []LyricSegment

func (s LyricSegments) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *LyricSegments) Scan(src any) error {
	return scanJSON(src, s)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("store: unsupported jsonb source type")
	}
}

// SubmissionPatch is an explicit partial update for a submission as its
// generation job progresses. Nil fields are left untouched.
type SubmissionPatch struct {
	SunoTaskID  *string
	SongStatus  *SongStatus
	SongURL     *string
	SongError   *string
	TimedLyrics *LyricSegments
}

// ListeningPatch updates the round's shared playback cursor. CueAt defaults
// to now when unset so followers can compute their offset from it.
type ListeningPatch struct {
	SongIndex *int
	IsPlaying *bool
	CueAt     *time.Time
}
