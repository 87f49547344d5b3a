package store

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the gorm handle with the typed accessor methods the sync engine
// uses. All methods are single reads or writes; multi-step game actions are
// composed in internal/sync, not here.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

func Open(dsn string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

// Migrate keeps the shared schema in step with the models. Safe to run from
// any client; gorm only applies missing pieces.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Room{}, &Player{}, &Round{}, &HandCard{}, &Submission{})
}
