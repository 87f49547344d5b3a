package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayersForRoom returns the room's players sorted by join order, so index 0
// is always the host.
func (s *Store) PlayersForRoom(ctx context.Context, roomID uuid.UUID) ([]Player, error) {
	var players []Player
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("join_order ASC").
		Find(&players).Error; err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	return players, nil
}

func (s *Store) InsertPlayer(ctx context.Context, player Player) (Player, error) {
	if player.ID == uuid.Nil {
		player.ID = uuid.New()
	}
	now := time.Now().UTC()
	player.LastActiveAt = &now
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		return Player{}, fmt.Errorf("create player: %w", err)
	}
	s.log.Debug().Str("player", player.ID.String()).Str("name", player.Username).Msg("player joined")
	return player, nil
}

func (s *Store) UpdateUsername(ctx context.Context, playerID uuid.UUID, username string) error {
	if err := s.db.WithContext(ctx).Model(&Player{}).Where("id = ?", playerID).
		Update("username", username).Error; err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

func (s *Store) AwardPoint(ctx context.Context, playerID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&Player{}).Where("id = ?", playerID).
		Update("score", gorm.Expr("score + 1")).Error; err != nil {
		return fmt.Errorf("award point: %w", err)
	}
	return nil
}

// TouchPlayer bumps last_active_at; the lobby derives an inactivity flag from
// it. This is a UI hint, not a presence system.
func (s *Store) TouchPlayer(ctx context.Context, playerID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&Player{}).Where("id = ?", playerID).
		Update("last_active_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("touch player: %w", err)
	}
	return nil
}

func (s *Store) DeletePlayer(ctx context.Context, playerID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&Player{}, "id = ?", playerID).Error; err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	s.log.Debug().Str("player", playerID.String()).Msg("player removed")
	return nil
}
