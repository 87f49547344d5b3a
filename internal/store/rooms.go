package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRoomNotFound = errors.New("room not found")

func (s *Store) RoomByCode(ctx context.Context, code string) (Room, error) {
	var room Room
	err := s.db.WithContext(ctx).Where("room_code = ?", code).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("load room %s: %w", code, err)
	}
	return room, nil
}

func (s *Store) RoomCodeTaken(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("room_code = ?", code).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check room code: %w", err)
	}
	return n > 0, nil
}

func (s *Store) InsertRoom(ctx context.Context, room Room) (Room, error) {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	s.log.Debug().Str("code", room.RoomCode).Msg("room created")
	return room, nil
}

func (s *Store) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status RoomStatus) error {
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("id = ?", roomID).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	return nil
}

func (s *Store) PauseRoom(ctx context.Context, roomID uuid.UUID) error {
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("id = ?", roomID).
		Updates(map[string]any{"is_paused": true, "paused_at": now}).Error; err != nil {
		return fmt.Errorf("pause room: %w", err)
	}
	s.log.Debug().Str("room", roomID.String()).Msg("room paused")
	return nil
}

func (s *Store) ResumeRoom(ctx context.Context, roomID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("id = ?", roomID).
		Updates(map[string]any{"is_paused": false, "paused_at": nil}).Error; err != nil {
		return fmt.Errorf("resume room: %w", err)
	}
	s.log.Debug().Str("room", roomID.String()).Msg("room resumed")
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&Room{}, "id = ?", roomID).Error; err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// RoomListing is a waiting room plus its player count, for the lobby browser.
type RoomListing struct {
	Room
	PlayerCount int
}

func (s *Store) AvailableRooms(ctx context.Context) ([]RoomListing, error) {
	var rooms []Room
	if err := s.db.WithContext(ctx).
		Where("status = ?", RoomWaiting).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("load available rooms: %w", err)
	}

	listings := make([]RoomListing, 0, len(rooms))
	for _, room := range rooms {
		var n int64
		if err := s.db.WithContext(ctx).Model(&Player{}).Where("room_id = ?", room.ID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count players: %w", err)
		}
		listings = append(listings, RoomListing{Room: room, PlayerCount: int(n)})
	}
	return listings, nil
}
