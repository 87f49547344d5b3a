package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LatestRound returns the newest round for a room, or nil when the room has
// none yet (the caller bootstraps round 1 in that case).
func (s *Store) LatestRound(ctx context.Context, roomID uuid.UUID) (*Round, error) {
	var round Round
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("round_number DESC").
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest round: %w", err)
	}
	return &round, nil
}

func (s *Store) InsertRound(ctx context.Context, round Round) (Round, error) {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	if round.Status == "" {
		round.Status = RoundSelecting
	}
	if err := s.db.WithContext(ctx).Create(&round).Error; err != nil {
		return Round{}, fmt.Errorf("create round: %w", err)
	}
	s.log.Debug().Int("round", round.RoundNumber).Str("producer", round.ProducerID.String()).Msg("round created")
	return round, nil
}

func (s *Store) UpdateRoundStatus(ctx context.Context, roundID uuid.UUID, status RoundStatus, winnerID *uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&Round{}).Where("id = ?", roundID).
		Updates(map[string]any{"status": status, "winner_id": winnerID}).Error; err != nil {
		return fmt.Errorf("update round status: %w", err)
	}
	return nil
}

// UpdateListening writes the shared playback cursor. Only the host client
// calls this; everyone else picks the cursor up on their next poll.
func (s *Store) UpdateListening(ctx context.Context, roundID uuid.UUID, patch ListeningPatch) error {
	fields := map[string]any{}
	if patch.SongIndex != nil {
		fields["listening_song_index"] = *patch.SongIndex
	}
	if patch.IsPlaying != nil {
		fields["listening_is_playing"] = *patch.IsPlaying
	}
	cue := time.Now().UTC()
	if patch.CueAt != nil {
		cue = *patch.CueAt
	}
	fields["listening_cue_at"] = cue

	if err := s.db.WithContext(ctx).Model(&Round{}).Where("id = ?", roundID).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update listening state: %w", err)
	}
	return nil
}

func (s *Store) InsertHandCards(ctx context.Context, cards []HandCard) error {
	if len(cards) == 0 {
		return nil
	}
	for i := range cards {
		if cards[i].ID == uuid.Nil {
			cards[i].ID = uuid.New()
		}
	}
	if err := s.db.WithContext(ctx).Create(&cards).Error; err != nil {
		return fmt.Errorf("deal cards: %w", err)
	}
	return nil
}

func (s *Store) HandForPlayer(ctx context.Context, roundID, playerID uuid.UUID) ([]HandCard, error) {
	var cards []HandCard
	if err := s.db.WithContext(ctx).
		Where("round_id = ? AND player_id = ?", roundID, playerID).
		Order("position ASC").
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("load hand: %w", err)
	}
	return cards, nil
}

func (s *Store) MarkCardPlayed(ctx context.Context, cardID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&HandCard{}).Where("id = ?", cardID).
		Update("is_played", true).Error; err != nil {
		return fmt.Errorf("mark card played: %w", err)
	}
	return nil
}
