package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionsForRound returns all submissions with their player rows loaded,
// so views can show usernames without extra lookups.
func (s *Store) SubmissionsForRound(ctx context.Context, roundID uuid.UUID) ([]Submission, error) {
	var subs []Submission
	if err := s.db.WithContext(ctx).
		Preload("Player").
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return subs, nil
}

// SubmissionForPlayer returns the player's submission for the round, or nil.
// The sync engine checks this before inserting so a duplicate submit finds
// the existing row instead of creating a second one.
func (s *Store) SubmissionForPlayer(ctx context.Context, roundID, playerID uuid.UUID) (*Submission, error) {
	var sub Submission
	err := s.db.WithContext(ctx).
		Where("round_id = ? AND player_id = ?", roundID, playerID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &sub, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.SongStatus == "" {
		sub.SongStatus = SongPending
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return Submission{}, fmt.Errorf("create submission: %w", err)
	}
	s.log.Debug().Str("submission", sub.ID.String()).Str("player", sub.PlayerID.String()).Msg("submission created")
	return sub, nil
}

func (s *Store) UpdateSubmission(ctx context.Context, submissionID uuid.UUID, patch SubmissionPatch) error {
	fields := map[string]any{}
	if patch.SunoTaskID != nil {
		fields["suno_task_id"] = *patch.SunoTaskID
	}
	if patch.SongStatus != nil {
		fields["song_status"] = *patch.SongStatus
	}
	if patch.SongURL != nil {
		fields["song_url"] = *patch.SongURL
	}
	if patch.SongError != nil {
		fields["song_error"] = *patch.SongError
	}
	if patch.TimedLyrics != nil {
		fields["timed_lyrics"] = *patch.TimedLyrics
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&Submission{}).Where("id = ?", submissionID).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

func (s *Store) SetSubmissionWinner(ctx context.Context, submissionID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&Submission{}).Where("id = ?", submissionID).
		Update("is_winner", true).Error; err != nil {
		return fmt.Errorf("mark winner submission: %w", err)
	}
	return nil
}

func (s *Store) SetProducerRating(ctx context.Context, submissionID uuid.UUID, rating int) error {
	if err := s.db.WithContext(ctx).Model(&Submission{}).Where("id = ?", submissionID).
		Update("producer_rating", rating).Error; err != nil {
		return fmt.Errorf("rate submission: %w", err)
	}
	return nil
}
