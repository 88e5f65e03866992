package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"compost-tracker/internal/model"
)

// ChallengeService handles community challenges.
type ChallengeService struct {
	challenges ChallengeStore
	now        func() time.Time
}

// NewChallengeService creates a new ChallengeService instance.
func NewChallengeService(challenges ChallengeStore) *ChallengeService {
	return &ChallengeService{challenges: challenges, now: time.Now}
}

// ListActive returns the open challenges with their participants.
func (s *ChallengeService) ListActive(ctx context.Context) ([]*model.Challenge, error) {
	return s.challenges.ListActive(ctx, s.now().UTC())
}

// Join adds userID to a challenge. Joining twice is a no-op and reports
// joined=false.
func (s *ChallengeService) Join(ctx context.Context, challengeID, userID string) (joined bool, err error) {
	c, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	if !c.IsOpen(now) {
		return false, ErrChallengeClosed
	}

	joined, err = s.challenges.AddParticipant(ctx, challengeID, userID, now)
	if err != nil {
		return false, fmt.Errorf("failed to join challenge: %w", err)
	}

	if joined {
		log.Info().Str("user_id", userID).Str("challenge_id", challengeID).Msg("Challenge joined")
	}
	return joined, nil
}
