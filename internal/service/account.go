package service

import (
	"context"
	"fmt"

	"compost-tracker/internal/model"
)

// AccountService keeps display profiles in sync with token claims.
type AccountService struct {
	users UserStore
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users}
}

// EnsureUser creates the profile on first sight and refreshes its display
// fields afterwards. Empty claims keep what is stored.
func (s *AccountService) EnsureUser(ctx context.Context, id, username, avatarURL string) (*model.User, error) {
	if id == "" {
		return nil, ErrMissingUserID
	}

	user, err := s.users.Upsert(ctx, id, username, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a profile by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}
