package service

import "errors"

// Common errors for service operations.
var (
	ErrInvalidEntry    = errors.New("invalid entry")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrChallengeClosed = errors.New("challenge is closed")
	ErrMissingUserID   = errors.New("missing user id")
)
