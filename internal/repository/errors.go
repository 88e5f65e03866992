// Package repository provides PostgreSQL data access implementations.
package repository

import "errors"

// Common errors for repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrStatsNotFound     = errors.New("stats not found")
	ErrChallengeNotFound = errors.New("challenge not found")
)
