// internal/repository/profile_repo.go
package repository

import (
	"context"

	"krako-ledger/internal/domain"
)

// ProfileRepository defines durable access to profiles keyed by user id.
type ProfileRepository interface {
	// GetProfile returns the stored profile or util.ErrNotFound.
	GetProfile(ctx context.Context, q DBExecutor, userID string) (*domain.Profile, error)
	// GetProfileForUpdate reads the profile and locks its row until the surrounding transaction ends.
	GetProfileForUpdate(ctx context.Context, q DBExecutor, userID string) (*domain.Profile, error)
	// CreateProfile inserts a new profile; util.ErrDuplicateEntry if one already exists.
	CreateProfile(ctx context.Context, q DBExecutor, profile *domain.Profile) error
	// UpdateProfile applies patch if the stored version still equals expectedVersion,
	// otherwise it returns util.ErrConcurrentUpdate.
	UpdateProfile(ctx context.Context, q DBExecutor, userID string, expectedVersion int64, patch domain.ProfilePatch) error
}
