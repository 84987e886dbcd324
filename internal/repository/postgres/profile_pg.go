// internal/repository/postgres/profile_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"krako-ledger/internal/domain"
	"krako-ledger/internal/repository"
	"krako-ledger/internal/util"
)

const profileColumns = `id, email, username, balance, hashrate, daily_claim_amount, daily_claims_count,
	last_claim_date, last_claim_at, total_claims, total_invites, version, created_at, updated_at`

// ProfileRepository implements repository.ProfileRepository for PostgreSQL.
type ProfileRepository struct{}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &ProfileRepository{}
}

// GetProfile retrieves a profile by user id.
func (r *ProfileRepository) GetProfile(ctx context.Context, q repository.DBExecutor, userID string) (*domain.Profile, error) {
	return r.get(ctx, q, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
}

// GetProfileForUpdate retrieves a profile and holds a row lock for the rest of the transaction.
func (r *ProfileRepository) GetProfileForUpdate(ctx context.Context, q repository.DBExecutor, userID string) (*domain.Profile, error) {
	return r.get(ctx, q, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, userID)
}

func (r *ProfileRepository) get(ctx context.Context, q repository.DBExecutor, query, userID string) (*domain.Profile, error) {
	var profile domain.Profile
	err := q.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	return &profile, nil
}

// CreateProfile inserts a new profile.
func (r *ProfileRepository) CreateProfile(ctx context.Context, q repository.DBExecutor, profile *domain.Profile) error {
	query := `INSERT INTO profiles (id, email, username, balance, hashrate, daily_claim_amount, daily_claims_count,
                  last_claim_date, last_claim_at, total_claims, total_invites, version, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := q.ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.Username,
		profile.Balance,
		profile.Hashrate,
		profile.DailyClaimAmount,
		profile.DailyClaimsCount,
		profile.LastClaimDate.Format(domain.DateLayout),
		profile.LastClaimAt,
		profile.TotalClaims,
		profile.TotalInvites,
		profile.Version,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create profile %s: %w", profile.ID, err)
	}
	return nil
}

// UpdateProfile applies a partial update guarded by the profile version.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, q repository.DBExecutor, userID string, expectedVersion int64, patch domain.ProfilePatch) error {
	query, args := buildProfileUpdate(userID, expectedVersion, patch)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating profile %s: %w", userID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update profile %s at version %d: %w", userID, expectedVersion, util.ErrConcurrentUpdate)
	}
	return nil
}

// buildProfileUpdate renders the SET clause for the fields present in patch.
func buildProfileUpdate(userID string, expectedVersion int64, patch domain.ProfilePatch) (string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Balance != nil {
		add("balance", *patch.Balance)
	}
	if patch.DailyClaimsCount != nil {
		add("daily_claims_count", *patch.DailyClaimsCount)
	}
	if patch.LastClaimDate != nil {
		add("last_claim_date", patch.LastClaimDate.Format(domain.DateLayout))
	}
	if patch.LastClaimAt != nil {
		add("last_claim_at", patch.LastClaimAt.UTC())
	}
	if patch.TotalClaims != nil {
		add("total_claims", *patch.TotalClaims)
	}
	add("updated_at", patch.UpdatedAt.UTC())
	sets = append(sets, "version = version + 1")

	args = append(args, userID, expectedVersion)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d AND version = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	return query, args
}
