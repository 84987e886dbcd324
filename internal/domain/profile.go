// internal/domain/profile.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise point arithmetic
)

// Defaults applied when a profile is created lazily.
const (
	DefaultUsername = "Miner"
	DefaultHashrate = 3
)

// Profile is one user's mining state.
type Profile struct {
	ID               string          `db:"id" json:"id"`                                 // Opaque user id from the identity provider
	Email            *string         `db:"email" json:"email"`                           // Optional, copied from the identity token
	Username         string          `db:"username" json:"username"`                     // Display name
	Balance          decimal.Decimal `db:"balance" json:"balance"`                       // Points, NUMERIC(20, 4) in DB
	Hashrate         int             `db:"hashrate" json:"hashrate"`                     // Cosmetic mining rate
	DailyClaimAmount decimal.Decimal `db:"daily_claim_amount" json:"daily_claim_amount"` // Credited per accepted claim
	DailyClaimsCount int             `db:"daily_claims_count" json:"daily_claims_count"` // Accepted claims on LastClaimDate
	LastClaimDate    time.Time       `db:"last_claim_date" json:"last_claim_date"`       // DATE in DB
	LastClaimAt      *time.Time      `db:"last_claim_at" json:"last_claim_at"`           // Instant of the last accepted claim
	TotalClaims      int64           `db:"total_claims" json:"total_claims"`             // Lifetime accepted claims
	TotalInvites     int             `db:"total_invites" json:"total_invites"`
	Version          int64           `db:"version" json:"-"` // Bumped on every update, used for compare-and-swap
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// ProfileSeed carries identity details used when a profile is first created.
type ProfileSeed struct {
	Email    string
	Username string
}

// NewProfile creates a Profile with zero balance and counters.
// today must already be a civil date (see DateOf).
func NewProfile(userID string, seed ProfileSeed, claimAmount decimal.Decimal, today time.Time, now time.Time) *Profile {
	username := seed.Username
	if username == "" {
		username = DefaultUsername
	}
	var email *string
	if seed.Email != "" {
		e := seed.Email
		email = &e
	}
	now = now.UTC()
	return &Profile{
		ID:               userID,
		Email:            email,
		Username:         username,
		Balance:          decimal.Zero,
		Hashrate:         DefaultHashrate,
		DailyClaimAmount: claimAmount,
		DailyClaimsCount: 0,
		LastClaimDate:    today,
		TotalClaims:      0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ClaimsOn returns the number of claims counted against the given civil date.
// The stored counter only applies to LastClaimDate; any other day starts at zero.
func (p *Profile) ClaimsOn(today time.Time) int {
	if !SameDate(p.LastClaimDate, today) {
		return 0
	}
	if p.DailyClaimsCount < 0 {
		return 0
	}
	return p.DailyClaimsCount
}

// ProfilePatch is a partial update. Nil fields are left untouched.
type ProfilePatch struct {
	Balance          *decimal.Decimal
	DailyClaimsCount *int
	LastClaimDate    *time.Time
	LastClaimAt      *time.Time
	TotalClaims      *int64
	UpdatedAt        time.Time
}

// Apply copies the set fields of the patch onto p.
func (pp ProfilePatch) Apply(p *Profile) {
	if pp.Balance != nil {
		p.Balance = *pp.Balance
	}
	if pp.DailyClaimsCount != nil {
		p.DailyClaimsCount = *pp.DailyClaimsCount
	}
	if pp.LastClaimDate != nil {
		p.LastClaimDate = *pp.LastClaimDate
	}
	if pp.LastClaimAt != nil {
		t := *pp.LastClaimAt
		p.LastClaimAt = &t
	}
	if pp.TotalClaims != nil {
		p.TotalClaims = *pp.TotalClaims
	}
	p.UpdatedAt = pp.UpdatedAt
	p.Version++
}
