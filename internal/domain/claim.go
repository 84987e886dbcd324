// internal/domain/claim.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Default daily claim policy.
const DefaultMaxDailyClaims = 20

// DefaultClaimAmount is credited per accepted claim.
var DefaultClaimAmount = decimal.RequireFromString("0.05")

// AmountScale is the number of decimal places balances and ledger amounts are stored with.
const AmountScale = 4

// ValidAmount reports whether d is positive and representable at AmountScale without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(AmountScale))
}

// ClaimPolicy governs how many claims a user may make per day and what each is worth.
type ClaimPolicy struct {
	MaxDailyClaims int
	ClaimAmount    decimal.Decimal
	// Location defines where a calendar day begins and ends.
	Location *time.Location
}

// DefaultClaimPolicy returns 20 claims of 0.05 per UTC day.
func DefaultClaimPolicy() ClaimPolicy {
	return ClaimPolicy{
		MaxDailyClaims: DefaultMaxDailyClaims,
		ClaimAmount:    DefaultClaimAmount,
		Location:       time.UTC,
	}
}

// Today returns the civil date of now under the policy's zone.
func (p ClaimPolicy) Today(now time.Time) time.Time {
	return DateOf(now, p.Location)
}

// DailyCap is the most a user can earn from claims in one day.
func (p ClaimPolicy) DailyCap() decimal.Decimal {
	return p.ClaimAmount.Mul(decimal.NewFromInt(int64(p.MaxDailyClaims)))
}

// AmountFor returns what one claim credits to profile. Profiles without a positive
// stored amount get the policy amount.
func (p ClaimPolicy) AmountFor(profile *Profile) decimal.Decimal {
	if profile.DailyClaimAmount.IsPositive() {
		return profile.DailyClaimAmount
	}
	return p.ClaimAmount
}

// ClaimDescription annotates the ledger entry for the n-th claim of a day.
func (p ClaimPolicy) ClaimDescription(n int, amount decimal.Decimal) string {
	return fmt.Sprintf("Daily Claim %d/%d (+%s KRAKO)", n, p.MaxDailyClaims, amount.StringFixed(2))
}

// ClaimRejection says why a claim was not granted.
type ClaimRejection string

const (
	RejectionNone              ClaimRejection = ""
	RejectionDailyLimitReached ClaimRejection = "daily_limit_reached"
	RejectionProfileNotFound   ClaimRejection = "profile_not_found"
	RejectionStorageError      ClaimRejection = "storage_error"
	RejectionUnexpected        ClaimRejection = "unexpected_error"
)

// Message is the user-facing text for the rejection.
func (r ClaimRejection) Message() string {
	switch r {
	case RejectionDailyLimitReached:
		return "Daily limit reached. Come back tomorrow!"
	case RejectionProfileNotFound:
		return "Profile not found"
	case RejectionStorageError:
		return "Failed to update profile"
	case RejectionUnexpected:
		return "An unexpected error occurred"
	default:
		return ""
	}
}

// ClaimOutcome is the result of one claim attempt.
type ClaimOutcome struct {
	Success         bool
	Amount          decimal.Decimal
	RemainingClaims int
	Reason          ClaimRejection
	// TransactionID is empty when the ledger entry could not be written.
	TransactionID string
}

// Accepted builds a successful outcome.
func Accepted(amount decimal.Decimal, remaining int, transactionID string) ClaimOutcome {
	return ClaimOutcome{Success: true, Amount: amount, RemainingClaims: remaining, TransactionID: transactionID}
}

// Rejected builds a failed outcome.
func Rejected(reason ClaimRejection) ClaimOutcome {
	return ClaimOutcome{Reason: reason}
}

// Message returns the user-facing rejection message, empty on success.
func (o ClaimOutcome) Message() string {
	if o.Success {
		return ""
	}
	return o.Reason.Message()
}

type claimOutcomeJSON struct {
	Success         bool         `json:"success"`
	Amount          *json.Number `json:"amount,omitempty"`
	RemainingClaims *int         `json:"remainingClaims,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// MarshalJSON renders the presentation contract:
// {"success":true,"amount":0.05,"remainingClaims":19} or {"success":false,"error":"..."}.
func (o ClaimOutcome) MarshalJSON() ([]byte, error) {
	out := claimOutcomeJSON{Success: o.Success}
	if o.Success {
		amount := json.Number(o.Amount.String())
		remaining := o.RemainingClaims
		out.Amount = &amount
		out.RemainingClaims = &remaining
	} else {
		out.Error = o.Message()
	}
	return json.Marshal(out)
}

// ClaimStatus is a read-only view of where a user stands today.
type ClaimStatus struct {
	Balance         decimal.Decimal `json:"balance"`
	ClaimsToday     int             `json:"claims_today"`
	RemainingClaims int             `json:"remaining_claims"`
	MaxDailyClaims  int             `json:"max_daily_claims"`
	EarnedToday     decimal.Decimal `json:"earned_today"`
	DailyCap        decimal.Decimal `json:"daily_cap"`
	TotalClaims     int64           `json:"total_claims"`
	Today           string          `json:"today"`
}

// StatusOf computes the claim status of p on the civil date today.
func (p ClaimPolicy) StatusOf(profile *Profile, today time.Time) ClaimStatus {
	count := profile.ClaimsOn(today)
	if count > p.MaxDailyClaims {
		count = p.MaxDailyClaims
	}
	return ClaimStatus{
		Balance:         profile.Balance,
		ClaimsToday:     count,
		RemainingClaims: p.MaxDailyClaims - count,
		MaxDailyClaims:  p.MaxDailyClaims,
		EarnedToday:     p.AmountFor(profile).Mul(decimal.NewFromInt(int64(count))),
		DailyCap:        p.DailyCap(),
		TotalClaims:     profile.TotalClaims,
		Today:           today.Format(DateLayout),
	}
}
