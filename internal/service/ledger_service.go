// internal/service/ledger_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"krako-ledger/internal/domain"
	"krako-ledger/internal/repository"
	"krako-ledger/internal/util"
	"krako-ledger/pkg/db"
)

// History page bounds.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// LedgerService defines the claim and balance business logic.
type LedgerService interface {
	// AttemptClaim credits one daily claim if the user is under today's cap.
	// It never returns an error: every failure is folded into the outcome.
	AttemptClaim(ctx context.Context, userID string) domain.ClaimOutcome
	ClaimStatus(ctx context.Context, userID string) (*domain.ClaimStatus, error)
	GetOrCreateProfile(ctx context.Context, userID string, seed domain.ProfileSeed) (*domain.Profile, error)
	CreditBalance(ctx context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (*domain.Profile, *domain.Transaction, error)
	GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error)
}

// Settings tunes a LedgerService. Zero values fall back to defaults.
type Settings struct {
	Policy domain.ClaimPolicy
	Clock  util.Clock
	// WriteTimeout bounds the persistence steps, which are detached from caller cancellation.
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// ledgerService implements the LedgerService interface. It keeps no per-user state.
type ledgerService struct {
	dbBeginner      db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor      repository.DBExecutor // For reads and best-effort writes outside a transaction
	profileRepo     repository.ProfileRepository
	transactionRepo repository.TransactionRepository
	beginTx         db.BeginTxFunc
	commitTx        db.CommitTxFunc
	rollbackTx      db.RollbackTxFunc

	policy       domain.ClaimPolicy
	clock        util.Clock
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	profileRepo repository.ProfileRepository,
	transactionRepo repository.TransactionRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	settings Settings,
) LedgerService {
	policy := settings.Policy
	defaults := domain.DefaultClaimPolicy()
	if policy.MaxDailyClaims <= 0 {
		policy.MaxDailyClaims = defaults.MaxDailyClaims
	}
	if !policy.ClaimAmount.IsPositive() {
		policy.ClaimAmount = defaults.ClaimAmount
	}
	if policy.Location == nil {
		policy.Location = defaults.Location
	}
	clock := settings.Clock
	if clock == nil {
		clock = util.SystemClock{}
	}
	writeTimeout := settings.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	logger := settings.Logger
	if logger == nil {
		logger = util.GetLogger()
	}

	return &ledgerService{
		dbBeginner:      dbBeginner,
		dbExecutor:      dbExecutor,
		profileRepo:     profileRepo,
		transactionRepo: transactionRepo,
		beginTx:         beginTx,
		commitTx:        commitTx,
		rollbackTx:      rollbackTx,
		policy:          policy,
		clock:           clock,
		writeTimeout:    writeTimeout,
		logger:          logger,
	}
}

// AttemptClaim runs the daily claim: lock the profile row, apply rollover and the
// cap, write the new counters, commit, then append the ledger entry best-effort.
func (s *ledgerService) AttemptClaim(ctx context.Context, userID string) (outcome domain.ClaimOutcome) {
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic during claim", "user_id", userID, "panic", r)
			outcome = domain.Rejected(domain.RejectionUnexpected)
		}
		claimAttemptsTotal.WithLabelValues(outcomeLabel(outcome)).Inc()
		claimDuration.Observe(time.Since(began).Seconds())
	}()

	if strings.TrimSpace(userID) == "" {
		return domain.Rejected(domain.RejectionProfileNotFound)
	}

	// Once a write is issued it must finish or fail on its own, not because the caller left.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	now := s.clock.Now()
	today := s.policy.Today(now)

	if _, err := s.ensureProfile(ctx, userID, domain.ProfileSeed{}, now); err != nil {
		s.logger.Error("Failed to resolve profile for claim", "user_id", userID, "error", err)
		return domain.Rejected(domain.RejectionProfileNotFound)
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		s.logger.Error("Failed to begin claim transaction", "user_id", userID, "error", err)
		return domain.Rejected(domain.RejectionStorageError)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		s.logger.Error("Transaction controller does not implement DBExecutor", "user_id", userID)
		return domain.Rejected(domain.RejectionUnexpected)
	}

	profile, err := s.profileRepo.GetProfileForUpdate(ctx, txExecutor, userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return domain.Rejected(domain.RejectionProfileNotFound)
		}
		s.logger.Error("Failed to lock profile for claim", "user_id", userID, "error", err)
		return domain.Rejected(domain.RejectionStorageError)
	}

	prior := profile.ClaimsOn(today)
	if prior >= s.policy.MaxDailyClaims {
		return domain.Rejected(domain.RejectionDailyLimitReached)
	}

	amount := s.policy.AmountFor(profile)
	newCount := prior + 1
	newBalance := profile.Balance.Add(amount)
	newTotalClaims := profile.TotalClaims + 1
	remaining := s.policy.MaxDailyClaims - newCount

	patch := domain.ProfilePatch{
		Balance:          &newBalance,
		DailyClaimsCount: &newCount,
		LastClaimDate:    &today,
		LastClaimAt:      &now,
		TotalClaims:      &newTotalClaims,
		UpdatedAt:        now,
	}
	if err := s.profileRepo.UpdateProfile(ctx, txExecutor, userID, profile.Version, patch); err != nil {
		s.logger.Error("Failed to update profile for claim", "user_id", userID, "error", err)
		return domain.Rejected(domain.RejectionStorageError)
	}

	if err := s.commitTx(txController); err != nil {
		s.logger.Error("Failed to commit claim", "user_id", userID, "error", err)
		return domain.Rejected(domain.RejectionStorageError)
	}
	recordCredit(domain.TransactionTypeClaim, amount)

	// The balance is already committed; a missing ledger entry is tolerated.
	transaction := domain.NewTransaction(userID, domain.TransactionTypeClaim, amount, s.policy.ClaimDescription(newCount, amount), now)
	if err := s.transactionRepo.CreateTransaction(ctx, s.dbExecutor, transaction); err != nil {
		ledgerAppendFailuresTotal.Inc()
		s.logger.Error("Failed to record claim transaction", "user_id", userID, "claim", newCount, "error", err)
		return domain.Accepted(amount, remaining, "")
	}

	s.logger.Info("Claim accepted", "user_id", userID, "claim", newCount, "remaining", remaining, "balance", newBalance.String())
	return domain.Accepted(amount, remaining, transaction.ID)
}

// ClaimStatus reports today's progress without mutating anything beyond lazy profile creation.
func (s *ledgerService) ClaimStatus(ctx context.Context, userID string) (*domain.ClaimStatus, error) {
	now := s.clock.Now()
	profile, err := s.ensureProfile(ctx, userID, domain.ProfileSeed{}, now)
	if err != nil {
		return nil, fmt.Errorf("claim status: %w", err)
	}
	status := s.policy.StatusOf(profile, s.policy.Today(now))
	return &status, nil
}

// GetOrCreateProfile returns the user's profile, creating it with defaults on first access.
func (s *ledgerService) GetOrCreateProfile(ctx context.Context, userID string, seed domain.ProfileSeed) (*domain.Profile, error) {
	profile, err := s.ensureProfile(ctx, userID, seed, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	return profile, nil
}

// ensureProfile reads the profile or inserts a fresh one. A duplicate-key error means a
// concurrent request created it first, so the row is read again.
func (s *ledgerService) ensureProfile(ctx context.Context, userID string, seed domain.ProfileSeed, now time.Time) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, util.ErrInvalidInput
	}

	profile, err := s.profileRepo.GetProfile(ctx, s.dbExecutor, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("failed to read profile %s: %w", userID, err)
	}

	profile = domain.NewProfile(userID, seed, s.policy.ClaimAmount, s.policy.Today(now), now)
	err = s.profileRepo.CreateProfile(ctx, s.dbExecutor, profile)
	if err == nil {
		s.logger.Info("Profile created", "user_id", userID)
		return profile, nil
	}
	if !errors.Is(err, util.ErrDuplicateEntry) {
		return nil, fmt.Errorf("failed to create profile %s: %w", userID, err)
	}

	profile, err = s.profileRepo.GetProfile(ctx, s.dbExecutor, userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to re-read profile %s: %w", userID, err)
	}
	return profile, nil
}

// CreditBalance adds a non-claim credit (task reward, referral bonus). Unlike claims,
// the balance update and its ledger entry commit together.
func (s *ledgerService) CreditBalance(ctx context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (*domain.Profile, *domain.Transaction, error) {
	if !domain.ValidAmount(amount) {
		return nil, nil, fmt.Errorf("%w: amount must be positive with at most %d decimal places", util.ErrInvalidInput, domain.AmountScale)
	}
	if !txType.Valid() || txType == domain.TransactionTypeClaim {
		return nil, nil, util.ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	now := s.clock.Now()
	if _, err := s.ensureProfile(ctx, userID, domain.ProfileSeed{}, now); err != nil {
		return nil, nil, fmt.Errorf("credit balance: %w", err)
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("credit balance: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("credit balance: transaction controller does not implement DBExecutor")
	}

	profile, err := s.profileRepo.GetProfileForUpdate(ctx, txExecutor, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("credit balance: failed to lock profile %s: %w", userID, err)
	}

	newBalance := profile.Balance.Add(amount)
	patch := domain.ProfilePatch{Balance: &newBalance, UpdatedAt: now}
	if err := s.profileRepo.UpdateProfile(ctx, txExecutor, userID, profile.Version, patch); err != nil {
		return nil, nil, fmt.Errorf("credit balance: failed to update profile: %w", err)
	}

	transaction := domain.NewTransaction(userID, txType, amount, description, now)
	if err := s.transactionRepo.CreateTransaction(ctx, txExecutor, transaction); err != nil {
		return nil, nil, fmt.Errorf("credit balance: failed to create transaction: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("credit balance: failed to commit transaction: %w", err)
	}
	recordCredit(txType, amount)

	patch.Apply(profile)
	return profile, transaction, nil
}

// GetTransactionHistory retrieves a page of the user's ledger, newest first.
func (s *ledgerService) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.ensureProfile(ctx, userID, domain.ProfileSeed{}, s.clock.Now()); err != nil {
		return nil, 0, fmt.Errorf("transaction history: %w", err)
	}

	transactions, totalCount, err := s.transactionRepo.GetTransactionsByUserID(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, totalCount, nil
}
