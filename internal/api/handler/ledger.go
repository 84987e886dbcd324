// internal/api/handler/ledger.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"krako-ledger/internal/api/types"
	"krako-ledger/internal/domain"
	"krako-ledger/internal/service"
	"krako-ledger/internal/util"
)

// DefaultTimeout bounds requests when no request timeout is configured.
const DefaultTimeout = 15 * time.Second

// LedgerHandler handles HTTP requests for the authenticated user's profile and claims.
type LedgerHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  logger,
	}
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrProfileNotFound):
		statusCode = http.StatusNotFound
		message = "Profile not found"
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "Unauthorized"
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(w, logger, statusCode, map[string]string{"error": message})
}

// ClaimStatusCode maps a claim outcome onto an HTTP status.
func ClaimStatusCode(outcome domain.ClaimOutcome) int {
	if outcome.Success {
		return http.StatusOK
	}
	switch outcome.Reason {
	case domain.RejectionDailyLimitReached:
		return http.StatusTooManyRequests
	case domain.RejectionProfileNotFound:
		return http.StatusNotFound
	case domain.RejectionStorageError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetProfile returns the caller's profile, creating it on first access.
// GET /me/profile
func (h *LedgerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r, h.logger)
	if !ok {
		return
	}

	profile, err := h.service.GetOrCreateProfile(r.Context(), identity.UserID, domain.ProfileSeed{
		Email:    identity.Email,
		Username: identity.Name,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, profile)
}

// GetClaimStatus returns today's claim progress.
// GET /me/claim
func (h *LedgerHandler) GetClaimStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r, h.logger)
	if !ok {
		return
	}

	status, err := h.service.ClaimStatus(r.Context(), identity.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, status)
}

// Claim attempts one daily claim.
// POST /me/claim
func (h *LedgerHandler) Claim(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r, h.logger)
	if !ok {
		return
	}

	outcome := h.service.AttemptClaim(r.Context(), identity.UserID)
	respondWithJSON(w, h.logger, ClaimStatusCode(outcome), outcome)
}

// GetTransactionHistory returns the caller's ledger, newest first.
// GET /me/transactions
func (h *LedgerHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r, h.logger)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = service.DefaultHistoryLimit
	}
	if limit > service.MaxHistoryLimit {
		limit = service.MaxHistoryLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	transactions, totalCount, err := h.service.GetTransactionHistory(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}
