// internal/api/handler/auth.go
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"krako-ledger/internal/security"
	"krako-ledger/internal/util"
)

type identityKey struct{}

// WithIdentity stores the authenticated caller on the context.
func WithIdentity(ctx context.Context, identity *security.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (*security.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*security.Identity)
	return identity, ok && identity != nil
}

// RequireIdentity verifies the identity provider's bearer token and rejects
// requests without a valid one.
func RequireIdentity(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeError(w, logger, http.StatusUnauthorized, "Unauthorized")
				return
			}

			identity, err := security.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				logger.Debug("Rejected bearer token", "error", err, "path", r.URL.Path)
				writeError(w, logger, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, code int, message string) {
	respondWithJSON(w, logger, code, map[string]string{"error": message})
}

// identityOrError fetches the caller or answers 401.
func identityOrError(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*security.Identity, bool) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		respondWithError(w, logger, util.ErrUnauthorized)
		return nil, false
	}
	return identity, true
}
