// internal/api/api_integration_test.go
package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "krako-ledger/internal"
	"krako-ledger/internal/domain"
	"krako-ledger/internal/security"
)

// testApp is the global application instance for testing. It stays nil unless
// LEDGER_INTEGRATION=1, in which case the tests below run against PostgreSQL
// with migrations/0001_init.up.sql applied.
var testApp *app.Application

// testServer is the httptest server.
var testServer *httptest.Server

const integrationSecret = "integration-secret-0123456789"

// TestMain is the special entry point for Go tests, executed once before all tests.
func TestMain(m *testing.M) {
	if os.Getenv("LEDGER_INTEGRATION") != "1" {
		os.Exit(m.Run())
	}

	// 1. Set up environment variables (ensure DB_NAME points to the test database).
	setupEnvVars()

	// 2. Initialize the application.
	testApp = app.NewApplication()
	if err := testApp.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize test application: %v\n", err)
		os.Exit(1)
	}

	// 3. Start an httptest server to test the HTTP handling layer.
	testServer = httptest.NewServer(testApp.HTTPHandler)

	// 4. Run all tests.
	code := m.Run()
	testServer.Close()

	// 5. Shut down application resources after tests.
	if err := testApp.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown test application: %v\n", err)
		os.Exit(1)
	}

	os.Exit(code)
}

// setupEnvVars fills in database defaults for a local test database.
func setupEnvVars() {
	defaults := map[string]string{
		"DB_HOST":         "localhost",
		"DB_PORT":         "5432",
		"DB_USER":         "user",
		"DB_PASSWORD":     "password",
		"DB_NAME":         "krakodb_test",
		"DB_SSLMODE":      "disable",
		"CLAIM_MAX_DAILY": "20",
		"CLAIM_AMOUNT":    "0.05",
		"AUTH_JWT_SECRET": integrationSecret,
	}
	for key, value := range defaults {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if testApp == nil {
		t.Skip("set LEDGER_INTEGRATION=1 to run against PostgreSQL")
	}
}

// clearDatabase truncates the ledger tables so each test starts clean.
func clearDatabase(t *testing.T) {
	_, err := testApp.DB.Exec("TRUNCATE TABLE transactions, profiles RESTART IDENTITY CASCADE;")
	require.NoError(t, err, "Failed to truncate ledger tables")
}

// makeRequest sends an authenticated request as userID to the test server.
func makeRequest(t *testing.T, method, path, userID string) (*http.Response, string) {
	req, err := http.NewRequest(method, testServer.URL+path, nil)
	require.NoError(t, err)

	token, err := security.GenerateToken(os.Getenv("AUTH_JWT_SECRET"), userID, userID+"@krako.app", "", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func loadProfile(t *testing.T, userID string) *domain.Profile {
	profile, err := testApp.ProfileRepository.GetProfile(context.Background(), testApp.DB, userID)
	require.NoError(t, err)
	return profile
}

// TestClaimIntegration exercises a fresh user's first claim end to end.
func TestClaimIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	// The first authenticated read creates the profile from the token.
	resp, _ := makeRequest(t, http.MethodGet, "/me/profile", "user-fresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := makeRequest(t, http.MethodPost, "/me/claim", "user-fresh")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"amount":0.05,"remainingClaims":19}`, body)

	profile := loadProfile(t, "user-fresh")
	assert.True(t, profile.Balance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 1, profile.DailyClaimsCount)
	assert.Equal(t, int64(1), profile.TotalClaims)
	assert.Equal(t, "Miner", profile.Username)
	require.NotNil(t, profile.Email)
	assert.Equal(t, "user-fresh@krako.app", *profile.Email)

	entries, total, err := testApp.TransactionRepository.GetTransactionsByUserID(context.Background(), testApp.DB, "user-fresh", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TransactionTypeClaim, entries[0].Type)
	assert.Equal(t, "Daily Claim 1/20 (+0.05 KRAKO)", entries[0].Description)
}

// TestDailyLimitIntegration claims past the cap and checks nothing moves once it is hit.
func TestDailyLimitIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	for i := 1; i <= 20; i++ {
		resp, body := makeRequest(t, http.MethodPost, "/me/claim", "user-cap")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}

	for i := 0; i < 3; i++ {
		resp, body := makeRequest(t, http.MethodPost, "/me/claim", "user-cap")
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.JSONEq(t, `{"success":false,"error":"Daily limit reached. Come back tomorrow!"}`, body)
	}

	profile := loadProfile(t, "user-cap")
	assert.True(t, profile.Balance.Equal(decimal.RequireFromString("1")), "balance %s", profile.Balance)
	assert.Equal(t, 20, profile.DailyClaimsCount)

	resp, body := makeRequest(t, http.MethodGet, "/me/claim", "user-cap")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status domain.ClaimStatus
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, 0, status.RemainingClaims)
	assert.True(t, status.EarnedToday.Equal(status.DailyCap))
}

// TestConcurrentClaimsIntegration fires more claims than the cap at once.
func TestConcurrentClaimsIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	// Create the profile first so every request contends on the same row.
	resp, _ := makeRequest(t, http.MethodGet, "/me/profile", "user-race")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	const attempts = 35
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		limited  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := makeRequest(t, http.MethodPost, "/me/claim", "user-race")
			mu.Lock()
			defer mu.Unlock()
			switch resp.StatusCode {
			case http.StatusOK:
				accepted++
			case http.StatusTooManyRequests:
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, accepted)
	assert.Equal(t, attempts-20, limited)

	profile := loadProfile(t, "user-race")
	assert.True(t, profile.Balance.Equal(decimal.RequireFromString("1")), "balance %s", profile.Balance)
	assert.Equal(t, 20, profile.DailyClaimsCount)
	assert.Equal(t, int64(20), profile.TotalClaims)
}

// TestTransactionHistoryIntegration pages through the ledger newest first.
func TestTransactionHistoryIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	for i := 0; i < 3; i++ {
		resp, _ := makeRequest(t, http.MethodPost, "/me/claim", "user-history")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	_, _, err := testApp.LedgerService.CreditBalance(context.Background(), "user-history", decimal.RequireFromString("2"), domain.TransactionTypeTask, "Task reward")
	require.NoError(t, err)

	resp, body := makeRequest(t, http.MethodGet, "/me/transactions?limit=2", "user-history")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data       []domain.Transaction `json:"data"`
		TotalCount int64                `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Equal(t, int64(4), page.TotalCount)
	require.Len(t, page.Data, 2)
	assert.Equal(t, domain.TransactionTypeTask, page.Data[0].Type)
	assert.Equal(t, "Daily Claim 3/20 (+0.05 KRAKO)", page.Data[1].Description)

	profile := loadProfile(t, "user-history")
	assert.True(t, profile.Balance.Equal(decimal.RequireFromString("2.15")), "balance %s", profile.Balance)
}
