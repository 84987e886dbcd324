// internal/service/fake_store_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"krako-ledger/internal/domain"
	"krako-ledger/internal/repository"
	"krako-ledger/internal/util"
	"krako-ledger/pkg/db"
)

// fakeClock is a settable util.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// noopExecutor satisfies repository.DBExecutor; the fake store only uses it as a marker.
type noopExecutor struct{}

var errNoSQL = errors.New("fake store does not run SQL")

func (noopExecutor) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (noopExecutor) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (noopExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (noopExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

// fakeStore is an in-memory profiles/transactions store with row locks,
// version checks and transactional staging, mirroring the PostgreSQL repositories.
type fakeStore struct {
	mu           sync.Mutex
	profiles     map[string]domain.Profile
	transactions []domain.Transaction
	rowLocks     map[string]*sync.Mutex

	updateCalls  int
	failUpdateAt int // 1-based UpdateProfile call that fails; 0 disables
	failAppend   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]domain.Profile),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

func (s *fakeStore) rowLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[userID] = l
	}
	return l
}

func (s *fakeStore) snapshot(userID string) (domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

func (s *fakeStore) ledger(userID string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// fakeTx stages writes until Commit.
type fakeTx struct {
	noopExecutor
	store    *fakeStore
	staged   map[string]domain.Profile
	appended []domain.Transaction
	held     []*sync.Mutex
	done     bool
}

func (s *fakeStore) begin() *fakeTx {
	return &fakeTx{store: s, staged: make(map[string]domain.Profile)}
}

func (t *fakeTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
	t.done = true
}

func (t *fakeTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.store.mu.Lock()
	for id, p := range t.staged {
		t.store.profiles[id] = p
	}
	t.store.transactions = append(t.store.transactions, t.appended...)
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.release()
	return nil
}

func (s *fakeStore) read(q repository.DBExecutor, userID string) (domain.Profile, bool) {
	if tx, ok := q.(*fakeTx); ok {
		if p, staged := tx.staged[userID]; staged {
			return p, true
		}
	}
	return s.snapshot(userID)
}

func (s *fakeStore) GetProfile(ctx context.Context, q repository.DBExecutor, userID string) (*domain.Profile, error) {
	p, ok := s.read(q, userID)
	if !ok {
		return nil, util.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) GetProfileForUpdate(ctx context.Context, q repository.DBExecutor, userID string) (*domain.Profile, error) {
	if tx, ok := q.(*fakeTx); ok {
		l := s.rowLock(userID)
		l.Lock()
		tx.held = append(tx.held, l)
	}
	return s.GetProfile(ctx, q, userID)
}

func (s *fakeStore) CreateProfile(ctx context.Context, q repository.DBExecutor, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.ID]; exists {
		return util.ErrDuplicateEntry
	}
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *fakeStore) UpdateProfile(ctx context.Context, q repository.DBExecutor, userID string, expectedVersion int64, patch domain.ProfilePatch) error {
	s.mu.Lock()
	s.updateCalls++
	fail := s.failUpdateAt != 0 && s.updateCalls == s.failUpdateAt
	s.mu.Unlock()
	if fail {
		return errors.New("injected update failure")
	}

	p, ok := s.read(q, userID)
	if !ok || p.Version != expectedVersion {
		return util.ErrConcurrentUpdate
	}
	patch.Apply(&p)

	if tx, isTx := q.(*fakeTx); isTx {
		tx.staged[userID] = p
		return nil
	}
	s.mu.Lock()
	s.profiles[userID] = p
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	if tx, ok := q.(*fakeTx); ok {
		tx.appended = append(tx.appended, *transaction)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("injected append failure")
	}
	s.transactions = append(s.transactions, *transaction)
	return nil
}

func (s *fakeStore) GetTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	all := s.ledger(userID)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// newStoreBackedService wires a LedgerService to a fakeStore.
func newStoreBackedService(store *fakeStore, clock util.Clock, policy domain.ClaimPolicy) LedgerService {
	return NewLedgerService(
		nil,
		noopExecutor{},
		store,
		store,
		func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return store.begin(), nil
		},
		db.CommitTx,
		func(tx db.TxController) { _ = tx.Rollback() },
		Settings{
			Policy: policy,
			Clock:  clock,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)
}
