// Package testutil provides common test utilities for the print shop backend.
// It sets up an in-memory database with every application service wired over
// it, seeds catalog and customer data, and offers HTTP test helpers.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/infrastructure/cache"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/lock"
	"github.com/printshop/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Well-known actors used across tests.
const (
	ClerkID   = 7
	ManagerID = 9
)

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
func NewSQLiteDB(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: ":memory:",
	})
	require.NoError(t, err, "Failed to open sqlite database")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Clock is a settable time source for the transaction runner.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewRunner builds a transaction runner over db with an in-process locker,
// publishing to events and reading time from clock.
func NewRunner(db *gorm.DB, events *RecordingPublisher, clock *Clock) *transaction.Runner {
	runner := transaction.NewRunner(
		persistence.NewGormTransactionScope(db),
		lock.NewMemoryLocker(2*time.Second),
		events,
		zap.NewNop(),
	)
	runner.SetClock(clock.Now)
	return runner
}

// NewReferenceStore returns an in-memory payment reference store closed at cleanup
func NewReferenceStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
