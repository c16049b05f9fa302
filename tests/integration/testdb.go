// Package integration runs the print shop backend against a real PostgreSQL
// database started with testcontainers. The schema comes from the SQL
// migrations compiled into the binary, so these tests also cover them.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/migration"
	"github.com/printshop/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresPassword = "printshop"
)

// pgServer is a running PostgreSQL container and the settings to reach it
type pgServer struct {
	container testcontainers.Container
	cfg       config.DatabaseConfig
}

var (
	sharedMu     sync.Mutex
	sharedServer *pgServer
)

// TestDB is a connection to a containerised database. SQLDB is the pool
// behind the embedded GORM handle.
type TestDB struct {
	*persistence.Database
	SQLDB  *sql.DB
	server *pgServer
	t      *testing.T
}

// NewTestDB starts a fresh PostgreSQL container with the schema migrated up.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	tdb := open(t, startServer(t, "printshop_test"))
	migrateUp(t, tdb.SQLDB)
	t.Cleanup(tdb.terminate)
	return tdb
}

// NewUnmigratedTestDB starts a PostgreSQL container with an empty schema,
// for tests that drive the migrations themselves.
func NewUnmigratedTestDB(t *testing.T) *TestDB {
	t.Helper()
	tdb := open(t, startServer(t, "printshop_migrate_test"))
	t.Cleanup(tdb.terminate)
	return tdb
}

// NewSharedTestDB connects to one container shared by the whole package,
// migrated on first use. Tests using it must not depend on the contents of
// other tests' rows.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedServer == nil {
		server := startServer(t, "printshop_shared_test")
		first := open(t, server)
		migrateUp(t, first.SQLDB)
		_ = first.Close()
		sharedServer = server
	}

	tdb := open(t, sharedServer)
	t.Cleanup(func() { _ = tdb.Close() })
	return tdb
}

// CleanupSharedContainer terminates the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedServer.container.Terminate(ctx)
	sharedServer = nil
}

// terminate closes the pool and stops a private container
func (tdb *TestDB) terminate() {
	_ = tdb.Close()
	if err := tdb.server.container.Terminate(context.Background()); err != nil {
		tdb.t.Logf("Warning: Failed to terminate container: %v", err)
	}
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range tdb.Tables() {
		if table == "schema_migrations" {
			continue
		}
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// Tables lists the tables in the public schema, sorted
func (tdb *TestDB) Tables() []string {
	tdb.t.Helper()
	var tables []string
	err := tdb.DB.Raw(`SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`).
		Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to list tables")
	return tables
}

func startServer(t *testing.T, dbName string) *pgServer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword(postgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get container host")
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Failed to get mapped port")

	return &pgServer{
		container: container,
		cfg: config.DatabaseConfig{
			Driver:          "postgres",
			Host:            host,
			Port:            port.Int(),
			User:            "postgres",
			Password:        postgresPassword,
			DBName:          dbName,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5,
			ConnMaxIdleTime: 5,
		},
	}
}

// open connects through persistence.NewDatabase, as the server does
func open(t *testing.T, server *pgServer) *TestDB {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := persistence.NewDatabase(&server.cfg, persistence.WithLogger(logger.Default.LogMode(level)))
	require.NoError(t, err, "Failed to connect to database")
	return &TestDB{Database: db, SQLDB: db.SQL(), server: server, t: t}
}

func migrateUp(t *testing.T, sqlDB *sql.DB) {
	t.Helper()
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}
