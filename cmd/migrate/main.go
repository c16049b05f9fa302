package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/infrastructure/migration"
	"github.com/printshop/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// schemaCommand runs against the configured database
type schemaCommand struct {
	usage string
	run   func(m *migration.Migrator, args []string) error
}

var schemaCommands = map[string]schemaCommand{
	"up": {"", func(m *migration.Migrator, _ []string) error {
		return m.Up()
	}},
	"down": {"", func(m *migration.Migrator, _ []string) error {
		return m.Down()
	}},
	"step": {"<n>", func(m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {"<version>", func(m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {"<version>", func(m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"drop": {"-confirm", func(m *migration.Migrator, args []string) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return errors.New("drop cancelled, rerun as 'migrate drop -confirm'")
		}
		return m.Drop()
	}},
	"version": {"", func(m *migration.Migrator, _ []string) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	}},
}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	log = log.With(zap.String("command", command))

	// .env is optional
	_ = godotenv.Load()

	if err := runFileCommand(command, rest, *dir, log); !errors.Is(err, errNotFileCommand) {
		if err != nil {
			log.Fatal("Migration command failed", zap.Error(err))
		}
		return
	}

	cmd, ok := schemaCommands[command]
	if !ok {
		log.Error("Unknown command")
		printUsage()
		os.Exit(1)
	}
	if cmd.usage != "" && len(rest) == 0 {
		log.Fatal("Missing argument", zap.String("usage", "migrate "+command+" "+cmd.usage))
	}

	m, db := openMigrator(*dir, log)
	defer db.Close()
	defer m.Close()

	if err := cmd.run(m, rest); err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}

var errNotFileCommand = errors.New("not a file command")

// runFileCommand handles the commands that only touch migration files
func runFileCommand(command string, args []string, dir string, log *zap.Logger) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return errors.New("migration name required: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		if dir == "" {
			dir = defaultMigrationsDir
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil

	case "list":
		list, err := migration.ListMigrations(source(dir))
		if err != nil {
			return err
		}
		log.Info("Available migrations", zap.Int("count", len(list)))
		for _, m := range list {
			fmt.Printf("  %06d_%s\n", m.Version, m.Name)
		}
		return nil

	case "validate":
		if err := migration.Validate(source(dir)); err != nil {
			return err
		}
		log.Info("Migrations are consistent")
		return nil
	}
	return errNotFileCommand
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func openMigrator(dir string, log *zap.Logger) (*migration.Migrator, *sql.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("SQL migrations only run against postgres; sqlite schemas are created on startup",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *migration.Migrator
	if dir != "" {
		m, err = migration.NewFromPath(db, dir, log)
	} else {
		m, err = migration.New(db, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return m, db
}

func printUsage() {
	fmt.Println(`Print Shop Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Mark a version applied after fixing a dirty schema
  drop -confirm         Drop all database objects
  create <name> [desc]  Create the next numbered migration file pair
  list                  List available migrations
  validate              Check versions are contiguous and paired

Flags:
  -path string          Migrations directory (default: the set built into the binary)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  PRINTSHOP_DATABASE_HOST, PRINTSHOP_DATABASE_PORT, PRINTSHOP_DATABASE_USER,
  PRINTSHOP_DATABASE_PASSWORD, PRINTSHOP_DATABASE_DBNAME, PRINTSHOP_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_job_priority "Add priority to service jobs"`)
}
