package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/playmatatu/billiards/internal/logging"
)

// DefaultDir is where the SQL migration files live, relative to the
// working directory.
const DefaultDir = "migrations"

const migrationsTable = "schema_migrations"

// open connects to Postgres and builds a migrate instance over dir.
func open(databaseURL, dir string) (*migrate.Migrate, *sql.DB, error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database URL is empty")
	}
	if dir == "" {
		dir = DefaultDir
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open DB: %w", err)
	}

	driver, err := pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, sqlDB, nil
}

// Run applies every pending migration in dir. A database that already has
// the sessions table but no migration metadata is baselined to the latest
// version first.
func Run(databaseURL, dir string) error {
	logger := logging.For("migrate")

	m, sqlDB, err := open(databaseURL, dir)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var sessionsExist bool
	row := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='sessions')")
	if err := row.Scan(&sessionsExist); err == nil && sessionsExist {
		var metaExist bool
		row2 := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", migrationsTable)
		if err := row2.Scan(&metaExist); err == nil && !metaExist {
			if latest := LatestVersion(dirOrDefault(dir)); latest > 0 {
				logger.Warn("baselining existing schema", "version", latest)
				if ferr := m.Force(int(latest)); ferr != nil {
					logger.Error("force failed", "version", latest, "err", ferr)
				}
			}
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Down rolls back steps migrations.
func Down(databaseURL, dir string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	m, sqlDB, err := open(databaseURL, dir)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	logging.For("migrate").Info("rolled back", "steps", steps)
	return nil
}

// Version reports the applied migration version.
func Version(databaseURL, dir string) (uint, bool, error) {
	m, sqlDB, err := open(databaseURL, dir)
	if err != nil {
		return 0, false, err
	}
	defer sqlDB.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return DefaultDir
	}
	return dir
}

var versionPrefix = regexp.MustCompile(`^0*([0-9]+)_`)

// LatestVersion scans dir for files that start with a numeric version
// prefix (e.g. 000001_) and returns the highest version number.
func LatestVersion(dir string) int64 {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var max int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := versionPrefix.FindStringSubmatch(f.Name())
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}
	return max
}
