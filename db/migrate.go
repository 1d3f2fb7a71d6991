package db

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every unapplied migration in dir to client.
func RunMigrations(client *sql.DB, dir string) error {
	m, err := newMigrateInstance(client, dir)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func newMigrateInstance(client *sql.DB, dir string) (*migrate.Migrate, error) {
	d, err := pgdriver.WithInstance(client, &pgdriver.Config{})
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", d)
	if err != nil {
		return nil, err
	}
	m.Log = stderrLog{}
	return m, nil
}

type stderrLog struct{}

func (stderrLog) Printf(format string, v ...any) { fmt.Fprintf(os.Stderr, format, v...) }
func (stderrLog) Verbose() bool                  { return false }
