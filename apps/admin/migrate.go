package main

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	appfs "github.com/eduvault/eduvault/fs"
)

var migrateRunFunc = runMigration // mockable

func (cli *commandLine) migrate(command string) error {
	return migrateRunFunc(command, cli.db)
}

func runMigration(command string, db *sqlx.DB) error {
	src, err := iofs.New(appfs.Migrations, "migrations")
	if err != nil {
		return err
	}
	drv, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, vErr := m.Version()
		if vErr != nil {
			return vErr
		}
		logger.Printf("version: %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("%q: no such command", command)
	}
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
