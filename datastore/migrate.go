package datastore

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

func ensureVersionTableExists(db *sqlx.DB) (err error) {
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY NOT NULL)`)
	if err != nil {
		return err
	}

	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`)
	if err != nil {
		return err
	}
	switch {
	case count == 0:
		_, err = db.Exec(`INSERT INTO schema_migrations (version) VALUES (0)`)
	case count > 1:
		err = errors.New("too many rows in schema_migrations table")
	}

	return err
}

func schemaVersion(db *sqlx.DB) (version int64, err error) {
	row := db.QueryRow("SELECT version FROM schema_migrations")
	err = row.Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, err
	default:
		return version, nil
	}
}

func updateVersion(db *sqlx.DB, version int64) (err error) {
	_, err = db.Exec(db.Rebind("UPDATE schema_migrations SET version = ?"), version)

	return err
}

// migrateUp applies every migration in up newer than the current version.
func migrateUp(db *sqlx.DB, up []string) (version int64, err error) {
	if err = ensureVersionTableExists(db); err != nil {
		return 0, err
	}
	startVer, err := schemaVersion(db)
	if err != nil {
		return version, err
	}

	for i, query := range up {
		migTo := int64(i + 1)
		if migTo <= startVer {
			version = migTo
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = updateVersion(db, migTo)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

// migrateDown reverts every applied migration, newest first.
func migrateDown(db *sqlx.DB, down []string) (version int64, err error) {
	if err = ensureVersionTableExists(db); err != nil {
		return 0, err
	}
	startVer, err := schemaVersion(db)
	if err != nil {
		return version, err
	}
	version = startVer

	for i := len(down) - 1; i >= 0; i-- {
		query := down[i]
		migVer := int64(i + 1) // The version of the Down migration we will apply
		migTo := int64(i)      // The version we will end up at

		// Skip migrations for newer versions
		if migVer > startVer {
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = updateVersion(db, migTo)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}
