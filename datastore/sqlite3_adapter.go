package datastore

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Sqlite3Adapter provides support for SQLite3 databases.
type Sqlite3Adapter struct{}

func (s Sqlite3Adapter) PostCreate(db *sqlx.DB) (err error) {
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return err
	}
	// Faster than using default journal file
	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return err
	}
	// Default (full) is slower
	_, err = db.Exec("PRAGMA synchronous = NORMAL")
	if err != nil {
		return err
	}

	return nil
}

func (s Sqlite3Adapter) Up() []string {
	return []string{
		// 1
		`
CREATE TABLE "package" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "name" TEXT NOT NULL DEFAULT '',
    "section" TEXT NOT NULL DEFAULT '',
    "file_name" TEXT NOT NULL DEFAULT '',
    "rel_path" TEXT NOT NULL UNIQUE
);
CREATE TABLE "container" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "package_id" INTEGER REFERENCES "package"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "name" TEXT NOT NULL DEFAULT '',
    "position" INTEGER NOT NULL
);
CREATE INDEX "container_package_id" ON "container" ("package_id");
CREATE TABLE "entry" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "container_id" INTEGER REFERENCES "container"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "ident" TEXT NOT NULL,
    "position" INTEGER NOT NULL
);
CREATE INDEX "entry_container_id" ON "entry" ("container_id");
CREATE INDEX "entry_ident" ON "entry" ("ident");
CREATE TABLE "translation" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "entry_id" INTEGER REFERENCES "entry"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "language" TEXT NOT NULL,
    "content" TEXT NOT NULL
);
CREATE UNIQUE INDEX "translation_entry_language" ON "translation" ("entry_id", "language");
`,
	}
}

func (s Sqlite3Adapter) Down() []string {
	return []string{
		// 1
		`
DROP TABLE translation;
DROP TABLE entry;
DROP TABLE container;
DROP TABLE package;
`,
	}
}

func (s Sqlite3Adapter) Placeholder() sq.PlaceholderFormat {
	return sq.Question
}

func (s Sqlite3Adapter) SupportsLastInsertId() bool {
	return true
}
