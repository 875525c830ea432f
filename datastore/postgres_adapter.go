package datastore

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// PostgresAdapter provides support for PostgreSQL databases.
type PostgresAdapter struct{}

func (a PostgresAdapter) PostCreate(db *sqlx.DB) (err error) {
	return nil
}

func (a PostgresAdapter) Up() []string {
	return []string{
		// 1
		`
CREATE TABLE package (
    id SERIAL PRIMARY KEY,
    name varchar NOT NULL DEFAULT '',
    section varchar NOT NULL DEFAULT '',
    file_name varchar NOT NULL DEFAULT '',
    rel_path varchar NOT NULL UNIQUE
);
CREATE TABLE container (
    id SERIAL PRIMARY KEY,
    package_id integer REFERENCES package(id) ON DELETE CASCADE ON UPDATE CASCADE,
    name varchar NOT NULL DEFAULT '',
    position integer NOT NULL
);
CREATE INDEX container_package_id_idx ON container (package_id);
CREATE TABLE entry (
    id SERIAL PRIMARY KEY,
    container_id integer REFERENCES container(id) ON DELETE CASCADE ON UPDATE CASCADE,
    ident varchar NOT NULL,
    position integer NOT NULL
);
CREATE INDEX entry_container_id_idx ON entry (container_id);
CREATE INDEX entry_ident_idx ON entry (ident);
CREATE TABLE translation (
    id SERIAL PRIMARY KEY,
    entry_id integer REFERENCES entry(id) ON DELETE CASCADE ON UPDATE CASCADE,
    language varchar NOT NULL,
    content text NOT NULL
);
CREATE UNIQUE INDEX translation_entry_language_idx ON translation (entry_id, language);
`,
	}
}

func (a PostgresAdapter) Down() []string {
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

func (a PostgresAdapter) Placeholder() sq.PlaceholderFormat {
	return sq.Dollar
}

// LastInsertId is not supported by lib/pq, inserts use RETURNING instead.
func (a PostgresAdapter) SupportsLastInsertId() bool {
	return false
}
