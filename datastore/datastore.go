package datastore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/xmltable"
)

// Adapter provides database-driver-specific schema and query behaviour.
type Adapter interface {
	PostCreate(*sqlx.DB) error
	Up() []string
	Down() []string
	Placeholder() sq.PlaceholderFormat
	SupportsLastInsertId() bool
}

type DataStore struct {
	adapter Adapter
	db      *sqlx.DB
	Stats   Stats
}

type Stats map[StatKey]StatItem

type StatKey struct {
	Name   string
	Action string
}

type StatItem struct {
	Duration time.Duration
	Count    int
}

func (s Stats) Log(name, action string, d time.Duration) {
	item := s[StatKey{Name: name, Action: action}]
	item.Count++
	item.Duration += d
	s[StatKey{Name: name, Action: action}] = item
}

func (s Stats) String() (out string) {
	for k, v := range s {
		out += fmt.Sprintf("%v  %v '%v' actions took %v total, %v avg\n", v.Count, k.Name, k.Action, v.Duration, v.Duration/time.Duration(v.Count))
	}

	return out
}

// PackageInfo describes a stored package without its contents.
type PackageInfo struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Section  string `db:"section" json:"section,omitempty"`
	FileName string `db:"file_name" json:"file_name"`
	// RelPath identifies the package within the imported folder.
	RelPath string `db:"rel_path" json:"rel_path"`
	Keys    int    `db:"key_count" json:"keys"`
}

// TranslationRef addresses one language of one key.
type TranslationRef struct {
	PackageID int64
	// Container is only used to place a key that does not exist yet.
	Container string
	KeyID     string
	Language  stringtable.Language
}

// Creates a new datastore using the given database connection. The driver parameter is used to
// select the appropriate database adapter, and should be one of the config.DbDriver* constants.
func New(db *sqlx.DB, driver string) (ds *DataStore, err error) {
	adp, err := newAdapter(driver)
	if err != nil {
		return &DataStore{}, err
	}

	ds = &DataStore{
		adapter: adp,
		db:      db,
		Stats:   make(map[StatKey]StatItem),
	}

	err = ds.adapter.PostCreate(ds.db)
	if err != nil {
		return ds, err
	}

	return ds, nil
}

func newAdapter(driver string) (adp Adapter, err error) {
	switch driver {
	case config.DbDriverSqlite3:
		adp = Sqlite3Adapter{}
	case config.DbDriverPostgresql:
		adp = PostgresAdapter{}
	}

	if adp == nil {
		return nil, fmt.Errorf("no adapter available for database driver '%v'", driver)
	}

	return adp, nil
}

// MigrateUp brings the schema to the newest version and returns it.
func (ds *DataStore) MigrateUp() (int64, error) {
	return migrateUp(ds.db, ds.adapter.Up())
}

// MigrateDown removes the schema and returns the version left behind.
func (ds *DataStore) MigrateDown() (int64, error) {
	return migrateDown(ds.db, ds.adapter.Down())
}

func (ds *DataStore) insert(tx *sqlx.Tx, query string, args ...any) (id int64, err error) {
	if ds.adapter.SupportsLastInsertId() {
		result, err := tx.Exec(tx.Rebind(query), args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	err = tx.Get(&id, tx.Rebind(query+" RETURNING id"), args...)
	return id, err
}

func (ds *DataStore) inTx(f func(tx *sqlx.Tx) error) (err error) {
	tx, err := ds.db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (ds *DataStore) clearPackage(tx *sqlx.Tx, pkgID int64) error {
	start := time.Now()
	defer func() { ds.Stats.Log("package", "clear", time.Since(start)) }()

	queries := []string{
		"DELETE FROM translation WHERE entry_id IN (SELECT entry.id FROM entry INNER JOIN container ON entry.container_id = container.id WHERE container.package_id = ?)",
		"DELETE FROM entry WHERE container_id IN (SELECT id FROM container WHERE package_id = ?)",
		"DELETE FROM container WHERE package_id = ?",
	}
	for _, q := range queries {
		if _, err := tx.Exec(tx.Rebind(q), pkgID); err != nil {
			return err
		}
	}
	return nil
}

func (ds *DataStore) writeContents(tx *sqlx.Tx, pkgID int64, pkg *stringtable.Package) error {
	start := time.Now()
	defer func() { ds.Stats.Log("package", "write", time.Since(start)) }()

	for ci, c := range pkg.Containers {
		containerID, err := ds.insert(tx, "INSERT INTO container (package_id, name, position) VALUES (?, ?, ?)", pkgID, c.Name, ci)
		if err != nil {
			return err
		}
		for ki, k := range c.Keys {
			entryID, err := ds.insert(tx, "INSERT INTO entry (container_id, ident, position) VALUES (?, ?, ?)", containerID, k.ID, ki)
			if err != nil {
				return err
			}
			for _, l := range stringtable.Languages() {
				if !k.Has(l) {
					continue
				}
				_, err = tx.Exec(tx.Rebind("INSERT INTO translation (entry_id, language, content) VALUES (?, ?, ?)"), entryID, l.String(), k.Get(l))
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ImportPackage stores pkg under relPath, replacing the contents of any
// package already stored there. The package keeps its ID across imports.
func (ds *DataStore) ImportPackage(pkg *stringtable.Package, relPath string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("package", "import", time.Since(start)) }()

	err = ds.inTx(func(tx *sqlx.Tx) error {
		err := tx.Get(&id, tx.Rebind("SELECT id FROM package WHERE rel_path = ?"), relPath)
		switch {
		case err == sql.ErrNoRows:
			id, err = ds.insert(tx, "INSERT INTO package (name, section, file_name, rel_path) VALUES (?, ?, ?, ?)", pkg.Name, pkg.Section, pkg.FileName, relPath)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			_, err = tx.Exec(tx.Rebind("UPDATE package SET name = ?, section = ?, file_name = ? WHERE id = ?"), pkg.Name, pkg.Section, pkg.FileName, id)
			if err != nil {
				return err
			}
			if err = ds.clearPackage(tx, id); err != nil {
				return err
			}
		}
		return ds.writeContents(tx, id, pkg)
	})

	return id, err
}

// SavePackage replaces the stored contents of package id with pkg's.
// Returns sql.ErrNoRows when the package does not exist.
func (ds *DataStore) SavePackage(id int64, pkg *stringtable.Package) error {
	if _, err := ds.GetPackageInfo(id); err != nil {
		return err
	}
	return ds.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(tx.Rebind("UPDATE package SET name = ?, section = ? WHERE id = ?"), pkg.Name, pkg.Section, id)
		if err != nil {
			return err
		}
		if err = ds.clearPackage(tx, id); err != nil {
			return err
		}
		return ds.writeContents(tx, id, pkg)
	})
}

// RelPath returns the path of fileName relative to root, with forward
// slashes. Packages opened outside a folder are identified by base name.
func RelPath(root, fileName string) (string, error) {
	if fileName == "" {
		return "", errors.New("package has no file name")
	}
	if root == "" {
		return filepath.Base(fileName), nil
	}
	rel, err := filepath.Rel(root, fileName)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// ImportProject stores every package of p, sending the relative path of each
// imported package to notify when it is not nil.
func (ds *DataStore) ImportProject(p *stringtable.Project, notify chan<- string) (count int, err error) {
	for i, pkg := range p.Packages {
		rel, err := RelPath(p.Root, pkg.FileName)
		if err != nil {
			return i, err
		}
		if _, err = ds.ImportPackage(pkg, rel); err != nil {
			return i, fmt.Errorf("import %s: %w", rel, err)
		}
		if notify != nil {
			notify <- rel
		}
	}

	return len(p.Packages), nil
}

// Gets all stored packages ordered by relative path.
func (ds *DataStore) GetPackageList() (packages []PackageInfo, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("package", "get", time.Since(start)) }()

	err = ds.db.Select(&packages, `SELECT package.id, package.name, package.section, package.file_name, package.rel_path,
    (SELECT COUNT(*) FROM entry INNER JOIN container ON entry.container_id = container.id WHERE container.package_id = package.id) AS key_count
FROM package ORDER BY package.rel_path`)

	return packages, err
}

// Gets a single package's description.
// Returns sql.ErrNoRows when the package cannot be found.
func (ds *DataStore) GetPackageInfo(id int64) (info PackageInfo, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("package", "get", time.Since(start)) }()

	err = ds.db.Get(&info, ds.db.Rebind("SELECT id, name, section, file_name, rel_path FROM package WHERE id = ?"), id)

	return info, err
}

// Gets all containers, keys and translations of the package with the given ID, in document order.
// Returns sql.ErrNoRows when the package cannot be found.
func (ds *DataStore) GetFullPackage(id int64) (*stringtable.Package, error) {
	info, err := ds.GetPackageInfo(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("package", "get", time.Since(start)) }()

	var rows []struct {
		ContainerID   int64          `db:"container_id"`
		ContainerName string         `db:"container_name"`
		EntryID       sql.NullInt64  `db:"entry_id"`
		Ident         sql.NullString `db:"ident"`
		Language      sql.NullString `db:"language"`
		Content       sql.NullString `db:"content"`
	}
	err = ds.db.Select(&rows, ds.db.Rebind(`SELECT container.id AS container_id, container.name AS container_name,
    entry.id AS entry_id, entry.ident, translation.language, translation.content
FROM container
LEFT JOIN entry ON entry.container_id = container.id
LEFT JOIN translation ON translation.entry_id = entry.id
WHERE container.package_id = ?
ORDER BY container.position, entry.position, translation.id`), id)
	if err != nil {
		return nil, err
	}

	pkg := &stringtable.Package{Name: info.Name, Section: info.Section, FileName: info.FileName}
	var (
		container   *stringtable.Container
		containerID int64
		key         *stringtable.Key
		entryID     int64
	)
	for _, r := range rows {
		if container == nil || r.ContainerID != containerID {
			container = &stringtable.Container{Name: r.ContainerName}
			containerID = r.ContainerID
			key = nil
			pkg.AddContainer(container)
		}
		if !r.EntryID.Valid {
			continue
		}
		if key == nil || r.EntryID.Int64 != entryID {
			key = stringtable.NewKey(r.Ident.String)
			entryID = r.EntryID.Int64
			container.AddKey(key)
		}
		if !r.Language.Valid {
			continue
		}
		lang, ok := stringtable.LanguageByElement(r.Language.String)
		if !ok {
			return nil, fmt.Errorf("package %d: key %s: unknown language %q", id, key.ID, r.Language.String)
		}
		key.Set(lang, r.Content.String)
	}

	return pkg, nil
}

// GetProject loads every stored package into one project.
func (ds *DataStore) GetProject() (*stringtable.Project, error) {
	infos, err := ds.GetPackageList()
	if err != nil {
		return nil, err
	}

	project := &stringtable.Project{}
	for _, info := range infos {
		pkg, err := ds.GetFullPackage(info.ID)
		if err != nil {
			return nil, err
		}
		project.AddPackage(pkg)
	}
	return project, nil
}

func (ds *DataStore) getEntryId(tx *sqlx.Tx, pkgID int64, keyID string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("entry", "get", time.Since(start)) }()

	err = tx.Get(&id, tx.Rebind(`SELECT entry.id FROM entry INNER JOIN container ON entry.container_id = container.id
WHERE container.package_id = ? AND entry.ident = ? ORDER BY container.position, entry.position LIMIT 1`), pkgID, keyID)

	return id, err
}

// appendEntry adds a key at the end of the named container, creating the
// container at the end of the package if needed.
func (ds *DataStore) appendEntry(tx *sqlx.Tx, pkgID int64, containerName, keyID string) (int64, error) {
	start := time.Now()
	defer func() { ds.Stats.Log("entry", "insert", time.Since(start)) }()

	var containerID int64
	err := tx.Get(&containerID, tx.Rebind("SELECT id FROM container WHERE package_id = ? AND name = ? ORDER BY position LIMIT 1"), pkgID, containerName)
	if err == sql.ErrNoRows {
		var pos int
		if err = tx.Get(&pos, tx.Rebind("SELECT COUNT(*) FROM container WHERE package_id = ?"), pkgID); err != nil {
			return 0, err
		}
		containerID, err = ds.insert(tx, "INSERT INTO container (package_id, name, position) VALUES (?, ?, ?)", pkgID, containerName, pos)
	}
	if err != nil {
		return 0, err
	}

	var pos int
	if err = tx.Get(&pos, tx.Rebind("SELECT COALESCE(MAX(position) + 1, 0) FROM entry WHERE container_id = ?"), containerID); err != nil {
		return 0, err
	}
	return ds.insert(tx, "INSERT INTO entry (container_id, ident, position) VALUES (?, ?, ?)", containerID, keyID, pos)
}

// Updates the text of one language of a key. An empty content removes the text.
// When allowCreate is false, will return sql.ErrNoRows if the package, key or
// translation does not exist.
// If allowCreate is true, a missing translation is created, and a missing key
// is appended to ref.Container.
// When a package holds the key ID more than once, the first occurrence is changed.
func (ds *DataStore) CreateOrUpdateTranslation(ref TranslationRef, content string, allowCreate bool) error {
	if _, err := ds.GetPackageInfo(ref.PackageID); err != nil {
		return err
	}

	return ds.inTx(func(tx *sqlx.Tx) error {
		entryID, err := ds.getEntryId(tx, ref.PackageID, ref.KeyID)
		if err == sql.ErrNoRows && allowCreate && ref.Container != "" {
			entryID, err = ds.appendEntry(tx, ref.PackageID, ref.Container, ref.KeyID)
		}
		if err != nil {
			return err
		}

		if content == "" {
			return ds.deleteTranslation(tx, entryID, ref.Language)
		}

		start := time.Now()
		defer func() { ds.Stats.Log("translation", "upsert", time.Since(start)) }()

		var transID int64
		err = tx.Get(&transID, tx.Rebind("SELECT id FROM translation WHERE entry_id = ? AND language = ?"), entryID, ref.Language.String())
		switch {
		case err == sql.ErrNoRows && allowCreate:
			_, err = tx.Exec(tx.Rebind("INSERT INTO translation (entry_id, language, content) VALUES (?, ?, ?)"), entryID, ref.Language.String(), content)
		case err == nil:
			_, err = tx.Exec(tx.Rebind("UPDATE translation SET content = ? WHERE id = ?"), content, transID)
		}
		return err
	})
}

func (ds *DataStore) deleteTranslation(tx *sqlx.Tx, entryID int64, lang stringtable.Language) error {
	start := time.Now()
	defer func() { ds.Stats.Log("translation", "delete", time.Since(start)) }()

	_, err := tx.Exec(tx.Rebind("DELETE FROM translation WHERE entry_id = ? AND language = ?"), entryID, lang.String())
	return err
}

// Deletes a single translation.
// Returns sql.ErrNoRows when the package or key does not exist.
func (ds *DataStore) DeleteTranslation(ref TranslationRef) error {
	return ds.inTx(func(tx *sqlx.Tx) error {
		entryID, err := ds.getEntryId(tx, ref.PackageID, ref.KeyID)
		if err != nil {
			return err
		}
		return ds.deleteTranslation(tx, entryID, ref.Language)
	})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// KeyFilter narrows FindKeys. Zero values match everything.
type KeyFilter struct {
	PackageID int64
	Container string
	// Prefix matches the start of the key ID.
	Prefix string
	// Missing, when set, keeps only keys without text in that language.
	Missing *stringtable.Language
	Limit   uint64
}

// KeyRef locates a stored key.
type KeyRef struct {
	PackageID int64  `db:"package_id" json:"package_id"`
	RelPath   string `db:"rel_path" json:"package"`
	Container string `db:"container" json:"container"`
	ID        string `db:"ident" json:"id"`
}

// FindKeys lists the stored keys matching f, in package path then document order.
func (ds *DataStore) FindKeys(f KeyFilter) (refs []KeyRef, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("entry", "find", time.Since(start)) }()

	q := sq.Select("package.id AS package_id", "package.rel_path", "container.name AS container", "entry.ident").
		From("entry").
		Join("container ON entry.container_id = container.id").
		Join("package ON container.package_id = package.id").
		OrderBy("package.rel_path", "container.position", "entry.position").
		PlaceholderFormat(ds.adapter.Placeholder())

	if f.PackageID != 0 {
		q = q.Where(sq.Eq{"package.id": f.PackageID})
	}
	if f.Container != "" {
		q = q.Where(sq.Eq{"container.name": f.Container})
	}
	if f.Prefix != "" {
		q = q.Where(sq.Expr("entry.ident LIKE ? ESCAPE '!'", likeEscaper.Replace(f.Prefix)+"%"))
	}
	if f.Missing != nil {
		q = q.Where(sq.Expr("NOT EXISTS (SELECT 1 FROM translation WHERE translation.entry_id = entry.id AND translation.language = ?)", f.Missing.String()))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	err = ds.db.Select(&refs, query, args...)

	return refs, err
}

// ExportPackage writes the stored package with the given ID to dir, at its
// relative path, and returns the path written. With an empty dir the package
// is written back to the file it was imported from.
func (ds *DataStore) ExportPackage(id int64, dir string) (path string, err error) {
	info, err := ds.GetPackageInfo(id)
	if err != nil {
		return "", err
	}
	pkg, err := ds.GetFullPackage(id)
	if err != nil {
		return "", err
	}

	path = info.FileName
	if dir != "" {
		path = filepath.Join(dir, filepath.FromSlash(info.RelPath))
	}
	if path == "" {
		return "", fmt.Errorf("package %d has nowhere to be written", id)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	return path, xmltable.Serialize(pkg, path)
}
