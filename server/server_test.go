package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/datastore"
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/validate"
)

type fixture struct {
	server    *Server
	ds        *datastore.DataStore
	exportDir string
	pkgID     int64
}

func newFixture(t *testing.T, rules ...validate.Rule) *fixture {
	t.Helper()
	db, err := sqlx.Connect(config.DbDriverSqlite3, filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ds, err := datastore.New(db, config.DbDriverSqlite3)
	if err != nil {
		t.Fatalf("datastore: %v", err)
	}
	if _, err := ds.MigrateUp(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := &stringtable.Container{Name: "Menu"}
	start := stringtable.NewKey("STR_Start")
	start.Set(stringtable.English, "Start")
	start.Set(stringtable.German, "Starten")
	c.AddKey(start)
	quit := stringtable.NewKey("STR_Quit")
	quit.Set(stringtable.Original, "Quit")
	c.AddKey(quit)
	dup := stringtable.NewKey("STR_Start")
	dup.Set(stringtable.English, "Begin")
	c.AddKey(dup)
	pkg := &stringtable.Package{Name: "Mission", FileName: "mission.xml"}
	pkg.AddContainer(c)

	id, err := ds.ImportPackage(pkg, "mission.xml")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	exportDir := t.TempDir()
	return &fixture{
		server:    New(db, config.DbDriverSqlite3, exportDir, rules),
		ds:        ds,
		exportDir: exportDir,
		pkgID:     id,
	}
}

func (f *fixture) do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, r)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%s %s: unexpected content type %q", method, url, ct)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, url, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (f *fixture) url(format string, args ...any) string {
	return fmt.Sprintf("/packages/%d"+format, append([]any{f.pkgID}, args...)...)
}

func TestGetLanguages(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, "GET", "/languages", "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	langs := out["languages"].([]any)
	if len(langs) != len(stringtable.Languages()) {
		t.Fatalf("expected %d languages, got %d", len(stringtable.Languages()), len(langs))
	}
	if german := langs[stringtable.German].(map[string]any); german["name"] != "German" || german["tag"] != "de" {
		t.Fatalf("unexpected German entry %v", german)
	}
}

func TestGetPackages(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, "GET", "/packages", "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	pkgs := out["packages"].([]any)
	if len(pkgs) != 1 {
		t.Fatalf("expected 1 package, got %v", pkgs)
	}
	if p := pkgs[0].(map[string]any); p["rel_path"] != "mission.xml" || p["keys"] != float64(3) {
		t.Fatalf("unexpected package %v", p)
	}
}

func TestGetPackage(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, "GET", f.url(""), "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	containers := out["containers"].([]any)
	keys := containers[0].(map[string]any)["keys"].([]any)
	first := keys[0].(map[string]any)
	if first["id"] != "STR_Start" || first["texts"].(map[string]any)["German"] != "Starten" {
		t.Fatalf("unexpected key %v", first)
	}

	code, out = f.do(t, "GET", "/packages/999", "")
	if code != http.StatusNotFound || out["error"] != "not found" {
		t.Fatalf("expected not found, got %d %v", code, out)
	}
}

func TestViolations(t *testing.T) {
	f := newFixture(t, validate.DuplicateKeyIDs, validate.MissingTranslations(stringtable.English))

	code, out := f.do(t, "GET", f.url("/violations"), "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	vs := out["violations"].([]any)
	if len(vs) != 2 {
		t.Fatalf("expected 2 violations, got %v", vs)
	}
	first := vs[0].(map[string]any)
	if first["kind"] != string(validate.KindDuplicateKeyID) || first["level"] != "error" || first["message"] != "Duplicate Key ID: STR_Start" {
		t.Fatalf("expected duplicate first, got %v", first)
	}
	if len(first["keys"].([]any)) != 2 {
		t.Fatalf("expected both duplicate keys, got %v", first["keys"])
	}

	_, out = f.do(t, "GET", "/violations?level=error", "")
	if vs := out["violations"].([]any); len(vs) != 1 {
		t.Fatalf("expected only the error, got %v", vs)
	}

	code, _ = f.do(t, "GET", "/violations?level=fatal", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown level, got %d", code)
	}
}

func TestFillPackage(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, "POST", f.url("/fill"), "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", code, out)
	}
	if out["filled"].(float64) == 0 {
		t.Fatal("expected texts to be filled")
	}

	pkg, err := f.ds.GetFullPackage(f.pkgID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	quit := pkg.Containers[0].Keys[1]
	if quit.Get(stringtable.English) != "Quit" || quit.Get(stringtable.Czech) != "Quit" {
		t.Fatalf("expected Original to fill missing texts, got %v", quit.Text)
	}
	if start := pkg.Containers[0].Keys[0]; start.Get(stringtable.German) != "Starten" {
		t.Fatalf("existing text overwritten: %v", start.Text)
	}

	select {
	case id := <-f.server.export:
		if id != f.pkgID {
			t.Fatalf("queued export of package %d", id)
		}
	default:
		t.Fatal("expected export to be queued")
	}

	_, out = f.do(t, "POST", f.url("/fill"), "")
	if out["filled"].(float64) != 0 {
		t.Fatalf("expected second fill to be a no-op, got %v", out["filled"])
	}
}

func TestExportPackage(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, "POST", f.url("/export"), "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", code, out)
	}
	path := filepath.Join(f.exportDir, "mission.xml")
	if out["path"] != path {
		t.Fatalf("unexpected export path %v", out["path"])
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export missing: %v", err)
	}
}

func TestExportQueued(t *testing.T) {
	f := newFixture(t)
	f.server.queueExport(f.pkgID)
	f.server.queueExport(f.pkgID + 100)
	f.server.Close()
	f.server.ExportQueued(f.ds)

	if _, err := os.Stat(filepath.Join(f.exportDir, "mission.xml")); err != nil {
		t.Fatalf("export missing: %v", err)
	}
}

func TestFindKeys(t *testing.T) {
	f := newFixture(t)
	_, out := f.do(t, "GET", "/keys?missing=de", "")
	keys := out["keys"].([]any)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys missing German, got %v", keys)
	}
	if k := keys[0].(map[string]any); k["id"] != "STR_Quit" || k["package"] != "mission.xml" || k["container"] != "Menu" {
		t.Fatalf("unexpected key %v", k)
	}

	_, out = f.do(t, "GET", "/keys?prefix=STR_S&limit=1", "")
	if keys := out["keys"].([]any); len(keys) != 1 {
		t.Fatalf("expected limit to apply, got %v", keys)
	}

	_, out = f.do(t, "GET", "/keys?container=Nope", "")
	if keys := out["keys"].([]any); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}

	for _, q := range []string{"missing=Elvish", "package=x", "limit=-1"} {
		if code, _ := f.do(t, "GET", "/keys?"+q, ""); code != http.StatusBadRequest {
			t.Fatalf("%s: expected bad request, got %d", q, code)
		}
	}
}

func TestTranslations(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, "PUT", f.url("/keys/STR_Quit/translations/French"), `{"content":"Quitter"}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected PUT of a new translation to be not found, got %d", code)
	}
	code, out := f.do(t, "POST", f.url("/keys/STR_Quit/translations/fr"), `{"content":"Quitter"}`)
	if code != http.StatusOK || out["result"] != "ok" {
		t.Fatalf("create: %d %v", code, out)
	}
	code, _ = f.do(t, "PUT", f.url("/keys/STR_Quit/translations/French"), `{"content":"Sortir"}`)
	if code != http.StatusOK {
		t.Fatalf("update: %d", code)
	}
	code, _ = f.do(t, "POST", f.url("/keys/STR_New/translations/English?container=Extra"), `{"content":"New"}`)
	if code != http.StatusOK {
		t.Fatalf("create key: %d", code)
	}
	code, _ = f.do(t, "DELETE", f.url("/keys/STR_Start/translations/German"), "")
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	code, _ = f.do(t, "PUT", f.url("/keys/STR_Quit/translations/Elvish"), `{"content":"x"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown language, got %d", code)
	}

	pkg, err := f.ds.GetFullPackage(f.pkgID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	menu := pkg.Containers[0]
	if menu.Keys[1].Get(stringtable.French) != "Sortir" {
		t.Fatalf("unexpected French text %q", menu.Keys[1].Get(stringtable.French))
	}
	if menu.Keys[0].Has(stringtable.German) {
		t.Fatal("expected German text to be deleted")
	}
	extra, ok := pkg.Container("Extra")
	if !ok || extra.Keys[0].Get(stringtable.English) != "New" {
		t.Fatalf("expected new key in new container, got %+v", pkg.Containers)
	}
	if queued := len(f.server.export); queued != 4 {
		t.Fatalf("expected 4 queued exports, got %d", queued)
	}
}
