package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/datastore"
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/validate"
)

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func checkHttpWithStatus(e error, w http.ResponseWriter, status int) (hadError bool) {
	if e != nil {
		w.WriteHeader(status)

		errMsg := e.Error()
		// Don't expose the 'sql: no rows in result set' message to the user
		if status == http.StatusNotFound && errors.Is(e, sql.ErrNoRows) {
			errMsg = "not found"
		}

		jsonErr := struct {
			Error string `json:"error"`
		}{
			Error: errMsg,
		}
		enc := json.NewEncoder(w)
		enc.Encode(jsonErr)

		return true
	}
	return false
}

func checkHttp(e error, w http.ResponseWriter) (hadError bool) {
	status := http.StatusInternalServerError
	if errors.Is(e, sql.ErrNoRows) {
		status = http.StatusNotFound
	}
	return checkHttpWithStatus(e, w, status)
}

func writeOk(w http.ResponseWriter) {
	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Server serves the JSON API over a datastore.
type Server struct {
	db        *sqlx.DB
	driver    string
	exportDir string
	rules     []validate.Rule
	// IDs of packages to write to exportDir
	export chan int64
}

// New creates a Server. Changed packages are queued for export to exportDir;
// the queue is only drained once ExportQueued runs.
func New(db *sqlx.DB, driver, exportDir string, rules []validate.Rule) *Server {
	if len(rules) == 0 {
		rules = validate.DefaultRules()
	}
	return &Server{
		db:        db,
		driver:    driver,
		exportDir: exportDir,
		rules:     rules,
		export:    make(chan int64, 100),
	}
}

// Instantiates a datastore for a request using the server's DB connection
func (s *Server) handleWithDatastore(f func(http.ResponseWriter, *http.Request, *datastore.DataStore)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := datastore.New(s.db, s.driver)

		if checkHttpWithStatus(err, w, http.StatusServiceUnavailable) {
			return
		}
		f(w, r, ds)
	}
}

func (s *Server) queueExport(id int64) {
	select {
	case s.export <- id:
	default:
		log.Printf("export queue full, package %d not exported", id)
	}
}

// ExportQueued writes queued packages to the export directory until the
// queue is closed by Close.
func (s *Server) ExportQueued(ds *datastore.DataStore) {
	for id := range s.export {
		path, err := ds.ExportPackage(id, s.exportDir)
		if err != nil {
			log.Printf("export package %d: %v", id, err)
			continue
		}
		log.Printf("exported package %d to %s", id, path)
	}
}

// Close stops ExportQueued once the queue is empty.
func (s *Server) Close() {
	close(s.export)
}

func setJsonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

func packageID(r *http.Request) int64 {
	// The route pattern only admits digits
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func parseLevel(s string) (validate.Level, error) {
	for _, l := range []validate.Level{validate.Info, validate.Warning, validate.Error} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// Gets list of supported languages
func getLanguagesHandler(w http.ResponseWriter, r *http.Request) {
	var output struct {
		Languages []Language `json:"languages"`
	}
	output.Languages = NewLanguages(stringtable.Languages())

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Gets list of stored packages
func getPackagesHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	pkgs, err := ds.GetPackageList()
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Packages []datastore.PackageInfo `json:"packages"`
	}
	output.Packages = pkgs
	if output.Packages == nil {
		output.Packages = []datastore.PackageInfo{}
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Get a package and all its containers, keys & texts
func getPackageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	id := packageID(r)

	pkg, err := ds.GetFullPackage(id)
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(NewPackage(id, pkg)), w)
}

func (s *Server) writeViolations(w http.ResponseWriter, r *http.Request, keys []*stringtable.Key) {
	vs := validate.Validate(keys, s.rules...)
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		level, err := parseLevel(lvl)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}
		vs = validate.Filter(vs, level)
	}
	validate.SortBySeverity(vs)

	var output struct {
		Violations []Violation `json:"violations"`
	}
	output.Violations = NewViolations(vs)

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Validates a single package
func (s *Server) getPackageViolationsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	pkg, err := ds.GetFullPackage(packageID(r))
	if checkHttp(err, w) {
		return
	}

	s.writeViolations(w, r, pkg.Flatten())
}

// Validates every stored package as one project
func (s *Server) getViolationsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	project, err := ds.GetProject()
	if checkHttp(err, w) {
		return
	}

	s.writeViolations(w, r, project.Flatten())
}

// Fills missing texts of a package from English or Original.
// On success, the package will be re-exported to file.
func (s *Server) fillPackageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	id := packageID(r)

	pkg, err := ds.GetFullPackage(id)
	if checkHttp(err, w) {
		return
	}

	filled := stringtable.FillMissingInCollection(pkg.Flatten())
	if filled > 0 {
		if checkHttp(ds.SavePackage(id, pkg), w) {
			return
		}
		s.queueExport(id)
	}

	var output struct {
		Filled int `json:"filled"`
	}
	output.Filled = filled

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Export a package to its file below the export path
func (s *Server) exportPackageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	path, err := ds.ExportPackage(packageID(r), s.exportDir)
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Result string `json:"result"`
		Path   string `json:"path"`
	}
	output.Result = "ok"
	output.Path = path

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Searches stored keys
func findKeysHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	q := r.URL.Query()
	filter := datastore.KeyFilter{
		Container: q.Get("container"),
		Prefix:    q.Get("prefix"),
	}

	var err error
	if p := q.Get("package"); p != "" {
		filter.PackageID, err = strconv.ParseInt(p, 10, 64)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}
	}
	if m := q.Get("missing"); m != "" {
		lang, err := stringtable.ParseLanguage(m)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}
		filter.Missing = &lang
	}
	if l := q.Get("limit"); l != "" {
		filter.Limit, err = strconv.ParseUint(l, 10, 64)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}
	}

	refs, err := ds.FindKeys(filter)
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Keys []datastore.KeyRef `json:"keys"`
	}
	output.Keys = refs
	if output.Keys == nil {
		output.Keys = []datastore.KeyRef{}
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

func translationRef(w http.ResponseWriter, r *http.Request) (ref datastore.TranslationRef, ok bool) {
	lang, err := stringtable.ParseLanguage(mux.Vars(r)["lang"])
	if checkHttpWithStatus(err, w, http.StatusBadRequest) {
		return ref, false
	}

	return datastore.TranslationRef{
		PackageID: packageID(r),
		Container: r.URL.Query().Get("container"),
		KeyID:     mux.Vars(r)["key"],
		Language:  lang,
	}, true
}

// Update a translation with new content (or create it if we have a POST request)
// On success, the affected package will be re-exported to file.
func (s *Server) createOrUpdateTranslationHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ref, ok := translationRef(w, r)
	if !ok {
		return
	}

	var content struct {
		Content string `json:"content"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	allowCreate := false
	if r.Method == "POST" {
		allowCreate = true
	}

	err = ds.CreateOrUpdateTranslation(ref, content.Content, allowCreate)
	if checkHttp(err, w) {
		return
	}

	writeOk(w)

	s.queueExport(ref.PackageID)
}

// Delete a single translation.
// On success, the affected package will be re-exported to file.
func (s *Server) deleteTranslationHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ref, ok := translationRef(w, r)
	if !ok {
		return
	}

	err := ds.DeleteTranslation(ref)
	if checkHttp(err, w) {
		return
	}

	writeOk(w)

	s.queueExport(ref.PackageID)
}

// Router returns the API routes with JSON headers set on every response.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/languages", getLanguagesHandler).Methods("GET")
	r.HandleFunc("/packages", s.handleWithDatastore(getPackagesHandler)).Methods("GET")
	r.HandleFunc("/packages/{id:[0-9]+}", s.handleWithDatastore(getPackageHandler)).Methods("GET")
	r.HandleFunc("/packages/{id:[0-9]+}/violations", s.handleWithDatastore(s.getPackageViolationsHandler)).Methods("GET")
	r.HandleFunc("/packages/{id:[0-9]+}/fill", s.handleWithDatastore(s.fillPackageHandler)).Methods("POST")
	r.HandleFunc("/packages/{id:[0-9]+}/export", s.handleWithDatastore(s.exportPackageHandler)).Methods("POST")
	r.HandleFunc("/packages/{id:[0-9]+}/keys/{key}/translations/{lang}", s.handleWithDatastore(s.deleteTranslationHandler)).Methods("DELETE")
	r.HandleFunc("/packages/{id:[0-9]+}/keys/{key}/translations/{lang}", s.handleWithDatastore(s.createOrUpdateTranslationHandler)).Methods("POST", "PUT")
	r.HandleFunc("/keys", s.handleWithDatastore(findKeysHandler)).Methods("GET")
	r.HandleFunc("/violations", s.handleWithDatastore(s.getViolationsHandler)).Methods("GET")

	return setJsonHeaders(r)
}

// Rules builds the validation rules configured by v.
func Rules(v config.ValidationConfig) ([]validate.Rule, error) {
	langs, err := v.Languages()
	if err != nil {
		return nil, err
	}
	rules := validate.DefaultRules()
	if len(langs) > 0 {
		rules = append(rules, validate.MissingTranslations(langs...))
	}
	return rules, nil
}

// Serve is the 'serve' command.
func Serve(c config.Config) {
	var db *sqlx.DB
	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)

	rules, err := Rules(c.Validation)
	checkFatal(err)

	s := New(db, c.DB.Driver, c.StringTable.ExportPath, rules)

	// Listen for packages to export to file
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)
	go s.ExportQueued(ds)

	rWithMiddleWares := handlers.CombinedLoggingHandler(os.Stdout, s.Router())

	fmt.Printf("Listening on port %v\n", c.Server.Port)
	checkFatal(http.ListenAndServe(fmt.Sprintf(":%v", c.Server.Port), rWithMiddleWares))
}
