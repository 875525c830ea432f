package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/datastore"
	"github.com/petert82/stringforge/editor"
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/validate"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	cmdValidate = "validate"
	cmdFill     = "fill"
	cmdImport   = "import"
	cmdInitDb   = "init-db"
	cmdServe    = "serve"
)

// Commands that run without a config file, returning the process exit code.
var documentCommands = map[string]func() int{}

func registerDocumentCommands(app *kingpin.Application) {
	v := app.Command(cmdValidate, "Report problems in a stringtable document or a folder of documents.")
	vPath := v.Arg("path", "Document or folder to check").Required().String()
	vRecursive := v.Flag("recursive", "Check every stringtable.xml below the folder").Short('r').Bool()
	vStrict := v.Flag("strict", "Also fail on warnings").Bool()
	vRequire := v.Flag("require", "Language every key must have text for (repeatable)").Strings()
	documentCommands[cmdValidate] = func() int {
		opts := validateOptions{Recursive: *vRecursive, Strict: *vStrict, Require: *vRequire}
		failed, err := runValidate(*vPath, opts, os.Stdout)
		checkFatal(err)
		if failed {
			return 1
		}
		return 0
	}

	f := app.Command(cmdFill, "Fill missing texts from English or Original and save the documents.")
	fPath := f.Arg("path", "Document or folder to fill").Required().String()
	fRecursive := f.Flag("recursive", "Fill every stringtable.xml below the folder").Short('r').Bool()
	fDryRun := f.Flag("dry-run", "Report what would be filled without saving").Bool()
	documentCommands[cmdFill] = func() int {
		_, err := runFill(*fPath, *fRecursive, *fDryRun, os.Stdout)
		checkFatal(err)
		return 0
	}
}

func registerDatabaseCommands(app *kingpin.Application) {
	app.Command(cmdInitDb, "Create or migrate the database tables.")
	app.Command(cmdImport, "Import the string tables found in the configured import path.")
	app.Command(cmdServe, "Serve the JSON API.")
}

type validateOptions struct {
	Recursive bool
	// Strict fails on warnings as well as errors
	Strict  bool
	Require []string
}

// runValidate prints the violations found under path, most severe first, and
// reports whether any of them should fail the command.
func runValidate(path string, opts validateOptions, out io.Writer) (failed bool, err error) {
	rules := validate.DefaultRules()
	if len(opts.Require) > 0 {
		rules, err = requiredRules(opts.Require)
		if err != nil {
			return false, err
		}
	}

	ed := editor.New(editor.Options{Recursive: opts.Recursive, Rules: rules})
	project, err := ed.Open(path)
	if err != nil {
		return false, err
	}
	keys, err := ed.ExtractKeys(project)
	if err != nil {
		return false, err
	}

	vs := ed.Validate(keys)
	validate.SortBySeverity(vs)
	for _, v := range vs {
		fmt.Fprintf(out, "%-7s %s\n", v.Level(), v.Message())
	}
	fmt.Fprintf(out, "Checked %v keys in %v packages, found %v problems\n", len(keys), len(project.Packages), len(vs))

	failLevel := validate.Error
	if opts.Strict {
		failLevel = validate.Warning
	}
	return len(validate.Filter(vs, failLevel)) > 0, nil
}

func requiredRules(names []string) ([]validate.Rule, error) {
	langs := make([]stringtable.Language, len(names))
	for i, name := range names {
		l, err := stringtable.ParseLanguage(name)
		if err != nil {
			return nil, err
		}
		langs[i] = l
	}
	return append(validate.DefaultRules(), validate.MissingTranslations(langs...)), nil
}

// runFill fills missing texts under path and saves every document unless
// dryRun is set. Returns the number of texts filled.
func runFill(path string, recursive, dryRun bool, out io.Writer) (int, error) {
	ed := editor.New(editor.Options{Recursive: recursive})
	project, err := ed.Open(path)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, pkg := range project.Packages {
		keys, err := ed.ExtractKeys(pkg)
		if err != nil {
			return total, err
		}
		n := ed.FillMissing(keys)
		total += n
		fmt.Fprintf(out, "%v: filled %v texts\n", pkg.FileName, n)
	}

	if dryRun || total == 0 {
		return total, nil
	}
	return total, ed.SaveProject(project)
}

// initDb initializes the database with all necessary tables.
func initDb(c config.Config) {
	var db *sqlx.DB
	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	dbVersion, err := ds.MigrateUp()
	if err != nil {
		fmt.Println(err)
		checkFatal(errors.New(fmt.Sprintf("Could not complete database migration, last applied version was %v", dbVersion)))
	}

	fmt.Println("Successfully migrated the database to version", dbVersion)
}
