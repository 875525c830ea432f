/*
A tool for checking and maintaining stringtable.xml localization files, and for keeping them in a
database that can be edited over a JSON API.

The validate and fill commands work directly on a document or a folder of documents. The import,
init-db and serve commands are controlled by a TOML config file, by default 'stringforge.toml' in
the working directory.

Available commands are:

  - validate: Reports duplicate key IDs (and missing texts with --require) in a file or folder.
  - fill: Fills missing texts from English, or from Original when English is missing, and saves.
  - init-db: Creates or migrates the database tables.
  - import: Imports the string tables found in the stringtable 'import_path' given in the config file.
  - serve: Starts an HTTP server providing a JSON API for accessing and modifying the stored tables.
  - help: Prints usage instructions
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/importer"
	"github.com/petert82/stringforge/server"
	"gopkg.in/alecthomas/kingpin.v2"
)

// go build -ldflags "-X main.version={version}"
var version = "dev"

var (
	app        = kingpin.New("stringforge", "Check, fill and serve stringtable.xml localization files.").Version(version)
	configPath = app.Flag("config", "Full path and file name to the config file").Default(filepath.FromSlash("./stringforge.toml")).String()
)

type Command interface {
	Run(config.Config)
}

type CommandFunc func(config.Config)

func (f CommandFunc) Run(c config.Config) {
	f(c)
}

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	registerDocumentCommands(app)
	registerDatabaseCommands(app)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Commands working on documents don't read the config file
	if f, ok := documentCommands[command]; ok {
		os.Exit(f())
	}

	var commandFunc Command
	switch command {
	case cmdImport:
		commandFunc = CommandFunc(importer.Import)
	case cmdInitDb:
		commandFunc = CommandFunc(initDb)
	case cmdServe:
		commandFunc = CommandFunc(server.Serve)
	default:
		app.Usage(os.Args[1:])
		os.Exit(2)
	}

	conf, err := config.Load(*configPath)
	checkFatal(err)

	commandFunc.Run(conf)
}
