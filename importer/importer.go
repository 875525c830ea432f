// Package importer loads the string tables found under the configured import
// path into the datastore.
package importer

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/petert82/stringforge/config"
	"github.com/petert82/stringforge/datastore"
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/xmltable"
)

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Load aggregates the documents under c.StringTable.ImportPath.
func Load(c config.StringTableConfig) (*stringtable.Project, error) {
	if c.Recursive {
		return xmltable.AggregateTree(c.ImportPath)
	}
	return xmltable.AggregateFolder(c.ImportPath)
}

// Run imports every document under the import path into ds, printing each
// imported package to out. Returns the number of packages imported.
func Run(c config.StringTableConfig, ds *datastore.DataStore, out io.Writer) (int, error) {
	project, err := Load(c)
	if err != nil {
		return 0, err
	}

	results := make(chan string, 100)
	done := make(chan struct{})
	go func() {
		for imported := range results {
			fmt.Fprintln(out, "Imported package:", imported)
		}
		close(done)
	}()

	count, err := ds.ImportProject(project, results)
	close(results)
	<-done

	return count, err
}

// Import is the 'import' command.
func Import(c config.Config) {
	start := time.Now()

	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)
	defer db.Close()
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	count, err := Run(c.StringTable, ds, os.Stdout)
	checkFatal(err)

	elapsed := time.Since(start).Seconds()
	fmt.Printf("Imported %v packages in %fs\n\n", count, elapsed)

	fmt.Fprintln(os.Stderr, ds.Stats)
}
