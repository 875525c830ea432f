package xmltable

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petert82/stringforge/stringtable"
)

const (
	// Ext is the extension of documents picked up by AggregateFolder.
	Ext = ".xml"
	// TreeFileName is the document name AggregateTree looks for.
	TreeFileName = "stringtable.xml"
)

// ErrNotADirectory is returned when a folder operation is given a path that
// is not a directory.
var ErrNotADirectory = errors.New("not a directory")

// FS is the filesystem the documents are read from and written to.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// OSFS is the operating system filesystem. Writes go to a temporary file in
// the target directory which is then renamed over the target, so a failed
// write never leaves a truncated document behind. A replaced file keeps its
// permissions; new files are created 0644.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }

func (OSFS) WriteFile(name string, data []byte) (err error) {
	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(name); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

// Files reads and writes documents on an FS.
type Files struct {
	FS FS
}

// NewFiles returns Files backed by fsys, or by the OS filesystem when fsys is
// nil.
func NewFiles(fsys FS) *Files {
	if fsys == nil {
		fsys = OSFS{}
	}
	return &Files{FS: fsys}
}

var defaultFiles = NewFiles(nil)

// Parse reads the document at path. See Files.Parse.
func Parse(path string) (*stringtable.Package, error) { return defaultFiles.Parse(path) }

// AggregateFolder reads every document in dir. See Files.AggregateFolder.
func AggregateFolder(dir string) (*stringtable.Project, error) {
	return defaultFiles.AggregateFolder(dir)
}

// AggregateTree reads every stringtable.xml below dir. See Files.AggregateTree.
func AggregateTree(dir string) (*stringtable.Project, error) { return defaultFiles.AggregateTree(dir) }

// Serialize writes pkg to path. See Files.Serialize.
func Serialize(pkg *stringtable.Package, path string) error {
	return defaultFiles.Serialize(pkg, path)
}

// SerializeProject writes every saved package of p. See Files.SerializeProject.
func SerializeProject(p *stringtable.Project) error { return defaultFiles.SerializeProject(p) }

// Parse reads the document at path into a Package whose FileName is path.
// Errors opening the file are returned unchanged; schema violations wrap
// ErrMalformedDocument.
func (f *Files) Parse(path string) (*stringtable.Package, error) {
	data, err := f.FS.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pkg, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pkg.FileName = path

	return pkg, nil
}

func (f *Files) checkDir(dir string) error {
	info, err := f.FS.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}
	return nil
}

// AggregateFolder parses every file in dir with the Ext extension into one
// Project, one Package per file. Subdirectories are not searched. Files are
// read in file name order rather than whatever order the directory listing
// returns, so the same folder always produces the same project. An empty
// folder yields a Project with no packages.
func (f *Files) AggregateFolder(dir string) (*stringtable.Project, error) {
	if err := f.checkDir(dir); err != nil {
		return nil, err
	}

	entries, err := f.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	return f.parseAll(dir, paths)
}

// AggregateTree walks dir recursively and parses every file named
// TreeFileName (in any case), ordered by path relative to dir. This matches
// mods that keep one string table per addon folder.
func (f *Files) AggregateTree(dir string) (*stringtable.Project, error) {
	if err := f.checkDir(dir); err != nil {
		return nil, err
	}

	var rels []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := f.FS.ReadDir(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		for _, e := range entries {
			child := path.Join(rel, e.Name())
			if e.IsDir() {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if strings.EqualFold(e.Name(), TreeFileName) {
				rels = append(rels, child)
			}
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	sort.Strings(rels)

	paths := make([]string, len(rels))
	for i, rel := range rels {
		paths[i] = filepath.Join(dir, filepath.FromSlash(rel))
	}

	return f.parseAll(dir, paths)
}

func (f *Files) parseAll(root string, paths []string) (*stringtable.Project, error) {
	project := &stringtable.Project{Root: root}
	for _, p := range paths {
		pkg, err := f.Parse(p)
		if err != nil {
			return nil, err
		}
		project.AddPackage(pkg)
	}
	return project, nil
}

// Serialize writes pkg to path. The package's FileName is not changed.
func (f *Files) Serialize(pkg *stringtable.Package, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, pkg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.FS.WriteFile(path, buf.Bytes())
}

// SerializeProject writes every package of p back to its FileName. Packages
// that have never been saved have no FileName and are skipped.
//
// Every package is encoded before any file is written, so an encoding error
// leaves all files untouched. Writes stop at the first failure; files written
// before it keep their new content.
func (f *Files) SerializeProject(p *stringtable.Project) error {
	type pending struct {
		path string
		data []byte
	}
	var writes []pending
	for _, pkg := range p.Packages {
		if strings.TrimSpace(pkg.FileName) == "" {
			continue
		}
		var buf bytes.Buffer
		if err := Encode(&buf, pkg); err != nil {
			return fmt.Errorf("encode %s: %w", pkg.FileName, err)
		}
		writes = append(writes, pending{path: pkg.FileName, data: buf.Bytes()})
	}

	for _, w := range writes {
		if err := f.FS.WriteFile(w.path, w.data); err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
	}
	return nil
}
