// Package editor is the surface a user interface drives: opening and saving
// projects, picking keys out of a selection, validating and filling them.
//
// An Editor holds no project state. Operations on different projects may run
// on different goroutines; operations on the same project must not overlap.
package editor

import (
	"errors"
	"fmt"

	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/validate"
	"github.com/petert82/stringforge/xmltable"
)

// ErrSaveAsAmbiguous is returned by SaveProjectAs when the project does not
// hold exactly one package.
var ErrSaveAsAmbiguous = errors.New("save as needs a project with exactly one package")

// Options configures an Editor.
type Options struct {
	// FS is the filesystem documents live on. Defaults to the OS filesystem.
	FS xmltable.FS
	// Recursive makes OpenFolder collect every stringtable.xml below the
	// folder instead of every .xml file directly inside it.
	Recursive bool
	// Rules are run by Validate. Defaults to validate.DefaultRules.
	Rules []validate.Rule
}

// Editor opens, checks and saves string table projects.
type Editor struct {
	files     *xmltable.Files
	recursive bool
	rules     []validate.Rule
}

// New returns an Editor configured by opts. Zero Options give an editor on
// the OS filesystem running the default rules.
func New(opts Options) *Editor {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = validate.DefaultRules()
	}
	return &Editor{
		files:     xmltable.NewFiles(opts.FS),
		recursive: opts.Recursive,
		rules:     rules,
	}
}

// OpenDocument reads a single document into a one-package project.
func (e *Editor) OpenDocument(path string) (*stringtable.Project, error) {
	pkg, err := e.files.Parse(path)
	if err != nil {
		return nil, err
	}
	project := &stringtable.Project{}
	project.AddPackage(pkg)
	return project, nil
}

// OpenFolder reads every document in dir into one project.
func (e *Editor) OpenFolder(dir string) (*stringtable.Project, error) {
	if e.recursive {
		return e.files.AggregateTree(dir)
	}
	return e.files.AggregateFolder(dir)
}

// Open opens path as a folder when it is a directory and as a single
// document otherwise.
func (e *Editor) Open(path string) (*stringtable.Project, error) {
	info, err := e.files.FS.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return e.OpenFolder(path)
	}
	return e.OpenDocument(path)
}

// SaveProject writes every package that has a file name. Unsaved packages
// are skipped.
func (e *Editor) SaveProject(p *stringtable.Project) error {
	return e.files.SerializeProject(p)
}

// SaveProjectAs writes the project's only package to path and makes path its
// file name.
func (e *Editor) SaveProjectAs(p *stringtable.Project, path string) error {
	if p == nil || len(p.Packages) != 1 {
		return ErrSaveAsAmbiguous
	}
	pkg := p.Packages[0]
	if err := e.files.Serialize(pkg, path); err != nil {
		return fmt.Errorf("save as %s: %w", path, err)
	}
	pkg.FileName = path
	return nil
}

// ExtractKeys returns the keys under the selected tree node. Anything other
// than a project, package, container or key yields
// stringtable.ErrUnsupportedNode.
func (e *Editor) ExtractKeys(selected any) ([]*stringtable.Key, error) {
	n, ok := selected.(stringtable.Node)
	if !ok {
		return nil, fmt.Errorf("%T: %w", selected, stringtable.ErrUnsupportedNode)
	}
	return stringtable.ExtractKeys(n)
}

// Validate runs the editor's rules over keys.
func (e *Editor) Validate(keys []*stringtable.Key) []validate.Violation {
	return validate.Validate(keys, e.rules...)
}

// FillMissing backfills missing text on keys in place and returns how many
// texts were filled.
func (e *Editor) FillMissing(keys []*stringtable.Key) int {
	return stringtable.FillMissingInCollection(keys)
}
