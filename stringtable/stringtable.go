/*
Package stringtable holds the in-memory model of localization string tables.

A Project aggregates one or more Packages, each backed by one document. A
Package holds ordered Containers, and a Container holds ordered Keys. Each Key
maps a fixed set of languages to text. The model performs no change
notification; callers observe the plain structures themselves.
*/
package stringtable

import (
	"errors"
)

// ErrUnsupportedNode is returned when a traversal is handed something other
// than a Project, Package, Container or Key.
var ErrUnsupportedNode = errors.New("stringtable: unsupported node")

// Key is one translation identifier with its per-language text.
type Key struct {
	ID   string
	Text map[Language]string
}

// NewKey creates a Key with no text.
func NewKey(id string) *Key {
	return &Key{ID: id, Text: make(map[Language]string)}
}

// Get returns the text for l, or "" when there is none.
func (k *Key) Get(l Language) string {
	return k.Text[l]
}

// Set assigns the text for l. Setting "" removes the entry, since empty and
// absent text mean the same thing.
func (k *Key) Set(l Language, text string) {
	if text == "" {
		delete(k.Text, l)
		return
	}
	if k.Text == nil {
		k.Text = make(map[Language]string)
	}
	k.Text[l] = text
}

// Has reports whether the key carries non-empty text for l.
func (k *Key) Has(l Language) bool {
	return k.Text[l] != ""
}

// Container is a named, ordered group of keys.
type Container struct {
	Name string
	Keys []*Key

	// Parent is the package the container belongs to. It is a lookup
	// handle only; the package owns the container, not the reverse.
	Parent *Package
}

// AddKey appends k to the container.
func (c *Container) AddKey(k *Key) {
	c.Keys = append(c.Keys, k)
}

// Package is the in-memory form of one string table document.
type Package struct {
	// Name is the name attribute of the document root.
	Name string
	// Section is the name of the optional Package element wrapping the
	// containers. Empty when containers sit directly under the root.
	Section    string
	Containers []*Container
	// FileName is the path of the backing document, empty when unsaved.
	FileName string
}

// AddContainer appends c to the package and points it back at p.
func (p *Package) AddContainer(c *Container) {
	c.Parent = p
	p.Containers = append(p.Containers, c)
}

// Container returns the first container with the given name.
func (p *Package) Container(name string) (*Container, bool) {
	for _, c := range p.Containers {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Project is a set of packages opened together.
type Project struct {
	// Root is the folder the project was aggregated from, if any.
	Root     string
	Packages []*Package
}

// AddPackage appends p to the project.
func (pr *Project) AddPackage(p *Package) {
	pr.Packages = append(pr.Packages, p)
}

// Node is one of the four tree node kinds. The set is closed.
type Node interface {
	// Flatten returns every key reachable from the node in document order.
	Flatten() []*Key
	node()
}

func (k *Key) node()       {}
func (c *Container) node() {}
func (p *Package) node()   {}
func (pr *Project) node()  {}

func (k *Key) Flatten() []*Key {
	return []*Key{k}
}

func (c *Container) Flatten() []*Key {
	out := make([]*Key, len(c.Keys))
	copy(out, c.Keys)
	return out
}

func (p *Package) Flatten() []*Key {
	var out []*Key
	for _, c := range p.Containers {
		out = append(out, c.Keys...)
	}
	return out
}

func (pr *Project) Flatten() []*Key {
	var out []*Key
	for _, p := range pr.Packages {
		out = append(out, p.Flatten()...)
	}
	return out
}

// ExtractKeys returns the keys reachable from n, package then container then
// key, in document order. A nil node yields ErrUnsupportedNode.
func ExtractKeys(n Node) ([]*Key, error) {
	switch v := n.(type) {
	case *Project:
		if v == nil {
			return nil, ErrUnsupportedNode
		}
	case *Package:
		if v == nil {
			return nil, ErrUnsupportedNode
		}
	case *Container:
		if v == nil {
			return nil, ErrUnsupportedNode
		}
	case *Key:
		if v == nil {
			return nil, ErrUnsupportedNode
		}
	default:
		return nil, ErrUnsupportedNode
	}
	return n.Flatten(), nil
}
