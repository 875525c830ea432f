package server

import (
	"github.com/petert82/stringforge/stringtable"
	"github.com/petert82/stringforge/validate"
)

// Package is the JSON view of a stored package and all its texts.
type Package struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Section    string      `json:"section,omitempty"`
	FileName   string      `json:"file_name"`
	Containers []Container `json:"containers"`
}

func NewPackage(id int64, p *stringtable.Package) *Package {
	out := &Package{
		ID:         id,
		Name:       p.Name,
		Section:    p.Section,
		FileName:   p.FileName,
		Containers: make([]Container, len(p.Containers)),
	}

	for i, c := range p.Containers {
		nc := Container{Name: c.Name, Keys: make([]Key, len(c.Keys))}
		for j, k := range c.Keys {
			nc.Keys[j] = NewKey(k)
		}
		out.Containers[i] = nc
	}

	return out
}

type Container struct {
	Name string `json:"name"`
	Keys []Key  `json:"keys"`
}

type Key struct {
	ID string `json:"id"`
	// Texts by language name, only languages with text are present.
	Texts map[string]string `json:"texts"`
}

func NewKey(k *stringtable.Key) Key {
	nk := Key{ID: k.ID, Texts: make(map[string]string)}
	for l, t := range k.Text {
		if t != "" {
			nk.Texts[l.String()] = t
		}
	}
	return nk
}

type Language struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

func NewLanguages(ls []stringtable.Language) []Language {
	out := make([]Language, len(ls))
	for i, l := range ls {
		out[i] = Language{Name: l.String(), Tag: l.Tag().String()}
	}
	return out
}

type Violation struct {
	Kind    validate.Kind `json:"kind"`
	Level   string        `json:"level"`
	Message string        `json:"message"`
	Keys    []string      `json:"keys"`
}

func NewViolations(vs []validate.Violation) []Violation {
	out := make([]Violation, len(vs))
	for i, v := range vs {
		keys := v.Keys()
		nv := Violation{Kind: v.Kind(), Level: v.Level().String(), Message: v.Message(), Keys: make([]string, len(keys))}
		for j, k := range keys {
			nv.Keys[j] = k.ID
		}
		out[i] = nv
	}
	return out
}
