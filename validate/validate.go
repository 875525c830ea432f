// Package validate finds data quality problems in string table keys.
//
// Each check is a Rule that turns a flat list of keys into Violations. New
// checks only need to implement Rule; the traversal that produces the keys
// and the consumers of the violations stay the same.
package validate

import (
	"fmt"
	"sort"

	"github.com/petert82/stringforge/stringtable"
)

// Level is the severity of a violation. Levels are ordered, Info being the
// least severe.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Kind identifies the rule that produced a violation.
type Kind string

const (
	KindDuplicateKeyID     Kind = "duplicate_key_id"
	KindMissingTranslation Kind = "missing_translation"
)

// Violation is a single problem found by a rule.
type Violation interface {
	Kind() Kind
	Level() Level
	Message() string
	// Keys returns the keys involved in the violation.
	Keys() []*stringtable.Key
}

// Rule checks a list of keys.
type Rule interface {
	Check(keys []*stringtable.Key) []Violation
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(keys []*stringtable.Key) []Violation

func (f RuleFunc) Check(keys []*stringtable.Key) []Violation {
	return f(keys)
}

// DuplicateKeyIDs reports keys sharing an ID.
var DuplicateKeyIDs Rule = RuleFunc(DetectDuplicates)

// DefaultRules is what Validate runs when no rules are given.
func DefaultRules() []Rule {
	return []Rule{DuplicateKeyIDs}
}

// Validate runs rules over keys in order and returns all violations found.
// With no rules it runs DefaultRules.
func Validate(keys []*stringtable.Key, rules ...Rule) []Violation {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	var out []Violation
	for _, r := range rules {
		out = append(out, r.Check(keys)...)
	}
	return out
}

// Filter returns the violations at or above level.
func Filter(vs []Violation, level Level) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Level() >= level {
			out = append(out, v)
		}
	}
	return out
}

// SortBySeverity sorts vs most severe first, keeping the order of violations
// with the same level.
func SortBySeverity(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Level() > vs[j].Level()
	})
}

// HasErrors reports whether any violation is at Error level.
func HasErrors(vs []Violation) bool {
	return len(Filter(vs, Error)) > 0
}
