package validate

import (
	"fmt"

	"github.com/petert82/stringforge/stringtable"
)

// DuplicateKeyViolation reports two or more keys with the same ID.
type DuplicateKeyViolation struct {
	keys []*stringtable.Key
}

func (v *DuplicateKeyViolation) Kind() Kind               { return KindDuplicateKeyID }
func (v *DuplicateKeyViolation) Level() Level             { return Error }
func (v *DuplicateKeyViolation) Keys() []*stringtable.Key { return v.keys }

func (v *DuplicateKeyViolation) Message() string {
	return fmt.Sprintf("Duplicate Key ID: %s", v.keys[0].ID)
}

// DetectDuplicates groups keys by ID and returns one DuplicateKeyViolation
// per ID used more than once, in the order each such ID first appears.
func DetectDuplicates(keys []*stringtable.Key) []Violation {
	groups := make(map[string][]*stringtable.Key)
	var order []string
	for _, k := range keys {
		if _, seen := groups[k.ID]; !seen {
			order = append(order, k.ID)
		}
		groups[k.ID] = append(groups[k.ID], k)
	}

	var out []Violation
	for _, id := range order {
		if g := groups[id]; len(g) > 1 {
			out = append(out, &DuplicateKeyViolation{keys: g})
		}
	}
	return out
}

// MissingTranslationViolation reports a key without text for a language.
type MissingTranslationViolation struct {
	key      *stringtable.Key
	Language stringtable.Language
}

func (v *MissingTranslationViolation) Kind() Kind               { return KindMissingTranslation }
func (v *MissingTranslationViolation) Level() Level             { return Warning }
func (v *MissingTranslationViolation) Keys() []*stringtable.Key { return []*stringtable.Key{v.key} }

func (v *MissingTranslationViolation) Message() string {
	return fmt.Sprintf("Missing %s text: %s", v.Language, v.key.ID)
}

// MissingTranslations returns a rule reporting every key lacking text in one
// of langs. Violations are ordered by key, then by language.
func MissingTranslations(langs ...stringtable.Language) Rule {
	return RuleFunc(func(keys []*stringtable.Key) []Violation {
		var out []Violation
		for _, k := range keys {
			for _, l := range langs {
				if !k.Has(l) {
					out = append(out, &MissingTranslationViolation{key: k, Language: l})
				}
			}
		}
		return out
	})
}
