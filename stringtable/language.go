package stringtable

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the fixed set of languages a string table can carry.
// The declaration order is the order languages are written to a document.
type Language int

const (
	Original Language = iota
	English
	Czech
	French
	Spanish
	Italian
	Polish
	Portuguese
	Russian
	German
	Korean
	Japanese
	Chinese
	Chinesesimp
	Turkish
	Swedish
	Slovak
	SerboCroatian
	Norwegian
	Icelandic
	Hungarian
	Greek
	Finnish
	Dutch

	languageCount
)

var languageInfo = [languageCount]struct {
	name string
	tag  language.Tag
}{
	Original:      {"Original", language.Und},
	English:       {"English", language.English},
	Czech:         {"Czech", language.Czech},
	French:        {"French", language.French},
	Spanish:       {"Spanish", language.Spanish},
	Italian:       {"Italian", language.Italian},
	Polish:        {"Polish", language.Polish},
	Portuguese:    {"Portuguese", language.Portuguese},
	Russian:       {"Russian", language.Russian},
	German:        {"German", language.German},
	Korean:        {"Korean", language.Korean},
	Japanese:      {"Japanese", language.Japanese},
	Chinese:       {"Chinese", language.TraditionalChinese},
	Chinesesimp:   {"Chinesesimp", language.SimplifiedChinese},
	Turkish:       {"Turkish", language.Turkish},
	Swedish:       {"Swedish", language.Swedish},
	Slovak:        {"Slovak", language.Slovak},
	SerboCroatian: {"SerboCroatian", language.SerbianLatin},
	Norwegian:     {"Norwegian", language.Norwegian},
	Icelandic:     {"Icelandic", language.Icelandic},
	Hungarian:     {"Hungarian", language.Hungarian},
	Greek:         {"Greek", language.Greek},
	Finnish:       {"Finnish", language.Finnish},
	Dutch:         {"Dutch", language.Dutch},
}

// Matcher over every language except Original, which has no tag.
var (
	matchable = Languages()[1:]
	matcher   = newMatcher(matchable)
)

func newMatcher(langs []Language) language.Matcher {
	tags := make([]language.Tag, len(langs))
	for i, l := range langs {
		tags[i] = l.Tag()
	}
	return language.NewMatcher(tags)
}

// Languages returns every supported language in document order.
func Languages() []Language {
	out := make([]Language, languageCount)
	for i := range out {
		out[i] = Language(i)
	}
	return out
}

// Valid reports whether l is a member of the enumeration.
func (l Language) Valid() bool {
	return l >= 0 && l < languageCount
}

// String returns the XML element name used for the language.
func (l Language) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return languageInfo[l].name
}

// Tag returns the BCP 47 tag of the language. Original has no language of
// its own and reports language.Und.
func (l Language) Tag() language.Tag {
	if !l.Valid() {
		return language.Und
	}
	return languageInfo[l].tag
}

// ParseLanguage resolves an element name ("German", case-insensitive) or a
// BCP 47 tag ("de", "de-AT", "zh-Hans") to a Language.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for i := range languageInfo {
		if strings.EqualFold(languageInfo[i].name, s) {
			return Language(i), nil
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("unknown language %q", s)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return 0, fmt.Errorf("unsupported language %q", s)
	}
	return matchable[idx], nil
}

// LanguageByElement resolves an exact XML element name to its Language.
func LanguageByElement(name string) (Language, bool) {
	for i := range languageInfo {
		if languageInfo[i].name == name {
			return Language(i), true
		}
	}
	return 0, false
}
