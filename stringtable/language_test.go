package stringtable

import "testing"

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"German", German},
		{"german", German},
		{"Original", Original},
		{"Chinesesimp", Chinesesimp},
		{"de", German},
		{"de-AT", German},
		{"en-US", English},
		{"zh-Hans", Chinesesimp},
		{"zh-Hant", Chinese},
		{"pt-BR", Portuguese},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if err != nil {
			t.Fatalf("ParseLanguage(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLanguage(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseLanguageInvalid(t *testing.T) {
	if _, err := ParseLanguage("not a language"); err == nil {
		t.Fatal("expected error for invalid input")
	}
}

func TestLanguagesOrder(t *testing.T) {
	langs := Languages()
	if langs[0] != Original || langs[1] != English {
		t.Fatalf("expected Original then English first, got %v %v", langs[0], langs[1])
	}
	for _, l := range langs {
		got, ok := LanguageByElement(l.String())
		if !ok || got != l {
			t.Fatalf("expected %v to resolve from its element name", l)
		}
	}
}

func TestLanguageString(t *testing.T) {
	if German.String() != "German" {
		t.Fatalf("expected German, got %s", German)
	}
	if Language(99).Valid() {
		t.Fatal("expected out-of-range language to be invalid")
	}
	if German.Tag().String() != "de" {
		t.Fatalf("expected tag de, got %s", German.Tag())
	}
}
