package validate

import (
	"testing"

	"github.com/petert82/stringforge/stringtable"
)

func keys(ids ...string) []*stringtable.Key {
	out := make([]*stringtable.Key, len(ids))
	for i, id := range ids {
		out[i] = stringtable.NewKey(id)
	}
	return out
}

func TestDetectDuplicates(t *testing.T) {
	ks := keys("A", "B", "A")

	vs := DetectDuplicates(ks)
	if len(vs) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(vs))
	}
	v := vs[0]
	if v.Kind() != KindDuplicateKeyID {
		t.Fatalf("expected duplicate kind, got %s", v.Kind())
	}
	if v.Level() != Error {
		t.Fatalf("expected error level, got %s", v.Level())
	}
	if v.Message() != "Duplicate Key ID: A" {
		t.Fatalf("unexpected message %q", v.Message())
	}
	got := v.Keys()
	if len(got) != 2 || got[0] != ks[0] || got[1] != ks[2] {
		t.Fatalf("expected both A keys, got %v", got)
	}
}

func TestDetectDuplicatesNone(t *testing.T) {
	if vs := DetectDuplicates(keys("A", "B", "C")); len(vs) != 0 {
		t.Fatalf("expected no violations, got %d", len(vs))
	}
	if vs := DetectDuplicates(nil); len(vs) != 0 {
		t.Fatalf("expected no violations for no keys, got %d", len(vs))
	}
}

func TestDetectDuplicatesFirstOccurrenceOrder(t *testing.T) {
	vs := DetectDuplicates(keys("B", "A", "C", "A", "B", "B"))
	if len(vs) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(vs))
	}
	if vs[0].Message() != "Duplicate Key ID: B" || vs[1].Message() != "Duplicate Key ID: A" {
		t.Fatalf("expected B then A, got %q then %q", vs[0].Message(), vs[1].Message())
	}
	if len(vs[0].Keys()) != 3 {
		t.Fatalf("expected 3 B keys, got %d", len(vs[0].Keys()))
	}
}

func TestMissingTranslations(t *testing.T) {
	ks := keys("A", "B")
	ks[0].Set(stringtable.German, "ja")

	vs := MissingTranslations(stringtable.English, stringtable.German).Check(ks)

	want := []string{
		"Missing English text: A",
		"Missing English text: B",
		"Missing German text: B",
	}
	if len(vs) != len(want) {
		t.Fatalf("expected %d violations, got %d", len(want), len(vs))
	}
	for i, v := range vs {
		if v.Message() != want[i] {
			t.Fatalf("violation %d: expected %q, got %q", i, want[i], v.Message())
		}
		if v.Level() != Warning || v.Kind() != KindMissingTranslation {
			t.Fatalf("violation %d: unexpected level/kind %s/%s", i, v.Level(), v.Kind())
		}
	}
}

func TestValidateDefaultsToDuplicates(t *testing.T) {
	vs := Validate(keys("A", "A"))
	if len(vs) != 1 || vs[0].Kind() != KindDuplicateKeyID {
		t.Fatalf("expected one duplicate violation, got %v", vs)
	}
}

func TestValidateSortAndFilter(t *testing.T) {
	ks := keys("A", "A")
	vs := Validate(ks, MissingTranslations(stringtable.English), DuplicateKeyIDs)
	if len(vs) != 3 {
		t.Fatalf("expected 3 violations, got %d", len(vs))
	}
	if vs[0].Level() != Warning {
		t.Fatal("expected rules to run in the order given")
	}

	SortBySeverity(vs)
	if vs[0].Level() != Error {
		t.Fatalf("expected error first after sorting, got %s", vs[0].Level())
	}
	if vs[1].Keys()[0] != ks[0] || vs[2].Keys()[0] != ks[1] {
		t.Fatal("expected warnings to keep their relative order")
	}

	if errs := Filter(vs, Error); len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !HasErrors(vs) {
		t.Fatal("expected HasErrors to be true")
	}
	if HasErrors(Filter(vs, Info)[1:]) {
		t.Fatal("expected no errors among warnings")
	}
}

func TestLevelOrder(t *testing.T) {
	if !(Info < Warning && Warning < Error) {
		t.Fatal("expected Info < Warning < Error")
	}
	if Error.String() != "error" {
		t.Fatalf("expected error, got %s", Error)
	}
}
