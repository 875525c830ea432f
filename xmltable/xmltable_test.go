package xmltable

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/petert82/stringforge/stringtable"
)

const sampleDoc = `<?xml version="1.0" encoding="utf-8"?>
<Project name="Sample">
	<Package name="Core">
		<Container name="Weapons">
			<Key ID="STR_RIFLE">
				<Original>Rifle</Original>
				<German>Gewehr</German>
			</Key>
			<Key ID="STR_PISTOL">
				<English>Pistol</English>
				<French></French>
			</Key>
		</Container>
		<Container name="Vehicles">
			<Key ID="STR_TRUCK">
				<Original>Truck</Original>
			</Key>
		</Container>
	</Package>
</Project>
`

func mustDecode(t *testing.T, doc string) *stringtable.Package {
	t.Helper()
	pkg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return pkg
}

func TestDecode(t *testing.T) {
	pkg := mustDecode(t, sampleDoc)

	if pkg.Name != "Sample" || pkg.Section != "Core" {
		t.Fatalf("expected Sample/Core, got %q/%q", pkg.Name, pkg.Section)
	}
	if len(pkg.Containers) != 2 {
		t.Fatalf("expected 2 containers, got %d", len(pkg.Containers))
	}
	weapons := pkg.Containers[0]
	if weapons.Name != "Weapons" || weapons.Parent != pkg {
		t.Fatalf("unexpected first container %q", weapons.Name)
	}
	if ids := []string{weapons.Keys[0].ID, weapons.Keys[1].ID}; ids[0] != "STR_RIFLE" || ids[1] != "STR_PISTOL" {
		t.Fatalf("unexpected key order %v", ids)
	}
	if got := weapons.Keys[0].Get(stringtable.German); got != "Gewehr" {
		t.Fatalf("expected Gewehr, got %q", got)
	}
	if weapons.Keys[1].Has(stringtable.French) {
		t.Fatal("expected empty French element to count as no text")
	}
}

func TestDecodeWithoutSection(t *testing.T) {
	pkg := mustDecode(t, `<Project name="Flat"><Container name="A"><Key id="STR_A"><English>a</English></Key></Container></Project>`)
	if pkg.Section != "" {
		t.Fatalf("expected no section, got %q", pkg.Section)
	}
	if got := pkg.Containers[0].Keys[0].ID; got != "STR_A" {
		t.Fatalf("expected lower-case id attribute to be read, got %q", got)
	}
}

func TestDecodeEmptyRoot(t *testing.T) {
	pkg := mustDecode(t, `<Project name="Empty"/>`)
	if len(pkg.Containers) != 0 {
		t.Fatalf("expected no containers, got %d", len(pkg.Containers))
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"not xml":          `this is not xml`,
		"wrong root":       `<Strings><Container name="a"/></Strings>`,
		"missing id":       `<Project><Container name="a"><Key><English>x</English></Key></Container></Project>`,
		"unknown language": `<Project><Container name="a"><Key ID="k"><Klingon>x</Klingon></Key></Container></Project>`,
		"duplicate lang":   `<Project><Container name="a"><Key ID="k"><English>x</English><English>y</English></Key></Container></Project>`,
		"unknown element":  `<Project><Container name="a"><Entry/></Container></Project>`,
		"two sections":     `<Project><Package name="a"/><Package name="b"/></Project>`,
		"mixed layout":     `<Project><Package name="a"/><Container name="b"/></Project>`,
		"truncated":        `<Project><Container name="a"><Key ID="k">`,
		"markup in text":   `<Project><Container name="a"><Key ID="k"><English>Line one<br/>Line two</English></Key></Container></Project>`,
		"empty then text":  `<Project><Container name="a"><Key ID="k"><German></German><German>X</German></Key></Container></Project>`,
		"second root":      `<Project><Container name="c"/></Project><Project><Container name="d"/></Project>`,
		"trailing element": `<Project><Container name="c"/></Project><Container name="d"/>`,
		"trailing text":    `<Project/>leftover`,
		"bad encoding":     `<?xml version="1.0" encoding="no-such-charset"?><Project/>`,
	}
	for name, doc := range tests {
		pkg, err := Decode(strings.NewReader(doc))
		if !errors.Is(err, ErrMalformedDocument) {
			t.Fatalf("%s: expected ErrMalformedDocument, got %v", name, err)
		}
		if pkg != nil {
			t.Fatalf("%s: expected no package on error", name)
		}
	}
}

func TestDecodeAllowsTrailingComments(t *testing.T) {
	pkg := mustDecode(t, "<Project name=\"P\"><Container name=\"c\"/></Project>\n<!-- generated -->\n<?editor state=\"saved\"?>\n")
	if len(pkg.Containers) != 1 {
		t.Fatalf("expected 1 container, got %d", len(pkg.Containers))
	}
}

func TestDecodeDeclaredEncoding(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"windows-1252\"?>\n" +
		"<Project><Container name=\"a\"><Key ID=\"STR_CAFE\"><French>Caf\xe9</French></Key></Container></Project>"
	pkg := mustDecode(t, doc)
	if got := pkg.Containers[0].Keys[0].Get(stringtable.French); got != "Café" {
		t.Fatalf("expected windows-1252 text to be decoded, got %q", got)
	}
}

func TestEncodeOmitsEmptyLanguages(t *testing.T) {
	k := stringtable.NewKey("STR_A")
	k.Set(stringtable.German, "Hallo")
	k.Set(stringtable.Original, "Hello")
	k.Text[stringtable.French] = ""
	c := &stringtable.Container{Name: "Main"}
	c.AddKey(k)
	pkg := &stringtable.Package{Name: "Test"}
	pkg.AddContainer(c)

	var buf bytes.Buffer
	if err := Encode(&buf, pkg); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "<French>") {
		t.Fatalf("expected empty French text to be omitted:\n%s", out)
	}
	if strings.Contains(out, "<Package") {
		t.Fatalf("expected no Package wrapper without a section:\n%s", out)
	}
	orig := strings.Index(out, "<Original>")
	german := strings.Index(out, "<German>")
	if orig < 0 || german < 0 || orig > german {
		t.Fatalf("expected Original before German:\n%s", out)
	}
	if !strings.Contains(out, `<Key ID="STR_A">`) || !strings.Contains(out, `<Container name="Main">`) {
		t.Fatalf("expected ID and name attributes:\n%s", out)
	}
}

func TestRoundTrip(t *testing.T) {
	first := mustDecode(t, sampleDoc)

	var once bytes.Buffer
	if err := Encode(&once, first); err != nil {
		t.Fatalf("encode: %v", err)
	}
	second := mustDecode(t, once.String())

	var twice bytes.Buffer
	if err := Encode(&twice, second); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if once.String() != twice.String() {
		t.Fatalf("expected stable output:\n%s\n---\n%s", once.String(), twice.String())
	}

	if second.Section != first.Section || len(second.Containers) != len(first.Containers) {
		t.Fatal("expected package structure to survive the round trip")
	}
	for i, c := range first.Containers {
		c2 := second.Containers[i]
		if c.Name != c2.Name || len(c.Keys) != len(c2.Keys) {
			t.Fatalf("container %d differs", i)
		}
		for j, k := range c.Keys {
			k2 := c2.Keys[j]
			if k.ID != k2.ID {
				t.Fatalf("key %d/%d: expected %q, got %q", i, j, k.ID, k2.ID)
			}
			for _, l := range stringtable.Languages() {
				if k.Get(l) != k2.Get(l) {
					t.Fatalf("key %s: %s differs", k.ID, l)
				}
			}
		}
	}
}

func TestRoundTripSpecialCharacters(t *testing.T) {
	k := stringtable.NewKey("STR_ESC")
	k.Set(stringtable.English, `Say "hi" & <wave>`+"\nbye")
	c := &stringtable.Container{Name: "a"}
	c.AddKey(k)
	pkg := &stringtable.Package{}
	pkg.AddContainer(c)

	var buf bytes.Buffer
	if err := Encode(&buf, pkg); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := mustDecode(t, buf.String())
	if text := got.Containers[0].Keys[0].Get(stringtable.English); text != k.Get(stringtable.English) {
		t.Fatalf("expected %q, got %q", k.Get(stringtable.English), text)
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	doc := "\xEF\xBB\xBF" + `<Project name="bom"/>`
	if pkg := mustDecode(t, doc); pkg.Name != "bom" {
		t.Fatalf("expected name bom, got %q", pkg.Name)
	}
}
