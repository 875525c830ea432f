/*
Package xmltable reads and writes string table documents.

A document looks like this:

	<?xml version="1.0" encoding="utf-8"?>
	<Project name="MyMod">
	    <Package name="Core">
	        <Container name="Weapons">
	            <Key ID="STR_MYMOD_RIFLE">
	                <Original>Rifle</Original>
	                <German>Gewehr</German>
	            </Key>
	        </Container>
	    </Package>
	</Project>

The Package wrapper is optional; containers may also sit directly under the
root. Each language element is optional, and an empty element is treated the
same as a missing one.
*/
package xmltable

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/petert82/stringforge/stringtable"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrMalformedDocument is returned when a document does not follow the
// string table schema.
var ErrMalformedDocument = errors.New("malformed string table document")

const indent = "    "

type xmlDocument struct {
	XMLName    xml.Name       `xml:"Project"`
	Name       string         `xml:"name,attr,omitempty"`
	Sections   []xmlSection   `xml:"Package"`
	Containers []xmlContainer `xml:"Container"`
	Unknown    []xmlElement   `xml:",any"`
}

type xmlSection struct {
	Name       string         `xml:"name,attr"`
	Containers []xmlContainer `xml:"Container"`
	Unknown    []xmlElement   `xml:",any"`
}

type xmlContainer struct {
	Name    string       `xml:"name,attr"`
	Keys    []xmlKey     `xml:"Key"`
	Unknown []xmlElement `xml:",any"`
}

type xmlKey struct {
	ID      string       `xml:"ID,attr"`
	LowerID string       `xml:"id,attr,omitempty"`
	Texts   []xmlElement `xml:",any"`
}

// xmlElement is any child element; for keys these are the language texts.
type xmlElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
	// Texts are plain; any element nested in one makes the document malformed.
	Inner []xmlElement `xml:",any"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}

// Decode reads one document from r. Nothing is returned unless the whole
// document is valid.
func Decode(r io.Reader) (*stringtable.Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// charsetReader lets documents declare any IANA registered encoding, such as
// windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// checkTrailing reads what follows the root element. Only whitespace,
// comments and processing instructions may come after it.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return malformed("%v", err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return malformed("text after the root element")
			}
		case xml.StartElement:
			return malformed("element <%s> after the root element", t.Name.Local)
		default:
			return malformed("unexpected content after the root element")
		}
	}
}

func decode(data []byte) (*stringtable.Package, error) {
	dec := xml.NewDecoder(bytes.NewReader(stripBOM(data)))
	dec.CharsetReader = charsetReader

	var doc xmlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("%v", err)
	}
	if err := checkTrailing(dec); err != nil {
		return nil, err
	}
	if len(doc.Unknown) > 0 {
		return nil, malformed("unexpected element <%s> in root", doc.Unknown[0].XMLName.Local)
	}

	pkg := &stringtable.Package{Name: doc.Name}
	containers := doc.Containers
	switch {
	case len(doc.Sections) > 1:
		return nil, malformed("found %d Package elements, at most one is supported", len(doc.Sections))
	case len(doc.Sections) == 1:
		if len(doc.Containers) > 0 {
			return nil, malformed("containers found both inside and outside the Package element")
		}
		section := doc.Sections[0]
		if len(section.Unknown) > 0 {
			return nil, malformed("unexpected element <%s> in package %q", section.Unknown[0].XMLName.Local, section.Name)
		}
		pkg.Section = section.Name
		containers = section.Containers
	}

	for _, xc := range containers {
		if len(xc.Unknown) > 0 {
			return nil, malformed("unexpected element <%s> in container %q", xc.Unknown[0].XMLName.Local, xc.Name)
		}
		c := &stringtable.Container{Name: xc.Name}
		for _, xk := range xc.Keys {
			k, err := decodeKey(xk)
			if err != nil {
				return nil, fmt.Errorf("container %q: %w", xc.Name, err)
			}
			c.AddKey(k)
		}
		pkg.AddContainer(c)
	}

	return pkg, nil
}

func decodeKey(xk xmlKey) (*stringtable.Key, error) {
	id := strings.TrimSpace(xk.ID)
	if id == "" {
		id = strings.TrimSpace(xk.LowerID)
	}
	if id == "" {
		return nil, malformed("key without an ID")
	}

	k := stringtable.NewKey(id)
	seen := make(map[stringtable.Language]bool, len(xk.Texts))
	for _, t := range xk.Texts {
		lang, ok := stringtable.LanguageByElement(t.XMLName.Local)
		if !ok {
			return nil, malformed("key %q: unknown language element <%s>", id, t.XMLName.Local)
		}
		if seen[lang] {
			return nil, malformed("key %q: language %s given twice", id, lang)
		}
		seen[lang] = true
		if len(t.Inner) > 0 {
			return nil, malformed("key %q: markup <%s> inside <%s>", id, t.Inner[0].XMLName.Local, t.XMLName.Local)
		}
		k.Set(lang, t.Value)
	}
	return k, nil
}

// Encode writes pkg to w as a document. Languages without text are omitted.
func Encode(w io.Writer, pkg *stringtable.Package) error {
	containers := make([]xmlContainer, len(pkg.Containers))
	for i, c := range pkg.Containers {
		xc := xmlContainer{Name: c.Name, Keys: make([]xmlKey, len(c.Keys))}
		for j, k := range c.Keys {
			xc.Keys[j] = encodeKey(k)
		}
		containers[i] = xc
	}

	doc := xmlDocument{Name: pkg.Name}
	if pkg.Section != "" {
		doc.Sections = []xmlSection{{Name: pkg.Section, Containers: containers}}
	} else {
		doc.Containers = containers
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", indent)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeKey(k *stringtable.Key) xmlKey {
	xk := xmlKey{ID: k.ID}
	for _, l := range stringtable.Languages() {
		if !k.Has(l) {
			continue
		}
		xk.Texts = append(xk.Texts, xmlElement{
			XMLName: xml.Name{Local: l.String()},
			Value:   k.Get(l),
		})
	}
	return xk
}
