package opc

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// Relationship type URIs (transitional namespace).
const (
	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelTypeExtendedProps  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	RelTypeWorksheet      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	RelTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelTypeSharedStrings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
	RelTypeHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// NSRelationships is the namespace of relationship ids used in part
// content (r:id attributes).
const NSRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

const nsPackageRels = "http://schemas.openxmlformats.org/package/2006/relationships"

// TargetModeExternal marks a relationship whose target lies outside the
// package, such as a hyperlink URL.
const TargetModeExternal = "External"

// Relationship is one entry in a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Kind returns the last path segment of the relationship type, e.g.
// "worksheet".  Transitional and strict type URIs share their kind.
func (r Relationship) Kind() string {
	return path.Base(r.Type)
}

type xmlRelationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	XMLNS         string         `xml:"xmlns,attr,omitempty"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationships is the content of one .rels part.
type Relationships struct {
	rels []Relationship
	byID map[string]int
	next int
}

// NewRelationships returns an empty set.
func NewRelationships() *Relationships {
	return &Relationships{byID: make(map[string]int), next: 1}
}

// DecodeRelationships parses the raw bytes of a .rels part.
func DecodeRelationships(data []byte) (*Relationships, error) {
	var x xmlRelationships
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("opc: parse rels XML: %w", err)
	}
	r := NewRelationships()
	for _, rel := range x.Relationships {
		r.add(rel)
	}
	return r, nil
}

func (r *Relationships) add(rel Relationship) {
	r.byID[rel.ID] = len(r.rels)
	r.rels = append(r.rels, rel)
	if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n >= r.next {
		r.next = n + 1
	}
}

// Add appends a relationship and returns its new id.
func (r *Relationships) Add(relType, target, mode string) string {
	id := "rId" + strconv.Itoa(r.next)
	r.add(Relationship{ID: id, Type: relType, Target: target, TargetMode: mode})
	return id
}

// Get returns the relationship with the given id.
func (r *Relationships) Get(id string) (Relationship, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Relationship{}, false
	}
	return r.rels[i], true
}

// FirstOfKind returns the first relationship whose Kind is kind.
func (r *Relationships) FirstOfKind(kind string) (Relationship, bool) {
	for _, rel := range r.rels {
		if rel.Kind() == kind {
			return rel, true
		}
	}
	return Relationship{}, false
}

// All returns the relationships in document order.
func (r *Relationships) All() []Relationship {
	out := make([]Relationship, len(r.rels))
	copy(out, r.rels)
	return out
}

// Len returns the number of relationships.
func (r *Relationships) Len() int { return len(r.rels) }

// Encode writes the set as a .rels document.
func (r *Relationships) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	x := xmlRelationships{XMLNS: nsPackageRels, Relationships: r.rels}
	if err := xml.NewEncoder(bw).Encode(&x); err != nil {
		return fmt.Errorf("opc: encode rels: %w", err)
	}
	return bw.Flush()
}

// RelsPath returns the name of the .rels part describing source, e.g.
// "xl/workbook.xml" -> "xl/_rels/workbook.xml.rels".  The empty source is
// the package itself.
func RelsPath(source string) string {
	source = strings.TrimPrefix(source, "/")
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves an internal relationship target against the part
// that declares it.  Absolute targets ("/xl/...") are taken from the package
// root; relative ones are joined to the source part's directory.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	dir := path.Dir(strings.TrimPrefix(source, "/"))
	return strings.TrimPrefix(path.Join(dir, target), "/")
}

// RelativeTarget is the inverse of ResolveTarget for parts in or below the
// source part's directory.
func RelativeTarget(source, part string) string {
	dir := path.Dir(strings.TrimPrefix(source, "/"))
	if dir == "." {
		return part
	}
	return strings.TrimPrefix(part, dir+"/")
}
