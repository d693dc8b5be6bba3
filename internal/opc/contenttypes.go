package opc

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
)

// ContentTypesPart is the fixed name of the content-types part.
const ContentTypesPart = "[Content_Types].xml"

// Content types of the parts written by this module.
const (
	ContentTypeRels          = "application/vnd.openxmlformats-package.relationships+xml"
	ContentTypeXML           = "application/xml"
	ContentTypeWorkbook      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ContentTypeWorksheet     = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ContentTypeStyles        = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ContentTypeSharedStrings = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	ContentTypeCoreProps     = "application/vnd.openxmlformats-package.core-properties+xml"
	ContentTypeExtendedProps = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

const nsContentTypes = "http://schemas.openxmlformats.org/package/2006/content-types"

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlTypes struct {
	XMLName   xml.Name      `xml:"Types"`
	XMLNS     string        `xml:"xmlns,attr,omitempty"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

// ContentTypes is the content of [Content_Types].xml.
type ContentTypes struct {
	types xmlTypes
}

// NewContentTypes returns a set with the rels and xml defaults.
func NewContentTypes() *ContentTypes {
	c := &ContentTypes{types: xmlTypes{XMLNS: nsContentTypes}}
	c.AddDefault("rels", ContentTypeRels)
	c.AddDefault("xml", ContentTypeXML)
	return c
}

// DecodeContentTypes parses a content-types part.
func DecodeContentTypes(data []byte) (*ContentTypes, error) {
	c := &ContentTypes{}
	if err := xml.Unmarshal(data, &c.types); err != nil {
		return nil, fmt.Errorf("opc: parse content types: %w", err)
	}
	return c, nil
}

// AddDefault maps a file extension to a content type.
func (c *ContentTypes) AddDefault(ext, contentType string) {
	c.types.Defaults = append(c.types.Defaults, xmlDefault{Extension: ext, ContentType: contentType})
}

// AddOverride maps a single part to a content type.
func (c *ContentTypes) AddOverride(part, contentType string) {
	if part != "" && part[0] != '/' {
		part = "/" + part
	}
	c.types.Overrides = append(c.types.Overrides, xmlOverride{PartName: part, ContentType: contentType})
}

// Override returns the content type declared for part, if any.
func (c *ContentTypes) Override(part string) (string, bool) {
	key := normalize(part)
	for _, o := range c.types.Overrides {
		if normalize(o.PartName) == key {
			return o.ContentType, true
		}
	}
	return "", false
}

// Encode writes the set as [Content_Types].xml.
func (c *ContentTypes) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	if err := xml.NewEncoder(bw).Encode(&c.types); err != nil {
		return fmt.Errorf("opc: encode content types: %w", err)
	}
	return bw.Flush()
}
