package ooxml

import (
	"encoding/xml"
	"strings"
)

const (
	nsMain     = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsCoreProp = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDC       = "http://purl.org/dc/elements/1.1/"
	nsDCTerms  = "http://purl.org/dc/terms/"
	nsDCMIType = "http://purl.org/dc/dcmitype/"
	nsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
	nsExtProp  = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
)

// ── xl/workbook.xml ───────────────────────────────────────────────────────────
//
// Write-side structs spell prefixed names literally ("r:id").  Read-side
// structs use bare local names, which encoding/xml matches in any namespace,
// so strict-conformance files are read too.

type xmlWorkbookOut struct {
	XMLName    xml.Name      `xml:"workbook"`
	XMLNS      string        `xml:"xmlns,attr"`
	XMLNSR     string        `xml:"xmlns:r,attr"`
	WorkbookPr xmlWorkbookPr `xml:"workbookPr"`
	BookViews  xmlBookViews  `xml:"bookViews"`
	Sheets     []xmlSheetOut `xml:"sheets>sheet"`
	CalcPr     *xmlCalcPr    `xml:"calcPr"`
}

type xmlWorkbookPr struct {
	Date1904 bool `xml:"date1904,attr,omitempty"`
}

type xmlBookViews struct {
	WorkbookView struct {
		ActiveTab int `xml:"activeTab,attr"`
	} `xml:"workbookView"`
}

type xmlCalcPr struct {
	CalcID int `xml:"calcId,attr"`
}

type xmlSheetOut struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	State   string `xml:"state,attr,omitempty"`
	RID     string `xml:"r:id,attr"`
}

type xmlWorkbookIn struct {
	WorkbookPr *struct {
		Date1904 string `xml:"date1904,attr"`
	} `xml:"workbookPr"`
	Sheets []struct {
		Name  string `xml:"name,attr"`
		State string `xml:"state,attr"`
		RID   string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

// ── worksheet parts ───────────────────────────────────────────────────────────

// xmlRow and xmlCell serve both directions.
type xmlRow struct {
	XMLName      xml.Name  `xml:"row"`
	R            int       `xml:"r,attr,omitempty"`
	S            int       `xml:"s,attr,omitempty"`
	CustomFormat bool      `xml:"customFormat,attr,omitempty"`
	Ht           float64   `xml:"ht,attr,omitempty"`
	CustomHeight bool      `xml:"customHeight,attr,omitempty"`
	C            []xmlCell `xml:"c"`
}

type xmlCell struct {
	R  string      `xml:"r,attr,omitempty"`
	S  int         `xml:"s,attr,omitempty"`
	T  string      `xml:"t,attr,omitempty"`
	F  *xmlFormula `xml:"f"`
	V  *string     `xml:"v"`
	Is *xmlInline  `xml:"is"`
}

type xmlFormula struct {
	T    string `xml:"t,attr,omitempty"`
	Ref  string `xml:"ref,attr,omitempty"`
	Si   string `xml:"si,attr,omitempty"`
	Expr string `xml:",chardata"`
}

type xmlInline struct {
	T *string `xml:"t"`
	R []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (is *xmlInline) text() string {
	var b strings.Builder
	if is.T != nil {
		b.WriteString(*is.T)
	}
	for _, r := range is.R {
		b.WriteString(r.T)
	}
	return b.String()
}

type xmlCols struct {
	XMLName xml.Name `xml:"cols"`
	Cols    []xmlCol `xml:"col"`
}

type xmlCol struct {
	Min         int     `xml:"min,attr"`
	Max         int     `xml:"max,attr"`
	Width       float64 `xml:"width,attr,omitempty"`
	Style       *int    `xml:"style,attr"`
	CustomWidth bool    `xml:"customWidth,attr,omitempty"`
}

type xmlMergeCells struct {
	XMLName xml.Name `xml:"mergeCells"`
	Count   int      `xml:"count,attr"`
	Cells   []struct {
		Ref string `xml:"ref,attr"`
	} `xml:"mergeCell"`
}

type xmlHyperlinksOut struct {
	XMLName xml.Name          `xml:"hyperlinks"`
	Links   []xmlHyperlinkOut `xml:"hyperlink"`
}

type xmlHyperlinkOut struct {
	Ref      string `xml:"ref,attr"`
	RID      string `xml:"r:id,attr,omitempty"`
	Location string `xml:"location,attr,omitempty"`
}

type xmlHyperlinkIn struct {
	Ref      string `xml:"ref,attr"`
	RID      string `xml:"id,attr"`
	Location string `xml:"location,attr"`
}

type xmlPageMargins struct {
	XMLName xml.Name `xml:"pageMargins"`
	Left    float64  `xml:"left,attr"`
	Right   float64  `xml:"right,attr"`
	Top     float64  `xml:"top,attr"`
	Bottom  float64  `xml:"bottom,attr"`
	Header  float64  `xml:"header,attr"`
	Footer  float64  `xml:"footer,attr"`
}

// ── docProps ──────────────────────────────────────────────────────────────────

type xmlW3CDTF struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

type xmlCorePropsOut struct {
	XMLName        xml.Name   `xml:"cp:coreProperties"`
	XMLNSCP        string     `xml:"xmlns:cp,attr"`
	XMLNSDC        string     `xml:"xmlns:dc,attr"`
	XMLNSDCTerms   string     `xml:"xmlns:dcterms,attr"`
	XMLNSDCMIType  string     `xml:"xmlns:dcmitype,attr"`
	XMLNSXSI       string     `xml:"xmlns:xsi,attr"`
	Title          string     `xml:"dc:title,omitempty"`
	Subject        string     `xml:"dc:subject,omitempty"`
	Creator        string     `xml:"dc:creator,omitempty"`
	LastModifiedBy string     `xml:"cp:lastModifiedBy,omitempty"`
	Created        *xmlW3CDTF `xml:"dcterms:created"`
	Modified       *xmlW3CDTF `xml:"dcterms:modified"`
}

type xmlCorePropsIn struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

type xmlAppProps struct {
	XMLName     xml.Name `xml:"Properties"`
	XMLNS       string   `xml:"xmlns,attr"`
	Application string   `xml:"Application"`
	DocSecurity int      `xml:"DocSecurity"`
	ScaleCrop   bool     `xml:"ScaleCrop"`
}
