// Package extractor turns election result pages into structured data.
//
// Parsers work against the small Document interface rather than a concrete
// HTML library; ParseHTML provides the goquery-backed implementation.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed page exposing its tables in document order.
type Document interface {
	Tables() []Table
}

// Table is a single <table> element, nested tables included.
type Table interface {
	// ID returns the id attribute, or "" when absent.
	ID() string
	// HeaderText returns the trimmed text of every header cell joined by spaces.
	HeaderText() string
	// Rows returns every row of the table, descending into nested tables.
	Rows() []Row
}

// Row is a single <tr> element.
type Row interface {
	// Cells returns the data cells (<td>) of the row.
	Cells() []Cell
}

// Cell is a single <td> element.
type Cell interface {
	// Text returns the trimmed text content.
	Text() string
	// Link returns the href of the first anchor in the cell. ok is false when
	// the cell holds no anchor at all.
	Link() (href string, ok bool)
}

// ParseHTML parses an HTML page.
func ParseHTML(htmlContent string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	return &gqDocument{doc: doc}, nil
}

type gqDocument struct {
	doc *goquery.Document
}

func (d *gqDocument) Tables() []Table {
	var tables []Table
	d.doc.Find("table").Each(func(i int, s *goquery.Selection) {
		tables = append(tables, gqTable{s})
	})
	return tables
}

type gqTable struct {
	s *goquery.Selection
}

func (t gqTable) ID() string {
	id, _ := t.s.Attr("id")
	return id
}

func (t gqTable) HeaderText() string {
	var parts []string
	t.s.Find("th").Each(func(i int, s *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(s.Text()))
	})
	return strings.Join(parts, " ")
}

func (t gqTable) Rows() []Row {
	var rows []Row
	t.s.Find("tr").Each(func(i int, s *goquery.Selection) {
		rows = append(rows, gqRow{s})
	})
	return rows
}

type gqRow struct {
	s *goquery.Selection
}

func (r gqRow) Cells() []Cell {
	var cells []Cell
	r.s.Find("td").Each(func(i int, s *goquery.Selection) {
		cells = append(cells, gqCell{s})
	})
	return cells
}

type gqCell struct {
	s *goquery.Selection
}

func (c gqCell) Text() string {
	return strings.TrimSpace(c.s.Text())
}

func (c gqCell) Link() (string, bool) {
	a := c.s.Find("a").First()
	if a.Length() == 0 {
		return "", false
	}
	href, _ := a.Attr("href")
	return strings.TrimSpace(href), true
}

// cellTexts returns the text of every cell in row.
func cellTexts(cells []Cell) []string {
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = c.Text()
	}
	return texts
}
