package schedule

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TablePolicy decides what happens when the document has more tables than
// there are day labels. Fewer tables is always a ParseError.
type TablePolicy int

const (
	TablePolicyStrict TablePolicy = iota
	TablePolicyIgnoreExtra
)

// cellsPerRow is the number of source columns:
// time range, title, description, venue, category.
const cellsPerRow = 5

// RawRow is one data row of a day table, before normalization.
type RawRow struct {
	TimeRange   string
	Title       string
	Description string
	Venue       string
	Category    string
	Day         string

	// Table and Row locate the row in the document (0-based; Row counts the
	// header).
	Table int
	Row   int
}

// ParseError reports a document whose structure does not match the
// one-table-per-day layout.
type ParseError struct {
	Table int // -1 for document-level problems
	Row   int
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Table < 0 {
		return "parse schedule: " + e.Msg
	}
	return fmt.Sprintf("parse schedule: table %d row %d: %s", e.Table, e.Row, e.Msg)
}

// Extract walks the tables of markup in document order and assigns the Nth
// table to days[N]. The first row of each table is a header and is skipped.
func Extract(markup []byte, days []string, policy TablePolicy) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Table: -1, Msg: err.Error()}
	}

	tables := doc.Find("table")
	n := tables.Length()
	switch {
	case n < len(days):
		return nil, &ParseError{Table: -1, Msg: fmt.Sprintf("found %d tables, want %d (one per day)", n, len(days))}
	case n > len(days) && policy == TablePolicyStrict:
		return nil, &ParseError{Table: -1, Msg: fmt.Sprintf("found %d tables, only %d days configured", n, len(days))}
	}

	var (
		rows   []RawRow
		rowErr error
	)
	tables.EachWithBreak(func(ti int, table *goquery.Selection) bool {
		if ti >= len(days) {
			return false
		}
		day := days[ti]
		table.Find("tr").EachWithBreak(func(ri int, tr *goquery.Selection) bool {
			if ri == 0 {
				return true
			}
			cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
				return strings.TrimSpace(td.Text())
			})
			if blank(cells) {
				return true
			}
			if len(cells) < cellsPerRow {
				rowErr = &ParseError{Table: ti, Row: ri, Msg: fmt.Sprintf("%d cells, want %d", len(cells), cellsPerRow)}
				return false
			}
			rows = append(rows, RawRow{
				TimeRange:   cells[0],
				Title:       cells[1],
				Description: cells[2],
				Venue:       cells[3],
				Category:    cells[4],
				Day:         day,
				Table:       ti,
				Row:         ri,
			})
			return true
		})
		return rowErr == nil
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
