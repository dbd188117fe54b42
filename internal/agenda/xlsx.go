package agenda

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"hacktown/internal/model"
	"hacktown/internal/schedule"
)

// SheetName is the single sheet written by ExportXLSX.
const SheetName = "Minha Programação"

// ImportFormatError reports an agenda file that cannot be merged. Nothing
// is appended when it is returned.
type ImportFormatError struct {
	Missing []string // required columns absent from the header
	Row     int      // 1-based spreadsheet row, zero for file-level problems
	Msg     string
}

func (e *ImportFormatError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return "import agenda: missing columns: " + strings.Join(e.Missing, ", ")
	case e.Row > 0:
		return fmt.Sprintf("import agenda: row %d: %s", e.Row, e.Msg)
	default:
		return "import agenda: " + e.Msg
	}
}

// ExportXLSX writes events to a one-sheet workbook with the Columns header.
func ExportXLSX(events []model.Event) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("export agenda: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export agenda: %w", err)
	}

	header := append([]string(nil), model.Columns...)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("export agenda: %w", err)
	}
	for i, e := range events {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("export agenda: %w", err)
		}
		row := e.Row()
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("export agenda: row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export agenda: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseXLSX reads events from an agenda workbook. The sheet named SheetName
// is used when present, otherwise the first sheet. Columns are located by
// header name; extra columns are ignored. Every row must name a known day.
// Start times get the same display rewrites as fetched rows, with
// defaultStart standing in for an empty cell.
func ParseXLSX(blob []byte, order model.DayOrder, defaultStart string) ([]model.Event, error) {
	if defaultStart == "" {
		defaultStart = model.DefaultStart
	}

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, &ImportFormatError{Msg: "not a spreadsheet: " + err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportFormatError{Msg: "workbook has no sheets"}
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s == SheetName {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ImportFormatError{Msg: err.Error()}
	}
	if len(rows) == 0 {
		return nil, &ImportFormatError{Missing: append([]string(nil), model.Columns...)}
	}

	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	var missing []string
	for _, col := range model.Columns {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ImportFormatError{Missing: missing}
	}

	cell := func(row []string, col string) string {
		if i := pos[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	events := make([]model.Event, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		e := model.Event{
			Title:       cell(row, model.ColTitle),
			Description: cell(row, model.ColDescription),
			Venue:       cell(row, model.ColVenue),
			Category:    cell(row, model.ColCategory),
			Day:         cell(row, model.ColDay),
			Start:       schedule.RewriteStart(cell(row, model.ColStart), defaultStart),
			End:         cell(row, model.ColEnd),
		}
		if !order.Contains(e.Day) {
			return nil, &ImportFormatError{Row: i + 2, Msg: fmt.Sprintf("unknown day %q", e.Day)}
		}
		events = append(events, e)
	}
	return events, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
