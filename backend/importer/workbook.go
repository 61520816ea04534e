package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one spreadsheet row keyed by canonical header, cells trimmed.
type Row struct {
	// Number is the 1-based row number in the source sheet (header = 1).
	Number int
	Cells  map[string]string
}

// Get returns a cell by canonical header.
func (r Row) Get(header string) string {
	return r.Cells[header]
}

// Empty reports whether every cell of the row is blank.
func (r Row) Empty() bool {
	for _, v := range r.Cells {
		if v != "" {
			return false
		}
	}
	return true
}

// Sheet is one worksheet with canonicalized headers.
type Sheet struct {
	Name    string
	Kind    string // qcm, qroc, cas_qcm, cas_qroc
	Headers []string
	Rows    []Row
}

// SheetKind derives the question type from the sheet name.
func SheetKind(name string) string {
	n := normalizeHeader(name)
	hasCas := strings.Contains(n, "cas")
	switch {
	case hasCas && strings.Contains(n, "qroc"):
		return "cas_qroc"
	case hasCas && strings.Contains(n, "qcm"):
		return "cas_qcm"
	case strings.Contains(n, "qroc"):
		return "qroc"
	default:
		return "qcm"
	}
}

// ReadWorkbook parses an .xlsx or .csv upload into sheets of canonical rows.
// A CSV file yields a single sheet named after the file.
func ReadWorkbook(filename string, r io.Reader) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readExcel(r)
	case ".csv":
		return readCSV(filename, r)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
}

func readExcel(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		sheet, ok := buildSheet(name, rows)
		if ok {
			sheets = append(sheets, sheet)
		}
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheet with a header row and data")
	}
	return sheets, nil
}

func readCSV(filename string, r io.Reader) ([]Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	sheet, ok := buildSheet(name, rows)
	if !ok {
		return nil, fmt.Errorf("CSV file must have a header row and at least one data row")
	}
	return []Sheet{sheet}, nil
}

// buildSheet canonicalizes headers and maps data rows. Sheets without data
// rows are skipped (ok = false).
func buildSheet(name string, rows [][]string) (Sheet, bool) {
	if len(rows) < 2 {
		return Sheet{}, false
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = CanonicalHeader(header)
	}

	sheet := Sheet{
		Name:    name,
		Kind:    SheetKind(name),
		Headers: headers,
	}
	for i := 1; i < len(rows); i++ {
		row := Row{Number: i + 1, Cells: make(map[string]string, len(headers))}
		for j, cell := range rows[i] {
			if j < len(headers) {
				row.Cells[headers[j]] = strings.TrimSpace(cell)
			}
		}
		if row.Empty() {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	if len(sheet.Rows) == 0 {
		return Sheet{}, false
	}
	return sheet, true
}
