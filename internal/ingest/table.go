// Package ingest reads candidate sites and demand points from CSV or XLSX
// files and reports data-quality warnings for them.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// table is a header plus data rows with header lookup by canonical name.
type table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

// readTable reads a CSV or XLSX file, chosen by extension. The first
// non-empty row is the header. sheet selects an XLSX sheet by name; the
// first sheet is used when empty.
func readTable(path, sheet string) (*table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path, sheet)
	case ".csv", ".txt":
		records, err = readCSV(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, eris.Errorf("ingest: %s is empty", filepath.Base(path))
	}

	t := &table{header: records[0], index: make(map[string]int)}
	for i, h := range t.header {
		t.header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, r := range records[1:] {
		if !blank(r) {
			t.rows = append(t.rows, r)
		}
	}
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	br := bufio.NewReader(f)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, eris.Wrap(err, "csv: peek header")
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(first)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read rows")
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return records, nil
}

// sniffDelimiter picks ';' for German-style exports whose header line has
// more semicolons than commas.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func readXLSX(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		records = append(records, cells)
	}
	return records, nil
}

// resolve maps canonical field names to column positions using the given
// aliases, and rewrites the header to canonical names for validation.
func (t *table) resolve(aliases map[string][]string) {
	for canonical, names := range aliases {
		for i, h := range t.header {
			if matchesAny(h, names) {
				t.index[canonical] = i
				t.header[i] = canonical
				break
			}
		}
	}
}

func (t *table) has(field string) bool {
	_, ok := t.index[field]
	return ok
}

// get returns the trimmed value of field in row, or "" when absent.
func (t *table) get(row []string, field string) string {
	i, ok := t.index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func matchesAny(h string, names []string) bool {
	h = strings.ToLower(strings.TrimSpace(h))
	for _, n := range names {
		if h == n {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
