// Package ingest reads raw listing records from CSV, XLSX, and NDJSON files.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/listings-etl/internal/model"
)

// Options configures file ingestion.
type Options struct {
	Format  string // "csv", "xlsx", or "ndjson"; empty = infer from extension
	Charset string // optional source charset for CSV (e.g. "windows-1252")
	Sheet   string // optional XLSX sheet name; empty = first sheet
}

// ReadFile reads every record from the given file. The format is taken from
// Options.Format, falling back to the file extension.
func ReadFile(path string, opts Options) ([]model.RawRecord, error) {
	format := opts.Format
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		case ".xlsx":
			format = "xlsx"
		case ".ndjson", ".jsonl", ".json":
			format = "ndjson"
		}
	}

	switch format {
	case "csv":
		return readCSV(path, opts.Charset)
	case "xlsx":
		return readXLSX(path, opts.Sheet)
	case "ndjson":
		return readNDJSON(path)
	default:
		return nil, eris.Errorf("ingest: cannot determine format for %q (use --format)", path)
	}
}

func readCSV(path, charset string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close()

	var r io.Reader = f
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: unsupported charset %q", charset)
		}
		r = enc.NewDecoder().Reader(f)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		rows = append(rows, row)
	}
	return recordsFromRows(header, rows), nil
}

func readXLSX(path, sheetName string) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("ingest: xlsx file has no sheets")
		}
		sheet = f.Sheets[0]
	}

	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}
	return recordsFromRows(header, rows), nil
}

func readNDJSON(path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open ndjson")
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var records []model.RawRecord
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "ingest: decode ndjson object")
		}

		rec := make(model.RawRecord, len(obj))
		for key, value := range obj {
			if s, ok := stringify(value); ok {
				rec[key] = s
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// stringify renders a decoded JSON value as raw field text. Nulls and
// nested structures have no field representation and are dropped.
func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// recordsFromRows zips header names with row cells. Rows with no non-empty
// cell are skipped; short rows simply omit the trailing fields.
func recordsFromRows(header []string, rows [][]string) []model.RawRecord {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	var records []model.RawRecord
	for _, row := range rows {
		rec := make(model.RawRecord, len(names))
		empty := true
		for i, cell := range row {
			if i >= len(names) || names[i] == "" {
				continue
			}
			rec[names[i]] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
