package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFile_CSV(t *testing.T) {
	path := writeFile(t, "listings.csv", `product_id,name,price,url
B001,Widget,"$1,234.56",https://example.com/widget
B002, Gadget ,$9.99,https://example.com/gadget
,,,
`)

	records, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "B001", records[0]["product_id"])
	assert.Equal(t, "$1,234.56", records[0]["price"])
	assert.Equal(t, "Gadget ", records[1]["name"])
}

func TestReadFile_CSVShortRow(t *testing.T) {
	path := writeFile(t, "listings.csv", `product_id,name,price
B001,Widget
`)

	records, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Widget", records[0]["name"])
	_, hasPrice := records[0]["price"]
	assert.False(t, hasPrice)
}

func TestReadFile_CSVEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	records, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadFile_NDJSON(t *testing.T) {
	path := writeFile(t, "listings.ndjson", `{"product_id":"B001","name":"Widget","price":19.99,"reviews_count":150,"avg_rating":null}
{"product_id":"B002","name":"Gadget","in_stock":true}
`)

	records, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "B001", records[0]["product_id"])
	assert.Equal(t, "19.99", records[0]["price"])
	assert.Equal(t, "150", records[0]["reviews_count"])
	_, hasRating := records[0]["avg_rating"]
	assert.False(t, hasRating, "null values have no raw representation")
	assert.Equal(t, "true", records[1]["in_stock"])
}

func TestReadFile_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, name := range []string{"product_id", "name", "url"} {
		header.AddCell().SetString(name)
	}
	row := sheet.AddRow()
	row.AddCell().SetString("B001")
	row.AddCell().SetString("Widget")
	row.AddCell().SetString("https://example.com/widget")

	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))

	records, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B001", records[0]["product_id"])
	assert.Equal(t, "Widget", records[0]["name"])
}

func TestReadFile_XLSXNamedSheet(t *testing.T) {
	f := xlsx.NewFile()
	_, err := f.AddSheet("Notes")
	require.NoError(t, err)
	sheet, err := f.AddSheet("Data")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("product_id")
	row := sheet.AddRow()
	row.AddCell().SetString("B007")

	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))

	records, err := ReadFile(path, Options{Sheet: "Data"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B007", records[0]["product_id"])

	_, err = ReadFile(path, Options{Sheet: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestReadFile_FormatOverride(t *testing.T) {
	// .txt extension, but the content is CSV.
	path := writeFile(t, "listings.txt", "product_id,name,url\nB001,Widget,https://example.com\n")

	_, err := ReadFile(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot determine format")

	records, err := ReadFile(path, Options{Format: "csv"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReadFile_UnsupportedCharset(t *testing.T) {
	path := writeFile(t, "listings.csv", "product_id\nB001\n")

	_, err := ReadFile(path, Options{Charset: "not-a-charset"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestStringify(t *testing.T) {
	s, ok := stringify("text")
	assert.True(t, ok)
	assert.Equal(t, "text", s)

	s, ok = stringify(float64(1200))
	assert.True(t, ok)
	assert.Equal(t, "1200", s)

	_, ok = stringify(nil)
	assert.False(t, ok)

	_, ok = stringify(map[string]any{"nested": true})
	assert.False(t, ok)
}
