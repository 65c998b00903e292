package exporter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/part-converter/internal/table"
)

func TestToExcel(t *testing.T) {
	tbl := table.New(
		[]string{"Part", "Converted Part Number"},
		[][]string{
			{"E100", "200-100"},
			{"E200", "--- NOT FOUND ---"},
		},
	)

	data, err := ToExcel(tbl)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	// Единственный лист, заголовки первой строкой, без колонки индекса.
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Part", "Converted Part Number"}, rows[0])
	assert.Equal(t, []string{"E100", "200-100"}, rows[1])
	assert.Equal(t, []string{"E200", "--- NOT FOUND ---"}, rows[2])
}

func TestSave(t *testing.T) {
	tbl := table.New([]string{"Part"}, [][]string{{"E100"}})
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, Save(tbl, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Part"}, {"E100"}}, rows)
}
