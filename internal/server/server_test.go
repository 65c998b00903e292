package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/part-converter/internal/exporter"
)

func newTestServer() *Server {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func multipartRequest(t *testing.T, target string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for field, value := range fields {
		require.NoError(t, writer.WriteField(field, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIndex(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Part Number Conversion Tool")
}

func TestColumns(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/columns",
		map[string]string{
			"master": "E Number,200 Number,Desc\nE100,200-100,bolt\n",
			"data":   "Qty,PART/ E #\n5,E100\n",
		},
		map[string]string{"master_header_row": "1", "data_header_row": "1"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp columnsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"E Number", "200 Number", "Desc"}, resp.MasterColumns)
	assert.Equal(t, []string{"Qty", "PART/ E #"}, resp.DataColumns)
	assert.Equal(t, "E Number", resp.MasterKey)
	assert.Equal(t, "200 Number", resp.MasterValue)
	assert.Equal(t, "PART/ E #", resp.DataKey)
}

func TestColumnsPositionalDefaults(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/columns",
		map[string]string{
			"master": "Old,New\nE100,200-100\n",
			"data":   "Part\nE100\n",
		},
		nil,
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp columnsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Old", resp.MasterKey)
	assert.Equal(t, "New", resp.MasterValue)
	assert.Equal(t, "Part", resp.DataKey)
}

func TestConvertDownload(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{
			"master": "E Number,200 Number\nE100,200-100\nE100,200-999\n",
			"data":   "PART/ E #,Qty\nE100 ,5\nE300,2\n",
		},
		map[string]string{"master_header_row": "1", "data_header_row": "1"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "converted_part_numbers.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exporter.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"PART/ E #", "Qty", "Converted Part Number"}, rows[0])
	// Дубликат в справочнике: побеждает первая строка.
	assert.Equal(t, []string{"E100 ", "5", "200-100"}, rows[1])
	assert.Equal(t, []string{"E300", "2", "--- NOT FOUND ---"}, rows[2])
}

func TestConvertHeaderRowOffset(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{
			"master": "common E numbers export\n\nE Number,200 Number\nE100,200-100\n",
			"data":   "PART/ E #\nE100\n",
		},
		map[string]string{"master_header_row": "3", "data_header_row": "1"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exporter.SheetName)
	require.NoError(t, err)
	assert.Equal(t, []string{"E100", "200-100"}, rows[1])
}

func TestConvertLoadFailure(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{
			"master": "E Number,200 Number\nE100,200-100\n",
			"data":   "PART/ E #\nE100\n",
		},
		map[string]string{"master_header_row": "42"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to read file")
	assert.Contains(t, rec.Body.String(), "Header is on which row")
}

func TestConvertMissingColumn(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{
			"master": "E Number,200 Number\nE100,200-100\n",
			"data":   "PART/ E #\nE100\n",
		},
		map[string]string{"data_key": "No Such Column"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertMissingFile(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{"master": "E Number,200 Number\nE100,200-100\n"},
		nil,
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertInvalidHeaderRowValue(t *testing.T) {
	s := newTestServer()
	req := multipartRequest(t,
		"/convert",
		map[string]string{
			"master": "E Number,200 Number\nE100,200-100\n",
			"data":   "PART/ E #\nE100\n",
		},
		map[string]string{"master_header_row": "zero"},
	)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
