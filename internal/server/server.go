// Package server — веб-оболочка инструмента: форма загрузки файлов,
// перечисление колонок для выбора и выдача результата как вложения.
package server

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ryabkov82/part-converter/internal/config"
	"github.com/ryabkov82/part-converter/internal/converter"
	"github.com/ryabkov82/part-converter/internal/exporter"
	"github.com/ryabkov82/part-converter/internal/loader"
	"github.com/ryabkov82/part-converter/internal/table"
)

//go:embed index.html
var indexHTML string

const (
	maxUploadMemory = 32 << 20
	outputFileName  = "converted_part_numbers.xlsx"
	headerRowHint   = "Please ensure the 'Header is on which row?' value is correct. The selected row must contain the column names."
)

type Server struct {
	echo *echo.Echo
	log  *slog.Logger
}

func New(log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	s := &Server{echo: e, log: log}
	e.GET("/", s.index)
	e.POST("/columns", s.columns)
	e.POST("/convert", s.convert)
	return s
}

// Start блокирует до остановки сервера.
func (s *Server) Start(port string) error {
	return s.echo.Start(":" + port)
}

func (s *Server) index(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

// columnsResponse перечисляет колонки обеих таблиц и выбор по умолчанию,
// чтобы форма могла заполнить списки выбора.
type columnsResponse struct {
	MasterColumns []string `json:"master_columns"`
	DataColumns   []string `json:"data_columns"`
	MasterKey     string   `json:"master_key"`
	MasterValue   string   `json:"master_value"`
	DataKey       string   `json:"data_key"`
}

func (s *Server) columns(c echo.Context) error {
	master, data, err := s.loadUploads(c)
	if err != nil {
		return err
	}

	masterCols := master.Columns()
	dataCols := data.Columns()
	return c.JSON(http.StatusOK, columnsResponse{
		MasterColumns: masterCols,
		DataColumns:   dataCols,
		MasterKey:     config.PickColumn(masterCols, config.DefaultMasterKeyName, 0),
		MasterValue:   config.PickColumn(masterCols, config.DefaultMasterValueName, 1),
		DataKey:       config.PickColumn(dataCols, config.DefaultDataKeyName, 0),
	})
}

func (s *Server) convert(c echo.Context) error {
	master, data, err := s.loadUploads(c)
	if err != nil {
		return err
	}

	masterKey := c.FormValue("master_key")
	if masterKey == "" {
		masterKey = config.PickColumn(master.Columns(), config.DefaultMasterKeyName, 0)
	}
	masterValue := c.FormValue("master_value")
	if masterValue == "" {
		masterValue = config.PickColumn(master.Columns(), config.DefaultMasterValueName, 1)
	}
	dataKey := c.FormValue("data_key")
	if dataKey == "" {
		dataKey = config.PickColumn(data.Columns(), config.DefaultDataKeyName, 0)
	}

	result, err := converter.Convert(data, dataKey, master, masterKey, masterValue)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	out, err := exporter.ToExcel(result)
	if err != nil {
		s.log.Error("ошибка экспорта результата", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	s.log.Info("преобразование выполнено", "rows", result.RowCount())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", outputFileName))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out)
}

// loadUploads читает оба файла из multipart-формы. Ошибка загрузки любого
// файла прерывает запрос: частичных результатов не бывает.
func (s *Server) loadUploads(c echo.Context) (master, data *table.Table, err error) {
	if err := c.Request().ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Failed to parse multipart form: %v", err)})
	}

	master, err = s.loadUpload(c, "master", "master_header_row")
	if err != nil {
		return nil, nil, err
	}
	data, err = s.loadUpload(c, "data", "data_header_row")
	if err != nil {
		return nil, nil, err
	}
	return master, data, nil
}

func (s *Server) loadUpload(c echo.Context, fileField, headerField string) (*table.Table, error) {
	fh, err := c.FormFile(fileField)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No %s file found in the request", fileField)})
	}

	headerRow := 1
	if v := c.FormValue(headerField); v != "" {
		headerRow, err = strconv.Atoi(v)
		if err != nil || headerRow < 1 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid header row value %q", v)})
		}
	}

	t, err := loadFileHeader(fh, headerRow)
	if err != nil {
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			s.log.Warn("ошибка загрузки файла", "file", loadErr.File, "error", loadErr.Err)
			return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
				"error": fmt.Sprintf("Failed to read file '%s'.", loadErr.File),
				"hint":  headerRowHint,
			})
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return t, nil
}

func loadFileHeader(fh *multipart.FileHeader, headerRow int) (*table.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, &loader.LoadError{File: fh.Filename, Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, &loader.LoadError{File: fh.Filename, Err: err}
	}
	return loader.LoadReader(bytes.NewReader(buf.Bytes()), fh.Filename, headerRow)
}
