package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ryabkov82/part-converter/internal/table"
)

// LoadError — ошибка загрузки файла: имя файла и первопричина.
// Загрузчик никогда не возвращает частичную таблицу вместо ошибки.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("не удалось прочитать файл %q: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load читает файл целиком в память и разбирает его.
// headerRow — номер физической строки с заголовками, начиная с 1.
func Load(path string, headerRow int) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: filepath.Base(path), Err: err}
	}
	return LoadReader(bytes.NewReader(data), filepath.Base(path), headerRow)
}

// LoadReader разбирает содержимое по расширению имени файла.
// Форматы: csv/tsv/txt с автоопределением разделителя, xlsb (BIFF12),
// xlsx/xlsm/xls через excelize с откатом на чтение BIFF8, если содержимое
// не является zip-контейнером или расширение явно .xls.
func LoadReader(r io.ReadSeeker, name string, headerRow int) (*table.Table, error) {
	if headerRow < 1 {
		return nil, &LoadError{File: name, Err: fmt.Errorf("номер строки заголовка %d должен быть не меньше 1", headerRow)}
	}

	var (
		records  [][]string
		err      error
		dropWide bool
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".tsv", ".txt":
		records, err = readDelimited(r)
		// Как и on_bad_lines='skip': строка с лишними полями отбрасывается,
		// лист же всегда прямоугольный и расширяет заголовок.
		dropWide = true
	case ".xlsb":
		records, err = readXLSB(r)
	case ".xlsx", ".xlsm", ".xls":
		records, err = readExcel(r, ext)
	default:
		err = fmt.Errorf("неподдерживаемый формат файла %q", ext)
	}
	if err != nil {
		return nil, &LoadError{File: name, Err: err}
	}

	t, err := applyHeader(records, headerRow, dropWide)
	if err != nil {
		return nil, &LoadError{File: name, Err: err}
	}
	return t, nil
}

// applyHeader пропускает headerRow-1 физических строк, следующую строку
// делает заголовком, остальные — данными. Неверный номер строки заголовка
// не приводит к ошибке: таблица получит плейсхолдерные имена колонок.
func applyHeader(records [][]string, headerRow int, dropWide bool) (*table.Table, error) {
	skip := headerRow - 1
	if skip >= len(records) {
		return nil, fmt.Errorf("строка заголовка %d за пределами файла (%d строк)", headerRow, len(records))
	}
	header := records[skip]
	body := records[skip+1:]
	if dropWide {
		kept := make([][]string, 0, len(body))
		for _, row := range body {
			if len(row) <= len(header) {
				kept = append(kept, row)
			}
		}
		body = kept
	}
	return table.New(header, body), nil
}
