package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/part-converter/internal/xlsb"
)

// readExcel читает книгу через excelize. Если содержимое не оказалось
// zip-контейнером (старые .xls нередко лежат под расширением .xlsx) или
// расширение явно .xls, позиция чтения сбрасывается и книга читается как
// BIFF8. Любая другая ошибка excelize пробрасывается как есть.
func readExcel(r io.ReadSeeker, ext string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "zip") || ext == ".xls" {
			if _, serr := r.Seek(0, io.SeekStart); serr != nil {
				return nil, fmt.Errorf("ошибка сброса позиции чтения: %w", serr)
			}
			return readBIFF8(r)
		}
		return nil, fmt.Errorf("ошибка открытия книги: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("книга не содержит листов")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("лист %s пустой", sheets[0])
	}
	return rows, nil
}

// readBIFF8 читает старый бинарный формат .xls.
func readBIFF8(r io.ReadSeeker) ([][]string, error) {
	wb, err := xls.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия книги BIFF8: %w", err)
	}
	sh, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа BIFF8: %w", err)
	}

	var rows [][]string
	for i := 0; i < sh.GetNumberRows(); i++ {
		row, err := sh.GetRow(i)
		if err != nil {
			continue
		}
		cols := row.GetCols()
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = c.GetString()
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("лист BIFF8 пустой")
	}
	return rows, nil
}

// readXLSB читает книгу в бинарном формате BIFF12.
func readXLSB(r io.ReadSeeker) ([][]string, error) {
	wb, err := xlsb.OpenReader(r)
	if err != nil {
		return nil, err
	}
	rows, err := wb.Rows(0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("лист xlsb пустой")
	}
	return rows, nil
}
