// Package exporter сериализует таблицу результата в книгу xlsx:
// один лист, первая строка — заголовки, без колонки индекса.
package exporter

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/part-converter/internal/table"
)

// SheetName — имя единственного листа результирующей книги.
const SheetName = "ConvertedParts"

// ToExcel записывает таблицу в книгу xlsx в памяти.
func ToExcel(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("ошибка переименования листа: %v", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания StreamWriter: %v", err)
	}

	header := make([]interface{}, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		header = append(header, col)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовков: %v", err)
	}

	for i := 0; i < t.RowCount(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("ошибка записи строки: %v", err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("ошибка финального flush: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения книги: %v", err)
	}
	return buf.Bytes(), nil
}

// Save записывает таблицу в файл xlsx.
func Save(t *table.Table, path string) error {
	data, err := ToExcel(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка сохранения файла %s: %v", path, err)
	}
	return nil
}
