// Package converter выполняет подстановку новых номеров деталей по
// справочной таблице соответствий.
package converter

import (
	"fmt"
	"strings"

	"github.com/ryabkov82/part-converter/internal/table"
)

const (
	// NotFound — значение для строк, ключ которых отсутствует в справочнике.
	NotFound = "--- NOT FOUND ---"
	// ConvertedColumn — имя добавляемой колонки результата.
	ConvertedColumn = "Converted Part Number"
)

// NormalizeKey приводит значение ключа к сравнимому виду: ячейки уже
// текстовые, остается убрать окружающие пробелы. Так числовой ключ "123"
// и текстовый "123 " считаются одним и тем же ключом.
func NormalizeKey(cell string) string {
	return strings.TrimSpace(cell)
}

// Convert выполняет левое соединение таблицы данных со справочником.
//
// Справочник проецируется на колонки ключа и значения, ключи обеих сторон
// нормализуются, дубликаты ключей в справочнике разрешаются в пользу первой
// по порядку строки. Результат — копия таблицы данных с добавленной колонкой
// ConvertedColumn; строки не добавляются и не удаляются, порядок сохранен,
// ненайденные ключи помечаются NotFound. Ключевая колонка справочника в
// результат не попадает, поэтому при совпадении имен ключевых колонок в
// результате остается единственная копия.
//
// Входные таблицы не изменяются. Отсутствие любой из указанных колонок —
// ошибка до начала обработки строк.
func Convert(data *table.Table, dataKey string, master *table.Table, masterKey, masterValue string) (*table.Table, error) {
	dataKeyIdx, err := data.ColumnIndex(dataKey)
	if err != nil {
		return nil, fmt.Errorf("таблица данных: %w", err)
	}
	masterKeyIdx, err := master.ColumnIndex(masterKey)
	if err != nil {
		return nil, fmt.Errorf("справочник: %w", err)
	}
	masterValueIdx, err := master.ColumnIndex(masterValue)
	if err != nil {
		return nil, fmt.Errorf("справочник: %w", err)
	}

	// Первое вхождение ключа выигрывает: запись добавляется только если
	// ключа еще нет. Политика закреплена тестами, менять на "последний
	// выигрывает" нельзя — это молча изменит результат на неоднозначных
	// справочниках.
	mapping := make(map[string]string, master.RowCount())
	for i := 0; i < master.RowCount(); i++ {
		key := NormalizeKey(master.Cell(i, masterKeyIdx))
		if _, ok := mapping[key]; !ok {
			mapping[key] = master.Cell(i, masterValueIdx)
		}
	}

	result := data.Copy()
	converted := make([]string, data.RowCount())
	for i := 0; i < data.RowCount(); i++ {
		value, ok := mapping[NormalizeKey(data.Cell(i, dataKeyIdx))]
		if !ok {
			value = NotFound
		}
		converted[i] = value
	}
	if err := result.AppendColumn(ConvertedColumn, converted); err != nil {
		return nil, err
	}
	return result, nil
}
