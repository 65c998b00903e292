package table

import (
	"fmt"
)

// Table — таблица в памяти: упорядоченный список колонок и строки данных.
// Инвариант: ширина каждой строки равна количеству колонок.
type Table struct {
	columns []string
	rows    [][]string
}

// New создает таблицу из строки заголовка и строк данных.
// Имена колонок приводятся к уникальным: пустые ячейки заголовка получают
// имя "Unnamed: N", повторы дополняются суффиксом ".1", ".2" и так далее.
// Строки короче заголовка дополняются пустыми ячейками; если строка данных
// шире заголовка, заголовок расширяется плейсхолдерами.
func New(header []string, rows [][]string) *Table {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := uniqueNames(header, width)

	normalized := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, width)
		copy(cells, row)
		normalized[i] = cells
	}

	return &Table{columns: columns, rows: normalized}
}

func uniqueNames(header []string, width int) []string {
	columns := make([]string, width)
	seen := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = fmt.Sprintf("%s.%d", base, n)
			}
		}
		seen[name] = true
		columns[i] = name
	}
	return columns
}

// Columns возвращает упорядоченный список имен колонок (копию).
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// ColumnIndex возвращает позицию колонки по имени.
// Отсутствие колонки — ошибка, без поиска похожих имен.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, col := range t.columns {
		if col == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("колонка %q не найдена в таблице", name)
}

// RowCount возвращает количество строк данных.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Row возвращает строку по индексу (копию).
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Cell возвращает значение ячейки.
func (t *Table) Cell(row, col int) string {
	return t.rows[row][col]
}

// Copy возвращает глубокую копию таблицы.
func (t *Table) Copy() *Table {
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cells := make([]string, len(row))
		copy(cells, row)
		rows[i] = cells
	}
	return &Table{columns: t.Columns(), rows: rows}
}

// AppendColumn добавляет колонку справа. Количество значений должно
// совпадать с количеством строк; имя при совпадении с существующим
// дополняется суффиксом по тем же правилам, что и в New.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("количество значений %d не совпадает с количеством строк %d", len(values), len(t.rows))
	}
	t.columns = uniqueNames(append(t.Columns(), name), len(t.columns)+1)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// DropColumn удаляет колонку по имени.
func (t *Table) DropColumn(name string) error {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return err
	}
	t.columns = append(t.columns[:idx], t.columns[idx+1:]...)
	for i, row := range t.rows {
		t.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}
