package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Кандидаты разделителя в порядке предпочтения при равенстве.
var delimiters = []rune{',', '\t', ';', '|'}

const sniffSampleSize = 64 * 1024

// readDelimited разбирает текстовый файл с разделителями. Разделитель
// определяется по образцу содержимого, некорректные строки пропускаются.
func readDelimited(r io.ReadSeeker) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения содержимого: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("файл пустой")
	}

	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Некорректная строка не валит загрузку целиком.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора текстового файла: %w", err)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("файл не содержит ни одной корректной строки")
	}
	return records, nil
}

// sniffDelimiter выбирает разделитель по частоте в начальном образце.
// При отсутствии кандидатов остается запятая.
func sniffDelimiter(data []byte) rune {
	sample := data
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, b := range string(sample) {
		if b == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, d := range delimiters {
			if b == d {
				counts[d]++
			}
		}
	}

	best := ','
	bestCount := 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}
