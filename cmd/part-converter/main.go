package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ryabkov82/part-converter/internal/config"
	"github.com/ryabkov82/part-converter/internal/converter"
	"github.com/ryabkov82/part-converter/internal/exporter"
	"github.com/ryabkov82/part-converter/internal/loader"
	"github.com/ryabkov82/part-converter/internal/server"
	"github.com/ryabkov82/part-converter/internal/table"
)

type Output struct {
	Success    bool   `json:"success"`
	OutputFile string `json:"output_file,omitempty"`
	Error      string `json:"error,omitempty"`
	Duration   string `json:"duration"`
	RowCount   int    `json:"row_count,omitempty"`
	NotFound   int    `json:"not_found,omitempty"`
}

func main() {

	start := time.Now()

	cfg, err := config.ParseFlags()
	if err != nil {
		emitJSON(Output{
			Success:  false,
			Error:    fmt.Sprintf("Ошибка конфигурации: %v", err),
			Duration: time.Since(start).String(),
		})
		return
	}

	if cfg.Serve {
		s := server.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err := s.Start(cfg.Port); err != nil {
			log.Fatalf("Ошибка веб-сервера: %v", err)
		}
		return
	}

	master, err := loader.Load(cfg.MasterPath, cfg.MasterHeaderRow)
	if err != nil {
		emitJSON(Output{
			Success:  false,
			Error:    fmt.Sprintf("Ошибка загрузки справочника: %v (проверьте номер строки заголовка)", err),
			Duration: time.Since(start).String(),
		})
		return
	}

	data, err := loader.Load(cfg.DataPath, cfg.DataHeaderRow)
	if err != nil {
		emitJSON(Output{
			Success:  false,
			Error:    fmt.Sprintf("Ошибка загрузки файла данных: %v (проверьте номер строки заголовка)", err),
			Duration: time.Since(start).String(),
		})
		return
	}

	masterKey, masterValue, dataKey := config.ResolveSelections(cfg, master.Columns(), data.Columns())

	result, err := converter.Convert(data, dataKey, master, masterKey, masterValue)
	if err != nil {
		emitJSON(Output{
			Success:  false,
			Error:    fmt.Sprintf("Ошибка преобразования: %v", err),
			Duration: time.Since(start).String(),
		})
		return
	}

	if err := exporter.Save(result, cfg.OutputPath); err != nil {
		emitJSON(Output{
			Success:  false,
			Error:    fmt.Sprintf("Ошибка сохранения результата: %v", err),
			Duration: time.Since(start).String(),
		})
		return
	}

	emitJSON(Output{
		Success:    true,
		OutputFile: cfg.OutputPath,
		RowCount:   result.RowCount(),
		NotFound:   countNotFound(result),
		Duration:   time.Since(start).String(),
	})

}

// countNotFound считает строки, для которых ключ не нашелся в справочнике.
func countNotFound(t *table.Table) int {
	idx, err := t.ColumnIndex(converter.ConvertedColumn)
	if err != nil {
		return 0
	}
	n := 0
	for i := 0; i < t.RowCount(); i++ {
		if t.Cell(i, idx) == converter.NotFound {
			n++
		}
	}
	return n
}

func emitJSON(out Output) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Ошибка вывода JSON: %v", err)
	}
}
