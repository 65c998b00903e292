package config

import (
	"flag"
	"fmt"
	"path/filepath"
)

// Имена колонок, которые инструмент предпочитает по умолчанию.
// Выбор по умолчанию — дело вызывающей стороны (CLI или веб-форма),
// а не самого преобразования.
const (
	DefaultMasterKeyName   = "E Number"
	DefaultMasterValueName = "200 Number"
	DefaultDataKeyName     = "PART/ E #"
)

type Config struct {
	MasterPath        string
	DataPath          string
	OutputPath        string
	MasterHeaderRow   int // 1-based номер строки заголовка в справочнике
	DataHeaderRow     int // 1-based номер строки заголовка в файле данных
	MasterKeyColumn   string
	MasterValueColumn string
	DataKeyColumn     string
	Serve             bool
	Port              string
}

func ParseFlags() (*Config, error) {

	cfg := &Config{}

	flag.StringVar(&cfg.MasterPath, "master", "", "справочный файл соответствий номеров")
	flag.StringVar(&cfg.DataPath, "data", "", "файл данных с номерами для замены")
	flag.StringVar(&cfg.OutputPath, "out", "./converted_part_numbers.xlsx", "результирующий файл")
	flag.IntVar(&cfg.MasterHeaderRow, "master-header", 1, "номер строки заголовка в справочнике")
	flag.IntVar(&cfg.DataHeaderRow, "data-header", 1, "номер строки заголовка в файле данных")
	flag.StringVar(&cfg.MasterKeyColumn, "master-key", "", "колонка ключа в справочнике (по умолчанию 'E Number' либо первая)")
	flag.StringVar(&cfg.MasterValueColumn, "master-value", "", "колонка нового номера в справочнике (по умолчанию '200 Number' либо вторая)")
	flag.StringVar(&cfg.DataKeyColumn, "data-key", "", "колонка ключа в файле данных (по умолчанию 'PART/ E #' либо первая)")
	flag.BoolVar(&cfg.Serve, "serve", false, "запустить веб-интерфейс вместо разовой обработки")
	flag.StringVar(&cfg.Port, "port", "3000", "порт веб-интерфейса")

	flag.Parse()

	if !cfg.Serve {
		if cfg.MasterPath == "" {
			return nil, fmt.Errorf("необходимо указать справочный файл через -master")
		}
		if cfg.DataPath == "" {
			return nil, fmt.Errorf("необходимо указать файл данных через -data")
		}
		cfg.MasterPath = filepath.Clean(cfg.MasterPath)
		cfg.DataPath = filepath.Clean(cfg.DataPath)
	}
	if cfg.MasterHeaderRow < 1 || cfg.DataHeaderRow < 1 {
		return nil, fmt.Errorf("номер строки заголовка должен быть не меньше 1")
	}

	cfg.OutputPath = filepath.Clean(cfg.OutputPath)

	return cfg, nil
}

// PickColumn возвращает preferred, если колонка с таким именем есть в списке,
// иначе колонку с позиции fallback, иначе пустую строку.
func PickColumn(cols []string, preferred string, fallback int) string {
	for _, c := range cols {
		if c == preferred {
			return c
		}
	}
	if fallback < len(cols) {
		return cols[fallback]
	}
	return ""
}

// ResolveSelections подставляет колонки по умолчанию вместо пустых значений.
func ResolveSelections(cfg *Config, masterCols, dataCols []string) (masterKey, masterValue, dataKey string) {
	masterKey = cfg.MasterKeyColumn
	if masterKey == "" {
		masterKey = PickColumn(masterCols, DefaultMasterKeyName, 0)
	}
	masterValue = cfg.MasterValueColumn
	if masterValue == "" {
		masterValue = PickColumn(masterCols, DefaultMasterValueName, 1)
	}
	dataKey = cfg.DataKeyColumn
	if dataKey == "" {
		dataKey = PickColumn(dataCols, DefaultDataKeyName, 0)
	}
	return masterKey, masterValue, dataKey
}
