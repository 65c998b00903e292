// Package xlsb читает книги Excel в бинарном формате XLSB (BIFF12).
// Реализовано ровно то, что нужно для извлечения значений ячеек первого
// листа: zip-контейнер, таблица общих строк, список листов из workbook.bin
// и записи ячеек (RK, число, строка, логическое значение, ошибка).
package xlsb

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Идентификаторы записей BIFF12 (MS-XLSB, значения Brt*).
const (
	recRowHdr     = 0x00
	recCellBlank  = 0x01
	recCellRk     = 0x02
	recCellError  = 0x03
	recCellBool   = 0x04
	recCellReal   = 0x05
	recCellSt     = 0x06
	recCellIsst   = 0x07
	recFmlaString = 0x08
	recFmlaNum    = 0x09
	recFmlaBool   = 0x0A
	recFmlaError  = 0x0B
	recSSTItem    = 0x13
	recBundleSh   = 0x9C
)

var errCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
	0x2B: "#GETTING_DATA",
}

type sheetInfo struct {
	Name string
	Path string
}

// Workbook — открытая книга XLSB.
type Workbook struct {
	zr     *zip.Reader
	sheets []sheetInfo
	sst    []string
}

// OpenReader читает книгу целиком в память и разбирает ее структуру.
func OpenReader(r io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения данных: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("файл не является контейнером xlsb: %w", err)
	}

	wb := &Workbook{zr: zr}
	if err := wb.readSharedStrings(); err != nil {
		return nil, err
	}
	if err := wb.readSheetList(); err != nil {
		return nil, err
	}
	if len(wb.sheets) == 0 {
		return nil, fmt.Errorf("книга не содержит листов")
	}
	return wb, nil
}

// SheetNames возвращает имена листов в порядке книги.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.Name
	}
	return names
}

// Rows возвращает ячейки листа как строки текста, по порядку строк листа.
func (wb *Workbook) Rows(index int) ([][]string, error) {
	if index < 0 || index >= len(wb.sheets) {
		return nil, fmt.Errorf("лист %d отсутствует в книге", index)
	}
	data, err := wb.readPart(wb.sheets[index].Path)
	if err != nil {
		return nil, err
	}
	return wb.parseSheet(data)
}

func (wb *Workbook) readPart(name string) ([]byte, error) {
	for _, f := range wb.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("ошибка открытия части %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("часть %s не найдена в контейнере", name)
}

func (wb *Workbook) readSharedStrings() error {
	data, err := wb.readPart("xl/sharedStrings.bin")
	if err != nil {
		// Таблица общих строк необязательна.
		return nil
	}
	rr := &recordReader{data: data}
	for {
		id, payload, ok := rr.next()
		if !ok {
			return nil
		}
		if id == recSSTItem {
			// BrtSSTItem: байт флагов, затем XLWideString; форматирование
			// и фонетика в хвосте записи не нужны.
			p := &payloadReader{data: payload}
			p.skip(1)
			s, err := p.wideString()
			if err != nil {
				return fmt.Errorf("ошибка разбора sharedStrings.bin: %w", err)
			}
			wb.sst = append(wb.sst, s)
		}
	}
}

func (wb *Workbook) readSheetList() error {
	data, err := wb.readPart("xl/workbook.bin")
	if err != nil {
		return err
	}
	rels, _ := wb.readRels()

	rr := &recordReader{data: data}
	for {
		id, payload, ok := rr.next()
		if !ok {
			break
		}
		if id != recBundleSh {
			continue
		}
		// BrtBundleSh: hsState, iTabID, strRelID, strName.
		p := &payloadReader{data: payload}
		p.skip(8)
		relID, err := p.nullableWideString()
		if err != nil {
			return fmt.Errorf("ошибка разбора workbook.bin: %w", err)
		}
		name, err := p.wideString()
		if err != nil {
			return fmt.Errorf("ошибка разбора workbook.bin: %w", err)
		}
		path := rels[relID]
		if path == "" {
			continue
		}
		wb.sheets = append(wb.sheets, sheetInfo{Name: name, Path: path})
	}

	// Книги без workbook.bin.rels встречаются у сторонних генераторов:
	// берем части листов напрямую из контейнера.
	if len(wb.sheets) == 0 {
		var paths []string
		for _, f := range wb.zr.File {
			if strings.HasPrefix(f.Name, "xl/worksheets/") && strings.HasSuffix(f.Name, ".bin") {
				paths = append(paths, f.Name)
			}
		}
		sort.Strings(paths)
		for i, p := range paths {
			wb.sheets = append(wb.sheets, sheetInfo{Name: fmt.Sprintf("Sheet%d", i+1), Path: p})
		}
	}
	return nil
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (wb *Workbook) readRels() (map[string]string, error) {
	data, err := wb.readPart("xl/_rels/workbook.bin.rels")
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("ошибка разбора workbook.bin.rels: %w", err)
	}
	m := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		target := rel.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = "xl/" + target
		}
		m[rel.ID] = target
	}
	return m, nil
}

func (wb *Workbook) parseSheet(data []byte) ([][]string, error) {
	var rows [][]string
	curRow := -1

	setCell := func(col int, value string) {
		if curRow < 0 {
			return
		}
		for len(rows) <= curRow {
			rows = append(rows, nil)
		}
		for len(rows[curRow]) <= col {
			rows[curRow] = append(rows[curRow], "")
		}
		rows[curRow][col] = value
	}

	rr := &recordReader{data: data}
	for {
		id, payload, ok := rr.next()
		if !ok {
			break
		}

		if id == recRowHdr {
			if len(payload) < 4 {
				return nil, fmt.Errorf("укороченная запись заголовка строки")
			}
			curRow = int(binary.LittleEndian.Uint32(payload))
			continue
		}
		if id < recCellBlank || id > recFmlaError {
			continue
		}

		// Все записи ячеек начинаются с номера колонки и ссылки на стиль.
		p := &payloadReader{data: payload}
		col, err := p.uint32()
		if err != nil {
			return nil, fmt.Errorf("укороченная запись ячейки: %w", err)
		}
		p.skip(4)

		switch id {
		case recCellBlank:
			setCell(int(col), "")
		case recCellRk:
			v, err := p.uint32()
			if err != nil {
				return nil, fmt.Errorf("укороченная запись RK: %w", err)
			}
			setCell(int(col), formatNumber(decodeRk(v)))
		case recCellError, recFmlaError:
			b, err := p.byte()
			if err != nil {
				return nil, fmt.Errorf("укороченная запись ошибки: %w", err)
			}
			setCell(int(col), errCodes[b])
		case recCellBool, recFmlaBool:
			b, err := p.byte()
			if err != nil {
				return nil, fmt.Errorf("укороченная запись логического значения: %w", err)
			}
			if b != 0 {
				setCell(int(col), "TRUE")
			} else {
				setCell(int(col), "FALSE")
			}
		case recCellReal, recFmlaNum:
			bits, err := p.uint64()
			if err != nil {
				return nil, fmt.Errorf("укороченная числовая запись: %w", err)
			}
			setCell(int(col), formatNumber(math.Float64frombits(bits)))
		case recCellSt, recFmlaString:
			s, err := p.wideString()
			if err != nil {
				return nil, fmt.Errorf("укороченная строковая запись: %w", err)
			}
			setCell(int(col), s)
		case recCellIsst:
			idx, err := p.uint32()
			if err != nil {
				return nil, fmt.Errorf("укороченная ссылка на общую строку: %w", err)
			}
			if int(idx) >= len(wb.sst) {
				return nil, fmt.Errorf("ссылка на общую строку %d вне таблицы строк", idx)
			}
			setCell(int(col), wb.sst[idx])
		}
	}
	return rows, nil
}

// decodeRk распаковывает RkNumber: младший бит — деление на 100,
// следующий — целое со сдвигом, иначе старшие 30 бит мантиссы double.
func decodeRk(v uint32) float64 {
	var num float64
	if v&0x2 != 0 {
		num = float64(int32(v) >> 2)
	} else {
		num = math.Float64frombits(uint64(v&0xFFFFFFFC) << 32)
	}
	if v&0x1 != 0 {
		num /= 100
	}
	return num
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// recordReader обходит поток записей BIFF12: идентификатор из 1-2 байт
// по 7 бит, длина из 1-4 байт по 7 бит, старший бит — признак продолжения.
type recordReader struct {
	data []byte
	pos  int
}

func (rr *recordReader) next() (id int, payload []byte, ok bool) {
	if rr.pos >= len(rr.data) {
		return 0, nil, false
	}
	b := rr.data[rr.pos]
	rr.pos++
	id = int(b & 0x7F)
	if b&0x80 != 0 {
		if rr.pos >= len(rr.data) {
			return 0, nil, false
		}
		id |= int(rr.data[rr.pos]&0x7F) << 7
		rr.pos++
	}

	length := 0
	for i := 0; i < 4; i++ {
		if rr.pos >= len(rr.data) {
			return 0, nil, false
		}
		b := rr.data[rr.pos]
		rr.pos++
		length |= int(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}

	if rr.pos+length > len(rr.data) {
		return 0, nil, false
	}
	payload = rr.data[rr.pos : rr.pos+length]
	rr.pos += length
	return id, payload, true
}

type payloadReader struct {
	data []byte
	pos  int
}

func (p *payloadReader) skip(n int) {
	p.pos += n
}

func (p *payloadReader) byte() (byte, error) {
	if p.pos+1 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *payloadReader) uint32() (uint32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *payloadReader) uint64() (uint64, error) {
	if p.pos+8 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(p.data[p.pos:])
	p.pos += 8
	return v, nil
}

// wideString читает XLWideString: длина в символах UTF-16, затем символы.
func (p *payloadReader) wideString() (string, error) {
	cch, err := p.uint32()
	if err != nil {
		return "", err
	}
	return p.utf16Chars(int(cch))
}

// nullableWideString читает XLNullableWideString: 0xFFFFFFFF означает
// отсутствие значения.
func (p *payloadReader) nullableWideString() (string, error) {
	cch, err := p.uint32()
	if err != nil {
		return "", err
	}
	if cch == 0xFFFFFFFF {
		return "", nil
	}
	return p.utf16Chars(int(cch))
}

func (p *payloadReader) utf16Chars(cch int) (string, error) {
	if cch < 0 || p.pos+cch*2 > len(p.data) {
		return "", io.ErrUnexpectedEOF
	}
	units := make([]uint16, cch)
	for i := 0; i < cch; i++ {
		units[i] = binary.LittleEndian.Uint16(p.data[p.pos+i*2:])
	}
	p.pos += cch * 2
	return string(utf16.Decode(units)), nil
}
