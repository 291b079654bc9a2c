package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dedupserver/normalization"
)

var (
	// ErrUnsupportedFormat расширение файла не поддерживается
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")
	// ErrNoData в файле нет строки заголовков или строк данных
	ErrNoData = errors.New("file has no header row or no data rows")
)

// Table загруженная таблица получателей помощи
type Table struct {
	Sheet   string                     `json:"sheet,omitempty"`
	Headers []string                   `json:"headers"`
	Records []*normalization.RawRecord `json:"records"`
}

// RecordID внутренний идентификатор n-й строки данных (с единицы)
func RecordID(n int) string {
	return "R" + strconv.Itoa(n)
}

// ParseFile читает таблицу из файла .xlsx или .csv
func ParseFile(filePath string) (*Table, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f, filepath.Base(filePath))
}

// Parse читает таблицу из потока; формат определяется по имени файла
func Parse(r io.Reader, fileName string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return parseExcel(r)
	case ".csv":
		return parseCSV(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
}

// parseExcel читает первый лист. Значения берутся без форматирования ячеек,
// чтобы длинные номера не превращались в экспоненциальную запись.
func parseExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	table, err := buildTable(rows)
	if err != nil {
		return nil, err
	}
	table.Sheet = sheetName
	return table, nil
}

func parseCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	// BOM от Excel
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return buildTable(rows)
}

// buildTable превращает строки в записи: первая непустая строка - заголовки,
// пустые строки пропускаются, ID назначаются подряд R1, R2, ...
func buildTable(rows [][]string) (*Table, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoData
	}

	headers := uniqueHeaders(rows[headerIdx])
	table := &Table{Headers: headers}

	for _, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}

		fields := make(map[string]any, len(headers))
		for col, header := range headers {
			value := ""
			if col < len(row) {
				value = strings.TrimSpace(row[col])
			}
			fields[header] = value
		}

		table.Records = append(table.Records, &normalization.RawRecord{
			InternalID: RecordID(len(table.Records) + 1),
			Fields:     fields,
		})
	}

	if len(table.Records) == 0 {
		return nil, ErrNoData
	}
	return table, nil
}

// uniqueHeaders чистит заголовки: пустые получают имя по номеру колонки,
// повторы - числовой суффикс
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		headers[i] = name
	}
	return headers
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteExcel сохраняет записи в .xlsx с заданным порядком колонок
func WriteExcel(w io.Writer, headers []string, records []*normalization.RawRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, rec := range records {
		for col, header := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, rec.Value(header)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}
