package normalization

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingMapping обязательное поле не сопоставлено ни одной колонке
	ErrMissingMapping = errors.New("required field is not mapped")
	// ErrUnknownColumn сопоставленная колонка отсутствует в данных
	ErrUnknownColumn = errors.New("mapped column not found in records")
	// ErrDuplicateRecordID две записи с одинаковым внутренним идентификатором
	ErrDuplicateRecordID = errors.New("duplicate internal record id")
	// ErrEmptyRecordID запись без внутреннего идентификатора
	ErrEmptyRecordID = errors.New("record has empty internal id")
)

// MappingField логическое поле записи получателя помощи
type MappingField string

const (
	FieldWomanName   MappingField = "woman_name"
	FieldHusbandName MappingField = "husband_name"
	FieldNationalID  MappingField = "national_id"
	FieldPhone       MappingField = "phone"
	FieldVillage     MappingField = "village"
	FieldChildren    MappingField = "children"
)

// AllMappingFields все логические поля в порядке отображения
var AllMappingFields = []MappingField{
	FieldWomanName,
	FieldHusbandName,
	FieldNationalID,
	FieldPhone,
	FieldVillage,
	FieldChildren,
}

// RawRecord исходная строка таблицы. После импорта не изменяется.
type RawRecord struct {
	InternalID string         `json:"_internalId"`
	Fields     map[string]any `json:"fields"`
}

// Value возвращает значение колонки в виде строки.
// Числа форматируются без экспоненты, чтобы номера из Excel не портились.
func (r *RawRecord) Value(column string) string {
	if r == nil || column == "" {
		return ""
	}
	v, ok := r.Fields[column]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// FieldMapping сопоставление логических полей с колонками исходной таблицы
type FieldMapping struct {
	WomanName   string `json:"woman_name"`
	HusbandName string `json:"husband_name,omitempty"`
	NationalID  string `json:"national_id,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Village     string `json:"village,omitempty"`
	Children    string `json:"children,omitempty"`
}

// Column возвращает имя колонки для логического поля
func (m FieldMapping) Column(field MappingField) string {
	switch field {
	case FieldWomanName:
		return m.WomanName
	case FieldHusbandName:
		return m.HusbandName
	case FieldNationalID:
		return m.NationalID
	case FieldPhone:
		return m.Phone
	case FieldVillage:
		return m.Village
	case FieldChildren:
		return m.Children
	}
	return ""
}

// MappingError ошибка сопоставления колонок
type MappingError struct {
	Field  MappingField
	Column string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s (field %s, column %q)", e.Err.Error(), e.Field, e.Column)
	}
	return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Validate проверяет, что обязательные поля сопоставлены, а все указанные
// колонки встречаются хотя бы в одной записи
func (m FieldMapping) Validate(records []*RawRecord, required ...MappingField) error {
	required = append([]MappingField{FieldWomanName}, required...)
	for _, field := range required {
		if strings.TrimSpace(m.Column(field)) == "" {
			return &MappingError{Field: field, Err: ErrMissingMapping}
		}
	}

	if len(records) == 0 {
		return nil
	}

	present := make(map[string]struct{})
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for col := range rec.Fields {
			present[col] = struct{}{}
		}
	}

	for _, field := range AllMappingFields {
		col := m.Column(field)
		if col == "" {
			continue
		}
		if _, ok := present[col]; !ok {
			return &MappingError{Field: field, Column: col, Err: ErrUnknownColumn}
		}
	}

	return nil
}

// PreprocessedRecord производные данные записи, вычисляются один раз на запуск
type PreprocessedRecord struct {
	Raw                *RawRecord
	NameParts          []string
	HusbandNameParts   []string
	PhoneDigits        string
	ChildrenNormalized map[string]struct{}
	NationalID         string
	Village            string
	WomanKey           string
	HusbandKey         string
}

// ID внутренний идентификатор исходной записи
func (p *PreprocessedRecord) ID() string {
	return p.Raw.InternalID
}

// PreprocessRecord строит производную запись. Содержимое полей никогда не
// приводит к ошибке: пустое значение дает пустой результат.
func PreprocessRecord(rec *RawRecord, mapping FieldMapping) *PreprocessedRecord {
	woman := Normalize(rec.Value(mapping.WomanName))
	husband := Normalize(rec.Value(mapping.HusbandName))

	return &PreprocessedRecord{
		Raw:                rec,
		NameParts:          SplitLineage(woman),
		HusbandNameParts:   SplitLineage(husband),
		PhoneDigits:        PhoneDigits(rec.Value(mapping.Phone)),
		ChildrenNormalized: ChildrenTokens(SplitChildren(rec.Value(mapping.Children))),
		NationalID:         NationalIDDigits(rec.Value(mapping.NationalID)),
		Village:            Normalize(rec.Value(mapping.Village)),
		WomanKey:           woman,
		HusbandKey:         husband,
	}
}

// Preprocess проверяет сопоставление и строит производные записи в исходном порядке
func Preprocess(records []*RawRecord, mapping FieldMapping, required ...MappingField) ([]*PreprocessedRecord, error) {
	if err := mapping.Validate(records, required...); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	result := make([]*PreprocessedRecord, 0, len(records))
	for i, rec := range records {
		if rec == nil || strings.TrimSpace(rec.InternalID) == "" {
			return nil, fmt.Errorf("record #%d: %w", i+1, ErrEmptyRecordID)
		}
		if _, dup := seen[rec.InternalID]; dup {
			return nil, fmt.Errorf("record %s: %w", rec.InternalID, ErrDuplicateRecordID)
		}
		seen[rec.InternalID] = struct{}{}

		result = append(result, PreprocessRecord(rec, mapping))
	}

	return result, nil
}
