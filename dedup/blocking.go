package dedup

import (
	"sort"

	"dedupserver/normalization"
)

// DefaultBlockingMinRecords начиная с этого размера включается блокировка
const DefaultBlockingMinRecords = 1500

// BlockingOptions настройки ограничения попарного сравнения
type BlockingOptions struct {
	// Field поле, по которому строится ключ блока; пустое значение отключает блокировку
	Field normalization.MappingField
	// MinRecords блокировка применяется только если записей больше этого числа
	MinRecords int
}

// BlockingKey значение ключа блока для записи
func BlockingKey(rec *normalization.PreprocessedRecord, field normalization.MappingField) string {
	switch field {
	case normalization.FieldVillage:
		return rec.Village
	case normalization.FieldPhone:
		return rec.PhoneDigits
	case normalization.FieldNationalID:
		return rec.NationalID
	case normalization.FieldHusbandName:
		return rec.HusbandKey
	case normalization.FieldWomanName:
		if len(rec.NameParts) > 0 {
			return rec.NameParts[0]
		}
	}
	return ""
}

// CandidatePairs множество пар записей, которые нужно сравнить
type CandidatePairs struct {
	n          int
	exhaustive bool
	blocks     [][]int
	unkeyed    []int
	keyed      []bool
}

// NewCandidatePairs строит кандидатов. Ниже порога сравнение полное.
// Записи с пустым ключом сравниваются со всеми записями.
func NewCandidatePairs(records []*normalization.PreprocessedRecord, opts BlockingOptions) *CandidatePairs {
	minRecords := opts.MinRecords
	if minRecords <= 0 {
		minRecords = DefaultBlockingMinRecords
	}

	cp := &CandidatePairs{n: len(records)}
	if opts.Field == "" || len(records) <= minRecords {
		cp.exhaustive = true
		return cp
	}

	byKey := make(map[string][]int)
	cp.keyed = make([]bool, len(records))
	for i, rec := range records {
		key := BlockingKey(rec, opts.Field)
		if key == "" {
			cp.unkeyed = append(cp.unkeyed, i)
			continue
		}
		cp.keyed[i] = true
		byKey[key] = append(byKey[key], i)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		cp.blocks = append(cp.blocks, byKey[key])
	}

	return cp
}

// Exhaustive true, если сравниваются все пары
func (cp *CandidatePairs) Exhaustive() bool {
	return cp.exhaustive
}

// Total число пар-кандидатов
func (cp *CandidatePairs) Total() int {
	if cp.exhaustive {
		return cp.n * (cp.n - 1) / 2
	}

	total := 0
	for _, block := range cp.blocks {
		total += len(block) * (len(block) - 1) / 2
	}
	u := len(cp.unkeyed)
	// без ключа: со всеми записями с ключом и между собой
	total += u*(cp.n-u) + u*(u-1)/2
	return total
}

// Each перебирает пары (i, j) с i < j; перебор останавливается, если fn вернула false
func (cp *CandidatePairs) Each(fn func(i, j int) bool) {
	if cp.exhaustive {
		for i := 0; i < cp.n; i++ {
			for j := i + 1; j < cp.n; j++ {
				if !fn(i, j) {
					return
				}
			}
		}
		return
	}

	for _, block := range cp.blocks {
		for x := 0; x < len(block); x++ {
			for y := x + 1; y < len(block); y++ {
				if !fn(block[x], block[y]) {
					return
				}
			}
		}
	}

	for _, u := range cp.unkeyed {
		for j := 0; j < cp.n; j++ {
			if j == u {
				continue
			}
			// пары двух записей без ключа перебираются один раз
			if !cp.keyed[j] && j < u {
				continue
			}
			i, k := u, j
			if k < i {
				i, k = k, i
			}
			if !fn(i, k) {
				return
			}
		}
	}
}
