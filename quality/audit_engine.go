package quality

import (
	"context"
	"sort"

	"dedupserver/dedup"
	"dedupserver/normalization"
)

// FindingType тип находки аудита
type FindingType string

const (
	FindingWomanMultipleHusbands FindingType = "WOMAN_MULTIPLE_HUSBANDS"
	FindingMultipleNationalIDs   FindingType = "MULTIPLE_NATIONAL_IDS"
	FindingDuplicateID           FindingType = "DUPLICATE_ID"
	FindingDuplicateCouple       FindingType = "DUPLICATE_COUPLE"
	FindingHighSimilarity        FindingType = "HIGH_SIMILARITY"
)

// Severity серьезность находки
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	}
	return 2
}

const (
	// DefaultHusbandVariantThreshold имена мужа с таким сходством считаются одним человеком
	DefaultHusbandVariantThreshold = 0.92
	// DefaultHighSimilarityThreshold нижняя граница итоговой оценки для HIGH_SIMILARITY
	DefaultHighSimilarityThreshold = 0.75
	// mediumSimilarityThreshold начиная с этой оценки HIGH_SIMILARITY имеет серьезность medium
	mediumSimilarityThreshold = 0.80
)

// AuditFinding одна находка аудита, всегда содержит две и более записи
type AuditFinding struct {
	Type        FindingType                `json:"type"`
	Severity    Severity                   `json:"severity"`
	Description string                     `json:"description"`
	Key         string                     `json:"key"`
	Records     []*normalization.RawRecord `json:"records"`
}

// RecordIDs внутренние идентификаторы записей находки
func (f AuditFinding) RecordIDs() []string {
	ids := make([]string, len(f.Records))
	for i, r := range f.Records {
		ids[i] = r.InternalID
	}
	return ids
}

// AuditOptions параметры аудита
type AuditOptions struct {
	Blocking                dedup.BlockingOptions
	Comparator              *dedup.Comparator
	HusbandVariantThreshold float64
	HighSimilarityThreshold float64
	Progress                dedup.ProgressFunc
}

func (o AuditOptions) withDefaults() AuditOptions {
	if o.HusbandVariantThreshold <= 0 {
		o.HusbandVariantThreshold = DefaultHusbandVariantThreshold
	}
	if o.HighSimilarityThreshold <= 0 {
		o.HighSimilarityThreshold = DefaultHighSimilarityThreshold
	}
	if o.Comparator == nil {
		o.Comparator = dedup.NewComparator(0)
	}
	return o
}

// Audit проверяет записи на признаки мошенничества и дублирования.
// Работает независимо от кластеризации.
func Audit(ctx context.Context, records []*normalization.PreprocessedRecord, rules *dedup.RuleSet, opts AuditOptions) ([]AuditFinding, error) {
	opts = opts.withDefaults()
	if rules == nil {
		rules = dedup.DefaultRuleSet()
	}

	sorted := make([]*normalization.PreprocessedRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	var findings []AuditFinding
	findings = append(findings, detectWomanMultipleHusbands(sorted, opts.HusbandVariantThreshold)...)

	persons := buildPersonIndex(sorted, opts.HusbandVariantThreshold)
	multipleIDs := detectMultipleNationalIDs(sorted, persons)
	findings = append(findings, multipleIDs...)
	findings = append(findings, detectDuplicateIDs(sorted, persons)...)

	explained := make(map[string]struct{}, len(multipleIDs))
	for _, f := range multipleIDs {
		explained[f.Key] = struct{}{}
	}
	findings = append(findings, detectDuplicateCouples(sorted, persons, explained)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	similar, err := detectHighSimilarity(ctx, sorted, rules, opts)
	if err != nil {
		return nil, err
	}
	findings = append(findings, similar...)

	SortFindings(findings)
	return findings, nil
}

// SortFindings упорядочивает по серьезности, типу и первой записи
func SortFindings(findings []AuditFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return firstID(a) < firstID(b)
	})
}

func firstID(f AuditFinding) string {
	if len(f.Records) == 0 {
		return ""
	}
	return f.Records[0].InternalID
}

// GroupByRecord индексирует находки по внутреннему ID записи
func GroupByRecord(findings []AuditFinding) map[string][]AuditFinding {
	grouped := make(map[string][]AuditFinding)
	for _, f := range findings {
		for _, r := range f.Records {
			grouped[r.InternalID] = append(grouped[r.InternalID], f)
		}
	}
	return grouped
}

// AuditSummary количество находок по типам и серьезности
type AuditSummary struct {
	Total      int                 `json:"total"`
	ByType     map[FindingType]int `json:"by_type"`
	BySeverity map[Severity]int    `json:"by_severity"`
}

// Summarize считает находки
func Summarize(findings []AuditFinding) AuditSummary {
	summary := AuditSummary{
		Total:      len(findings),
		ByType:     make(map[FindingType]int),
		BySeverity: make(map[Severity]int),
	}
	for _, f := range findings {
		summary.ByType[f.Type]++
		summary.BySeverity[f.Severity]++
	}
	return summary
}
