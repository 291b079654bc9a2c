package dedup

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dedupserver/normalization"
	"dedupserver/normalization/algorithms"
)

// DefaultMinSignal компоненты не выше этого значения не попадают в правило
const DefaultMinSignal = 0.05

// ErrNoPattern у пары нет ни одного значимого компонента для правила
var ErrNoPattern = algorithms.NewSimilarityError(algorithms.ErrCodeNoPattern, "no pattern to learn", nil)

// LearnableFields компоненты, из которых строится выученное правило
var LearnableFields = []ScoreField{
	ScoreWomanFirst,
	ScoreWomanFather,
	ScoreWomanGrandfather,
	ScoreWomanFamily,
	ScoreOrderFree,
	ScoreHusbandName,
	ScorePhone,
	ScoreChildren,
}

// ObservedPattern что оператор заметил в паре подтвержденных дублей
type ObservedPattern struct {
	// Fields ограничивает правило этими компонентами; пусто - все изучаемые
	Fields []ScoreField `json:"fields,omitempty"`
	Name   string       `json:"name,omitempty"`
	Note   string       `json:"note,omitempty"`
}

// RuleLearner строит правило из пары записей, подтвержденных как дубли
type RuleLearner struct {
	comparator *Comparator
	minSignal  float64
	now        func() time.Time
	newID      func() string
}

// NewRuleLearner создает обучатель правил
func NewRuleLearner(comparator *Comparator) *RuleLearner {
	if comparator == nil {
		comparator = defaultComparator
	}
	return &RuleLearner{
		comparator: comparator,
		minSignal:  DefaultMinSignal,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Learn обучает правило обучателем по умолчанию
func Learn(a, b *normalization.PreprocessedRecord, pattern ObservedPattern, rules *RuleSet) (*Rule, error) {
	return NewRuleLearner(nil).Learn(a, b, pattern, rules)
}

// Learn вычисляет оценку пары и превращает значимые компоненты в условия ">=".
// Набор правил не изменяется: результат нужно явно сохранить.
func (l *RuleLearner) Learn(a, b *normalization.PreprocessedRecord, pattern ObservedPattern, rules *RuleSet) (*Rule, error) {
	if a == nil || b == nil {
		return nil, algorithms.NewSimilarityError(algorithms.ErrCodeInvalidInput, "both records are required", nil)
	}
	if a.ID() == b.ID() {
		return nil, algorithms.NewSimilarityError(algorithms.ErrCodeInvalidInput, "cannot learn from a record paired with itself", nil).
			WithDetail("record", a.ID())
	}

	allowed, err := allowedFields(pattern.Fields)
	if err != nil {
		return nil, err
	}

	score := l.comparator.Compare(a, b, rules)

	clauses := make([]Clause, 0, len(LearnableFields))
	for _, field := range LearnableFields {
		if _, ok := allowed[field]; !ok {
			continue
		}
		value, _ := score.Field(field)
		if value <= l.minSignal {
			continue
		}
		clauses = append(clauses, Clause{Field: field, Operator: OpGreaterOrEqual, Threshold: value})
	}

	if len(clauses) == 0 {
		return nil, ErrNoPattern
	}

	name := pattern.Name
	if name == "" {
		name = fmt.Sprintf("learned from %s and %s", score.RecordA, score.RecordB)
	}

	return &Rule{
		ID:          l.newID(),
		Name:        name,
		Clauses:     clauses,
		GeneratedAt: l.now().UTC(),
		Source:      RuleSource{RecordA: score.RecordA, RecordB: score.RecordB},
		Note:        pattern.Note,
	}, nil
}

// allowedFields множество разрешенных компонентов; поля вне изучаемого набора - ошибка
func allowedFields(fields []ScoreField) (map[ScoreField]struct{}, error) {
	learnable := make(map[ScoreField]struct{}, len(LearnableFields))
	for _, f := range LearnableFields {
		learnable[f] = struct{}{}
	}
	if len(fields) == 0 {
		return learnable, nil
	}

	allowed := make(map[ScoreField]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := learnable[f]; !ok {
			return nil, algorithms.NewSimilarityError(algorithms.ErrCodeInvalidInput,
				fmt.Sprintf("field %q cannot be learned", f), nil).
				WithDetail("field", f)
		}
		allowed[f] = struct{}{}
	}
	return allowed, nil
}
