package dedup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dedupserver/normalization/algorithms"
)

// DefaultMatchThreshold порог итоговой оценки по умолчанию
const DefaultMatchThreshold = 0.85

var (
	// ErrInvalidRule правило не проходит проверку
	ErrInvalidRule = errors.New("invalid rule")
	// ErrDuplicateRule правило с таким ID уже есть в наборе
	ErrDuplicateRule = errors.New("rule with this id already exists")
)

// Operator оператор сравнения в условии правила
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
	OpEqual          Operator = "=="
)

// equalTolerance допуск для оператора "==" на значениях с плавающей точкой
const equalTolerance = 1e-9

// Clause одно условие правила: поле, оператор, порог
type Clause struct {
	Field     ScoreField `json:"field"`
	Operator  Operator   `json:"operator"`
	Threshold float64    `json:"threshold"`
}

// Evaluate проверяет условие на оценке пары
func (c Clause) Evaluate(score PairScore) bool {
	value, ok := score.Field(c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpGreaterOrEqual:
		return value >= c.Threshold
	case OpGreater:
		return value > c.Threshold
	case OpLessOrEqual:
		return value <= c.Threshold
	case OpLess:
		return value < c.Threshold
	case OpEqual:
		return value-c.Threshold < equalTolerance && c.Threshold-value < equalTolerance
	}
	return false
}

// Validate проверяет поле, оператор и порог
func (c Clause) Validate() error {
	if !IsKnownScoreField(c.Field) {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidRule, c.Field)
	}
	switch c.Operator {
	case OpGreaterOrEqual, OpGreater, OpLessOrEqual, OpLess, OpEqual:
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidRule, c.Operator)
	}
	if err := algorithms.ValidateThreshold(c.Threshold); err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrInvalidRule, c.Field, err)
	}
	return nil
}

// String человекочитаемая форма условия
func (c Clause) String() string {
	return fmt.Sprintf("%s %s %.3f", c.Field, c.Operator, c.Threshold)
}

// RuleSource пара записей, из которой выучено правило
type RuleSource struct {
	RecordA string `json:"record_a"`
	RecordB string `json:"record_b"`
}

// Rule декларативное правило совпадения: конъюнкция условий.
// Правило только интерпретируется, никакой код из него не строится.
type Rule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Clauses     []Clause   `json:"clauses"`
	GeneratedAt time.Time  `json:"generated_at"`
	Source      RuleSource `json:"source"`
	Note        string     `json:"note,omitempty"`
}

// Evaluate true, если все условия выполняются. Правило без условий не срабатывает.
func (r Rule) Evaluate(score PairScore) bool {
	if len(r.Clauses) == 0 {
		return false
	}
	for _, clause := range r.Clauses {
		if !clause.Evaluate(score) {
			return false
		}
	}
	return true
}

// Validate проверяет правило целиком
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	if len(r.Clauses) == 0 {
		return fmt.Errorf("%w: rule %s has no clauses", ErrInvalidRule, r.ID)
	}
	for _, clause := range r.Clauses {
		if err := clause.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Preview текстовое представление правила для просмотра перед сохранением
func (r Rule) Preview() string {
	parts := make([]string, 0, len(r.Clauses))
	for _, clause := range r.Clauses {
		parts = append(parts, clause.String())
	}
	return strings.Join(parts, " AND ")
}

// RuleSet веса, порог и упорядоченный список правил (только добавление)
type RuleSet struct {
	Weights        algorithms.AggregateWeights `json:"weights"`
	MatchThreshold float64                     `json:"match_threshold"`
	Rules          []Rule                      `json:"rules"`
}

// DefaultRuleSet набор с весами и порогом по умолчанию и без правил
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Weights:        algorithms.DefaultAggregateWeights(),
		MatchThreshold: DefaultMatchThreshold,
		Rules:          []Rule{},
	}
}

// Validate проверяет веса, порог и все правила
func (rs *RuleSet) Validate() error {
	if err := algorithms.ValidateWeights(&rs.Weights); err != nil {
		return err
	}
	if err := algorithms.ValidateThreshold(rs.MatchThreshold); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(rs.Rules))
	for _, rule := range rs.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

// Match применяет порог и правила к оценке пары.
// Возвращает признак совпадения и источник: "default" или ID правила.
func (rs *RuleSet) Match(score PairScore) (bool, string) {
	if score.AggregateScore >= rs.MatchThreshold {
		return true, MatchedByDefault
	}
	for _, rule := range rs.Rules {
		if rule.Evaluate(score) {
			return true, rule.ID
		}
	}
	return false, ""
}

// Find ищет правило по ID
func (rs *RuleSet) Find(id string) (Rule, bool) {
	for _, rule := range rs.Rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// Append добавляет проверенное правило в конец набора
func (rs *RuleSet) Append(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if _, exists := rs.Find(rule.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
	}
	rs.Rules = append(rs.Rules, rule)
	return nil
}

// Clone глубокая копия набора: запуск получает собственный снимок
func (rs *RuleSet) Clone() *RuleSet {
	if rs == nil {
		return DefaultRuleSet()
	}
	clone := &RuleSet{
		Weights:        rs.Weights,
		MatchThreshold: rs.MatchThreshold,
		Rules:          make([]Rule, len(rs.Rules)),
	}
	for i, rule := range rs.Rules {
		rule.Clauses = append([]Clause(nil), rule.Clauses...)
		clone.Rules[i] = rule
	}
	return clone
}
