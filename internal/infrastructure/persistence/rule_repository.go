package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dedupserver/database"
	"dedupserver/dedup"
	"dedupserver/internal/domain/repositories"
)

// ruleRepository реализация репозитория правил
// Адаптер между domain интерфейсом и infrastructure (database.RulesDB)
type ruleRepository struct {
	db *database.RulesDB
}

// NewRuleRepository создает новый репозиторий правил
func NewRuleRepository(db *database.RulesDB) repositories.RuleRepository {
	return &ruleRepository{db: db}
}

// List возвращает правила в порядке добавления
func (r *ruleRepository) List(ctx context.Context) ([]dedup.Rule, error) {
	rows, err := r.db.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]dedup.Rule, 0, len(rows))
	for i := range rows {
		rule, err := fromRuleRow(&rows[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// Get возвращает правило по ID
func (r *ruleRepository) Get(ctx context.Context, id string) (*dedup.Rule, error) {
	row, err := r.db.GetRule(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			return nil, fmt.Errorf("rule %s: %w", id, repositories.ErrNotFound)
		}
		return nil, err
	}
	return fromRuleRow(row)
}

// Append сохраняет правило в конец набора
func (r *ruleRepository) Append(ctx context.Context, rule *dedup.Rule) error {
	row, err := toRuleRow(rule)
	if err != nil {
		return err
	}
	if err := r.db.InsertRule(ctx, row); err != nil {
		if errors.Is(err, database.ErrRuleExists) {
			return fmt.Errorf("rule %s: %w", rule.ID, repositories.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func toRuleRow(rule *dedup.Rule) (*database.RuleRow, error) {
	clauses, err := json.Marshal(rule.Clauses)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule clauses: %w", err)
	}
	return &database.RuleRow{
		ID:          rule.ID,
		Name:        rule.Name,
		ClausesJSON: string(clauses),
		SourceA:     rule.Source.RecordA,
		SourceB:     rule.Source.RecordB,
		Note:        rule.Note,
		GeneratedAt: rule.GeneratedAt,
	}, nil
}

func fromRuleRow(row *database.RuleRow) (*dedup.Rule, error) {
	var clauses []dedup.Clause
	if err := json.Unmarshal([]byte(row.ClausesJSON), &clauses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clauses of rule %s: %w", row.ID, err)
	}
	return &dedup.Rule{
		ID:          row.ID,
		Name:        row.Name,
		Clauses:     clauses,
		GeneratedAt: row.GeneratedAt,
		Source:      dedup.RuleSource{RecordA: row.SourceA, RecordB: row.SourceB},
		Note:        row.Note,
	}, nil
}
