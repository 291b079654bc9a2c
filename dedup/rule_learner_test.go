package dedup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dedupserver/normalization/algorithms"
)

// lowerEveryField уменьшает все поля оценки на delta
func lowerEveryField(score PairScore, delta float64) PairScore {
	dec := func(v float64) float64 { return v - delta }
	score.WomanNameScore = dec(score.WomanNameScore)
	score.HusbandNameScore = dec(score.HusbandNameScore)
	score.OrderFreeScore = dec(score.OrderFreeScore)
	score.PhoneScore = dec(score.PhoneScore)
	score.ChildrenScore = dec(score.ChildrenScore)
	score.AggregateScore = dec(score.AggregateScore)
	score.WomanLineage = algorithms.LineageScores{
		First:       dec(score.WomanLineage.First),
		Father:      dec(score.WomanLineage.Father),
		Grandfather: dec(score.WomanLineage.Grandfather),
		Family:      dec(score.WomanLineage.Family),
	}
	return score
}

func TestLearnSoundness(t *testing.T) {
	recs := preprocess(t,
		row("R1", "سلمى يحي قاسم الحميري", "علي محمد", "777123456", "سارة، علي"),
		row("R7", "قاسم سلمي يحيى", "علي محمد ناصر", "", "سارة"),
	)

	learner := NewRuleLearner(nil)
	learner.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	learner.newID = func() string { return "learned-1" }

	rules := DefaultRuleSet()
	rule, err := learner.Learn(recs[1], recs[0], ObservedPattern{Note: "confirmed by field team"}, rules)
	require.NoError(t, err)

	assert.Equal(t, "learned-1", rule.ID)
	assert.Equal(t, RuleSource{RecordA: "R1", RecordB: "R7"}, rule.Source)
	assert.Equal(t, "confirmed by field team", rule.Note)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), rule.GeneratedAt)
	require.NoError(t, rule.Validate())
	assert.Empty(t, rules.Rules, "learning must not modify the rule set")

	for _, clause := range rule.Clauses {
		assert.Equal(t, OpGreaterOrEqual, clause.Operator)
		assert.Greater(t, clause.Threshold, DefaultMinSignal)
	}

	source := Compare(recs[0], recs[1], rules)
	assert.True(t, rule.Evaluate(source), "learned rule must match its own pair")
	assert.False(t, rule.Evaluate(lowerEveryField(source, 0.01)), "strictly lower pair must not match")
}

func TestLearnRestrictedFields(t *testing.T) {
	recs := preprocess(t,
		row("R1", "فاطمه احمد علي", "", "111222", ""),
		row("R2", "فاطمه احمد علي", "", "333444", ""),
	)

	rule, err := Learn(recs[0], recs[1], ObservedPattern{Fields: []ScoreField{ScoreOrderFree, ScorePhone}}, nil)
	require.NoError(t, err)
	require.Len(t, rule.Clauses, 1, "phone differs and must be dropped")
	assert.Equal(t, ScoreOrderFree, rule.Clauses[0].Field)
	assert.Contains(t, rule.Name, "R1")
}

func TestLearnNoPattern(t *testing.T) {
	recs := preprocess(t,
		row("R1", "فاطمه", "", "111222", ""),
		row("R2", "زينب", "", "333444", ""),
	)

	_, err := Learn(recs[0], recs[1], ObservedPattern{Fields: []ScoreField{ScorePhone, ScoreChildren}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPattern))
	assert.True(t, algorithms.HasCode(err, algorithms.ErrCodeNoPattern))
}

func TestLearnInvalidInput(t *testing.T) {
	recs := preprocess(t, row("R1", "فاطمه", "", "", ""))

	_, err := Learn(recs[0], recs[0], ObservedPattern{}, nil)
	assert.True(t, algorithms.HasCode(err, algorithms.ErrCodeInvalidInput))

	_, err = Learn(recs[0], nil, ObservedPattern{}, nil)
	assert.True(t, algorithms.HasCode(err, algorithms.ErrCodeInvalidInput))
}
