package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dedupserver/database"
	"dedupserver/dedup"
	"dedupserver/internal/domain/repositories"
	"dedupserver/normalization"
)

func newTestDB(t *testing.T) *database.RulesDB {
	t.Helper()
	db, err := database.NewRulesDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRuleRepository_AppendListGet(t *testing.T) {
	repo := NewRuleRepository(newTestDB(t))
	ctx := context.Background()

	rule := &dedup.Rule{
		ID:   "r-1",
		Name: "same phone and children",
		Clauses: []dedup.Clause{
			{Field: dedup.ScorePhone, Operator: dedup.OpGreaterOrEqual, Threshold: 1},
			{Field: dedup.ScoreChildren, Operator: dedup.OpGreaterOrEqual, Threshold: 0.5},
		},
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Source:      dedup.RuleSource{RecordA: "R1", RecordB: "R7"},
		Note:        "confirmed by field officer",
	}
	require.NoError(t, repo.Append(ctx, rule))
	require.NoError(t, repo.Append(ctx, &dedup.Rule{
		ID:      "r-0",
		Name:    "order free",
		Clauses: []dedup.Clause{{Field: dedup.ScoreOrderFree, Operator: dedup.OpGreater, Threshold: 0.9}},
	}))

	rules, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r-1", rules[0].ID, "rules keep insertion order")
	assert.Equal(t, rule.Clauses, rules[0].Clauses)
	assert.Equal(t, rule.Source, rules[0].Source)
	assert.Equal(t, rule.Note, rules[0].Note)
	assert.True(t, rule.GeneratedAt.Equal(rules[0].GeneratedAt))

	got, err := repo.Get(ctx, "r-0")
	require.NoError(t, err)
	assert.Equal(t, "order free", got.Name)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	err = repo.Append(ctx, rule)
	assert.True(t, errors.Is(err, repositories.ErrAlreadyExists))
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	snapshot := &repositories.SessionSnapshot{
		ID:     "s-1",
		Source: "beneficiaries.xlsx",
		Records: []*normalization.RawRecord{
			{InternalID: "R1", Fields: map[string]any{"woman": "فاطمة", "national_id": "01234567"}},
			{InternalID: "R2", Fields: map[string]any{"woman": "زينب", "phone": 777123456.0}},
		},
		Mapping:   normalization.FieldMapping{WomanName: "woman", NationalID: "national_id", Phone: "phone"},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Save(ctx, snapshot))

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Mapping, got.Mapping)
	require.Len(t, got.Records, 2)
	// ведущий ноль и длинный номер телефона сохраняются
	assert.Equal(t, "01234567", got.Records[0].Value("national_id"))
	assert.Equal(t, "777123456", got.Records[1].Value("phone"))

	updated := got.WithRunIDs("run-1", "")
	require.NoError(t, repo.Save(ctx, updated))
	got, err = repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.LastClusterRunID)

	require.NoError(t, repo.Delete(ctx, "s-1"))
	_, err = repo.Get(ctx, "s-1")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}
