package normalization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []*RawRecord {
	return []*RawRecord{
		{InternalID: "R1", Fields: map[string]any{
			"name":     "فاطمة أحمد علي",
			"husband":  "محمد سالم",
			"id":       float64(1234567),
			"phone":    "+967 777 123 456",
			"children": "علي، سارة",
			"village":  "القرية",
		}},
		{InternalID: "R2", Fields: map[string]any{
			"name":  "فاطمه احمد علي",
			"phone": "777123456",
		}},
	}
}

func TestPreprocess(t *testing.T) {
	mapping := FieldMapping{
		WomanName:   "name",
		HusbandName: "husband",
		NationalID:  "id",
		Phone:       "phone",
		Children:    "children",
		Village:     "village",
	}

	recs, err := Preprocess(sampleRecords(), mapping)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "R1", first.ID())
	assert.Equal(t, []string{"فاطمه", "احمد", "علي"}, first.NameParts)
	assert.Equal(t, "محمد سالم", first.HusbandKey)
	assert.Equal(t, "1234567", first.NationalID)
	assert.Equal(t, "123456", first.PhoneDigits)
	assert.Len(t, first.ChildrenNormalized, 2)
	assert.Equal(t, "القريه", first.Village)

	second := recs[1]
	assert.Equal(t, first.WomanKey, second.WomanKey)
	assert.Empty(t, second.HusbandNameParts)
	assert.Empty(t, second.ChildrenNormalized)
}

func TestPreprocessMappingErrors(t *testing.T) {
	t.Run("MissingWomanName", func(t *testing.T) {
		_, err := Preprocess(sampleRecords(), FieldMapping{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingMapping))
	})

	t.Run("MissingRequiredNationalID", func(t *testing.T) {
		_, err := Preprocess(sampleRecords(), FieldMapping{WomanName: "name"}, FieldNationalID)
		require.Error(t, err)

		var mappingErr *MappingError
		require.True(t, errors.As(err, &mappingErr))
		assert.Equal(t, FieldNationalID, mappingErr.Field)
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		_, err := Preprocess(sampleRecords(), FieldMapping{WomanName: "name", Phone: "mobile"})
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		recs := sampleRecords()
		recs[1].InternalID = "R1"
		_, err := Preprocess(recs, FieldMapping{WomanName: "name"})
		assert.ErrorIs(t, err, ErrDuplicateRecordID)
	})
}

func TestRawRecordValue(t *testing.T) {
	rec := &RawRecord{InternalID: "R1", Fields: map[string]any{
		"big":   float64(1234567890123),
		"int":   42,
		"list":  []any{"a", "b"},
		"empty": nil,
	}}

	assert.Equal(t, "1234567890123", rec.Value("big"))
	assert.Equal(t, "42", rec.Value("int"))
	assert.Equal(t, "a, b", rec.Value("list"))
	assert.Equal(t, "", rec.Value("empty"))
	assert.Equal(t, "", rec.Value("missing"))
}
