package dedup

import (
	"dedupserver/normalization/algorithms"
)

// MatchedByDefault пара признана совпадением по порогу итоговой оценки
const MatchedByDefault = "default"

// ScoreField поле оценки пары, к которому обращаются условия правил
type ScoreField string

const (
	ScoreWomanName          ScoreField = "woman_name"
	ScoreHusbandName        ScoreField = "husband_name"
	ScoreOrderFree          ScoreField = "order_free"
	ScorePhone              ScoreField = "phone"
	ScoreChildren           ScoreField = "children"
	ScoreAggregate          ScoreField = "aggregate"
	ScoreWomanFirst         ScoreField = "woman_first"
	ScoreWomanFather        ScoreField = "woman_father"
	ScoreWomanGrandfather   ScoreField = "woman_grandfather"
	ScoreWomanFamily        ScoreField = "woman_family"
	ScoreHusbandFirst       ScoreField = "husband_first"
	ScoreHusbandFather      ScoreField = "husband_father"
	ScoreHusbandGrandfather ScoreField = "husband_grandfather"
	ScoreHusbandFamily      ScoreField = "husband_family"
	ScoreAnyLineage         ScoreField = "any_lineage"
)

// PairScore результат сравнения двух записей. Вычисляется заново при каждом
// сравнении и не кэшируется между разными наборами правил.
type PairScore struct {
	RecordA string `json:"record_a"`
	RecordB string `json:"record_b"`

	WomanNameScore   float64 `json:"woman_name_score"`
	HusbandNameScore float64 `json:"husband_name_score"`
	OrderFreeScore   float64 `json:"order_free_score"`
	PhoneScore       float64 `json:"phone_score"`
	ChildrenScore    float64 `json:"children_score"`
	AggregateScore   float64 `json:"aggregate_score"`

	WomanLineage   algorithms.LineageScores `json:"woman_lineage"`
	HusbandLineage algorithms.LineageScores `json:"husband_lineage"`

	HusbandInformative  bool `json:"husband_informative"`
	PhoneInformative    bool `json:"phone_informative"`
	ChildrenInformative bool `json:"children_informative"`

	IsMatch   bool   `json:"is_match"`
	MatchedBy string `json:"matched_by,omitempty"`
}

// Field возвращает значение поля оценки; false для неизвестного поля
func (p PairScore) Field(field ScoreField) (float64, bool) {
	switch field {
	case ScoreWomanName:
		return p.WomanNameScore, true
	case ScoreHusbandName:
		return p.HusbandNameScore, true
	case ScoreOrderFree:
		return p.OrderFreeScore, true
	case ScorePhone:
		return p.PhoneScore, true
	case ScoreChildren:
		return p.ChildrenScore, true
	case ScoreAggregate:
		return p.AggregateScore, true
	case ScoreWomanFirst:
		return p.WomanLineage.First, true
	case ScoreWomanFather:
		return p.WomanLineage.Father, true
	case ScoreWomanGrandfather:
		return p.WomanLineage.Grandfather, true
	case ScoreWomanFamily:
		return p.WomanLineage.Family, true
	case ScoreHusbandFirst:
		return p.HusbandLineage.First, true
	case ScoreHusbandFather:
		return p.HusbandLineage.Father, true
	case ScoreHusbandGrandfather:
		return p.HusbandLineage.Grandfather, true
	case ScoreHusbandFamily:
		return p.HusbandLineage.Family, true
	case ScoreAnyLineage:
		return p.WomanLineage.Max(), true
	}
	return 0, false
}

// IsKnownScoreField проверяет, что поле можно использовать в условии правила
func IsKnownScoreField(field ScoreField) bool {
	_, ok := PairScore{}.Field(field)
	return ok
}
