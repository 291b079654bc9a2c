package dedup

import (
	"dedupserver/normalization"
	"dedupserver/normalization/algorithms"
)

// Comparator сравнивает пары предобработанных записей
type Comparator struct {
	// OrderFreeExactLimit до какого числа токенов выравнивание считается точно
	OrderFreeExactLimit int
}

// NewComparator создает компаратор; exactLimit <= 0 означает значение по умолчанию
func NewComparator(exactLimit int) *Comparator {
	if exactLimit <= 0 {
		exactLimit = algorithms.DefaultOrderFreeExactLimit
	}
	return &Comparator{OrderFreeExactLimit: exactLimit}
}

var defaultComparator = NewComparator(0)

// Compare сравнивает две записи компаратором по умолчанию
func Compare(a, b *normalization.PreprocessedRecord, rules *RuleSet) PairScore {
	return defaultComparator.Compare(a, b, rules)
}

// Compare вычисляет все компоненты сходства, итоговую оценку и решение о совпадении.
// Записи упорядочиваются по внутреннему ID, поэтому Compare(a, b) == Compare(b, a).
func (c *Comparator) Compare(a, b *normalization.PreprocessedRecord, rules *RuleSet) PairScore {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	if b.ID() < a.ID() {
		a, b = b, a
	}

	score := PairScore{
		RecordA:        a.ID(),
		RecordB:        b.ID(),
		WomanLineage:   algorithms.CompareLineage(a.NameParts, b.NameParts),
		HusbandLineage: algorithms.CompareLineage(a.HusbandNameParts, b.HusbandNameParts),
		OrderFreeScore: algorithms.OrderFreeSimilarity(a.NameParts, b.NameParts, c.OrderFreeExactLimit),
		PhoneScore:     algorithms.PhoneMatch(a.PhoneDigits, b.PhoneDigits),
		ChildrenScore:  algorithms.TokenJaccard(a.ChildrenNormalized, b.ChildrenNormalized),

		HusbandInformative:  len(a.HusbandNameParts) > 0 && len(b.HusbandNameParts) > 0,
		PhoneInformative:    a.PhoneDigits != "" || b.PhoneDigits != "",
		ChildrenInformative: len(a.ChildrenNormalized) > 0 || len(b.ChildrenNormalized) > 0,
	}

	score.WomanNameScore = score.WomanLineage.Mean(len(a.NameParts), len(b.NameParts))
	score.HusbandNameScore = score.HusbandLineage.Mean(len(a.HusbandNameParts), len(b.HusbandNameParts))
	score.AggregateScore = aggregate(score, rules.Weights)
	score.IsMatch, score.MatchedBy = rules.Match(score)

	return score
}

// aggregate взвешенное среднее информативных компонентов.
// Пустые с обеих сторон телефон и дети выбывают из знаменателя и не штрафуют пару.
func aggregate(score PairScore, w algorithms.AggregateWeights) float64 {
	total := w.Family*score.WomanLineage.Family + w.OrderFree*score.OrderFreeScore
	weight := w.Family + w.OrderFree

	if score.PhoneInformative {
		total += w.Phone * score.PhoneScore
		weight += w.Phone
	}
	if score.ChildrenInformative {
		total += w.Children * score.ChildrenScore
		weight += w.Children
	}

	if weight <= 0 {
		return 0
	}
	return min(total/weight, 1.0)
}
