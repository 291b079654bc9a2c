package quality

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dedupserver/dedup"
	"dedupserver/normalization"
	"dedupserver/normalization/algorithms"
)


// groupBy группирует записи по ключу, пустые ключи пропускаются.
// Ключи возвращаются отсортированными.
func groupBy(records []*normalization.PreprocessedRecord, key func(*normalization.PreprocessedRecord) string) ([]string, map[string][]*normalization.PreprocessedRecord) {
	groups := make(map[string][]*normalization.PreprocessedRecord)
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], rec)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// rawRecords исходные записи, упорядоченные по ID
func rawRecords(records []*normalization.PreprocessedRecord) []*normalization.RawRecord {
	raw := make([]*normalization.RawRecord, len(records))
	for i, rec := range records {
		raw[i] = rec.Raw
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].InternalID < raw[j].InternalID })
	return raw
}

// distinct уникальные непустые значения в порядке сортировки
func distinct(records []*normalization.PreprocessedRecord, value func(*normalization.PreprocessedRecord) string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, rec := range records {
		v := value(rec)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// husbandIdentities объединяет варианты написания имени мужа
func husbandIdentities(husbands []string, threshold float64) [][]string {
	var identities [][]string
	for _, h := range husbands {
		placed := false
		for i, identity := range identities {
			for _, known := range identity {
				if algorithms.JaroWinklerSimilarity(h, known) >= threshold {
					identities[i] = append(identities[i], h)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			identities = append(identities, []string{h})
		}
	}
	return identities
}

// personIndex ключ человека для каждой записи: имя женщины и личность мужа.
// Варианты написания мужа сводятся к одной личности. Запись без мужа
// присоединяется к единственной личности мужа этой женщины.
type personIndex map[*normalization.PreprocessedRecord]string

func buildPersonIndex(records []*normalization.PreprocessedRecord, threshold float64) personIndex {
	index := make(personIndex, len(records))
	keys, groups := groupBy(records, func(r *normalization.PreprocessedRecord) string { return r.WomanKey })

	for _, woman := range keys {
		group := groups[woman]
		identities := husbandIdentities(distinct(group, func(r *normalization.PreprocessedRecord) string { return r.HusbandKey }), threshold)

		canonical := make(map[string]string)
		for _, identity := range identities {
			for _, h := range identity {
				canonical[h] = identity[0]
			}
		}

		for _, rec := range group {
			husband := canonical[rec.HusbandKey]
			if rec.HusbandKey == "" && len(identities) == 1 {
				husband = identities[0][0]
			}
			index[rec] = woman + "|" + husband
		}
	}
	return index
}

// key пустая строка для записей без имени женщины
func (p personIndex) key(rec *normalization.PreprocessedRecord) string {
	return p[rec]
}

// detectWomanMultipleHusbands одна женщина с двумя и более разными мужьями
func detectWomanMultipleHusbands(records []*normalization.PreprocessedRecord, threshold float64) []AuditFinding {
	var findings []AuditFinding
	keys, groups := groupBy(records, func(r *normalization.PreprocessedRecord) string { return r.WomanKey })

	for _, woman := range keys {
		group := groups[woman]
		if len(group) < 2 {
			continue
		}

		husbands := distinct(group, func(r *normalization.PreprocessedRecord) string { return r.HusbandKey })
		identities := husbandIdentities(husbands, threshold)
		if len(identities) < 2 {
			continue
		}

		withHusband := make([]*normalization.PreprocessedRecord, 0, len(group))
		for _, rec := range group {
			if rec.HusbandKey != "" {
				withHusband = append(withHusband, rec)
			}
		}

		names := make([]string, len(identities))
		for i, identity := range identities {
			names[i] = identity[0]
		}

		findings = append(findings, AuditFinding{
			Type:        FindingWomanMultipleHusbands,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("woman %q is registered with %d different husbands: %s", woman, len(identities), strings.Join(names, ", ")),
			Key:         woman,
			Records:     rawRecords(withHusband),
		})
	}
	return findings
}

// detectMultipleNationalIDs один человек с двумя и более номерами удостоверений
func detectMultipleNationalIDs(records []*normalization.PreprocessedRecord, persons personIndex) []AuditFinding {
	var findings []AuditFinding
	keys, groups := groupBy(records, persons.key)

	for _, key := range keys {
		group := groups[key]
		ids := distinct(group, func(r *normalization.PreprocessedRecord) string { return r.NationalID })
		if len(ids) < 2 {
			continue
		}

		withID := make([]*normalization.PreprocessedRecord, 0, len(group))
		for _, rec := range group {
			if rec.NationalID != "" {
				withID = append(withID, rec)
			}
		}

		findings = append(findings, AuditFinding{
			Type:        FindingMultipleNationalIDs,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("person %q has %d different national ids: %s", key, len(ids), strings.Join(ids, ", ")),
			Key:         key,
			Records:     rawRecords(withID),
		})
	}
	return findings
}

// detectDuplicateIDs один номер удостоверения у разных людей
func detectDuplicateIDs(records []*normalization.PreprocessedRecord, persons personIndex) []AuditFinding {
	var findings []AuditFinding
	keys, groups := groupBy(records, func(r *normalization.PreprocessedRecord) string { return r.NationalID })

	for _, id := range keys {
		group := groups[id]
		owners := distinct(group, persons.key)
		if len(owners) < 2 {
			continue
		}

		findings = append(findings, AuditFinding{
			Type:        FindingDuplicateID,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("national id %s is shared by %d different persons", id, len(owners)),
			Key:         id,
			Records:     rawRecords(group),
		})
	}
	return findings
}

// detectDuplicateCouples одна и та же пара (жена, муж) в нескольких записях.
// Группы, уже объясненные MULTIPLE_NATIONAL_IDS, пропускаются.
func detectDuplicateCouples(records []*normalization.PreprocessedRecord, persons personIndex, explained map[string]struct{}) []AuditFinding {
	var findings []AuditFinding
	keys, groups := groupBy(records, func(r *normalization.PreprocessedRecord) string {
		if r.HusbandKey == "" {
			return ""
		}
		return persons.key(r)
	})

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		if _, ok := explained[key]; ok {
			continue
		}

		findings = append(findings, AuditFinding{
			Type:        FindingDuplicateCouple,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("couple %q appears in %d records", key, len(group)),
			Key:         key,
			Records:     rawRecords(group),
		})
	}
	return findings
}

// detectHighSimilarity пары с высокой итоговой оценкой, не попавшие в один кластер.
// Пары, связанные совпадениями через третьи записи, уже объединены и не сообщаются.
func detectHighSimilarity(ctx context.Context, records []*normalization.PreprocessedRecord, rules *dedup.RuleSet, opts AuditOptions) ([]AuditFinding, error) {
	candidates := dedup.NewCandidatePairs(records, opts.Blocking)
	total := candidates.Total()
	progress := dedup.NewProgressReporter(opts.Progress)
	uf := dedup.NewUnionFind(len(records))

	type nearMiss struct {
		i, j  int
		score dedup.PairScore
	}
	var misses []nearMiss
	var ctxErr error
	done := 0

	candidates.Each(func(i, j int) bool {
		if done%dedup.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				ctxErr = err
				return false
			}
		}
		done++
		progress.Report(done, total)

		score := opts.Comparator.Compare(records[i], records[j], rules)
		switch {
		case score.IsMatch:
			uf.Union(i, j)
		case score.AggregateScore >= opts.HighSimilarityThreshold:
			misses = append(misses, nearMiss{i: i, j: j, score: score})
		}
		return true
	})
	if ctxErr != nil {
		return nil, ctxErr
	}

	var findings []AuditFinding
	for _, m := range misses {
		if uf.Find(m.i) == uf.Find(m.j) {
			continue
		}

		severity := SeverityLow
		if m.score.AggregateScore >= mediumSimilarityThreshold {
			severity = SeverityMedium
		}

		findings = append(findings, AuditFinding{
			Type:     FindingHighSimilarity,
			Severity: severity,
			Description: fmt.Sprintf("records %s and %s are similar (score %.2f) but not matched",
				m.score.RecordA, m.score.RecordB, m.score.AggregateScore),
			Key:     m.score.RecordA + "~" + m.score.RecordB,
			Records: rawRecords([]*normalization.PreprocessedRecord{records[m.i], records[m.j]}),
		})
	}

	progress.Report(total, total)
	return findings, nil
}
