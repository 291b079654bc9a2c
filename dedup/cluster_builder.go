package dedup

import (
	"context"
	"fmt"
	"sort"

	"dedupserver/normalization"
)

// ContextCheckInterval как часто (в парах) проверяется отмена контекста
const ContextCheckInterval = 1024

// ProgressFunc получает процент выполнения 0..100, значения не убывают
type ProgressFunc func(percent float64)

// ClusterOptions параметры построения кластеров
type ClusterOptions struct {
	Blocking   BlockingOptions
	Comparator *Comparator
	Progress   ProgressFunc
}

// Cluster компонента связности из записей, связанных совпадениями
type Cluster struct {
	ID         string                     `json:"id"`
	Members    []*normalization.RawRecord `json:"members"`
	PairScores []PairScore                `json:"pair_scores"`
	Confidence float64                    `json:"confidence"`
	Decision   Decision                   `json:"decision"`
	Reasons    []string                   `json:"reasons"`
}

// MemberIDs внутренние идентификаторы участников
func (c Cluster) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.InternalID
	}
	return ids
}

// UnionFind система непересекающихся множеств с сжатием путей
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind n одиночных множеств 0..n-1
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find корень множества, содержащего x
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union объединяет множества a и b
func (uf *UnionFind) Union(a, b int) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// ProgressReporter вызывает ProgressFunc не чаще раза на процент и только с ростом
type ProgressReporter struct {
	fn   ProgressFunc
	last float64
}

// NewProgressReporter создает репортер; nil fn допустим
func NewProgressReporter(fn ProgressFunc) *ProgressReporter {
	return &ProgressReporter{fn: fn}
}

// Report сообщает о выполнении done из total
func (p *ProgressReporter) Report(done, total int) {
	if p.fn == nil {
		return
	}
	percent := 100.0
	if total > 0 {
		percent = float64(done) * 100 / float64(total)
	}
	if percent >= p.last+1 || (percent == 100 && p.last < 100) {
		p.last = percent
		p.fn(percent)
	}
}

// BuildClusters сравнивает пары-кандидаты, объединяет совпадения в компоненты
// связности и возвращает кластеры из двух и более записей.
// Результат не зависит от порядка входных записей.
func BuildClusters(ctx context.Context, records []*normalization.PreprocessedRecord, rules *RuleSet, opts ClusterOptions) ([]Cluster, error) {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	comparator := opts.Comparator
	if comparator == nil {
		comparator = defaultComparator
	}

	// Канонический порядок по ID
	sorted := make([]*normalization.PreprocessedRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	candidates := NewCandidatePairs(sorted, opts.Blocking)
	total := candidates.Total()
	progress := NewProgressReporter(opts.Progress)

	uf := NewUnionFind(len(sorted))
	var edges []PairScore
	done := 0
	var ctxErr error

	candidates.Each(func(i, j int) bool {
		if done%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				ctxErr = err
				return false
			}
		}

		score := comparator.Compare(sorted[i], sorted[j], rules)
		if score.IsMatch {
			edges = append(edges, score)
			uf.Union(i, j)
		}

		done++
		progress.Report(done, total)
		return true
	})
	if ctxErr != nil {
		return nil, ctxErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := assembleClusters(sorted, uf, edges, rules)
	progress.Report(total, total)
	return clusters, nil
}

// assembleClusters собирает компоненты, сортирует участников и ребра, назначает ID
func assembleClusters(sorted []*normalization.PreprocessedRecord, uf *UnionFind, edges []PairScore, rules *RuleSet) []Cluster {
	index := make(map[string]int, len(sorted))
	for i, rec := range sorted {
		index[rec.ID()] = i
	}

	members := make(map[int][]int)
	for i := range sorted {
		root := uf.Find(i)
		members[root] = append(members[root], i)
	}

	edgesByRoot := make(map[int][]PairScore)
	for _, edge := range edges {
		root := uf.Find(index[edge.RecordA])
		edgesByRoot[root] = append(edgesByRoot[root], edge)
	}

	clusters := make([]Cluster, 0)
	for root, idx := range members {
		if len(idx) < 2 {
			continue
		}

		// sorted уже упорядочен по ID, индексы внутри компоненты растут
		sort.Ints(idx)
		cluster := Cluster{
			Members:    make([]*normalization.RawRecord, len(idx)),
			PairScores: edgesByRoot[root],
		}
		for k, i := range idx {
			cluster.Members[k] = sorted[i].Raw
		}
		sort.Slice(cluster.PairScores, func(a, b int) bool {
			pa, pb := cluster.PairScores[a], cluster.PairScores[b]
			if pa.RecordA != pb.RecordA {
				return pa.RecordA < pb.RecordA
			}
			return pa.RecordB < pb.RecordB
		})

		cluster.Confidence = Confidence(cluster)
		cluster.Decision = DecisionLabel(cluster.Confidence)
		cluster.Reasons = clusterReasons(cluster.PairScores, rules)
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Members[0].InternalID < clusters[j].Members[0].InternalID
	})
	for i := range clusters {
		clusters[i].ID = fmt.Sprintf("C%d", i+1)
	}

	return clusters
}

// clusterReasons человекочитаемые причины объединения
func clusterReasons(edges []PairScore, rules *RuleSet) []string {
	var reasons []string
	seen := make(map[string]struct{})
	add := func(reason string) {
		if _, ok := seen[reason]; ok {
			return
		}
		seen[reason] = struct{}{}
		reasons = append(reasons, reason)
	}

	var bestAggregate, bestOrderFree float64
	for _, edge := range edges {
		bestAggregate = max(bestAggregate, edge.AggregateScore)
		if edge.OrderFreeScore > edge.WomanNameScore {
			bestOrderFree = max(bestOrderFree, edge.OrderFreeScore)
		}
	}

	if bestAggregate > 0 {
		add(fmt.Sprintf("aggregate score %.2f", bestAggregate))
	}
	for _, edge := range edges {
		if edge.PhoneScore == 1 {
			add("same phone")
		}
		if edge.ChildrenInformative && edge.ChildrenScore == 1 {
			add("same children")
		}
		if edge.HusbandInformative && edge.HusbandNameScore >= 0.9 {
			add("same husband")
		}
		if edge.MatchedBy != "" && edge.MatchedBy != MatchedByDefault {
			name := edge.MatchedBy
			if rule, ok := rules.Find(edge.MatchedBy); ok && rule.Name != "" {
				name = rule.Name
			}
			add("rule " + name)
		}
	}
	if bestOrderFree >= 0.9 {
		add(fmt.Sprintf("order-free name match %.2f", bestOrderFree))
	}

	return reasons
}
