package dedup

// Decision итоговая метка кластера
type Decision string

const (
	DecisionConfirmed          Decision = "confirmed duplicate"
	DecisionSuspectedConfirmed Decision = "suspected-confirmed duplicate"
	DecisionSuspected          Decision = "suspected duplicate"
	DecisionPossible           Decision = "possible duplicate"
)

// AllDecisions метки в порядке убывания уверенности
var AllDecisions = []Decision{
	DecisionConfirmed,
	DecisionSuspectedConfirmed,
	DecisionSuspected,
	DecisionPossible,
}

// Веса комбинации оценок жены и мужа: меньшая оценка весит больше
const (
	lowerScoreWeight  = 0.65
	higherScoreWeight = 0.35
)

// Confidence уверенность кластера 0..100.
// W - среднее сходство имени женщины по ребрам, H - среднее сходство мужа по ребрам,
// где муж указан с обеих сторон. Без информативных ребер по мужу уверенность = 100*W.
func Confidence(cluster Cluster) float64 {
	if len(cluster.PairScores) == 0 {
		return 0
	}

	var womanSum, husbandSum float64
	husbandEdges := 0
	for _, edge := range cluster.PairScores {
		womanSum += edge.WomanNameScore
		if edge.HusbandInformative {
			husbandSum += edge.HusbandNameScore
			husbandEdges++
		}
	}

	w := womanSum / float64(len(cluster.PairScores))
	if husbandEdges == 0 {
		return clampPercent(100 * w)
	}

	h := husbandSum / float64(husbandEdges)
	return clampPercent(100 * CombineScores(w, h))
}

// CombineScores монотонная по обоим аргументам комбинация, равная 1 только при w = h = 1
func CombineScores(w, h float64) float64 {
	return lowerScoreWeight*min(w, h) + higherScoreWeight*max(w, h)
}

func clampPercent(v float64) float64 {
	return max(0, min(100, v))
}

// DecisionLabel переводит уверенность в метку. Единая функция для всех представлений.
func DecisionLabel(confidence float64) Decision {
	switch {
	case confidence >= 90:
		return DecisionConfirmed
	case confidence >= 80:
		return DecisionSuspectedConfirmed
	case confidence >= 70:
		return DecisionSuspected
	default:
		return DecisionPossible
	}
}

// ClusterSummary сводка по кластерам для отчетов
type ClusterSummary struct {
	TotalClusters     int              `json:"total_clusters"`
	RecordsInClusters int              `json:"records_in_clusters"`
	ByDecision        map[Decision]int `json:"by_decision"`
}

// Summarize считает кластеры по меткам
func Summarize(clusters []Cluster) ClusterSummary {
	summary := ClusterSummary{
		TotalClusters: len(clusters),
		ByDecision:    make(map[Decision]int, len(AllDecisions)),
	}
	for _, d := range AllDecisions {
		summary.ByDecision[d] = 0
	}
	for _, c := range clusters {
		summary.RecordsInClusters += len(c.Members)
		summary.ByDecision[DecisionLabel(c.Confidence)]++
	}
	return summary
}
