package algorithms

import "math"

const (
	// winklerPrefixLimit максимальная длина общего префикса для бонуса Винклера
	winklerPrefixLimit = 4
	// winklerScaling коэффициент масштабирования бонуса
	winklerScaling = 0.1
	// winklerBoostThreshold бонус применяется только к достаточно похожим строкам
	winklerBoostThreshold = 0.7
)

// JaroSimilarity вычисляет сходство Jaro между двумя токенами.
// Пустой токен дает 0, одинаковые непустые токены дают 1.
func JaroSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)

	// Окно совпадений
	matchWindow := max(len1, len2)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	matches1 := make([]bool, len1)
	matches2 := make([]bool, len2)
	matches := 0

	for i := 0; i < len1; i++ {
		start := max(0, i-matchWindow)
		end := min(len2, i+matchWindow+1)

		for j := start; j < end; j++ {
			if matches2[j] || r1[i] != r2[j] {
				continue
			}
			matches1[i] = true
			matches2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Транспозиции
	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matches1[i] {
			continue
		}
		for !matches2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2.0)/m) / 3.0
}

// JaroWinklerSimilarity вычисляет сходство Jaro-Winkler, результат в [0, 1]
func JaroWinklerSimilarity(s1, s2 string) float64 {
	jaro := JaroSimilarity(s1, s2)
	if jaro < winklerBoostThreshold {
		return jaro
	}

	r1, r2 := []rune(s1), []rune(s2)
	prefixLen := 0
	for i := 0; i < min(len(r1), len(r2)) && i < winklerPrefixLimit; i++ {
		if r1[i] != r2[i] {
			break
		}
		prefixLen++
	}

	winkler := jaro + float64(prefixLen)*winklerScaling*(1.0-jaro)
	return math.Min(winkler, 1.0)
}
