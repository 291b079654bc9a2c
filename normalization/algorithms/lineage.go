package algorithms

// LineageScores сходство по позициям родословной: имя, отец, дед, семья
type LineageScores struct {
	First       float64 `json:"first"`
	Father      float64 `json:"father"`
	Grandfather float64 `json:"grandfather"`
	Family      float64 `json:"family"`
}

// CompareLineage сравнивает имена позиционно. Позиции 0, 1, 2 сравниваются
// напрямую, семья - последний токен с последним. Отсутствующая позиция дает 0.
func CompareLineage(a, b []string) LineageScores {
	return LineageScores{
		First:       JaroWinklerSimilarity(tokenAt(a, 0), tokenAt(b, 0)),
		Father:      JaroWinklerSimilarity(tokenAt(a, 1), tokenAt(b, 1)),
		Grandfather: JaroWinklerSimilarity(tokenAt(a, 2), tokenAt(b, 2)),
		Family:      JaroWinklerSimilarity(lastToken(a), lastToken(b)),
	}
}

// Mean усредняет позиции, которые есть хотя бы в одном из имен.
// Для двух пустых имен результат 0.
func (s LineageScores) Mean(aLen, bLen int) float64 {
	longest := max(aLen, bLen)
	if longest == 0 {
		return 0
	}

	positions := []float64{s.First}
	if longest > 1 {
		positions = append(positions, s.Father)
	}
	if longest > 2 {
		positions = append(positions, s.Grandfather)
	}
	// у имени из 1-3 токенов семья совпадает с одной из позиций выше,
	// отдельно она учитывается только для длинных имен
	if longest > 3 {
		positions = append(positions, s.Family)
	}

	var sum float64
	for _, v := range positions {
		sum += v
	}
	return sum / float64(len(positions))
}

// Max наибольшее сходство среди четырех позиций
func (s LineageScores) Max() float64 {
	return max(s.First, s.Father, s.Grandfather, s.Family)
}

func tokenAt(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

func lastToken(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
