package algorithms

// TokenJaccard вычисляет индекс Жаккара двух множеств токенов
// Индекс Жаккара = |A ∩ B| / |A ∪ B|
// Для двух пустых множеств возвращает 0: вызывающий код считает такое
// сравнение неинформативным.
func TokenJaccard(set1, set2 map[string]struct{}) float64 {
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	// Перебираем меньшее множество
	if len(set1) > len(set2) {
		set1, set2 = set2, set1
	}

	intersection := 0
	for elem := range set1 {
		if _, ok := set2[elem]; ok {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// PhoneMatch 1, если оба номера непустые и совпадают, иначе 0
func PhoneMatch(a, b string) float64 {
	if a != "" && a == b {
		return 1.0
	}
	return 0.0
}
