package algorithms

import (
	"math"
	"slices"
	"strings"
)

// DefaultOrderFreeExactLimit максимальное число токенов, для которого
// выравнивание считается точно (венгерский алгоритм)
const DefaultOrderFreeExactLimit = 8

// OrderFreeSimilarity сравнивает имена без учета порядка токенов: находит
// взаимно однозначное выравнивание токенов с максимальным суммарным сходством
// Jaro-Winkler и делит сумму на длину большего списка.
// При max(len) <= exactLimit используется точное решение задачи о назначениях,
// иначе жадный подбор лучших пар.
func OrderFreeSimilarity(a, b []string, exactLimit int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if exactLimit <= 0 {
		exactLimit = DefaultOrderFreeExactLimit
	}

	// Фиксируем порядок аргументов, чтобы результат был строго симметричным
	if strings.Join(a, " ") > strings.Join(b, " ") {
		a, b = b, a
	}

	n := max(len(a), len(b))
	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, n)
		if i >= len(a) {
			continue
		}
		for j := 0; j < len(b); j++ {
			weights[i][j] = JaroWinklerSimilarity(a[i], b[j])
		}
	}

	var total float64
	if n <= exactLimit {
		total = hungarianMaxWeight(weights)
	} else {
		total = greedyMaxWeight(weights)
	}

	return math.Min(total/float64(n), 1.0)
}

// hungarianMaxWeight решает задачу о назначениях на квадратной матрице весов
// и возвращает максимальный суммарный вес
func hungarianMaxWeight(weights [][]float64) float64 {
	n := len(weights)
	cost := func(i, j int) float64 { return 1.0 - weights[i][j] }

	inf := math.Inf(1)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		for j := range minv {
			minv[j] = inf
		}
		used := make([]bool, n+1)

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	var total float64
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			total += weights[p[j]-1][j-1]
		}
	}
	return total
}

// greedyMaxWeight берет пары по убыванию веса, пока есть свободные строки и столбцы
func greedyMaxWeight(weights [][]float64) float64 {
	type cell struct {
		i, j int
		w    float64
	}

	cells := make([]cell, 0, len(weights)*len(weights))
	for i, row := range weights {
		for j, w := range row {
			if w > 0 {
				cells = append(cells, cell{i: i, j: j, w: w})
			}
		}
	}

	slices.SortStableFunc(cells, func(x, y cell) int {
		switch {
		case x.w > y.w:
			return -1
		case x.w < y.w:
			return 1
		}
		return 0
	})

	usedRows := make(map[int]bool)
	usedCols := make(map[int]bool)
	var total float64
	for _, c := range cells {
		if usedRows[c.i] || usedCols[c.j] {
			continue
		}
		usedRows[c.i] = true
		usedCols[c.j] = true
		total += c.w
	}
	return total
}
