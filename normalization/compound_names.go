package normalization

// compoundDictionary известные составные имена, которые пишутся и слитно, и раздельно.
// Ключи хранятся в уже свернутой форме (без огласовок, ة -> ه и т.д.).
var compoundDictionary = map[string]string{
	"عبد الله":    "عبدالله",
	"عبد الرحمن":  "عبدالرحمن",
	"ابو بكر":     "ابوبكر",
	"ام كلثوم":    "امكلثوم",
	"نور الدين":   "نورالدين",
	"نور الهدي":   "نورالهدي",
	"ست البنات":   "ستالبنات",
	"ست الدار":    "ستالدار",
	"سيف الاسلام": "سيفالاسلام",
	"بنت الهدي":   "بنتالهدي",
	"ملك الدار":   "ملكالدار",
}

// compoundPrefixes токены, которые сливаются со следующим токеном
var compoundPrefixes = map[string]struct{}{
	"عبد": {},
	"ابو": {},
	"ام":  {},
	"امه": {},
}

// compoundSuffixes токены, которые сливаются с предыдущим токеном
var compoundSuffixes = map[string]struct{}{
	"الدين":   {},
	"الله":    {},
	"الرحمن":  {},
	"الاسلام": {},
}

// fuseCompounds склеивает составные имена до неподвижной точки,
// чтобы повторная нормализация ничего не меняла
func fuseCompounds(tokens []string) []string {
	for {
		fused, changed := fuseCompoundsOnce(tokens)
		if !changed {
			return fused
		}
		tokens = fused
	}
}

func fuseCompoundsOnce(tokens []string) ([]string, bool) {
	if len(tokens) < 2 {
		return tokens, false
	}

	result := make([]string, 0, len(tokens))
	changed := false

	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if fused, ok := fusePair(tokens[i], tokens[i+1]); ok {
				result = append(result, fused)
				changed = true
				i++
				continue
			}
		}
		result = append(result, tokens[i])
	}

	return result, changed
}

// fusePair проверяет словарь, затем позиционные правила
func fusePair(left, right string) (string, bool) {
	if fused, ok := compoundDictionary[left+" "+right]; ok {
		return fused, true
	}
	if _, ok := compoundPrefixes[left]; ok {
		return left + right, true
	}
	if _, ok := compoundSuffixes[right]; ok {
		return left + right, true
	}
	return "", false
}
