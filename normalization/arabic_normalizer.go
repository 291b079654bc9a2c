package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// phoneDigitsLength количество хвостовых цифр телефона, участвующих в сравнении
const phoneDigitsLength = 6

const tatweel = 'ـ'

// letterVariants приводит варианты написания арабских букв к единой форме.
// Формы с хамзой над/под алифом, ؤ и ئ уже разложены NFKD и очищены от
// огласовок, сюда попадают только буквы без канонического разложения.
var letterVariants = map[rune]rune{
	'ٱ': 'ا', // алиф васла
	'ٲ': 'ا',
	'ٳ': 'ا',
	'ٵ': 'ا',
	'ى': 'ي', // алиф максура
	'ی': 'ي', // персидская йа
	'ۍ': 'ي',
	'ة': 'ه', // та марбута
	'ە': 'ه',
	'ۀ': 'ه',
	'ک': 'ك', // персидская каф
	'ڪ': 'ك',
	'گ': 'ك',
}

// newFoldingTransformer создает цепочку NFKD -> удаление огласовок и татвиля -> NFC.
// Трансформер хранит состояние, поэтому создается на каждый вызов.
func newFoldingTransformer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel })),
		norm.NFC,
	)
}

// Normalize приводит имя к канонической форме для сравнения.
// Пустой или мусорный ввод дает пустую строку, функция никогда не паникует.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	folded, _, err := transform.String(newFoldingTransformer(), raw)
	if err != nil {
		// transform.String возвращает ошибку только на некорректных трансформерах,
		// в этом случае работаем с исходной строкой
		folded = raw
	}

	folded = strings.Map(foldRune, folded)
	tokens := strings.Fields(folded)
	if len(tokens) == 0 {
		return ""
	}

	return strings.Join(fuseCompounds(tokens), " ")
}

// foldRune унифицирует одну руну; все, что не буква арабского/латинского
// алфавита и не цифра, превращается в пробел, отдельная хамза удаляется
func foldRune(r rune) rune {
	if r == 'ء' {
		return -1
	}
	if mapped, ok := letterVariants[r]; ok {
		return mapped
	}
	if d, ok := asciiDigit(r); ok {
		return d
	}
	if unicode.IsLetter(r) {
		switch {
		case unicode.Is(unicode.Arabic, r):
			return r
		case unicode.Is(unicode.Latin, r):
			return unicode.ToLower(r)
		}
	}
	return ' '
}

// asciiDigit переводит арабско-индийские и восточно-арабские цифры в ASCII
func asciiDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r, true
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠'), true
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰'), true
	}
	return 0, false
}

// SplitLineage разбивает каноническое имя на позиции родословной:
// имя, отец, дед, ..., семья
func SplitLineage(canonical string) []string {
	return strings.Fields(canonical)
}

// PhoneDigits оставляет только цифры и возвращает последние шесть (или меньше)
func PhoneDigits(raw string) string {
	if raw == "" {
		return ""
	}

	var builder strings.Builder
	for _, r := range norm.NFKC.String(raw) {
		if d, ok := asciiDigit(r); ok {
			builder.WriteRune(d)
		}
	}

	digits := builder.String()
	if len(digits) > phoneDigitsLength {
		return digits[len(digits)-phoneDigitsLength:]
	}
	return digits
}

// NationalIDDigits нормализует номер удостоверения личности: только цифры
func NationalIDDigits(raw string) string {
	var builder strings.Builder
	for _, r := range norm.NFKC.String(raw) {
		if d, ok := asciiDigit(r); ok {
			builder.WriteRune(d)
		}
	}
	return builder.String()
}

// childrenSeparators разделители в поле "дети"
var childrenSeparators = []string{",", "،", ";", "؛", "/", "|", "\n", "\r", "\t", "-", "+"}

// SplitChildren разбивает сырое поле с именами детей на отдельные имена.
// Союз "و" между именами тоже считается разделителем.
func SplitChildren(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	replacerArgs := make([]string, 0, len(childrenSeparators)*2)
	for _, sep := range childrenSeparators {
		replacerArgs = append(replacerArgs, sep, "\x00")
	}
	unified := strings.NewReplacer(replacerArgs...).Replace(raw)

	parts := strings.Split(unified, "\x00")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, name := range strings.Split(part, " و ") {
			name = strings.TrimSpace(name)
			if name != "" {
				result = append(result, name)
			}
		}
	}
	return result
}

// ChildrenTokens нормализует каждое имя и возвращает неупорядоченное множество
func ChildrenTokens(raw []string) map[string]struct{} {
	set := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		if canonical := Normalize(name); canonical != "" {
			set[canonical] = struct{}{}
		}
	}
	return set
}
