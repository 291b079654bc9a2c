package normalization

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"пустая строка", "", ""},
		{"только пробелы", "   \t ", ""},
		{"только пунктуация", "!!! ... ???", ""},
		{"та марбута", "فاطمة", "فاطمه"},
		{"хамза над алифом", "أحمد", "احمد"},
		{"хамза под алифом", "إبراهيم", "ابراهيم"},
		{"мадда", "آمنة", "امنه"},
		{"алиф максура", "يحيى", "يحيي"},
		{"огласовки", "مُحَمَّد", "محمد"},
		{"татвиль", "محـــمد", "محمد"},
		{"персидская каф", "کریم", "كريم"},
		{"лишние пробелы", "  علي   حسن  ", "علي حسن"},
		{"пунктуация внутри", "علي-حسن،محمد", "علي حسن محمد"},
		{"латиница в нижний регистр", "Fatima ALI", "fatima ali"},
		{"арабские цифры", "٠١٢٣", "0123"},
		{"составное имя абд", "عبد الله محمد", "عبدالله محمد"},
		{"составное имя с суффиксом", "نور الدين علي", "نورالدين علي"},
		{"составное имя абу", "ابو بكر سالم", "ابوبكر سالم"},
		{"составное имя амат", "امة الرحمن علي", "امهالرحمن علي"},
		{"уже слитное имя", "عبدالله محمد", "عبدالله محمد"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestNormalizeIdempotent повторная нормализация не меняет результат
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"فاطمة أحمد علي محمد",
		"عبد عبد الله",
		"ام عبد الله",
		"سيف الاسلام نور الدين",
		"  إِبْرَاهِيم   يحيى ",
		"Mixed نص 123 ٤٥٦",
		"ة ى ؤ ئ ء",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeHamzaVariants(t *testing.T) {
	if Normalize("فاطمة احمد علي محمد") != Normalize("فاطمه أحمد علي محمد") {
		t.Error("hamza/ta-marbuta variants should normalize to the same form")
	}
}

func TestPhoneDigits(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"+967 777 123 456", "123456"},
		{"٧٧٧١٢٣٤٥٦", "123456"},
		{"12-34", "1234"},
		{"no digits", ""},
	}

	for _, tt := range tests {
		if got := PhoneDigits(tt.input); got != tt.expected {
			t.Errorf("PhoneDigits(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitChildren(t *testing.T) {
	got := SplitChildren("محمد، علي و فاطمة; سارة/ خالد")
	expected := []string{"محمد", "علي", "فاطمة", "سارة", "خالد"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("SplitChildren = %v, want %v", got, expected)
	}

	if got := SplitChildren("   "); len(got) != 0 {
		t.Errorf("expected no children for blank input, got %v", got)
	}
}

func TestChildrenTokens(t *testing.T) {
	set := ChildrenTokens([]string{"فاطمة", "فاطمه", "", "علي"})
	if len(set) != 2 {
		t.Fatalf("expected 2 unique children, got %d: %v", len(set), set)
	}
	if _, ok := set["فاطمه"]; !ok {
		t.Error("expected normalized فاطمه in set")
	}
}
