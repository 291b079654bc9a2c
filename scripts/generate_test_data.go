//go:build ignore

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"dedupserver/importer"
	"dedupserver/normalization"
)

var headers = []string{"woman", "husband", "national_id", "phone", "village", "children"}

var (
	femaleNames = []string{"فاطمة", "زينب", "مريم", "عائشة", "خديجة", "أمينة", "سعاد", "هدى", "نورة", "رقية"}
	maleNames   = []string{"أحمد", "محمد", "علي", "حسن", "سعيد", "ناصر", "صالح", "عبدالله", "قاسم", "يحيى", "عبد الرحمن"}
	families    = []string{"الحداد", "العمري", "الشامي", "السقاف", "الأهدل", "باوزير", "الجبري", "المقطري"}
	villages    = []string{"بني مطر", "الحيمة", "همدان", "عتمة", "وصاب", "ريمة"}
)

// GoldenGroup ожидаемая группа дублей
type GoldenGroup struct {
	Records []string `json:"records"`
	Variant string   `json:"variant"`
}

// GoldenDataset ожидаемый результат для сгенерированного списка
type GoldenDataset struct {
	Seed    int64         `json:"seed"`
	Records int           `json:"records"`
	Groups  []GoldenGroup `json:"groups"`
}

type person struct {
	woman    []string
	husband  []string
	id       string
	phone    string
	village  string
	children []string
}

func main() {
	count := flag.Int("records", 1000, "number of unique beneficiaries")
	dupRate := flag.Float64("duplicates", 0.1, "share of beneficiaries registered twice")
	seed := flag.Int64("seed", 42, "random seed")
	outDir := flag.String("out", filepath.Join("tests", "data"), "output directory")
	flag.Parse()

	gofakeit.Seed(*seed)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	type entry struct {
		p       person
		group   int
		variant string
	}
	var entries []entry
	groups := 0
	for i := 0; i < *count; i++ {
		p := randomPerson()
		if gofakeit.Float64() >= *dupRate {
			entries = append(entries, entry{p: p, group: -1})
			continue
		}
		dup, variant := mutate(p)
		entries = append(entries, entry{p: p, group: groups, variant: variant}, entry{p: dup, group: groups, variant: variant})
		groups++
	}
	gofakeit.ShuffleAnySlice(entries)

	records := make([]*normalization.RawRecord, 0, len(entries))
	golden := GoldenDataset{Seed: *seed, Groups: make([]GoldenGroup, groups)}
	for _, e := range entries {
		// номера совпадают с теми, что импортер присвоит строкам файла
		id := importer.RecordID(len(records) + 1)
		records = append(records, &normalization.RawRecord{
			InternalID: id,
			Fields: map[string]any{
				"woman":       strings.Join(e.p.woman, " "),
				"husband":     strings.Join(e.p.husband, " "),
				"national_id": e.p.id,
				"phone":       e.p.phone,
				"village":     e.p.village,
				"children":    strings.Join(e.p.children, "، "),
			},
		})
		if e.group >= 0 {
			g := &golden.Groups[e.group]
			g.Records = append(g.Records, id)
			g.Variant = e.variant
		}
	}
	golden.Records = len(records)

	xlsxPath := filepath.Join(*outDir, fmt.Sprintf("beneficiaries_%d.xlsx", len(records)))
	f, err := os.Create(xlsxPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", xlsxPath, err)
	}
	if err := importer.WriteExcel(f, headers, records); err != nil {
		f.Close()
		log.Fatalf("Failed to write %s: %v", xlsxPath, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", xlsxPath, err)
	}

	goldenPath := filepath.Join(*outDir, fmt.Sprintf("beneficiaries_%d.golden.json", len(records)))
	data, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal golden dataset: %v", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", goldenPath, err)
	}

	fmt.Printf("Generated %d records (%d duplicate pairs) in %s\n", len(records), len(golden.Groups), xlsxPath)
}

func randomPerson() person {
	family := gofakeit.RandomString(families)
	p := person{
		woman:   []string{gofakeit.RandomString(femaleNames), gofakeit.RandomString(maleNames), gofakeit.RandomString(maleNames), family},
		husband: []string{gofakeit.RandomString(maleNames), gofakeit.RandomString(maleNames), gofakeit.RandomString(maleNames), gofakeit.RandomString(families)},
		id:      gofakeit.Numerify("01#########"),
		phone:   gofakeit.RandomString([]string{"77", "73", "71", "70"}) + gofakeit.Numerify("#######"),
		village: gofakeit.RandomString(villages),
	}
	for n := gofakeit.Number(0, 4); n > 0; n-- {
		if gofakeit.Bool() {
			p.children = append(p.children, gofakeit.RandomString(maleNames))
		} else {
			p.children = append(p.children, gofakeit.RandomString(femaleNames))
		}
	}
	return p
}

// mutate повторная регистрация того же человека с типичными расхождениями
func mutate(p person) (person, string) {
	dup := p
	dup.woman = append([]string(nil), p.woman...)
	dup.husband = append([]string(nil), p.husband...)

	switch gofakeit.Number(0, 4) {
	case 0:
		dup.woman[0] = spellingVariant(dup.woman[0])
		return dup, "spelling"
	case 1:
		dup.woman = append(dup.woman[:2:2], dup.woman[3])
		return dup, "dropped_grandfather"
	case 2:
		dup.phone = "+967 " + p.phone[:3] + " " + p.phone[3:6] + " " + p.phone[6:]
		return dup, "phone_format"
	case 3:
		dup.woman[0], dup.woman[1] = dup.woman[1], dup.woman[0]
		return dup, "order_swap"
	default:
		dup.id = gofakeit.Numerify("01#########")
		return dup, "new_id"
	}
}

func spellingVariant(name string) string {
	r := strings.NewReplacer("ة", "ه", "أ", "ا", "ى", "ي")
	if v := r.Replace(name); v != name {
		return v
	}
	return name + "ه"
}
