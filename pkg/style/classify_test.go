package style

import (
	"testing"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/sld"
)

func f(v float64) *float64 { return &v }

func TestClassifyEmpty(t *testing.T) {
	if res := Classify(nil); !res.Empty() {
		t.Errorf("Classify(nil) = %+v, want empty", res)
	}
}

func TestClassifySingleSymbol(t *testing.T) {
	c := color.RGB(49, 130, 189)
	res := Classify([]sld.Rule{{Label: "Districts", Color: c}})

	single, ok := res.Renderer.(SingleSymbol)
	if !ok {
		t.Fatalf("Renderer = %T, want SingleSymbol", res.Renderer)
	}
	if single.Color != c {
		t.Errorf("Color = %s, want %s", single.Color, c)
	}
	if len(res.Legend) != 1 || res.Legend[0].Title != "Districts" {
		t.Errorf("Legend = %+v", res.Legend)
	}
}

func TestClassifyBins(t *testing.T) {
	red, green, blue := color.RGB(255, 0, 0), color.RGB(0, 255, 0), color.RGB(0, 0, 255)
	rules := []sld.Rule{
		{Label: "high", Color: red, PropertyName: "v", RangeMin: f(10), RangeMax: f(20), Discrete: true},
		{Label: "low", Color: green, PropertyName: "v", RangeMax: f(10), Discrete: true},
		{Label: "dup", Color: blue, PropertyName: "v", RangeMin: f(5), RangeMax: f(20), Discrete: true},
		{Label: "other prop", Color: blue, PropertyName: "w", RangeMax: f(1), Discrete: true},
		{Label: "else", Color: blue, Discrete: true},
	}

	res := Classify(rules)
	bins, ok := res.Renderer.(BinClassification)
	if !ok {
		t.Fatalf("Renderer = %T, want BinClassification", res.Renderer)
	}
	if bins.PropertyName != "v" {
		t.Errorf("PropertyName = %q", bins.PropertyName)
	}
	wantMax := []float64{10, 20}
	wantColors := []color.Color{green, red}
	if len(bins.BinMaximums) != len(wantMax) {
		t.Fatalf("BinMaximums = %v, want %v", bins.BinMaximums, wantMax)
	}
	for i := range wantMax {
		if bins.BinMaximums[i] != wantMax[i] || bins.BinColors[i] != wantColors[i] {
			t.Errorf("bin %d = %v %s, want %v %s", i, bins.BinMaximums[i], bins.BinColors[i], wantMax[i], wantColors[i])
		}
	}
	if err := bins.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if len(res.Legend) != len(rules) {
		t.Fatalf("len(Legend) = %d, want every rule", len(res.Legend))
	}
	for i, r := range rules {
		if res.Legend[i].Title != r.Label {
			t.Errorf("Legend[%d] = %q, want %q (input order)", i, res.Legend[i].Title, r.Label)
		}
	}
}

func TestClassifyLegendOnly(t *testing.T) {
	rules := []sld.Rule{
		{Color: color.Black, Discrete: true},
		{Color: color.Black, Discrete: true},
	}
	res := Classify(rules)
	if res.Renderer != nil {
		t.Errorf("Renderer = %T, want none without a property", res.Renderer)
	}
	if len(res.Legend) != 2 || res.Legend[0].Title != "Style 1" || res.Legend[1].Title != "Style 2" {
		t.Errorf("Legend = %+v", res.Legend)
	}
	if res.PropertyName() != "" {
		t.Errorf("PropertyName() = %q", res.PropertyName())
	}
}

func TestClassifyWithAuto(t *testing.T) {
	exact := []sld.Rule{
		{Label: "a", Color: color.RGB(1, 1, 1), PropertyName: "zone", Literal: "a", Exact: true, Discrete: true},
		{Label: "b", Color: color.RGB(2, 2, 2), PropertyName: "zone", Literal: "b", Exact: true, Discrete: true},
		{Label: "a again", Color: color.RGB(3, 3, 3), PropertyName: "zone", Literal: "a", Exact: true, Discrete: true},
		{Label: "rest", Color: color.RGB(4, 4, 4), Discrete: true},
	}

	res := ClassifyWith(exact, ModeAuto)
	enum, ok := res.Renderer.(EnumClassification)
	if !ok {
		t.Fatalf("Renderer = %T, want EnumClassification", res.Renderer)
	}
	if len(enum.Values) != 2 || enum.Values[0].Value != "a" || enum.Values[1].Value != "b" {
		t.Errorf("Values = %+v", enum.Values)
	}
	if enum.Values[0].Color != color.RGB(1, 1, 1) {
		t.Errorf("first value should keep the first rule's color")
	}

	// Default mode never produces an enum; non-numeric literals leave no bins.
	if res := ClassifyWith(exact, ModeBin); res.Renderer != nil {
		t.Errorf("ModeBin Renderer = %T, want none", res.Renderer)
	}

	mixed := append([]sld.Rule{}, exact...)
	mixed[1] = sld.Rule{Label: "range", Color: color.RGB(2, 2, 2), PropertyName: "zone", RangeMax: f(3), Discrete: true}
	if _, ok := ClassifyWith(mixed, ModeAuto).Renderer.(BinClassification); !ok {
		t.Error("a range rule should fall back to bins in auto mode")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeBin, false},
		{"bin", ModeBin, false},
		{" AUTO ", ModeAuto, false},
		{"enum", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestBinValidate(t *testing.T) {
	tests := []struct {
		name string
		bins BinClassification
		ok   bool
	}{
		{"valid", BinClassification{BinMaximums: []float64{1, 2}, BinColors: []color.Color{color.Black, color.Black}}, true},
		{"empty", BinClassification{}, false},
		{"length mismatch", BinClassification{BinMaximums: []float64{1, 2}, BinColors: []color.Color{color.Black}}, false},
		{"not ascending", BinClassification{BinMaximums: []float64{2, 2}, BinColors: []color.Color{color.Black, color.Black}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.bins.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
