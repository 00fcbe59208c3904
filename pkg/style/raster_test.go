package style

import (
	"testing"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/sld"
)

func TestIntermediateCount(t *testing.T) {
	tests := []struct {
		gap  float64
		want int
	}{
		{0, 0},
		{-1, 0},
		{0.5, 1},
		{10, 1},
		{25, 2},
		{30, 3},
		{1000, 3},
	}
	for _, tt := range tests {
		if got := intermediateCount(tt.gap); got != tt.want {
			t.Errorf("intermediateCount(%v) = %d, want %d", tt.gap, got, tt.want)
		}
	}
}

func TestSmoothRamp(t *testing.T) {
	first := ColorStop{Value: 0, Color: color.RGB(0, 0, 0)}
	mid := ColorStop{Value: 5, Color: color.RGB(100, 100, 100)}
	last := ColorStop{Value: 100, Color: color.RGB(200, 0, 0).WithAlpha(0.5)}

	out := SmoothRamp([]ColorStop{first, mid, last})
	// One stop in the 5-wide gap, three in the 95-wide gap.
	if len(out) != 3+1+3 {
		t.Fatalf("len = %d, want 7: %+v", len(out), out)
	}
	if out[0] != first || out[len(out)-1] != last {
		t.Errorf("endpoints changed: %+v ... %+v", out[0], out[len(out)-1])
	}
	for i := 1; i < len(out); i++ {
		if out[i].Value <= out[i-1].Value {
			t.Errorf("stop %d value %v not above %v", i, out[i].Value, out[i-1].Value)
		}
	}
	if out[1].Value != 2.5 || out[1].Color != color.RGB(50, 50, 50) {
		t.Errorf("midpoint = %+v", out[1])
	}

	single := []ColorStop{first}
	if got := SmoothRamp(single); len(got) != 1 {
		t.Errorf("SmoothRamp(single) = %+v", got)
	}
}

func TestFromColorMap(t *testing.T) {
	entries := []sld.ColorMapEntry{
		{Quantity: 100, Color: color.RGB(255, 0, 0), Label: "100"},
		{Quantity: 0, Color: color.RGB(0, 0, 255), Label: "0"},
		{Quantity: 50, Color: color.RGB(0, 255, 0), Label: "Medium"},
		{Quantity: 0, Color: color.RGB(9, 9, 9), Label: "duplicate"},
	}

	t.Run("ramp", func(t *testing.T) {
		res := FromColorMap(sld.ColorMap{Kind: sld.MapRamp, Entries: entries}, false)
		ramp, ok := res.Renderer.(ContinuousRamp)
		if !ok {
			t.Fatalf("Renderer = %T", res.Renderer)
		}
		if len(ramp.Stops) != 3 || ramp.Stops[0].Value != 0 || ramp.Stops[2].Value != 100 {
			t.Errorf("Stops = %+v", ramp.Stops)
		}
		if ramp.Stops[0].Color != color.RGB(0, 0, 255) {
			t.Errorf("first stop should keep the first entry for a repeated quantity")
		}

		var titles []string
		for _, it := range res.Legend {
			titles = append(titles, it.Title)
		}
		want := []string{"0", "100", "Medium"}
		if len(titles) != len(want) {
			t.Fatalf("legend titles = %v, want %v", titles, want)
		}
		for i := range want {
			if titles[i] != want[i] {
				t.Errorf("legend titles = %v, want %v", titles, want)
				break
			}
		}
	})

	t.Run("smoothed ramp", func(t *testing.T) {
		res := FromColorMap(sld.ColorMap{Kind: sld.MapRamp, Entries: entries}, true)
		ramp := res.Renderer.(ContinuousRamp)
		if len(ramp.Stops) != 3+3+3 {
			t.Errorf("len(Stops) = %d, want 9", len(ramp.Stops))
		}
		if len(res.Legend) != 3 {
			t.Errorf("legend should not include synthesized stops: %d items", len(res.Legend))
		}
	})

	t.Run("intervals", func(t *testing.T) {
		res := FromColorMap(sld.ColorMap{Kind: sld.MapIntervals, Entries: entries}, true)
		bins, ok := res.Renderer.(BinClassification)
		if !ok {
			t.Fatalf("Renderer = %T", res.Renderer)
		}
		if err := bins.Validate(); err != nil {
			t.Error(err)
		}
		if len(bins.BinMaximums) != 3 || bins.BinMaximums[1] != 50 {
			t.Errorf("BinMaximums = %v", bins.BinMaximums)
		}
	})

	t.Run("values", func(t *testing.T) {
		res := FromColorMap(sld.ColorMap{Kind: sld.MapValues, Entries: entries}, true)
		enum, ok := res.Renderer.(EnumClassification)
		if !ok {
			t.Fatalf("Renderer = %T", res.Renderer)
		}
		if len(enum.Values) != 3 || enum.Values[0].Value != "0" || enum.Values[2].Value != "100" {
			t.Errorf("Values = %+v", enum.Values)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if res := FromColorMap(sld.ColorMap{Kind: sld.MapRamp}, true); !res.Empty() {
			t.Errorf("FromColorMap(empty) = %+v", res)
		}
	})
}
