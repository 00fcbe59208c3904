package sld

import (
	"testing"

	"github.com/matzehuels/sldview/pkg/color"
)

func TestExtractColorMapRamp(t *testing.T) {
	cm := ExtractColorMap(mustParse(t, "raster_ramp.sld"), nil)
	if cm.Kind != MapRamp {
		t.Errorf("Kind = %q, want ramp", cm.Kind)
	}
	if len(cm.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(cm.Entries))
	}
	// Source order is kept until Sorted is called.
	if cm.Entries[0].Quantity != 100 || cm.Entries[1].Quantity != 0 {
		t.Errorf("entries reordered: %+v", cm.Entries)
	}
	if want := (color.Color{B: 255, A: 0.5}); cm.Entries[1].Color != want {
		t.Errorf("opacity not folded: %+v, want %+v", cm.Entries[1].Color, want)
	}

	sorted := cm.Sorted()
	for i, want := range []float64{0, 50, 100} {
		if sorted[i].Quantity != want {
			t.Errorf("Sorted()[%d].Quantity = %v, want %v", i, sorted[i].Quantity, want)
		}
	}
	if sorted[0].Label != "0 mm" {
		t.Errorf("Sorted()[0].Label = %q", sorted[0].Label)
	}
}

func TestExtractColorMapIntervals(t *testing.T) {
	var msgs []string
	cm := ExtractColorMap(mustParse(t, "raster_intervals.sld"), collect(&msgs))
	if cm.Kind != MapIntervals {
		t.Errorf("Kind = %q, want intervals", cm.Kind)
	}
	if len(cm.Entries) != 3 {
		t.Errorf("len(Entries) = %d, want 3 (non-numeric quantity dropped)", len(cm.Entries))
	}
	if len(msgs) != 1 {
		t.Errorf("messages = %v, want one drop notice", msgs)
	}
}

func TestExtractColorMapVariants(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind MapKind
		wantLen  int
	}{
		{
			name:     "no wrapper",
			body:     `<ColorMapEntry color="#000000" quantity="1"/><ColorMapEntry color="#FFFFFF" quantity="2"/>`,
			wantKind: MapRamp,
			wantLen:  2,
		},
		{
			name:     "values",
			body:     `<ColorMap type="values"><ColorMapEntry color="#000000" quantity="1"/></ColorMap>`,
			wantKind: MapValues,
			wantLen:  1,
		},
		{
			name:     "unknown type",
			body:     `<ColorMap type="banded"><ColorMapEntry color="#000000" quantity="1"/></ColorMap>`,
			wantKind: MapRamp,
			wantLen:  1,
		},
		{
			name:     "bad opacity and missing color",
			body:     `<ColorMap><ColorMapEntry color="#000000" quantity="1" opacity="half"/><ColorMapEntry quantity="2"/><ColorMapEntry color="#FFFFFF" quantity="3"/></ColorMap>`,
			wantKind: MapRamp,
			wantLen:  1,
		},
		{
			name: "interpolate",
			body: `<ColorMap><se:Interpolate xmlns:se="http://www.opengis.net/se">
  <se:InterpolationPoint><se:Data>0</se:Data><se:Value>#000000</se:Value></se:InterpolationPoint>
  <se:InterpolationPoint><se:Data>10</se:Data><se:Value>#FFFFFF</se:Value></se:InterpolationPoint>
</se:Interpolate></ColorMap>`,
			wantKind: MapRamp,
			wantLen:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(`<StyledLayerDescriptor><NamedLayer><UserStyle><FeatureTypeStyle><Rule><RasterSymbolizer>` +
				tt.body + `</RasterSymbolizer></Rule></FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`))
			if err != nil {
				t.Fatal(err)
			}
			cm := ExtractColorMap(doc, nil)
			if cm.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", cm.Kind, tt.wantKind)
			}
			if len(cm.Entries) != tt.wantLen {
				t.Errorf("len(Entries) = %d, want %d", len(cm.Entries), tt.wantLen)
			}
		})
	}
}

func TestColorMapSortedDeduplicates(t *testing.T) {
	cm := ColorMap{Entries: []ColorMapEntry{
		{Quantity: 5, Label: "first five"},
		{Quantity: 1, Label: "one"},
		{Quantity: 5, Label: "second five"},
	}}
	got := cm.Sorted()
	if len(got) != 2 {
		t.Fatalf("len(Sorted()) = %d, want 2", len(got))
	}
	if got[1].Label != "first five" {
		t.Errorf("kept %q, want the first entry for a repeated quantity", got[1].Label)
	}
	if cm.Entries[0].Label != "first five" {
		t.Error("Sorted() modified the receiver")
	}
}
