package style

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/numeric"
	"github.com/matzehuels/sldview/pkg/sld"
)

// maxIntermediateStops caps the stops synthesized between two ramp entries.
const maxIntermediateStops = 3

// FromColorMap builds a result from a raster color map.
//
// A ramp becomes a ContinuousRamp, smoothed with SmoothRamp when smooth is
// set. Intervals become a BinClassification whose maximums are the entry
// quantities, and values become an EnumClassification. The legend is built
// from the entries as authored.
func FromColorMap(cm sld.ColorMap, smooth bool) Result {
	entries := cm.Sorted()
	if len(entries) == 0 {
		return Result{}
	}

	res := Result{Legend: rasterLegend(cm.Entries)}
	switch cm.Kind {
	case sld.MapIntervals:
		bins := BinClassification{}
		for _, e := range entries {
			bins.BinMaximums = append(bins.BinMaximums, e.Quantity)
			bins.BinColors = append(bins.BinColors, e.Color)
		}
		res.Renderer = bins
	case sld.MapValues:
		enum := EnumClassification{}
		for _, e := range entries {
			enum.Values = append(enum.Values, EnumValue{Value: numeric.Format(e.Quantity), Color: e.Color})
		}
		res.Renderer = enum
	default:
		stops := make([]ColorStop, len(entries))
		for i, e := range entries {
			stops[i] = ColorStop{Value: e.Quantity, Color: e.Color}
		}
		if smooth {
			stops = SmoothRamp(stops)
		}
		res.Renderer = ContinuousRamp{Stops: stops}
	}
	return res
}

// SmoothRamp inserts between one and three linearly interpolated stops
// between each adjacent pair, more for wider gaps. stops must be ascending;
// the first and last stops are kept unchanged.
func SmoothRamp(stops []ColorStop) []ColorStop {
	if len(stops) < 2 {
		return stops
	}

	out := make([]ColorStop, 0, len(stops)*(maxIntermediateStops+1))
	for i := 0; i < len(stops)-1; i++ {
		a, b := stops[i], stops[i+1]
		out = append(out, a)

		gap := b.Value - a.Value
		n := intermediateCount(gap)
		for j := 1; j <= n; j++ {
			t := float64(j) / float64(n+1)
			out = append(out, ColorStop{
				Value: a.Value + gap*t,
				Color: color.Interpolate(a.Color, b.Color, t),
			})
		}
	}
	return append(out, stops[len(stops)-1])
}

// intermediateCount is one stop per ten units of gap, between 1 and 3.
func intermediateCount(gap float64) int {
	if gap <= 0 {
		return 0
	}
	return min(maxIntermediateStops, max(1, int(gap/10)))
}

// rasterLegend lists each distinct quantity once in authored order, then
// orders the rows by numeric title. Titles that are not numbers keep their
// relative order after the numeric ones.
func rasterLegend(entries []sld.ColorMapEntry) []LegendItem {
	type row struct {
		item    LegendItem
		value   float64
		numeric bool
	}

	seen := make(map[float64]bool, len(entries))
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		if seen[e.Quantity] {
			continue
		}
		seen[e.Quantity] = true

		title := e.Label
		if title == "" {
			title = numeric.Format(e.Quantity)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(title), 64)
		rows = append(rows, row{item: LegendItem{Title: title, Color: e.Color}, value: v, numeric: err == nil})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].numeric != rows[j].numeric {
			return rows[i].numeric
		}
		return rows[i].numeric && rows[i].value < rows[j].value
	})

	items := make([]LegendItem, len(rows))
	for i, r := range rows {
		items[i] = r.item
	}
	return items
}
