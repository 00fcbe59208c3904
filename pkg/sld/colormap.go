package sld

import (
	"sort"
	"strings"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/numeric"
)

// MapKind is the interpolation hint of a raster color map.
type MapKind string

// Color map kinds, named after the ColorMap type attribute.
const (
	MapRamp      MapKind = "ramp"
	MapIntervals MapKind = "intervals"
	MapValues    MapKind = "values"
)

// ColorMapEntry maps one raster value to a display color.
type ColorMapEntry struct {
	Quantity float64
	Color    color.Color
	Label    string
}

// ColorMap is the raster color map of a document. Entries keep source order.
type ColorMap struct {
	Kind    MapKind
	Entries []ColorMapEntry
}

// Sorted returns the entries ascending by quantity, keeping the first entry
// for any repeated quantity.
func (m ColorMap) Sorted() []ColorMapEntry {
	out := make([]ColorMapEntry, len(m.Entries))
	copy(out, m.Entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })

	deduped := out[:0]
	for i, e := range out {
		if i > 0 && e.Quantity == deduped[len(deduped)-1].Quantity {
			continue
		}
		deduped = append(deduped, e)
	}
	return deduped
}

// ExtractColorMap reads the first ColorMap in the document. ColorMapEntry
// children are read directly; an SE Interpolate block is read as a ramp.
// Without a ColorMap wrapper, every ColorMapEntry in the document is used.
//
// Entries whose quantity or opacity is not numeric are dropped. Opacity
// (default 1) is folded into the entry color's alpha.
func ExtractColorMap(doc *Document, logf Logf) ColorMap {
	if doc == nil || doc.Root == nil {
		return ColorMap{Kind: MapRamp}
	}

	cm := doc.Root.Find("ColorMap")
	if cm == nil {
		return ColorMap{Kind: MapRamp, Entries: readEntries(doc.Root.FindAll("ColorMapEntry"), logf)}
	}

	if interp := cm.Child("Interpolate"); interp != nil {
		return ColorMap{Kind: MapRamp, Entries: readInterpolationPoints(interp, logf)}
	}
	if cm.Child("Categorize") != nil {
		logf.printf("ColorMap Categorize functions are not supported")
	}

	return ColorMap{
		Kind:    mapKind(cm.Attr("type"), logf),
		Entries: readEntries(cm.ChildrenNamed("ColorMapEntry"), logf),
	}
}

func mapKind(raw string, logf Logf) MapKind {
	switch kind := MapKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case "":
		return MapRamp
	case MapRamp, MapIntervals, MapValues:
		return kind
	default:
		logf.printf("unknown ColorMap type %q, treating as ramp", raw)
		return MapRamp
	}
}

func readEntries(nodes []*Node, logf Logf) []ColorMapEntry {
	entries := make([]ColorMapEntry, 0, len(nodes))
	for _, n := range nodes {
		q, ok := numeric.ToFloat(n.Attr("quantity"))
		if !ok {
			logf.printf("dropping ColorMapEntry: quantity %q is not numeric", n.Attr("quantity"))
			continue
		}
		raw := n.Attr("color")
		if raw == "" {
			logf.printf("dropping ColorMapEntry %v: no color", q)
			continue
		}

		opacity := 1.0
		if rawOpacity := n.Attr("opacity"); rawOpacity != "" {
			o, ok := numeric.ToFloat(rawOpacity)
			if !ok {
				logf.printf("dropping ColorMapEntry %v: opacity %q is not numeric", q, rawOpacity)
				continue
			}
			opacity = o
		}

		entries = append(entries, ColorMapEntry{
			Quantity: q,
			Color:    parseEntryColor(raw, logf).WithAlpha(opacity),
			Label:    strings.TrimSpace(n.Attr("label")),
		})
	}
	return entries
}

func readInterpolationPoints(interp *Node, logf Logf) []ColorMapEntry {
	points := interp.ChildrenNamed("InterpolationPoint")
	entries := make([]ColorMapEntry, 0, len(points))
	for _, p := range points {
		q, ok := numeric.ToFloat(p.Child("Data").Value())
		if !ok {
			logf.printf("dropping InterpolationPoint: data %q is not numeric", p.Child("Data").Value())
			continue
		}
		raw := p.Child("Value").Value()
		if raw == "" {
			logf.printf("dropping InterpolationPoint %v: no color", q)
			continue
		}
		entries = append(entries, ColorMapEntry{Quantity: q, Color: parseEntryColor(raw, logf)})
	}
	return entries
}

func parseEntryColor(raw string, logf Logf) color.Color {
	c, ok := color.Parse(raw)
	if !ok {
		logf.printf("unrecognized color %q, using black", raw)
		return color.Black
	}
	return c
}
