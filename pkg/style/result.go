package style

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/matzehuels/sldview/pkg/color"
)

// LegendItem is one row of a legend.
type LegendItem struct {
	Title string      `json:"title"`
	Color color.Color `json:"color"`
}

// RendererKind names the shape of a Renderer.
type RendererKind string

// Renderer kinds.
const (
	KindSingle     RendererKind = "single"
	KindBin        RendererKind = "bin"
	KindEnum       RendererKind = "enum"
	KindContinuous RendererKind = "continuous"
)

// Renderer describes how features or pixels are colored. It is one of
// SingleSymbol, BinClassification, EnumClassification or ContinuousRamp.
type Renderer interface {
	Kind() RendererKind
	isRenderer()
}

// SingleSymbol draws everything in one color.
type SingleSymbol struct {
	Color color.Color
}

// BinClassification colors a numeric property by the first bin whose
// maximum is at or above the value.
type BinClassification struct {
	PropertyName string
	BinMaximums  []float64
	BinColors    []color.Color
}

// EnumValue pairs one property value with its color.
type EnumValue struct {
	Value string      `json:"value"`
	Color color.Color `json:"color"`
}

// EnumClassification colors a property by exact value.
type EnumClassification struct {
	PropertyName string
	Values       []EnumValue
}

// ColorStop is one stop of a continuous ramp.
type ColorStop struct {
	Value float64     `json:"value"`
	Color color.Color `json:"color"`
}

// ContinuousRamp interpolates colors between ascending stops.
type ContinuousRamp struct {
	PropertyName string
	Stops        []ColorStop
}

func (SingleSymbol) Kind() RendererKind       { return KindSingle }
func (BinClassification) Kind() RendererKind  { return KindBin }
func (EnumClassification) Kind() RendererKind { return KindEnum }
func (ContinuousRamp) Kind() RendererKind     { return KindContinuous }

func (SingleSymbol) isRenderer()       {}
func (BinClassification) isRenderer()  {}
func (EnumClassification) isRenderer() {}
func (ContinuousRamp) isRenderer()     {}

// Validate checks that the bin table is non-empty, that maximums and colors
// pair up, and that maximums strictly ascend.
func (b BinClassification) Validate() error {
	if len(b.BinMaximums) == 0 {
		return fmt.Errorf("bin classification has no bins")
	}
	if len(b.BinMaximums) != len(b.BinColors) {
		return fmt.Errorf("bin classification has %d maximums but %d colors", len(b.BinMaximums), len(b.BinColors))
	}
	for i := 1; i < len(b.BinMaximums); i++ {
		if b.BinMaximums[i] <= b.BinMaximums[i-1] {
			return fmt.Errorf("bin maximum %v at %d does not exceed %v", b.BinMaximums[i], i, b.BinMaximums[i-1])
		}
	}
	return nil
}

// Result is the outcome of compiling one SLD document. The zero Result is
// the empty style: the caller falls back to its default rendering. A Result
// with a legend but no renderer is a legend-only style.
type Result struct {
	Legend   []LegendItem
	Renderer Renderer
}

// Empty reports whether the result carries no styling at all.
func (r Result) Empty() bool {
	return len(r.Legend) == 0 && r.Renderer == nil
}

// PropertyName returns the attribute the renderer classifies on, if any.
func (r Result) PropertyName() string {
	switch v := r.Renderer.(type) {
	case BinClassification:
		return v.PropertyName
	case EnumClassification:
		return v.PropertyName
	case ContinuousRamp:
		return v.PropertyName
	}
	return ""
}

// =============================================================================
// JSON
// =============================================================================

type resultJSON struct {
	Legend   []LegendItem  `json:"legend"`
	Renderer *rendererJSON `json:"renderer,omitempty"`
}

type rendererJSON struct {
	Kind         RendererKind  `json:"kind"`
	PropertyName string        `json:"propertyName,omitempty"`
	Color        *color.Color  `json:"color,omitempty"`
	BinMaximums  []float64     `json:"binMaximums,omitempty"`
	BinColors    []color.Color `json:"binColors,omitempty"`
	Values       []EnumValue   `json:"values,omitempty"`
	Stops        []ColorStop   `json:"stops,omitempty"`
}

// MarshalJSON encodes the result with the renderer tagged by its kind.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Legend: r.Legend}
	if out.Legend == nil {
		out.Legend = []LegendItem{}
	}

	switch v := r.Renderer.(type) {
	case nil:
	case SingleSymbol:
		c := v.Color
		out.Renderer = &rendererJSON{Kind: KindSingle, Color: &c}
	case BinClassification:
		out.Renderer = &rendererJSON{Kind: KindBin, PropertyName: v.PropertyName, BinMaximums: v.BinMaximums, BinColors: v.BinColors}
	case EnumClassification:
		out.Renderer = &rendererJSON{Kind: KindEnum, PropertyName: v.PropertyName, Values: v.Values}
	case ContinuousRamp:
		out.Renderer = &rendererJSON{Kind: KindContinuous, PropertyName: v.PropertyName, Stops: v.Stops}
	default:
		return nil, fmt.Errorf("unknown renderer %T", r.Renderer)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*r = Result{}
	if len(in.Legend) > 0 {
		r.Legend = in.Legend
	}
	if in.Renderer == nil {
		return nil
	}

	switch v := in.Renderer; v.Kind {
	case KindSingle:
		if v.Color == nil {
			return fmt.Errorf("single renderer has no color")
		}
		r.Renderer = SingleSymbol{Color: *v.Color}
	case KindBin:
		bins := BinClassification{PropertyName: v.PropertyName, BinMaximums: v.BinMaximums, BinColors: v.BinColors}
		if err := bins.Validate(); err != nil {
			return err
		}
		r.Renderer = bins
	case KindEnum:
		r.Renderer = EnumClassification{PropertyName: v.PropertyName, Values: v.Values}
	case KindContinuous:
		if !sort.SliceIsSorted(v.Stops, func(i, j int) bool { return v.Stops[i].Value < v.Stops[j].Value }) {
			return fmt.Errorf("continuous renderer stops are not ascending")
		}
		r.Renderer = ContinuousRamp{PropertyName: v.PropertyName, Stops: v.Stops}
	default:
		return fmt.Errorf("unknown renderer kind %q", v.Kind)
	}
	return nil
}
