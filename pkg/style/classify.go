package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/sldview/pkg/color"
	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/sld"
)

// Mode selects how discrete vector rules are classified.
type Mode string

const (
	// ModeBin always produces bins for discrete rules.
	ModeBin Mode = "bin"
	// ModeAuto produces an enum when every valued rule is an exact match,
	// and bins otherwise.
	ModeAuto Mode = "auto"
)

// ParseMode parses a classification mode name. The empty string is ModeBin.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeBin:
		return ModeBin, nil
	case ModeAuto:
		return ModeAuto, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidInput, "unknown classification mode %q (want bin or auto)", s)
	}
}

// Classify chooses a renderer for rules using ModeBin.
func Classify(rules []sld.Rule) Result {
	return ClassifyWith(rules, ModeBin)
}

// ClassifyWith chooses a renderer for rules.
//
// No rules gives the empty Result. A single rule without discrete markers
// gives a SingleSymbol. Anything else is classified on the property named by
// the first filtered rule; when no bin or enum table can be formed the result
// carries the legend alone. The legend always lists every rule in input
// order.
func ClassifyWith(rules []sld.Rule, mode Mode) Result {
	if len(rules) == 0 {
		return Result{}
	}

	legend := Legend(rules)
	if len(rules) == 1 && !rules[0].Discrete {
		return Result{Legend: legend, Renderer: SingleSymbol{Color: rules[0].Color}}
	}

	prop := propertyName(rules)
	if prop == "" {
		return Result{Legend: legend}
	}
	if mode == ModeAuto {
		if enum, ok := enumTable(rules, prop); ok {
			return Result{Legend: legend, Renderer: enum}
		}
	}
	if bins, ok := binTable(rules, prop); ok {
		return Result{Legend: legend, Renderer: bins}
	}
	return Result{Legend: legend}
}

// Legend lists every rule's label and color in input order.
func Legend(rules []sld.Rule) []LegendItem {
	if len(rules) == 0 {
		return nil
	}
	items := make([]LegendItem, len(rules))
	for i, r := range rules {
		title := r.Label
		if title == "" {
			title = fmt.Sprintf("Style %d", i+1)
		}
		items[i] = LegendItem{Title: title, Color: r.Color}
	}
	return items
}

func propertyName(rules []sld.Rule) string {
	for _, r := range rules {
		if r.PropertyName != "" {
			return r.PropertyName
		}
	}
	return ""
}

// binTable sorts the valued rules on prop by their bin edge and keeps the
// first rule for each repeated edge.
func binTable(rules []sld.Rule, prop string) (BinClassification, bool) {
	type edge struct {
		value float64
		color color.Color
	}

	var edges []edge
	for _, r := range rules {
		if r.PropertyName != prop {
			continue
		}
		if v, ok := r.Value(); ok {
			edges = append(edges, edge{v, r.Color})
		}
	}
	if len(edges) == 0 {
		return BinClassification{}, false
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].value < edges[j].value })

	bins := BinClassification{PropertyName: prop}
	for i, e := range edges {
		if i > 0 && e.value == edges[i-1].value {
			continue
		}
		bins.BinMaximums = append(bins.BinMaximums, e.value)
		bins.BinColors = append(bins.BinColors, e.color)
	}
	if bins.Validate() != nil {
		return BinClassification{}, false
	}
	return bins, true
}

// enumTable maps each exact-match literal on prop to its color. It fails
// when any filtered rule on prop is a range.
func enumTable(rules []sld.Rule, prop string) (EnumClassification, bool) {
	enum := EnumClassification{PropertyName: prop}
	seen := make(map[string]bool)
	for _, r := range rules {
		if r.PropertyName != prop {
			continue
		}
		if !r.Exact {
			return EnumClassification{}, false
		}
		if seen[r.Literal] {
			continue
		}
		seen[r.Literal] = true
		enum.Values = append(enum.Values, EnumValue{Value: r.Literal, Color: r.Color})
	}
	return enum, len(enum.Values) > 0
}
