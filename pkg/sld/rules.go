package sld

import (
	"fmt"
	"strings"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/numeric"
)

// Logf receives diagnostics about input that was skipped or substituted.
// A nil Logf discards them.
type Logf func(format string, args ...any)

func (l Logf) printf(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}

// maxLabelLength is the longest legend label kept; longer labels are cut and
// end in "...".
const maxLabelLength = 100

// Rule is one vector styling rule extracted from a FeatureTypeStyle.
type Rule struct {
	Label        string
	Color        color.Color
	PropertyName string
	RangeMin     *float64
	RangeMax     *float64

	// Literal is the raw literal of an exact-match filter and Exact reports
	// whether the filter is an equality test rather than a range.
	Literal string
	Exact   bool

	// Discrete is set when this rule or any sibling carries a filter, an
	// else-filter or a scale denominator, or when more than one rule exists.
	Discrete bool
}

// Value returns the rule's bin edge. The upper bound wins; a rule with only a
// lower bound uses that.
func (r Rule) Value() (float64, bool) {
	switch {
	case r.RangeMax != nil:
		return *r.RangeMax, true
	case r.RangeMin != nil:
		return *r.RangeMin, true
	}
	return 0, false
}

// Filter operators that carry a lower or upper bound in their literal.
var (
	lowerBoundOps = []string{"PropertyIsGreaterThan", "PropertyIsGreaterThanOrEqualTo"}
	upperBoundOps = []string{"PropertyIsLessThan", "PropertyIsLessThanOrEqualTo"}
	comparisonOps = []string{
		"PropertyIsEqualTo", "PropertyIsNotEqualTo", "PropertyIsLessThan",
		"PropertyIsLessThanOrEqualTo", "PropertyIsGreaterThan",
		"PropertyIsGreaterThanOrEqualTo", "PropertyIsBetween", "PropertyIsLike",
		"PropertyIsNull",
	}
)

// ruleColorLookups is the order in which a rule's color is searched for.
var ruleColorLookups = []struct{ path, param string }{
	{"PointSymbolizer/Graphic/Mark/Fill", "fill"},
	{"Fill", "fill"},
	{"PolygonSymbolizer/Fill", "fill"},
	{"Stroke", "stroke"},
}

// ExtractRules walks every UserStyle, FeatureTypeStyle and Rule in the
// document and returns the rules that draw something and carry a color, in
// document order.
func ExtractRules(doc *Document, logf Logf) []Rule {
	if doc == nil || doc.Root == nil {
		return nil
	}

	var candidates []*Node
	for _, us := range doc.Root.FindAll("UserStyle") {
		for _, fts := range us.ChildrenNamed("FeatureTypeStyle") {
			for _, r := range fts.ChildrenNamed("Rule") {
				if !hasSymbolizer(r) {
					logf.printf("skipping rule %q: no drawable symbolizer", r.Child("Name").Value())
					continue
				}
				candidates = append(candidates, r)
			}
		}
	}

	discrete := len(candidates) > 1
	for _, r := range candidates {
		if hasDiscreteMarker(r) {
			discrete = true
			break
		}
	}

	rules := make([]Rule, 0, len(candidates))
	for _, n := range candidates {
		raw, opacity, ok := ruleColor(n)
		if !ok {
			logf.printf("skipping rule %q: no fill or stroke color", n.Child("Name").Value())
			continue
		}
		c, ok := color.Parse(raw)
		if !ok {
			logf.printf("rule %q: unrecognized color %q, using black", n.Child("Name").Value(), raw)
			c = color.Black
		}

		rule := Rule{
			Label:    ruleLabel(n, len(rules)+1),
			Color:    c.WithAlpha(opacity),
			Discrete: discrete,
		}
		applyFilter(&rule, n.Child("Filter"), logf)
		rules = append(rules, rule)
	}
	return rules
}

// Param returns the value of the CssParameter or SvgParameter child with the
// given name. A parameter holding an ogc:Literal yields the literal's text.
func (n *Node) Param(name string) string {
	if n == nil {
		return ""
	}
	for _, c := range n.Children {
		if !c.Is("CssParameter") && !c.Is("SvgParameter") {
			continue
		}
		if c.Attr("name") != name {
			continue
		}
		if v := c.Value(); v != "" {
			return v
		}
		return c.Child("Literal").Value()
	}
	return ""
}

func hasSymbolizer(rule *Node) bool {
	for _, c := range rule.Children {
		if !knownSpaces[c.Name.Space] {
			continue
		}
		if strings.HasSuffix(c.Local(), "Symbolizer") && c.Local() != "TextSymbolizer" {
			return true
		}
	}
	return false
}

func hasDiscreteMarker(rule *Node) bool {
	for _, marker := range []string{"Filter", "ElseFilter", "MinScaleDenominator", "MaxScaleDenominator"} {
		if rule.Child(marker) != nil {
			return true
		}
	}
	return false
}

// ruleColor returns the first color found and the matching opacity
// parameter, defaulting to fully opaque.
func ruleColor(rule *Node) (string, float64, bool) {
	for _, l := range ruleColorLookups {
		for _, container := range rule.FindAll(l.path) {
			v := container.Param(l.param)
			if v == "" {
				continue
			}
			opacity := 1.0
			if o, ok := numeric.ToFloat(container.Param(l.param + "-opacity")); ok {
				opacity = o
			}
			return v, opacity, true
		}
	}
	return "", 0, false
}

func ruleLabel(rule *Node, index int) string {
	label := rule.Child("Title").Value()
	if label == "" {
		label = rule.Child("Description/Title").Value()
	}
	if label == "" {
		label = rule.Child("Name").Value()
	}
	if label == "" {
		return fmt.Sprintf("Style %d", index)
	}
	return truncateLabel(label)
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelLength {
		return label
	}
	return string(runes[:maxLabelLength-3]) + "..."
}

// applyFilter reads the property name and bounds from a rule's Filter.
// Range operators take precedence; otherwise the first literal is treated
// as an exact-match value.
func applyFilter(rule *Rule, filter *Node, logf Logf) {
	if filter == nil {
		return
	}
	rule.PropertyName = filter.Find("PropertyName").Value()

	for _, op := range lowerBoundOps {
		for _, cmp := range filter.FindAll(op) {
			if v, ok := boundValue(cmp, rule.Label, logf); ok && rule.RangeMin == nil {
				rule.RangeMin = &v
			}
		}
	}
	for _, op := range upperBoundOps {
		for _, cmp := range filter.FindAll(op) {
			if v, ok := boundValue(cmp, rule.Label, logf); ok && rule.RangeMax == nil {
				rule.RangeMax = &v
			}
		}
	}
	for _, between := range filter.FindAll("PropertyIsBetween") {
		if v, ok := boundValue(between.Child("LowerBoundary"), rule.Label, logf); ok && rule.RangeMin == nil {
			rule.RangeMin = &v
		}
		if v, ok := boundValue(between.Child("UpperBoundary"), rule.Label, logf); ok && rule.RangeMax == nil {
			rule.RangeMax = &v
		}
	}
	if rule.RangeMin != nil || rule.RangeMax != nil {
		return
	}

	lit := filter.Find("Literal")
	if lit == nil {
		return
	}
	rule.Literal = lit.Value()
	rule.Exact = filter.Find("PropertyIsEqualTo") != nil || !hasComparison(filter)
	if v, ok := numeric.ToFloat(rule.Literal); ok {
		rule.RangeMin, rule.RangeMax = &v, &v
	} else {
		logf.printf("rule %q: literal %q is not numeric", rule.Label, rule.Literal)
	}
}

// boundValue reads the numeric literal held by a comparison or boundary
// element, which may be wrapped in ogc:Literal or given directly.
func boundValue(n *Node, label string, logf Logf) (float64, bool) {
	if n == nil {
		return 0, false
	}
	raw := n.Child("Literal").Value()
	if raw == "" {
		raw = n.Value()
	}
	v, ok := numeric.ToFloat(raw)
	if !ok {
		logf.printf("rule %q: %s value %q is not numeric", label, n.Local(), raw)
	}
	return v, ok
}

func hasComparison(filter *Node) bool {
	for _, op := range comparisonOps {
		if filter.Find(op) != nil {
			return true
		}
	}
	return false
}
