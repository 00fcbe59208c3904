package terria

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/numeric"
	"github.com/matzehuels/sldview/pkg/style"
)

// Builder defaults.
const (
	DefaultVersion       = "8.0.0"
	DefaultViewerMode    = "3D"
	DefaultBaseMap       = "basemap-positron"
	DefaultOpacity       = 0.8
	DefaultCacheDuration = "5m"
)

const (
	legendTitle    = "Legend"
	defaultStyleID = "default"
	fallbackStyle  = "default_style"
	maxStyleID     = 50
)

// Options configures the viewer-level settings of built configs.
// Zero fields take the package defaults.
type Options struct {
	Version       string
	ViewerMode    string
	BaseMap       string
	Opacity       float64
	CacheDuration string
}

// Builder turns a resource and its compiled style into viewer config.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder, filling zero options with defaults.
func NewBuilder(opts Options) *Builder {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.ViewerMode == "" {
		opts.ViewerMode = DefaultViewerMode
	}
	if opts.BaseMap == "" {
		opts.BaseMap = DefaultBaseMap
	}
	if opts.Opacity <= 0 {
		opts.Opacity = DefaultOpacity
	}
	if opts.CacheDuration == "" {
		opts.CacheDuration = DefaultCacheDuration
	}
	return &Builder{opts: opts}
}

// Build returns the full viewer config for one resource. The camera is
// framed on r.Extent(). An empty style produces an unstyled item.
func (b *Builder) Build(r Resource, s style.Result) Config {
	item := b.CatalogItem(r, s)
	bounds := r.Extent()
	return Config{
		Version: b.opts.Version,
		InitSources: []InitSource{{
			Catalog:             []CatalogItem{item},
			HomeCamera:          bounds,
			InitialCamera:       bounds,
			Stratum:             "user",
			Workbench:           []string{item.ID},
			ViewerMode:          b.opts.ViewerMode,
			FocusWorkbenchItems: true,
			BaseMaps: BaseMaps{
				DefaultBaseMapID: b.opts.BaseMap,
				PreviewBaseMapID: b.opts.BaseMap,
			},
		}},
	}
}

// BuildJSON returns Build's result as indented JSON.
func (b *Builder) BuildJSON(r Resource, s style.Result) ([]byte, error) {
	return json.MarshalIndent(b.Build(r, s), "", "  ")
}

// CatalogItem returns the catalog entry for r, shaped by its format family.
func (b *Builder) CatalogItem(r Resource, s style.Result) CatalogItem {
	item := CatalogItem{
		Name: SafeName(r),
		ID:   ResourceID(r),
		Type: normalizeFormat(r.Format),
		URL:  r.URL,
	}

	switch FormatFamily(r.Format) {
	case FamilyTabular:
		b.tabular(&item, s)
	case FamilyRaster:
		b.raster(&item, s)
	case FamilyVector:
		b.vector(&item, s)
	}
	return item
}

// =============================================================================
// Item shapes
// =============================================================================

func (b *Builder) tabular(item *CatalogItem, s style.Result) {
	item.Type = "csv"
	b.common(item)
	st := Style{
		ID:    defaultStyleID,
		Time:  &TimeStyle{SpreadStartTime: true, SpreadFinishTime: true},
		Color: colorStyle(s.Renderer),
	}
	item.Styles = []Style{st}
	item.ActiveStyle = st.ID
	item.Legends = legends(s)
}

func (b *Builder) raster(item *CatalogItem, s style.Result) {
	item.Type = "cog"
	b.common(item)
	item.Opacity = ptr(b.opts.Opacity)
	item.Legends = legends(s)
	if colors := bandColors(s.Renderer); len(colors) > 0 {
		item.RenderOptions = &RenderOptions{Single: SingleBand{Colors: colors, UseRealValue: true}}
	}
}

func (b *Builder) vector(item *CatalogItem, s style.Result) {
	b.common(item)
	item.Opacity = ptr(b.opts.Opacity)
	item.ClampToGround = ptr(false)
	item.Legends = legends(s)
	if cs := colorStyle(s.Renderer); cs != nil {
		st := Style{ID: StyleID(s.PropertyName()), Color: cs}
		item.Styles = []Style{st}
		item.ActiveStyle = st.ID
	}
}

func (b *Builder) common(item *CatalogItem) {
	item.CacheDuration = b.opts.CacheDuration
	item.IsOpenInWorkbench = true
}

func legends(s style.Result) []Legend {
	if len(s.Legend) == 0 {
		return nil
	}
	return []Legend{{Title: legendTitle, Items: s.Legend}}
}

// colorStyle maps a renderer onto a table color style, or nil when there is
// nothing to color by.
func colorStyle(r style.Renderer) *ColorStyle {
	switch v := r.(type) {
	case style.SingleSymbol:
		c := v.Color
		return &ColorStyle{NullColor: &c}
	case style.BinClassification:
		return &ColorStyle{
			MapType:     string(style.KindBin),
			ColorColumn: v.PropertyName,
			BinMaximums: v.BinMaximums,
			BinColors:   v.BinColors,
		}
	case style.EnumClassification:
		enum := make([]EnumColor, len(v.Values))
		for i, ev := range v.Values {
			enum[i] = EnumColor{Value: ev.Value, Color: ev.Color}
		}
		return &ColorStyle{
			MapType:     string(style.KindEnum),
			ColorColumn: v.PropertyName,
			EnumColors:  enum,
		}
	case style.ContinuousRamp:
		if len(v.Stops) == 0 {
			return nil
		}
		return &ColorStyle{
			MapType:      string(style.KindContinuous),
			ColorColumn:  v.PropertyName,
			MinimumValue: ptr(v.Stops[0].Value),
			MaximumValue: ptr(v.Stops[len(v.Stops)-1].Value),
		}
	}
	return nil
}

// bandColors flattens a raster renderer into [value, color] pairs. Bins
// contribute their maximums; enum values that are not numeric are skipped.
func bandColors(r style.Renderer) []BandColor {
	var out []BandColor
	switch v := r.(type) {
	case style.ContinuousRamp:
		for _, s := range v.Stops {
			out = append(out, BandColor{Value: s.Value, Color: s.Color})
		}
	case style.BinClassification:
		for i, m := range v.BinMaximums {
			out = append(out, BandColor{Value: m, Color: v.BinColors[i]})
		}
	case style.EnumClassification:
		for _, ev := range v.Values {
			if f, ok := numeric.ToFloat(ev.Value); ok {
				out = append(out, BandColor{Value: f, Color: ev.Color})
			}
		}
	}
	return out
}

var styleIDInvalid = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// StyleID derives a style id from a column name. Characters outside
// [a-zA-Z0-9_-] become underscores and the id is capped at 50 characters.
func StyleID(column string) string {
	id := styleIDInvalid.ReplaceAllString(column, "_")
	if len(id) > maxStyleID {
		id = id[:maxStyleID]
	}
	if id == "" {
		return fallbackStyle
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "style_" + id
	}
	return id
}

// =============================================================================
// Start URL
// =============================================================================

// EncodeStart returns the viewer URL that opens cfg: the instance URL with
// the percent-encoded config in a "start" fragment.
func EncodeStart(instanceURL string, cfg Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	encoded := strings.ReplaceAll(url.QueryEscape(string(data)), "+", "%20")
	base, _, _ := strings.Cut(instanceURL, "#")
	return base + "#start=" + encoded, nil
}

// DecodeStart reverses EncodeStart.
func DecodeStart(startURL string) (Config, error) {
	var cfg Config
	_, fragment, ok := strings.Cut(startURL, "#start=")
	if !ok {
		return cfg, errs.New(errs.ErrCodeInvalidURL, "URL has no #start fragment")
	}
	raw, err := url.QueryUnescape(fragment)
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidURL, err, "start fragment is not percent-encoded")
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidFormat, err, "start fragment is not a viewer config")
	}
	return cfg, nil
}

func ptr[T any](v T) *T { return &v }
