package terria

import (
	"encoding/json"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/style"
)

// =============================================================================
// Resource
// =============================================================================

// Resource describes the dataset being previewed.
type Resource struct {
	ID     string `json:"id,omitempty" toml:"id"`
	Name   string `json:"name,omitempty" toml:"name"`
	Format string `json:"format,omitempty" toml:"format"`
	URL    string `json:"url" toml:"url"`

	// Spatial is the dataset's GeoJSON footprint, if the portal has one.
	Spatial string `json:"spatial,omitempty" toml:"spatial"`

	// Bounds overrides Spatial when set.
	Bounds *Bounds `json:"bounds,omitempty" toml:"bounds"`
}

// ResourceID returns r.ID, or a stable id derived from the URL when the
// resource has none.
func ResourceID(r Resource) string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.URL)).String()
}

var placeholderNames = map[string]bool{
	"none":             true,
	"null":             true,
	"undefined":        true,
	"unnamed resource": true,
}

// SafeName returns the display name of r, falling back to its id when the
// name is blank or a placeholder such as "null".
func SafeName(r Resource) string {
	name := strings.TrimSpace(r.Name)
	if name == "" || placeholderNames[strings.ToLower(name)] {
		return ResourceID(r)
	}
	return name
}

// =============================================================================
// Formats
// =============================================================================

// Family groups resource formats that share a catalog item shape.
type Family string

const (
	FamilyTabular Family = "tabular"
	FamilyRaster  Family = "raster"
	FamilyVector  Family = "vector"
	FamilyOther   Family = "other"
)

// FormatFamily returns the family a format belongs to.
func FormatFamily(format string) Family {
	f := normalizeFormat(format)
	switch {
	case f == "csv" || strings.HasPrefix(f, "csv-geo-"):
		return FamilyTabular
	case f == "tif" || f == "tiff" || f == "geotiff" || f == "cog":
		return FamilyRaster
	case f == "shp" || f == "geojson" || f == "wfs":
		return FamilyVector
	}
	return FamilyOther
}

// StyleKind returns the compile kind used for SLDs attached to resources of
// this family.
func (f Family) StyleKind() style.Kind {
	switch f {
	case FamilyRaster:
		return style.KindRaster
	case FamilyVector:
		return style.KindVector
	}
	return style.KindGeneric
}

var viewable = regexp.MustCompile(`^(shp|wms|wfs|kml|esri rest|geojson|czml|csv-geo-.*|wmts|tif|tiff|geotiff|csv|json)$`)

// CanView reports whether the viewer can display a resource. An empty
// format is inferred from the URL's file extension.
func CanView(r Resource) bool {
	f := normalizeFormat(r.Format)
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(path.Ext(stripQuery(r.URL))), ".")
	}
	return viewable.MatchString(f)
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// =============================================================================
// Bounds
// =============================================================================

// Bounds is a camera rectangle in degrees.
type Bounds struct {
	North float64 `json:"north" toml:"north"`
	East  float64 `json:"east" toml:"east"`
	South float64 `json:"south" toml:"south"`
	West  float64 `json:"west" toml:"west"`
}

// DefaultBounds frames the region the viewer opens on when a resource has
// no usable extent.
var DefaultBounds = Bounds{North: 20, East: -13, South: -60, West: -108}

var coordinatePattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// CleanCoordinate parses a plain decimal coordinate, ignoring whitespace.
// Anything else, including exponents and NaN, yields def.
func CleanCoordinate(raw string, def float64) float64 {
	cleaned := strings.Join(strings.Fields(raw), "")
	if !coordinatePattern.MatchString(cleaned) {
		return def
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return def
	}
	return v
}

// ParseBounds parses "north,east,south,west". Every value must be a plain
// decimal number.
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, errs.New(errs.ErrCodeInvalidInput, "bounds must be north,east,south,west: %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		c := CleanCoordinate(p, math.NaN())
		if math.IsNaN(c) {
			return Bounds{}, errs.New(errs.ErrCodeInvalidInput, "invalid coordinate %q in bounds", strings.TrimSpace(p))
		}
		v[i] = c
	}
	return Bounds{North: v[0], East: v[1], South: v[2], West: v[3]}, nil
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// BoundsFromSpatial returns the extent of a GeoJSON Polygon, MultiPolygon or
// Point geometry. Only outer rings contribute.
func BoundsFromSpatial(spatial string) (Bounds, bool) {
	if strings.TrimSpace(spatial) == "" {
		return Bounds{}, false
	}
	var g geometry
	if err := json.Unmarshal([]byte(spatial), &g); err != nil {
		return Bounds{}, false
	}

	var points [][]float64
	switch g.Type {
	case "Point":
		var p []float64
		if json.Unmarshal(g.Coordinates, &p) != nil {
			return Bounds{}, false
		}
		points = [][]float64{p}
	case "Polygon":
		var rings [][][]float64
		if json.Unmarshal(g.Coordinates, &rings) != nil || len(rings) == 0 {
			return Bounds{}, false
		}
		points = rings[0]
	case "MultiPolygon":
		var polys [][][][]float64
		if json.Unmarshal(g.Coordinates, &polys) != nil {
			return Bounds{}, false
		}
		for _, rings := range polys {
			if len(rings) > 0 {
				points = append(points, rings[0]...)
			}
		}
	default:
		return Bounds{}, false
	}
	return extent(points)
}

func extent(points [][]float64) (Bounds, bool) {
	b := Bounds{North: math.Inf(-1), East: math.Inf(-1), South: math.Inf(1), West: math.Inf(1)}
	n := 0
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		lon, lat := p[0], p[1]
		b.North = math.Max(b.North, lat)
		b.South = math.Min(b.South, lat)
		b.East = math.Max(b.East, lon)
		b.West = math.Min(b.West, lon)
		n++
	}
	return b, n > 0
}

// Extent resolves the camera bounds for r: explicit Bounds, then Spatial,
// then DefaultBounds.
func (r Resource) Extent() Bounds {
	if r.Bounds != nil {
		return *r.Bounds
	}
	if b, ok := BoundsFromSpatial(r.Spatial); ok {
		return b
	}
	return DefaultBounds
}

// Validate checks the fields a catalog entry cannot do without.
func (r Resource) Validate() error {
	if err := errs.ValidateURL(r.URL); err != nil {
		return err
	}
	if r.Name != "" {
		if err := errs.ValidateResourceName(r.Name); err != nil {
			return err
		}
	}
	if r.ID != "" {
		return errs.ValidateResourceName(r.ID)
	}
	return nil
}
