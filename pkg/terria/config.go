package terria

import (
	"encoding/json"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/style"
)

// Config is the viewer's init file.
type Config struct {
	Version     string       `json:"version"`
	InitSources []InitSource `json:"initSources"`
}

// InitSource holds the catalog and the initial view state.
type InitSource struct {
	Catalog             []CatalogItem `json:"catalog"`
	HomeCamera          Bounds        `json:"homeCamera"`
	InitialCamera       Bounds        `json:"initialCamera"`
	Stratum             string        `json:"stratum"`
	Workbench           []string      `json:"workbench"`
	ViewerMode          string        `json:"viewerMode"`
	FocusWorkbenchItems bool          `json:"focusWorkbenchItems"`
	BaseMaps            BaseMaps      `json:"baseMaps"`
}

// BaseMaps selects the background imagery.
type BaseMaps struct {
	DefaultBaseMapID string `json:"defaultBaseMapId"`
	PreviewBaseMapID string `json:"previewBaseMapId"`
}

// CatalogItem is one layer in the catalog. Fields that do not apply to the
// item's type are left empty and omitted.
type CatalogItem struct {
	Name              string         `json:"name"`
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	URL               string         `json:"url"`
	CacheDuration     string         `json:"cacheDuration,omitempty"`
	IsOpenInWorkbench bool           `json:"isOpenInWorkbench,omitempty"`
	Opacity           *float64       `json:"opacity,omitempty"`
	ClampToGround     *bool          `json:"clampToGround,omitempty"`
	Styles            []Style        `json:"styles,omitempty"`
	ActiveStyle       string         `json:"activeStyle,omitempty"`
	Legends           []Legend       `json:"legends,omitempty"`
	RenderOptions     *RenderOptions `json:"renderOptions,omitempty"`
}

// Legend is a titled list of legend rows.
type Legend struct {
	Title string             `json:"title"`
	Items []style.LegendItem `json:"items"`
}

// Style is a table style. Tabular items use Time, vector items use Color.
type Style struct {
	ID    string      `json:"id"`
	Time  *TimeStyle  `json:"time,omitempty"`
	Color *ColorStyle `json:"color,omitempty"`
}

// TimeStyle spreads features without explicit times over the whole
// time range.
type TimeStyle struct {
	SpreadStartTime  bool `json:"spreadStartTime"`
	SpreadFinishTime bool `json:"spreadFinishTime"`
}

// ColorStyle maps a column to colors.
type ColorStyle struct {
	MapType      string        `json:"mapType,omitempty"`
	ColorColumn  string        `json:"colorColumn,omitempty"`
	BinMaximums  []float64     `json:"binMaximums,omitempty"`
	BinColors    []color.Color `json:"binColors,omitempty"`
	EnumColors   []EnumColor   `json:"enumColors,omitempty"`
	MinimumValue *float64      `json:"minimumValue,omitempty"`
	MaximumValue *float64      `json:"maximumValue,omitempty"`
	NullColor    *color.Color  `json:"nullColor,omitempty"`
}

// EnumColor is one value of an enum color style.
type EnumColor struct {
	Value string      `json:"value"`
	Color color.Color `json:"color"`
}

// RenderOptions configures raster rendering.
type RenderOptions struct {
	Single SingleBand `json:"single"`
}

// SingleBand colors a single-band raster by pixel value.
type SingleBand struct {
	Colors       []BandColor `json:"colors"`
	UseRealValue bool        `json:"useRealValue"`
}

// BandColor is one [value, color] pair. It encodes as a two-element array
// with the color in CSS functional form.
type BandColor struct {
	Value float64
	Color color.Color
}

// MarshalJSON implements json.Marshaler.
func (b BandColor) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{b.Value, b.Color.RGBString()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BandColor) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &b.Value); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &b.Color)
}
