// Package terria builds TerriaJS init configs for previewing a single
// resource.
//
// A config frames the camera on the resource's extent and puts one catalog
// item on the workbench. The item's shape follows the resource format:
//
//   - tabular (csv, csv-geo-*): a time-enabled table item
//   - raster (tif, tiff, geotiff, cog): a COG imagery item whose single-band
//     render options carry the compiled color map
//   - vector (shp, geojson, wfs): a feature item with a table color style
//     and legend
//   - anything else: name, id, type and url only
//
// An empty [style.Result] is valid input. Style and legend blocks are then
// omitted and the viewer falls back to its default look.
//
// # Usage
//
//	b := terria.NewBuilder(terria.Options{})
//	cfg := b.Build(terria.Resource{Name: "Landslides", Format: "shp", URL: u}, res)
//	link, err := terria.EncodeStart("https://viewer.example.org/", cfg)
package terria
