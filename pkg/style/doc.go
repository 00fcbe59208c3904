// Package style compiles SLD documents into a legend and a renderer.
//
// A compile runs as a fixed sequence of stages: decode, parse, validate,
// extract and classify. Each stage either hands its output to the next or
// stops the compile. A stopped compile yields the empty [Result], which
// callers treat as "no styling" and replace with their default look. Nothing
// in this package returns an error for a bad document.
//
// # Renderers
//
// [Renderer] is a closed set of four shapes:
//
//   - [SingleSymbol]: one color for everything
//   - [BinClassification]: ranges of a numeric property, keyed by upper edge
//   - [EnumClassification]: exact property values
//   - [ContinuousRamp]: interpolated color stops
//
// Vector rules are classified by [ClassifyWith]; raster color maps are
// turned into renderers by [FromColorMap].
//
// # Usage
//
//	c := style.NewCompiler(logger)
//	res := c.Compile(ctx, data, style.KindVector)
//	if res.Empty() {
//	    // use default styling
//	}
package style
