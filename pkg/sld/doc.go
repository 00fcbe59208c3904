// Package sld reads Styled Layer Descriptor documents.
//
// SLD is the OGC XML vocabulary that map servers publish alongside a layer to
// describe how it is drawn. This package covers the subset needed to derive a
// legend and a thematic renderer: the rules of vector styles and the color
// map of raster styles. Both SLD 1.0 (sld: and ogc: elements) and SLD 1.1
// (se: elements) are accepted, and elements are matched by local name so
// documents with missing or unusual prefixes still resolve.
//
// # Parsing
//
// [Parse] runs three steps that can also be called separately:
//
//  1. [Decode] enforces the size limit and converts bytes to UTF-8, falling
//     back through the declared charset, windows-1252 and ISO-8859-1.
//  2. [ParseText] builds a [Node] tree. Documents that fail a strict parse are
//     repaired (control characters removed, namespace URIs trimmed) and
//     parsed again leniently.
//  3. [Validate] checks for a StyledLayerDescriptor root with a layer.
//
// Every failure is an *errors.Error whose code names the step that failed.
//
// # Extraction
//
// [ExtractRules] returns the colored rules of all vector styles and
// [ExtractColorMap] the entries of a raster color map. Neither fails: input
// that cannot be used is skipped and reported through the optional [Logf].
package sld
