// Package io reads and writes the JSON artifacts produced by sldview:
// compiled styles and viewer configs.
//
// # Compiled Styles
//
// A compiled style is the JSON form of [style.Result]:
//
//	{
//	  "legend": [
//	    {"title": "Very low (0 - 0.2)", "color": "#FFFFBF"},
//	    {"title": "Low (0.2 - 0.5)", "color": "#FEE787"}
//	  ],
//	  "renderer": {
//	    "kind": "bin",
//	    "propertyName": "LSSCombine",
//	    "binMaximums": [0.2, 0.5],
//	    "binColors": ["#FFFFBF", "#FEE787"]
//	  }
//	}
//
// "legend" is always present. "renderer" is omitted for legend-only and
// empty styles. [ReadStyle] rejects renderers that break their invariants,
// such as unsorted bin maximums, so a style file edited by hand cannot
// produce a config the viewer would misrender.
//
// # Writing
//
// [WriteJSON] writes any value as indented JSON. [ExportJSON] writes to a
// file through a temporary sibling and a rename, so readers never observe a
// half-written file.
//
// [style.Result]: github.com/matzehuels/sldview/pkg/style.Result
package io
