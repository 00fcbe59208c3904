package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/sldview/pkg/style"
)

// ReadStyle decodes a compiled style from r.
//
// Unknown renderer kinds, bin tables that are empty, mismatched or not
// strictly ascending, and ramps with unsorted stops are rejected. ReadStyle
// does not close r.
func ReadStyle(r io.Reader) (style.Result, error) {
	var res style.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return style.Result{}, fmt.Errorf("decode: %w", err)
	}
	return res, nil
}

// ImportStyle reads a compiled style from the file at path.
func ImportStyle(path string) (style.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return style.Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := ReadStyle(f)
	if err != nil {
		return style.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
