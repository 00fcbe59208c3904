// Package pipeline runs the fetch → compile sequence with caching.
//
// The CLI, the HTTP server and batch runs all go through a [Runner] so that
// caching and failure handling behave the same everywhere. A run never fails
// because of the document: fetch and compile problems produce an empty style
// plus a [style.Stop] describing what went wrong. Execute only returns an
// error for invalid options.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source: "https://maps.example.org/styles/rivers.sld",
//	    Kind:   style.KindVector,
//	})
//	if err != nil {
//	    return err // bad options
//	}
//	if res.Style.Empty() {
//	    // fall back to default styling; res.Stop says why
//	}
//
// # Concurrency
//
// Concurrent Execute calls for the same cache key share one fetch and
// compile. Callers that arrive while it is in flight receive its result
// with Shared set.
package pipeline

import (
	"time"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/style"
)

// DefaultTTL is how long compiled styles stay cached.
const DefaultTTL = time.Hour

// =============================================================================
// Options
// =============================================================================

// Options selects the document and how to compile it.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Source is an http(s) URL, file:// URL or local path.
	Source string `json:"source,omitempty"`

	// Inline is the document itself; it replaces Source.
	Inline []byte `json:"-"`

	Kind    style.Kind `json:"kind,omitempty"`
	Refresh bool       `json:"refresh,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks that exactly one of Source and Inline is
// set and defaults Kind to vector.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	switch {
	case o.Source == "" && len(o.Inline) == 0:
		return errs.New(errs.ErrCodeInvalidInput, "source or inline document is required")
	case o.Source != "" && len(o.Inline) > 0:
		return errs.New(errs.ErrCodeInvalidInput, "source and inline document are mutually exclusive")
	case o.Source != "":
		if err := errs.ValidateSource(o.Source); err != nil {
			return err
		}
	}

	kind, err := style.ParseKind(string(o.Kind))
	if err != nil {
		return err
	}
	o.Kind = kind
	o.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outcome of one run.
type Result struct {
	// Style is the compiled style; empty when the run stopped.
	Style style.Result

	// Stop is why the run produced no style, or nil.
	Stop *style.Stop

	Stats Stats

	// CacheHit reports that Style came from the cache.
	CacheHit bool

	// Shared reports that this call joined another caller's run.
	Shared bool
}

// Stats contains timing and size information. Cached results have zero
// stats.
type Stats struct {
	Bytes       int
	FetchTime   time.Duration
	CompileTime time.Duration
}
