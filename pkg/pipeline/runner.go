package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/sldview/pkg/cache"
	"github.com/matzehuels/sldview/pkg/fetch"
	"github.com/matzehuels/sldview/pkg/style"
)

// Runner encapsulates fetch and compile with caching.
//
// Apart from the in-flight bookkeeping that merges concurrent identical
// requests, a Runner keeps no state between runs. Multiple goroutines can
// safely use the same Runner with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Fetcher  *fetch.Fetcher
	Compiler *style.Compiler
	TTL      time.Duration

	group singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The fetcher and compiler start with their defaults and may be replaced
// before the first Execute.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Fetcher:  fetch.New(fetch.Options{}),
		Compiler: style.NewCompiler(logger),
		TTL:      DefaultTTL,
	}
}

// Execute fetches and compiles the document named by opts. The error is
// non-nil only for invalid options.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	key := r.cacheKey(opts)
	if !opts.Refresh {
		if res, ok := r.cached(ctx, key); ok {
			return res, nil
		}
	}

	v, _, shared := r.group.Do(key, func() (any, error) {
		// Another flight may have filled the cache between the check above
		// and this one starting.
		if !opts.Refresh {
			if res, ok := r.cached(ctx, key); ok {
				return res, nil
			}
		}
		return r.run(ctx, opts, key), nil
	})

	res := *v.(*Result)
	res.Shared = shared
	return &res, nil
}

// Compile is Execute for an in-memory document.
func (r *Runner) Compile(ctx context.Context, data []byte, kind style.Kind) (*Result, error) {
	return r.Execute(ctx, Options{Inline: data, Kind: kind})
}

func (r *Runner) run(ctx context.Context, opts Options, key string) *Result {
	res := &Result{}
	data := opts.Inline

	if opts.Source != "" {
		start := time.Now()
		fetched, err := r.Fetcher.Fetch(ctx, opts.Source)
		res.Stats.FetchTime = time.Since(start)
		if err != nil {
			res.Stop = &style.Stop{Stage: style.StageFetch, Err: err}
			r.Logger.Warn("fetch failed", "source", opts.Source, "err", err)
			return res
		}
		data = fetched
		r.Logger.Debug("fetched document", "source", opts.Source, "bytes", len(data), "duration", res.Stats.FetchTime)
	}
	res.Stats.Bytes = len(data)

	start := time.Now()
	res.Style, res.Stop = r.Compiler.Run(ctx, data, opts.Kind)
	res.Stats.CompileTime = time.Since(start)

	if res.Style.Empty() {
		return res
	}
	r.Logger.Info("compiled style",
		"kind", opts.Kind,
		"renderer", rendererName(res.Style),
		"legend", len(res.Style.Legend),
		"duration", res.Stats.CompileTime)

	if encoded, err := json.Marshal(res.Style); err == nil {
		if err := r.Cache.Set(ctx, key, encoded, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		}
	}
	return res
}

func (r *Runner) cached(ctx context.Context, key string) (*Result, bool) {
	data, err := cache.MustGet(ctx, r.Cache, key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		r.Logger.Debug("cache miss", "key", key)
		return nil, false
	case err != nil:
		r.Logger.Warn("cache read failed", "err", err)
		return nil, false
	}

	var s style.Result
	if err := json.Unmarshal(data, &s); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "err", err)
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	r.Logger.Debug("cache hit", "key", key)
	return &Result{Style: s, CacheHit: true}, true
}

func (r *Runner) cacheKey(opts Options) string {
	keyOpts := cache.StyleKeyOpts{
		Kind:   string(opts.Kind),
		Mode:   string(r.Compiler.Mode),
		Smooth: r.Compiler.Smooth,
	}
	if opts.Source != "" {
		return r.Keyer.StyleKey(opts.Source, keyOpts)
	}
	return r.Keyer.DocumentKey(opts.Inline, keyOpts)
}

func rendererName(s style.Result) string {
	if s.Renderer == nil {
		return "legend-only"
	}
	return string(s.Renderer.Kind())
}
