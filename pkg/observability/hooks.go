// Package observability lets a binary watch fetches, compile stages and
// cache traffic without the library packages depending on any logging or
// metrics backend.
//
// Three hook sets exist. Each defaults to a no-op and can be replaced at
// startup:
//
//	observability.SetPipelineHooks(myHooks)
//	defer observability.Reset()
//
// Emitters look the current set up on every event:
//
//	observability.Pipeline().OnStageComplete(ctx, "parse", time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from document retrieval and style
// compilation.
type PipelineHooks interface {
	OnFetchStart(ctx context.Context, source string)
	OnFetchComplete(ctx context.Context, source string, size int, duration time.Duration, err error)

	// OnStageComplete fires after each compile stage (decode, parse,
	// validate, extract, classify). err is the reason the compile stopped
	// at that stage, if it did.
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnCompileComplete fires once per compile. renderer is empty when the
	// result carries no renderer.
	OnCompileComplete(ctx context.Context, kind, renderer string, legendItems int, duration time.Duration)
}

// CacheHooks receives events from the style caches. backend is "file",
// "redis" or "none".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, backend string)
	OnCacheMiss(ctx context.Context, backend string)
	OnCacheSet(ctx context.Context, backend string, size int)
}

// HTTPHooks receives events from outgoing document requests.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError fires for requests that never produced a response.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopPipelineHooks ignores every pipeline event. Embed it to implement only
// some of the methods.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnFetchStart(context.Context, string)                                  {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, int, time.Duration, error)    {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error)         {}
func (NoopPipelineHooks) OnCompileComplete(context.Context, string, string, int, time.Duration) {}

// NoopCacheHooks ignores every cache event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every HTTP event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// slot holds the current implementation of one hook set. Loads are lock-free
// since every emitted event reads it.
type slot[T any] struct {
	v   atomic.Pointer[T]
	def T
}

func newSlot[T any](def T) *slot[T] {
	s := &slot[T]{def: def}
	s.reset()
	return s
}

func (s *slot[T]) load() T { return *s.v.Load() }

func (s *slot[T]) store(h T) { s.v.Store(&h) }

func (s *slot[T]) reset() { s.store(s.def) }

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPipelineHooks replaces the pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineSlot.store(h)
	}
}

// SetCacheHooks replaces the cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.store(h)
	}
}

// SetHTTPHooks replaces the HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		httpSlot.store(h)
	}
}

// Pipeline returns the current pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.load() }

// Cache returns the current cache hooks.
func Cache() CacheHooks { return cacheSlot.load() }

// HTTP returns the current HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.load() }

// Reset puts the no-op hooks back.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
