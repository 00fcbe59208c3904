package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	NoopPipelineHooks
	NoopCacheHooks
	NoopHTTPHooks

	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnStageComplete(_ context.Context, stage string, _ time.Duration, err error) {
	if err != nil {
		stage += "!"
	}
	r.add("stage:" + stage)
}

func (r *recorder) OnCacheMiss(_ context.Context, backend string) { r.add("miss:" + backend) }

func (r *recorder) OnError(_ context.Context, method, host, _ string, _ error) {
	r.add("error:" + method + " " + host)
}

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T, want NoopPipelineHooks", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}

	Pipeline().OnFetchStart(ctx, "https://example.org/style.sld")
	Pipeline().OnCompileComplete(ctx, "vector", "bin", 5, time.Second)
	Cache().OnCacheSet(ctx, "file", 1024)
	HTTP().OnResponse(ctx, "GET", "maps.example.org", "/styles/rivers.sld", 200, time.Second)
}

func TestRegisteredHooksReceiveEvents(t *testing.T) {
	t.Cleanup(Reset)
	ctx := context.Background()

	r := &recorder{}
	SetPipelineHooks(r)
	SetCacheHooks(r)
	SetHTTPHooks(r)

	Pipeline().OnStageComplete(ctx, "parse", time.Millisecond, nil)
	Pipeline().OnStageComplete(ctx, "validate", time.Millisecond, errors.New("no NamedLayer"))
	Cache().OnCacheMiss(ctx, "redis")
	HTTP().OnError(ctx, "GET", "maps.example.org", "/a.sld", errors.New("refused"))

	want := []string{"stage:parse", "stage:validate!", "miss:redis", "error:GET maps.example.org"}
	if len(r.events) != len(want) {
		t.Fatalf("events = %v, want %v", r.events, want)
	}
	for i := range want {
		if r.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, r.events[i], want[i])
		}
	}

	Reset()
	Cache().OnCacheMiss(ctx, "file")
	if len(r.events) != len(want) {
		t.Error("hooks still called after Reset")
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	t.Cleanup(Reset)

	r := &recorder{}
	SetPipelineHooks(r)
	SetPipelineHooks(nil)
	SetCacheHooks(nil)
	SetHTTPHooks(nil)

	if Pipeline() != PipelineHooks(r) {
		t.Error("SetPipelineHooks(nil) replaced the registered hooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) replaced the default")
	}
}

func TestConcurrentSetAndLoad(t *testing.T) {
	t.Cleanup(Reset)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetCacheHooks(&recorder{})
		}()
		go func() {
			defer wg.Done()
			Cache().OnCacheHit(ctx, "file")
		}()
	}
	wg.Wait()
}
