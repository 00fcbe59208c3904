package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sldview/pkg/cache"
	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/style"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "sld", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, nil)
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantErr  bool
		wantKind style.Kind
	}{
		{"source", Options{Source: "https://example.org/a.sld"}, false, style.KindVector},
		{"inline raster", Options{Inline: []byte("x"), Kind: "raster"}, false, style.KindRaster},
		{"neither", Options{}, true, ""},
		{"both", Options{Source: "a.sld", Inline: []byte("x")}, true, ""},
		{"bad scheme", Options{Source: "gopher://example.org/a.sld"}, true, ""},
		{"bad kind", Options{Source: "a.sld", Kind: "mesh"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.opts.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.opts.Kind, tt.wantKind)
			}
		})
	}
}

func TestExecuteInlineCaches(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	data := fixture(t, "lsscombine.sld")

	first, err := r.Compile(ctx, data, style.KindVector)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || first.Stop != nil {
		t.Fatalf("first run = %+v", first)
	}
	if _, ok := first.Style.Renderer.(style.BinClassification); !ok {
		t.Fatalf("Renderer = %T", first.Style.Renderer)
	}
	if first.Stats.Bytes != len(data) {
		t.Errorf("Stats.Bytes = %d, want %d", first.Stats.Bytes, len(data))
	}

	second, err := r.Compile(ctx, data, style.KindVector)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second run should hit the cache")
	}
	bins := second.Style.Renderer.(style.BinClassification)
	if len(bins.BinMaximums) != 5 || bins.BinMaximums[0] != 0.2 {
		t.Errorf("cached bins = %v", bins.BinMaximums)
	}

	generic, _ := r.Compile(ctx, data, style.KindGeneric)
	if generic.CacheHit {
		t.Error("a different kind must not share the cache entry")
	}

	refreshed, _ := r.Execute(ctx, Options{Inline: data, Refresh: true})
	if refreshed.CacheHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestExecuteDoesNotCacheEmptyStyles(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	data := fixture(t, "text_only.sld")

	for i := 0; i < 2; i++ {
		res, err := r.Compile(ctx, data, style.KindVector)
		if err != nil {
			t.Fatal(err)
		}
		if res.CacheHit || !res.Style.Empty() {
			t.Fatalf("run %d = %+v", i, res)
		}
		if res.Stop == nil || res.Stop.Stage != style.StageExtract {
			t.Errorf("Stop = %v, want extract stage", res.Stop)
		}
	}
}

func TestExecuteFetchFailureIsEmptyStyle(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	res, err := newTestRunner(t).Execute(context.Background(), Options{Source: server.URL + "/missing.sld"})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if !res.Style.Empty() {
		t.Errorf("Style = %+v, want empty", res.Style)
	}
	if res.Stop == nil || res.Stop.Stage != style.StageFetch || !errs.Is(res.Stop, errs.ErrCodeNotFound) {
		t.Errorf("Stop = %v, want fetch NOT_FOUND", res.Stop)
	}
}

func TestExecuteInvalidOptions(t *testing.T) {
	if _, err := newTestRunner(t).Execute(context.Background(), Options{}); err == nil {
		t.Error("Execute(empty options) should fail")
	}
}

func TestExecuteConcurrentRequestsFetchOnce(t *testing.T) {
	doc := fixture(t, "single.sld")
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write(doc)
	}))
	defer server.Close()

	r := newTestRunner(t)
	const callers = 8
	results := make([]*Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Execute(context.Background(), Options{Source: server.URL + "/style.sld"})
			if err != nil {
				t.Errorf("Execute() error = %v", err)
				return
			}
			results[i] = res
		}(i)
	}

	// Let the callers pile up behind the first request before answering it.
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		if _, ok := res.Style.Renderer.(style.SingleSymbol); !ok {
			t.Errorf("results[%d].Renderer = %T, want SingleSymbol", i, res.Style.Renderer)
		}
	}
}

// brokenCache fails every read and write.
type brokenCache struct{ *cache.NullCache }

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection reset")
}

func TestExecuteCacheMissAndReadFailure(t *testing.T) {
	ctx := context.Background()
	data := fixture(t, "single.sld")

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewRunner(c, nil, logger).Compile(ctx, data, style.KindVector)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("an empty cache cannot hit")
	}
	if !bytes.Contains(buf.Bytes(), []byte("cache miss")) {
		t.Errorf("miss not logged:\n%s", buf.String())
	}

	buf.Reset()
	res, err = NewRunner(brokenCache{cache.NewNullCache()}, nil, logger).Compile(ctx, data, style.KindVector)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit || res.Style.Empty() {
		t.Errorf("a failing cache should fall through to a compile, got %+v", res)
	}
	if !bytes.Contains(buf.Bytes(), []byte("cache read failed")) {
		t.Errorf("read failure not logged:\n%s", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte("cache miss")) {
		t.Error("a read failure is not a miss")
	}
}
