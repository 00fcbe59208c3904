// Package fetch retrieves SLD documents from URLs and local files.
//
// Every fetch is bounded: HTTP requests carry a timeout, bodies are read up
// to a byte limit, and transient failures are retried a fixed number of
// times. A fetch that cannot complete within those bounds fails rather than
// blocking.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/httputil"
	"github.com/matzehuels/sldview/pkg/observability"
)

// ErrTooLarge is wrapped by errors for documents over the byte limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Default limits.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxBytes   = 10 << 20
	DefaultRetries    = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultUserAgent  = "CKAN-TerriaView/1.0"
)

const acceptHeader = "application/vnd.ogc.sld+xml, application/xml, text/xml, */*"

// Options configures a Fetcher. Zero durations, limits and user agent take
// the defaults above; Retries of zero disables retrying.
type Options struct {
	Timeout    time.Duration
	MaxBytes   int64
	Retries    int
	RetryDelay time.Duration
	UserAgent  string

	// Client overrides the HTTP client. Its own Timeout is left alone.
	Client *http.Client
}

// Fetcher reads documents over HTTP(S) or from the local filesystem.
type Fetcher struct {
	http     *http.Client
	maxBytes int64
	retries  int
	delay    time.Duration
	agent    string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		http:     client,
		maxBytes: opts.MaxBytes,
		retries:  opts.Retries,
		delay:    opts.RetryDelay,
		agent:    opts.UserAgent,
	}
}

// MaxBytes returns the size limit applied to every document.
func (f *Fetcher) MaxBytes() int64 { return f.maxBytes }

// Fetch returns the document at source, which is an http(s) URL, a file://
// URL or a local path.
func (f *Fetcher) Fetch(ctx context.Context, source string) (data []byte, err error) {
	start := time.Now()
	observability.Pipeline().OnFetchStart(ctx, source)
	defer func() {
		observability.Pipeline().OnFetchComplete(ctx, source, len(data), time.Since(start), err)
	}()

	if err := errs.ValidateSource(source); err != nil {
		return nil, err
	}

	switch {
	case isHTTP(source):
		return f.fetchHTTP(ctx, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidURL, err, "invalid file URL")
		}
		return f.readFile(u.Path)
	default:
		return f.readFile(source)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	var data []byte
	err := httputil.Retry(ctx, f.retries+1, f.delay, func() error {
		var err error
		data, err = f.get(ctx, source)
		return err
	})
	if err == nil {
		return data, nil
	}

	var coded *errs.Error
	switch {
	case errors.As(err, &coded):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return nil, errs.Wrap(errs.ErrCodeTimeout, err, "fetching %s timed out", source)
	default:
		return nil, errs.Wrap(errs.ErrCodeFetch, err, "failed to fetch %s", source)
	}
}

func (f *Fetcher) get(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidURL, err, "invalid URL")
	}
	req.Header.Set("User-Agent", f.agent)
	req.Header.Set("Accept", acceptHeader)

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := f.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, source); err != nil {
		return nil, err
	}
	if resp.ContentLength > f.maxBytes {
		return nil, f.tooLarge(resp.ContentLength)
	}
	data, err := f.readLimited(resp.Body)
	if err != nil && !errs.Is(err, errs.ErrCodeTooLarge) {
		return nil, &httputil.RetryableError{Err: err}
	}
	return data, err
}

func checkStatus(code int, source string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return errs.New(errs.ErrCodeNotFound, "%s: status %d", source, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("status %d", code)}
	default:
		return errs.New(errs.ErrCodeFetch, "%s: status %d", source, code)
	}
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeNotFound, err, "no such file")
		}
		return nil, errs.Wrap(errs.ErrCodeFetch, err, "failed to open %s", path)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() > f.maxBytes {
		return nil, f.tooLarge(info.Size())
	}
	data, err := f.readLimited(file)
	if err != nil && !errs.Is(err, errs.ErrCodeTooLarge) {
		return nil, errs.Wrap(errs.ErrCodeFetch, err, "failed to read %s", path)
	}
	return data, err
}

// readLimited reads at most maxBytes+1 bytes so an oversized body is
// detected without reading all of it.
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, f.tooLarge(-1)
	}
	return data, nil
}

func (f *Fetcher) tooLarge(size int64) error {
	if size < 0 {
		return errs.Wrap(errs.ErrCodeTooLarge, ErrTooLarge, "document is over %d bytes", f.maxBytes)
	}
	return errs.Wrap(errs.ErrCodeTooLarge, ErrTooLarge, "document is %d bytes (max %d)", size, f.maxBytes)
}

func isHTTP(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
