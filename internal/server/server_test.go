package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/terria"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../pkg/sld/testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(Config{
		Runner:      pipeline.NewRunner(nil, nil, nil),
		InstanceURL: "https://viewer.example.org/",
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, contentType, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.NotEmpty(t, out.Build.Version)
}

func TestCompileInline(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/v1/compile?kind=vector", "application/xml", fixture(t, "lsscombine.sld"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st := out["style"].(map[string]any)
	renderer := st["renderer"].(map[string]any)
	assert.Equal(t, "bin", renderer["kind"])
	assert.Equal(t, "LSSCombine", renderer["propertyName"])
	assert.Equal(t, []any{0.2, 0.5, 0.68, 0.72, 1.0}, renderer["binMaximums"])
	assert.Len(t, st["legend"], 5)
	assert.NotContains(t, out, "stop")
}

func TestCompileSource(t *testing.T) {
	sld := fixture(t, "raster_ramp.sld")
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rain.sld" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sld))
	}))
	defer origin.Close()
	ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/v1/compile", "application/json",
		`{"source":"`+origin.URL+`/rain.sld","kind":"raster"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renderer := out["style"].(map[string]any)["renderer"].(map[string]any)
	assert.Equal(t, "continuous", renderer["kind"])

	resp, out = post(t, ts.URL+"/v1/compile", "application/json", `{"source":"`+origin.URL+`/gone.sld"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "fetch failures are not HTTP errors")
	assert.Equal(t, map[string]any{"legend": []any{}}, out["style"])
	stop := out["stop"].(map[string]any)
	assert.Equal(t, "fetch", stop["stage"])
	assert.Equal(t, "NOT_FOUND", stop["code"])
}

func TestCompileStopsOnBadDocument(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/v1/compile", "text/xml", "<html><body>nope</body></html>")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stop := out["stop"].(map[string]any)
	assert.Equal(t, "NOT_SLD", stop["code"])
}

func TestCompileBadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		code        string
	}{
		{"empty body", "/v1/compile", "application/xml", "", "INVALID_INPUT"},
		{"bad kind", "/v1/compile?kind=mesh", "application/xml", "<StyledLayerDescriptor/>", "INVALID_KIND"},
		{"bad json", "/v1/compile", "application/json", "{", "INVALID_FORMAT"},
		{"unknown field", "/v1/compile", "application/json", `{"src":"x"}`, "INVALID_FORMAT"},
		{"file source", "/v1/compile", "application/json", `{"source":"file:///etc/passwd"}`, "INVALID_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts.URL+tt.path, tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, out["error"].(map[string]any)["code"])
		})
	}
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t)

	body, err := json.Marshal(catalogRequest{
		Resource: terria.Resource{ID: "lss", Name: "Landslides", Format: "shp", URL: "https://data.example.org/lss.zip"},
		SLDText:  fixture(t, "lsscombine.sld"),
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/catalog", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg terria.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	item := cfg.InitSources[0].Catalog[0]
	assert.Equal(t, "shp", item.Type)
	assert.Equal(t, "LSSCombine", item.ActiveStyle)
	require.Len(t, item.Styles, 1)
	assert.Equal(t, "bin", item.Styles[0].Color.MapType)
	assert.Equal(t, []float64{0.2, 0.5, 0.68, 0.72, 1}, item.Styles[0].Color.BinMaximums)
	assert.Equal(t, terria.DefaultBounds, cfg.InitSources[0].HomeCamera)
}

func TestCatalogStart(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/v1/catalog", "application/json",
		`{"resource":{"name":"Gauges","format":"csv","url":"https://data.example.org/g.csv"},"start":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	link := out["url"].(string)
	assert.True(t, strings.HasPrefix(link, "https://viewer.example.org/#start="), link)
	cfg, err := terria.DecodeStart(link)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.InitSources[0].Catalog[0].Type)
}

func TestCatalogBadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/v1/catalog", "application/json", `{"resource":{"name":"x","url":"not a url"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_URL", out["error"].(map[string]any)["code"])

	resp, _ = post(t, ts.URL+"/v1/catalog", "application/json",
		`{"resource":{"url":"https://data.example.org/a.shp"},"sld":"file:///etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	noViewer := httptest.NewServer(New(Config{}).Handler())
	defer noViewer.Close()
	resp, out = post(t, noViewer.URL+"/v1/catalog", "application/json",
		`{"resource":{"url":"https://data.example.org/a.shp"},"start":true}`)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "UNSUPPORTED", out["error"].(map[string]any)["code"])
}
