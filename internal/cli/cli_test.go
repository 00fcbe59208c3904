package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/sldview/pkg/errors"
	sldio "github.com/matzehuels/sldview/pkg/io"
	"github.com/matzehuels/sldview/pkg/style"
	"github.com/matzehuels/sldview/pkg/terria"
)

func fixturePath(name string) string {
	return filepath.Join("..", "..", "pkg", "sld", "testdata", name)
}

// quiet discards status output for the rest of the test.
func quiet(t *testing.T) {
	t.Helper()
	prev := statusOut
	statusOut = io.Discard
	t.Cleanup(func() { statusOut = prev })
}

// execute runs the root command with args and returns what it wrote to
// stdout. The cache lives in a temporary directory.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	quiet(t)

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"compile", "catalog", "inspect", "batch", "serve", "cache", "completion"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("cache"))
}

// =============================================================================
// compile
// =============================================================================

func TestCompileCommand(t *testing.T) {
	out, err := execute(t, nil, "compile", "--cache", "none", fixturePath("lsscombine.sld"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	renderer := got["renderer"].(map[string]any)
	assert.Equal(t, "bin", renderer["kind"])
	assert.Equal(t, "LSSCombine", renderer["propertyName"])
	assert.Equal(t, []any{0.2, 0.5, 0.68, 0.72, 1.0}, renderer["binMaximums"])
	assert.Len(t, got["legend"], 5)
}

func TestCompileCommandWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lss.json")

	out, err := execute(t, nil, "compile", fixturePath("lsscombine.sld"), "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	res, err := sldio.ImportStyle(path)
	require.NoError(t, err)
	bins, ok := res.Renderer.(style.BinClassification)
	require.True(t, ok, "renderer is %T", res.Renderer)
	assert.Equal(t, "LSSCombine", bins.PropertyName)
}

func TestCompileCommandStdin(t *testing.T) {
	data, err := os.ReadFile(fixturePath("categories.sld"))
	require.NoError(t, err)

	out, err := execute(t, bytes.NewReader(data), "compile", "--cache", "none", "--classification", "auto", "-")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got["legend"])
	assert.Contains(t, got, "renderer")
}

func TestCompileCommandMissingDocumentGivesEmptyStyle(t *testing.T) {
	out, err := execute(t, nil, "compile", "--cache", "none", filepath.Join(t.TempDir(), "missing.sld"))
	require.NoError(t, err, "an unreadable document is not a command error")
	assert.JSONEq(t, `{"legend":[]}`, out)
}

func TestCompileCommandRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"compile", "--kind", "mesh", fixturePath("single.sld")}},
		{"unknown classification", []string{"compile", "--classification", "quantile", fixturePath("single.sld")}},
		{"no document", []string{"compile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// catalog
// =============================================================================

func TestCatalogCommand(t *testing.T) {
	out, err := execute(t, nil, "catalog", fixturePath("lsscombine.sld"),
		"--cache", "none",
		"--name", "Landslides",
		"--format", "shp",
		"--url", "https://data.example.org/lss.zip",
		"--bounds", "-28,153,-37,140")
	require.NoError(t, err)

	var cfg terria.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	require.Len(t, cfg.InitSources, 1)
	src := cfg.InitSources[0]
	assert.Equal(t, terria.Bounds{North: -28, East: 153, South: -37, West: 140}, src.HomeCamera)

	require.Len(t, src.Catalog, 1)
	item := src.Catalog[0]
	assert.Equal(t, "Landslides", item.Name)
	require.Len(t, item.Styles, 1)
	assert.Equal(t, "LSSCombine", item.Styles[0].ID)
	assert.Equal(t, []float64{0.2, 0.5, 0.68, 0.72, 1}, item.Styles[0].Color.BinMaximums)
	assert.Equal(t, []string{item.ID}, src.Workbench)
}

func TestCatalogCommandFromStyleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lss.json")
	_, err := execute(t, nil, "compile", fixturePath("lsscombine.sld"), "-o", path)
	require.NoError(t, err)

	out, err := execute(t, nil, "catalog", "--style", path, "--format", "geojson", "--url", "https://data.example.org/lss.geojson")
	require.NoError(t, err)
	assert.Contains(t, out, `"binMaximums"`)
}

func TestCatalogCommandStartURL(t *testing.T) {
	out, err := execute(t, nil, "catalog", fixturePath("single.sld"),
		"--cache", "none",
		"--format", "wfs",
		"--url", "https://maps.example.org/wfs",
		"--viewer-url", "https://map.example.org/",
		"--start")
	require.NoError(t, err)

	link := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(link, "https://map.example.org/#start="), link)
	cfg, err := terria.DecodeStart(link)
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example.org/wfs", cfg.InitSources[0].Catalog[0].URL)
}

func TestCatalogCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"start without viewer", []string{"catalog", "--url", "https://example.org/a.shp", "--start"}, errs.ErrCodeInvalidInput},
		{"style and document", []string{"catalog", fixturePath("single.sld"), "--style", "x.json", "--url", "https://example.org/a.shp"}, errs.ErrCodeInvalidInput},
		{"bad url", []string{"catalog", "--url", "ftp://example.org/a.shp"}, errs.ErrCodeInvalidURL},
		{"bad bounds", []string{"catalog", "--url", "https://example.org/a.shp", "--bounds", "1,2,3"}, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errs.GetCode(err))
		})
	}
}

// =============================================================================
// inspect
// =============================================================================

func TestInspectCommand(t *testing.T) {
	out, err := execute(t, nil, "inspect", "--cache", "none", fixturePath("lsscombine.sld"))
	require.NoError(t, err)

	assert.Contains(t, out, "1.1.0")
	assert.Contains(t, out, "bin on LSSCombine (5 bins)")
	assert.Contains(t, out, "Very low (0 - 0.2)")
	assert.Contains(t, out, "#FFFFBF")
}

func TestInspectCommandRaster(t *testing.T) {
	out, err := execute(t, nil, "inspect", "--cache", "none", "--kind", "raster", fixturePath("raster_intervals.sld"))
	require.NoError(t, err)
	assert.Contains(t, out, "intervals")
	assert.Contains(t, out, "bin on")
}

func TestInspectCommandReportsStop(t *testing.T) {
	out, err := execute(t, nil, "inspect", "--cache", "none", fixturePath("text_only.sld"))
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped")
}

func TestInspectInteractiveNeedsTerminal(t *testing.T) {
	_, err := execute(t, nil, "inspect", "--cache", "none", "-i", fixturePath("single.sld"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeUnsupported, errs.GetCode(err))
}

// =============================================================================
// cache
// =============================================================================

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, nil, "cache", "path", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(out))
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, nil, "compile", "--cache-dir", dir, fixturePath("lsscombine.sld"))
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries, "compile should have cached the style")

	_, err = execute(t, nil, "cache", "clear", "--cache-dir", dir)
	require.NoError(t, err)

	var files int
	require.NoError(t, filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return err
	}))
	assert.Zero(t, files)
}

func TestCacheClearOtherBackend(t *testing.T) {
	_, err := execute(t, nil, "cache", "clear", "--cache", "none")
	assert.NoError(t, err)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range completionShells() {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, nil, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "sldview")
		})
	}

	_, err := execute(t, nil, "completion", "tcsh")
	assert.Error(t, err)
}
