package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/sldview/pkg/errors"
	sldio "github.com/matzehuels/sldview/pkg/io"
	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/style"
	"github.com/matzehuels/sldview/pkg/terria"
)

// =============================================================================
// Manifest
// =============================================================================

// manifest lists the resources of a batch run:
//
//	[[resource]]
//	name   = "Landslide susceptibility"
//	format = "shp"
//	url    = "https://data.example.org/lss.zip"
//	sld    = "https://data.example.org/lss.sld"
//
//	[resource.bounds]
//	north = -28.1
//	east  = 153.6
//	south = -37.5
//	west  = 140.9
type manifest struct {
	Resources []manifestEntry `toml:"resource"`
}

type manifestEntry struct {
	terria.Resource

	// SLD is the style document; empty means unstyled.
	SLD string `toml:"sld"`

	// Kind overrides the geometry kind implied by Format.
	Kind string `toml:"kind"`
}

func (e manifestEntry) kind() (style.Kind, error) {
	if e.Kind == "" {
		return terria.FormatFamily(e.Format).StyleKind(), nil
	}
	return style.ParseKind(e.Kind)
}

// loadManifest reads and validates a manifest. Every entry must describe a
// valid resource; errors name the entry by position.
func loadManifest(path string) (*manifest, error) {
	var m manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid manifest %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unknown manifest key %q", undecoded[0].String())
	}
	if len(m.Resources) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "manifest %s lists no resources", path)
	}
	for i, e := range m.Resources {
		if err := e.Resource.Validate(); err != nil {
			return nil, fmt.Errorf("resource %d: %w", i+1, err)
		}
		if _, err := e.kind(); err != nil {
			return nil, fmt.Errorf("resource %d: %w", i+1, err)
		}
	}
	return &m, nil
}

// =============================================================================
// Command
// =============================================================================

// batchCommand creates the batch command.
func (c *CLI) batchCommand() *cobra.Command {
	var (
		outDir  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Build viewer configs for every resource in a manifest",
		Long: `Build one viewer config per [[resource]] in a TOML manifest.

Configs are written to --out as <id>.json. Styles are compiled
concurrently (batch.concurrency at a time). A resource whose style cannot
be compiled still gets an unstyled config; only invalid manifests and
write failures are errors.`,
		Example: `  sldview batch layers.toml --out configs/
  sldview batch layers.toml --out configs/ --concurrency 8 --cache none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			prog := newProgress(c.Logger)
			total := len(m.Resources)
			sp := startSpinner(cmd.Context(), fmt.Sprintf("Building configs 0/%d", total))
			summary, err := c.runBatch(cmd.Context(), m, outDir, refresh, func(n int) {
				sp.SetMessage(fmt.Sprintf("Building configs %d/%d", n, total))
			})
			sp.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Built %d configs", summary.written))

			printSuccess("Wrote %d configs to %s", summary.written, outDir)
			if summary.unstyled > 0 {
				printDetail("%d without a style", summary.unstyled)
			}
			if len(summary.failed) > 0 {
				for _, f := range summary.failed {
					printError("%s", f)
				}
				return fmt.Errorf("%d of %d resources failed", len(summary.failed), len(m.Resources))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the generated configs")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompile even when cached styles exist")
	cmd.Flags().Int("concurrency", 0, "styles compiled at the same time")
	registerViewerFlags(cmd)
	return cmd
}

type batchSummary struct {
	written  int
	unstyled int
	failed   []string
}

// runBatch compiles and writes every entry. Work is bounded by
// batch.concurrency and stops early only when ctx is cancelled. onDone, if
// set, receives the number of finished entries after each one.
func (c *CLI) runBatch(ctx context.Context, m *manifest, outDir string, refresh bool, onDone func(int)) (*batchSummary, error) {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Cache.Close()
	builder, err := c.newBuilder()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		summary batchSummary
		names   = outputNames(m.Resources)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Batch.Concurrency)

	for i, entry := range m.Resources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			styled, err := c.buildEntry(gctx, runner, builder, entry, filepath.Join(outDir, names[i]), refresh)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.failed = append(summary.failed, fmt.Sprintf("%s: %v", terria.SafeName(entry.Resource), err))
			case !styled:
				summary.written++
				summary.unstyled++
			default:
				summary.written++
			}
			if onDone != nil {
				onDone(summary.written + len(summary.failed))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// buildEntry writes the config for one entry and reports whether it
// carries a style.
func (c *CLI) buildEntry(ctx context.Context, runner *pipeline.Runner, builder *terria.Builder, e manifestEntry, path string, refresh bool) (bool, error) {
	r := e.Resource

	var compiled style.Result
	if e.SLD != "" {
		kind, _ := e.kind()
		res, err := runner.Execute(ctx, pipeline.Options{Source: e.SLD, Kind: kind, Refresh: refresh})
		if err != nil {
			return false, err
		}
		if res.Stop != nil {
			c.Logger.Warn("no style", "resource", terria.SafeName(r), "stage", res.Stop.Stage, "reason", errs.UserMessage(res.Stop.Err))
		}
		compiled = res.Style
	}

	if err := sldio.ExportJSON(builder.Build(r, compiled), path); err != nil {
		return false, err
	}
	c.Logger.Debug("wrote config", "resource", terria.SafeName(r), "path", path)
	return !compiled.Empty(), nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// outputNames picks a distinct file name per entry, based on its resource
// id. Clashes get a numeric suffix.
func outputNames(entries []manifestEntry) []string {
	names := make([]string, len(entries))
	seen := make(map[string]int)
	for i, e := range entries {
		base := strings.Trim(unsafeFileChars.ReplaceAllString(terria.ResourceID(e.Resource), "_"), "._")
		if base == "" {
			base = "resource"
		}
		seen[base]++
		if n := seen[base]; n > 1 {
			base = fmt.Sprintf("%s_%d", base, n)
		}
		names[i] = base + ".json"
	}
	return names
}
