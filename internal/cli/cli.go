// Package cli implements the sldview command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sldview/internal/config"
	"github.com/matzehuels/sldview/pkg/buildinfo"
	"github.com/matzehuels/sldview/pkg/cache"
	"github.com/matzehuels/sldview/pkg/fetch"
	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/style"
	"github.com/matzehuels/sldview/pkg/terria"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for cache key scopes and display.
const appName = "sldview"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the pipeline,
// cache and HTTP events are logged as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		registerLogHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "sldview turns SLD styles into web map viewer configs",
		Long: `sldview compiles OGC Styled Layer Descriptor documents into a compact
style model (single symbol, bins, categories or a color ramp plus a legend)
and builds TerriaJS catalog configs for the resources they style.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.Duration("timeout", 0, "timeout for fetching a document")
	pf.Int64("max-bytes", 0, "largest document accepted, in bytes")
	pf.Int("retries", 0, "retries for transient fetch failures")
	pf.String("user-agent", "", "User-Agent sent when fetching documents")
	pf.String("cache", "", "cache backend: file, redis or none")
	pf.String("cache-dir", "", "directory for the file cache")
	pf.Duration("cache-ttl", 0, "how long compiled styles stay cached")
	pf.String("redis-url", "", "Redis URL for the redis cache backend")
	pf.String("classification", "", "vector classification: bin or auto")
	pf.Bool("smooth", true, "add intermediate stops to raster color ramps")
	_ = root.RegisterFlagCompletionFunc("cache", fixedCompletion("file", "redis", "none"))
	_ = root.RegisterFlagCompletionFunc("classification", fixedCompletion("bin", "auto"))

	root.AddCommand(c.compileCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func fixedCompletion(values ...string) cobra.CompletionFunc {
	return cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp)
}

// loadConfig resolves the configuration for the command being run. The
// command's own flags take part, so flags such as --addr only exist where
// they make sense.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}
	c.cfg = cfg
	return nil
}

// settings returns the loaded configuration, or the defaults when the command
// ran without the root's pre-run (as in tests calling commands directly).
func (c *CLI) settings() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configFile, nil)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the configuration. The caller
// closes the runner's cache when done.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, err
	}
	mode, err := style.ParseMode(cfg.Style.Classification)
	if err != nil {
		return nil, err
	}

	store, keyer, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(store, keyer, c.Logger)
	runner.Fetcher = fetch.New(fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		Retries:   cfg.Fetch.Retries,
		UserAgent: cfg.Fetch.UserAgent,
	})
	runner.Compiler = &style.Compiler{Mode: mode, Smooth: cfg.Style.SmoothRamps, Logger: c.Logger}
	runner.TTL = cfg.Cache.TTL
	return runner, nil
}

// newCache opens the configured backend. Redis entries are scoped by
// application name since the instance may be shared.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, cache.Keyer, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil, nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cache: %w", err)
		}
		return rc, cache.NewScopedKeyer(nil, appName+":"), nil
	default:
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache dir: %w", err)
		}
		return fc, nil, nil
	}
}

// newBuilder creates a viewer config builder from the configuration.
func (c *CLI) newBuilder() (*terria.Builder, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, err
	}
	return terria.NewBuilder(terria.Options{
		Version:       cfg.Viewer.Version,
		ViewerMode:    cfg.Viewer.Mode,
		BaseMap:       cfg.Viewer.BaseMap,
		Opacity:       cfg.Viewer.Opacity,
		CacheDuration: cfg.Viewer.CacheDuration,
	}), nil
}
