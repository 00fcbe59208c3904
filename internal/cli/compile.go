package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/sldview/pkg/errors"
	sldio "github.com/matzehuels/sldview/pkg/io"
	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/style"
)

// stdinSource is the source argument that reads the document from stdin.
const stdinSource = "-"

// compileFlags holds the flags shared by commands that compile a document.
type compileFlags struct {
	kind    string
	refresh bool
}

func (f *compileFlags) register(cmd *cobra.Command, defaultKind string) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", defaultKind, "geometry kind: vector, raster or generic")
	_ = cmd.RegisterFlagCompletionFunc("kind", fixedCompletion("vector", "raster", "generic"))
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompile even when a cached style exists")
}

// compileCommand creates the compile command.
func (c *CLI) compileCommand() *cobra.Command {
	var (
		flags  compileFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "compile <sld>",
		Short: "Compile an SLD document into a style and legend",
		Long: `Compile an SLD document into a style and legend.

The document may be an http(s) URL, a file path, or "-" for stdin. The
style is printed as JSON unless --output is given. A document that cannot
be fetched or compiled yields an empty style and a warning; it is not an
error.`,
		Example: `  sldview compile https://maps.example.org/styles/landslides.sld
  sldview compile rivers.sld -o rivers.json
  sldview compile --kind raster dem.sld`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.compileSource(cmd.Context(), cmd.InOrStdin(), args[0], flags)
			if err != nil {
				return err
			}
			if output == "" {
				return sldio.WriteJSON(res.Style, cmd.OutOrStdout())
			}
			if err := sldio.ExportJSON(res.Style, output); err != nil {
				return err
			}
			printSuccess("Compiled %s", filepath.Base(args[0]))
			printFile(output)
			return nil
		},
	}

	flags.register(cmd, string(style.KindVector))
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the style to this file")
	return cmd
}

// compileSource runs the pipeline for one source argument, reporting the
// outcome on the status output. Only invalid arguments are errors.
func (c *CLI) compileSource(ctx context.Context, stdin io.Reader, source string, flags compileFlags) (*pipeline.Result, error) {
	kind, err := style.ParseKind(flags.kind)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{Source: source, Kind: kind, Refresh: flags.refresh}
	if source == stdinSource {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		opts.Source, opts.Inline = "", data
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Cache.Close()

	res, err := spin(ctx, "Compiling "+source, func() (*pipeline.Result, error) {
		return runner.Execute(ctx, opts)
	})
	if err != nil {
		return nil, err
	}
	reportResult(source, res)
	return res, nil
}

// reportResult prints why a run stopped, or a summary of its style.
func reportResult(source string, res *pipeline.Result) {
	if res.Stop != nil {
		printWarning("%s: no style (%s stage, %s)", source, res.Stop.Stage, errs.GetCode(res.Stop.Err))
		printDetail("%s", errs.UserMessage(res.Stop.Err))
		return
	}
	printStyleStats(res.Style, res.CacheHit)
}
