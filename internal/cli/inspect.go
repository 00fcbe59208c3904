package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/sld"
	"github.com/matzehuels/sldview/pkg/style"
)

// inspection is what inspect reports about one document.
type inspection struct {
	Source   string
	Bytes    int
	Version  sld.Version
	Encoding string
	Repaired bool

	// Rules counts vector rules, or color map entries for rasters.
	Rules   int
	MapKind sld.MapKind

	Result *pipeline.Result

	// ParseErr is why the document could not be parsed, if it could not.
	ParseErr error
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		flags       compileFlags
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <sld>",
		Short: "Show what an SLD document compiles to",
		Long: `Show the SLD version, the rules found, the renderer chosen and the
legend, with color swatches.

With --interactive the legend opens in a scrollable browser.`,
		Example: `  sldview inspect landslides.sld
  sldview inspect --kind raster --interactive dem.sld`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := style.ParseKind(flags.kind)
			if err != nil {
				return err
			}
			info, err := c.inspect(cmd.Context(), cmd.InOrStdin(), args[0], kind)
			if err != nil {
				return err
			}

			if interactive {
				if f, ok := cmd.OutOrStdout().(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
					return errs.New(errs.ErrCodeUnsupported, "--interactive needs a terminal")
				}
				model := NewLegendModel(args[0], info.Result.Style)
				_, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
				return err
			}

			writeInspection(cmd.OutOrStdout(), info)
			return nil
		},
	}

	flags.register(cmd, string(style.KindVector))
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the legend interactively")
	return cmd
}

// inspect reads the document once, reports on its structure and compiles it.
func (c *CLI) inspect(ctx context.Context, stdin io.Reader, source string, kind style.Kind) (*inspection, error) {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Cache.Close()

	info := &inspection{Source: source}

	var data []byte
	if source == stdinSource {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	} else {
		data, err = spin(ctx, "Fetching "+source, func() ([]byte, error) {
			return runner.Fetcher.Fetch(ctx, source)
		})
		if err != nil {
			if errs.IsInput(err) {
				return nil, err
			}
			info.Result = &pipeline.Result{Stop: &style.Stop{Stage: style.StageFetch, Err: err}}
			return info, nil
		}
	}
	info.Bytes = len(data)

	doc, err := sld.Parse(data)
	if err != nil {
		info.ParseErr = err
	} else {
		info.Version, info.Encoding, info.Repaired = doc.Version, doc.Encoding, doc.Repaired
		if kind == style.KindRaster {
			cm := sld.ExtractColorMap(doc, nil)
			info.Rules, info.MapKind = len(cm.Entries), cm.Kind
		} else {
			info.Rules = len(sld.ExtractRules(doc, nil))
		}
	}

	info.Result, err = runner.Compile(ctx, data, kind)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// writeInspection prints the report as key/value lines followed by the
// class and legend tables.
func writeInspection(w io.Writer, info *inspection) {
	fmt.Fprintln(w, StyleTitle.Render(info.Source))
	printKeyValue(w, "Size", strconv.Itoa(info.Bytes)+" bytes")

	if info.ParseErr != nil {
		printKeyValue(w, "Document", StyleWarning.Render(errs.UserMessage(info.ParseErr)))
	} else if info.Bytes > 0 {
		printKeyValue(w, "Version", string(info.Version))
		printKeyValue(w, "Encoding", info.Encoding)
		if info.Repaired {
			printKeyValue(w, "Repaired", "yes")
		}
		if info.MapKind != "" {
			printKeyValue(w, "Color map", fmt.Sprintf("%s, %d entries", info.MapKind, info.Rules))
		} else {
			printKeyValue(w, "Rules", strconv.Itoa(info.Rules))
		}
	}

	res := info.Result
	if res.Stop != nil {
		printKeyValue(w, "Stopped", fmt.Sprintf("%s stage: %s", res.Stop.Stage, errs.UserMessage(res.Stop.Err)))
		return
	}
	printKeyValue(w, "Renderer", rendererSummary(res.Style))
	if prop := res.Style.PropertyName(); prop != "" {
		printKeyValue(w, "Property", prop)
	}

	if classes := classTable(res.Style.Renderer); classes != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, indent(classes))
	}
	if len(res.Style.Legend) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, indent(legendTable(res.Style.Legend, 0, -1)))
	}
}
