package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/sldview/pkg/errors"
	sldio "github.com/matzehuels/sldview/pkg/io"
	"github.com/matzehuels/sldview/pkg/style"
	"github.com/matzehuels/sldview/pkg/terria"
)

// resourceFlags holds the flags describing the resource a config is built for.
type resourceFlags struct {
	id, name, format, url string
	bounds, spatial       string
}

func (f *resourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "resource display name")
	cmd.Flags().StringVar(&f.format, "format", "", "resource format, e.g. shp, wms, geotiff, csv")
	cmd.Flags().StringVar(&f.url, "url", "", "resource data URL")
	cmd.Flags().StringVar(&f.id, "id", "", "resource id (default: derived from the URL)")
	cmd.Flags().StringVar(&f.bounds, "bounds", "", "camera extent as north,east,south,west")
	cmd.Flags().StringVar(&f.spatial, "spatial", "", "GeoJSON geometry, or a file holding one, used for the camera")
	_ = cmd.MarkFlagRequired("url")
}

// resource builds and validates the resource described by the flags.
func (f *resourceFlags) resource() (terria.Resource, error) {
	r := terria.Resource{ID: f.id, Name: f.name, Format: f.format, URL: f.url}

	if f.bounds != "" {
		b, err := terria.ParseBounds(f.bounds)
		if err != nil {
			return r, err
		}
		r.Bounds = &b
	}

	spatial := strings.TrimSpace(f.spatial)
	if spatial != "" && !strings.HasPrefix(spatial, "{") {
		data, err := os.ReadFile(spatial)
		if err != nil {
			return r, fmt.Errorf("read spatial: %w", err)
		}
		spatial = string(data)
	}
	r.Spatial = spatial

	return r, r.Validate()
}

// catalogCommand creates the catalog command.
func (c *CLI) catalogCommand() *cobra.Command {
	var (
		res       resourceFlags
		flags     compileFlags
		styleFile string
		output    string
		start     bool
	)

	cmd := &cobra.Command{
		Use:   "catalog [sld]",
		Short: "Build a viewer config for a styled resource",
		Long: `Build a TerriaJS viewer config for one resource.

The style comes from an SLD document (compiled on the fly) or from a style
previously written by "sldview compile -o". Without either the resource is
added unstyled. The geometry kind follows from --format unless --kind is
given.

With --start the config is printed as a viewer start URL instead, which
needs viewer.instance_url (or --viewer-url).`,
		Example: `  sldview catalog lss.sld --name Landslides --format shp --url https://data.example.org/lss.zip
  sldview catalog --style dem.json --format geotiff --url https://data.example.org/dem.tif --bounds -30,150,-35,145
  sldview catalog lss.sld --format wms --url https://maps.example.org/wms --start --viewer-url https://map.example.org/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && styleFile != "" {
				return errs.New(errs.ErrCodeInvalidInput, "give either an SLD document or --style, not both")
			}
			resource, err := res.resource()
			if err != nil {
				return err
			}

			var compiled style.Result
			switch {
			case styleFile != "":
				if compiled, err = sldio.ImportStyle(styleFile); err != nil {
					return err
				}
			case len(args) == 1:
				if !cmd.Flags().Changed("kind") {
					flags.kind = string(terria.FormatFamily(resource.Format).StyleKind())
				}
				out, err := c.compileSource(cmd.Context(), cmd.InOrStdin(), args[0], flags)
				if err != nil {
					return err
				}
				compiled = out.Style
			}

			if !terria.CanView(resource) {
				printWarning("format %q is not one the viewer can display", resource.Format)
			}

			builder, err := c.newBuilder()
			if err != nil {
				return err
			}
			cfg := builder.Build(resource, compiled)

			if start {
				instance := c.cfg.Viewer.InstanceURL
				if instance == "" {
					return errs.New(errs.ErrCodeInvalidInput, "--start needs a viewer URL (--viewer-url or viewer.instance_url)")
				}
				link, err := terria.EncodeStart(instance, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			}

			if output == "" {
				return sldio.WriteJSON(cfg, cmd.OutOrStdout())
			}
			if err := sldio.ExportJSON(cfg, output); err != nil {
				return err
			}
			printSuccess("Built config for %s", terria.SafeName(resource))
			printFile(output)
			return nil
		},
	}

	res.register(cmd)
	flags.register(cmd, string(style.KindVector))
	cmd.Flags().StringVar(&styleFile, "style", "", "use a compiled style file instead of an SLD document")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the config to this file")
	cmd.Flags().BoolVar(&start, "start", false, "print a viewer start URL instead of the config")
	registerViewerFlags(cmd)
	return cmd
}

// registerViewerFlags adds the flags that override viewer.* settings.
func registerViewerFlags(cmd *cobra.Command) {
	cmd.Flags().String("viewer-url", "", "viewer instance URL for start links")
	cmd.Flags().String("viewer-mode", "", "viewer mode, e.g. 3D or 2D")
	cmd.Flags().Float64("opacity", 0, "opacity of styled layers (0-1]")
}
