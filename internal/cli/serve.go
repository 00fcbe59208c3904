package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/sldview/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve style compilation and config building over HTTP",
		Long: `Serve style compilation and viewer config building over HTTP.

Routes:
  GET  /healthz        liveness and build info
  POST /v1/compile     compile an SLD (XML body, or JSON {"source": url})
  POST /v1/catalog     build a viewer config for a resource

Use --cache redis to share compiled styles between instances.`,
		Example: `  sldview serve --addr :9000
  SLDVIEW_CACHE__BACKEND=redis SLDVIEW_CACHE__REDIS_URL=redis://localhost:6379/0 sldview serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()
			builder, err := c.newBuilder()
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Addr:           c.cfg.Server.Addr,
				RequestTimeout: c.cfg.Server.RequestTimeout,
				InstanceURL:    c.cfg.Viewer.InstanceURL,
				Runner:         runner,
				Builder:        builder,
				Logger:         c.Logger,
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	registerViewerFlags(cmd)
	return cmd
}
