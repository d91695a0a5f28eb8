package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/server"
	"github.com/matzehuels/bandmap/pkg/session"
)

// serveCommand creates the serve command for the HTTP control surface.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		view    viewFlags
		addr    string
		persist string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve interactive map sessions over HTTP",
		Long: `Serve interactive map sessions over HTTP.

Each session owns a viewport and a layout controller. Clients zoom, pan,
resize, select provinces and click markers; every change is answered with
the current layout snapshot. Zoom bursts are debounced, so a zoom response
may carry the previous layout until the pass settles.

With --persist, session state is written to a directory and restored when
a client returns after a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), view, addr, persist)
		},
	}

	view.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	cmd.Flags().StringVar(&persist, "persist", "", "directory to persist session state in")

	return cmd
}

// runServe loads the dataset once and serves sessions until ctx is done.
func (c *CLI) runServe(ctx context.Context, view viewFlags, addr, persist string) error {
	opts := c.pipelineOptions()
	if err := view.apply(&opts); err != nil {
		return err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	runner, err := c.newRunner(ctx, view.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, _, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	var store *session.FileStore
	if persist != "" {
		if store, err = session.NewFileStore(persist); err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
	}

	srv := server.New(server.Options{
		Runner:     runner,
		Data:       data,
		Pipeline:   opts,
		SessionTTL: c.Config.Server.SessionTTL.Duration,
		Persist:    store,
		Logger:     c.Logger,
	})

	printSuccess("Serving %d bands across %d provinces", len(data.Bands()), data.Atlas.Len())
	printKeyValue("Address", addr)
	if store != nil {
		printKeyValue("Sessions", store.Path())
	}
	printNewline()

	return srv.Run(ctx, addr)
}
