package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/TFMV/vantage/api"
	"github.com/TFMV/vantage/pkg/diff"
	"github.com/TFMV/vantage/pkg/notes"
	"github.com/TFMV/vantage/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	var preload []string
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve the comparison workspace over HTTP",
		Long: `Starts the HTTP API on the configured address. Field set mutations are
debounced by compare.debounce before diffs are recomputed. Files given with
--load are loaded before the server starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st := store.New(store.Options{
				Diff: diff.Options{
					Parallel:   a.cfg.Compare.Parallel,
					NumWorkers: a.cfg.Compare.Workers,
				},
				Debounce: a.cfg.Compare.Debounce,
			}, a.logger.Named("store"))
			defer st.Close()

			if _, err := a.loadAll(ctx, st, preload); err != nil {
				return err
			}
			selectionFlags{}.apply(st, a.cfg.Compare.KeyFields, a.cfg.Compare.IgnoredFields)

			server := api.NewServer(api.ServerOptions{
				Addr:         a.cfg.Server.Addr(),
				BodyLimit:    a.cfg.Server.BodyLimit,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}, st, notes.New(), a.logger)

			a.logger.Info("starting server", zap.String("addr", a.cfg.Server.Addr()), zap.Int("datasets", len(st.Owners())))
			return server.Start(ctx)
		},
	}
	cmd.Flags().StringSliceVar(&preload, "load", nil, "Files to load before serving")
	return cmd
}
