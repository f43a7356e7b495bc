package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice engine over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, runtimeOptions{narrate: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.cfg.Server.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Deps{
			Engine:   rt.engine,
			Progress: rt.store.ProgressRepo(),
			Settings: rt.store.SettingsRepo(),
			Cohort:   rt.store.CohortRepo(),
			Journey:  rt.journey,
			Advisor:  rt.advisor,
			Logger:   rt.logger,
			Ping: func(ctx context.Context) error {
				return rt.store.DB().PingContext(ctx)
			},
		})

		rt.logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("driver", rt.cfg.Database.Driver),
			zap.Bool("coach_notes", rt.provider != nil))
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default server.addr)")
}
