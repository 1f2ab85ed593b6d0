package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/forkbridge/internal/scheduler"
	"github.com/example/forkbridge/internal/web"
)

// shutdownDrain is how long in-flight webhooks get after a signal.
const shutdownDrain = 30 * time.Second

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the assistant webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{database: true, migrate: migrateUp, browser: true})
			if err != nil {
				return err
			}
			defer a.Close()

			go func() {
				err := a.catalog.Watch(ctx.Done(), func(err error) {
					a.log.Warn("selector reload rejected", "file", a.cfg.SelectorsFile, "err", err)
				})
				if err != nil {
					a.log.Error("selector watch stopped", "err", err)
				}
			}()

			if a.journal != nil {
				p := &scheduler.Pruner{
					Journal:   a.journal,
					Retention: a.cfg.JournalRetention,
					Interval:  a.cfg.PruneInterval,
					Logger:    a.log.With("component", "pruner"),
				}
				go func() { _ = p.Run(ctx) }()
			} else {
				a.log.Info("attempt journal disabled, DATABASE_URL not set")
			}

			ws := &web.Server{
				Booker:       a.service,
				Logger:       a.log,
				FunctionName: a.cfg.AvailabilityFunction,
				ContactEmail: a.cfg.ContactEmail,
				ServiceName:  serviceName,
				Version:      Version,
				Location:     a.cfg.Location,
			}
			a.log.Info("starting", "version", Version, "base_url", a.cfg.BaseURL, "widget", a.service.WidgetURL())
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), shutdownDrain, a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
