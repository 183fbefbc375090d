package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/noshow"
)

func sweepNoShowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-no-shows",
		Short: "Mark overdue confirmed appointments as no-shows once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			logger := runtime.NewLogger(s.Service)

			ctx, stop := runtime.SignalContext(cmd.Context())
			defer stop()

			pool, err := db.Open(ctx, s.DatabaseURL, db.WithMaxConns(2))
			if err != nil {
				return err
			}
			defer pool.Close()

			c := buildCore(pool, logger, s)
			n := noshow.NewWorker(c.scheduler, logger, noshow.WorkerConfig{Grace: s.NoShowGrace}).RunOnce(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d appointment(s) as no-show.\n", n)
			return nil
		},
	}
}
