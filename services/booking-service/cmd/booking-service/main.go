package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/salonbook/libs/config"
)

func main() {
	root := &cobra.Command{
		Use:          "booking-service",
		Short:        "Salon appointment scheduling service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.Load(envFile)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file read before the environment (skipped when missing)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(sweepNoShowsCmd())
	root.AddCommand(seedDemoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
