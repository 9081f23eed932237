package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/config"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

const serviceName = "clinic-service"

func main() {
	cfg := config.Load()
	telemetry.InitLogger(serviceName, cfg.AppEnv, cfg.LogLevel)

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Clinic front-desk registration, booking and queue service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "store driver: postgres, bolt or memory")

	rootCmd.AddCommand(serveCmd(&cfg))
	rootCmd.AddCommand(migrateCmd(&cfg))
	rootCmd.AddCommand(seedCmd(&cfg))
	rootCmd.AddCommand(tokenCmd(&cfg))
	rootCmd.AddCommand(reconcileCmd(&cfg))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
