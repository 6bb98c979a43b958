package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vectortube/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "web [flags] [CATALOG_TYPE CATALOG_OPTIONS]",
		Short: "Serve the video catalog and quick enquiry API",
		Long: `Serve the video catalog and quick enquiry API.

Arguments:
  CATALOG_TYPE     Catalog record store type (sqlite, postgres, etcd, memory)
  CATALOG_OPTIONS  Options for the record store (db path, connection string, etcd endpoints)

Settings are read from the config file, then .env, then the environment.
Flags and arguments override all of them.`,
		Example: "  web sqlite vectortube.db\n  web --port 9000 etcd localhost:2379,localhost:22379",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected 0 or 2 arguments, got %d", len(args))
			}
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if len(args) == 2 {
				cfg.Catalog.Type, cfg.Catalog.Options = args[0], args[1]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "vectortube.yaml", "path to the YAML config file")
	cmd.Flags().StringVar(&host, "host", "localhost", "host address for the web server")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port number for the web server")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}
