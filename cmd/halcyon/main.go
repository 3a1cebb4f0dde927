package main

import (
	"fmt"
	"os"

	"github.com/alwitt/halcyon/config"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configFile string
	logLevel   string
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "halcyon",
		Short: "Halcyon - an encrypted personal journal service.",
		Long: `Halcyon serves a personal journal API. Every user authored field is stored
encrypted under a key derived from the user's password.

Configuration is read from the optional YAML file, then HALCYON_* environment
variables.

Usage:
  halcyon <command> [flags]

Available Commands:
  serve      Run the HTTP API
  migrate    Create or update the database tables
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configFile, os.LookupEnv)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			cfg = loaded
			setupLogging(cfg.Log)

			cmd.Flags().Visit(func(flag *pflag.Flag) {
				log.WithFields(log.Fields{"flag": flag.Name, "value": flag.Value.String()}).Debug("Flag set")
			})
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "c", "", "YAML config file",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logLevel, "log-level", "l", "", "log level override: debug, info, warn, error",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// setupLogging install the process log handler
func setupLogging(logCfg config.LogConfig) {
	if logCfg.Format == "json" {
		log.SetHandler(json.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}
	log.SetLevel(logCfg.GetLogLevel())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
