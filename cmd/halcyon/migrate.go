package main

import (
	"github.com/alwitt/halcyon"
	"github.com/apex/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := halcyon.Migrate(cmd.Context(), cfg.Database); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"module": "main", "driver": cfg.Database.Driver,
		}).Info("Database tables defined")
		return nil
	},
}
