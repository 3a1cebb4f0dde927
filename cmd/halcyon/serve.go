package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alwitt/halcyon"
	"github.com/apex/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	autoMigrate bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
)

func init() {
	serveCmd.Flags().BoolVar(
		&autoMigrate, "auto-migrate", false, "create or update the database tables before serving",
	)
}

// serve run the API until the context is canceled
func serve(ctx context.Context) error {
	logTags := log.Fields{"module": "main", "listen": cfg.ListenAddress}

	if autoMigrate {
		if err := halcyon.Migrate(ctx, cfg.Database); err != nil {
			return err
		}
	}

	service, err := halcyon.NewService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start service [%w]", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to close persistence")
		}
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           service.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.WithFields(logTags).Info("Serving API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed [%w]", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.WithFields(logTags).Info("Stopping API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
