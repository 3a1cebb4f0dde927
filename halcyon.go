// Package halcyon - encrypted personal journal service
package halcyon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alwitt/halcyon/api"
	"github.com/alwitt/halcyon/config"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/session"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
)

// Service a wired journal service instance
type Service struct {
	// Persistence persistence client
	Persistence db.Client
	// Store the data controllers
	Store *store.Store
	// Sessions session cookie manager
	Sessions session.Manager
	// Router the HTTP API
	Router http.Handler
}

/*
NewService initialize a journal service instance.

The database must already have its tables; see Migrate. On first start the data format
parameters of this build are recorded, afterwards they are verified.

	@param ctx context.Context - execution context
	@param cfg config.Config - service configuration
	@returns new service instance
*/
func NewService(ctx context.Context, cfg config.Config) (*Service, error) {
	persistence, err := connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	instance, err := newServiceWithPersistence(ctx, cfg, persistence)
	if err != nil {
		_ = persistence.Close()
		return nil, err
	}
	return instance, nil
}

func newServiceWithPersistence(
	ctx context.Context, cfg config.Config, persistence db.Client,
) (*Service, error) {
	if err := persistence.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database is not reachable [%w]", err)
	}

	if err := InitializeSystem(ctx, persistence); err != nil {
		return nil, err
	}

	var github store.GitHubTokenExchanger
	if cfg.GitHub != nil {
		github = store.NewGitHubTokenExchanger(*cfg.GitHub)
	}

	data := store.NewStore(persistence, cfg.Limits, github)

	sessions, err := session.NewManager(cfg.Session, data.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session manager [%w]", err)
	}

	router, err := api.NewRouter(api.Params{
		Store:          data,
		Sessions:       sessions,
		Persistence:    persistence,
		GitHub:         github,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router [%w]", err)
	}

	return &Service{
		Persistence: persistence,
		Store:       data,
		Sessions:    sessions,
		Router:      router,
	}, nil
}

// Close release the service resources
func (s *Service) Close() error {
	return s.Persistence.Close()
}

/*
Migrate create or update the database tables

	@param ctx context.Context - execution context
	@param cfg config.DatabaseConfig - persistence settings
*/
func Migrate(ctx context.Context, cfg config.DatabaseConfig) error {
	persistence, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = persistence.Close() }()

	if err := persistence.RunSQLInTransaction(ctx, db.DefineTables); err != nil {
		return fmt.Errorf("failed to define tables [%w]", err)
	}
	return nil
}

/*
InitializeSystem record the key derivation scheme and envelope version of this build on
first start, and refuse to run against data written in another format

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence client
*/
func InitializeSystem(ctx context.Context, persistence db.Client) error {
	return persistence.UseDatabaseInTransaction(
		ctx, func(ctx context.Context, dbClient db.Database) error {
			params, err := dbClient.GetSystemParamEntry(ctx)
			if err != nil {
				return err
			}
			if err := params.CheckCompatible(
				encryption.KeyDerivationScheme, int(encryption.EnvelopeVersion),
			); err != nil {
				return fmt.Errorf("stored data is not compatible with this build [%w]", err)
			}

			if params.State != models.SystemStateRunning {
				if err := dbClient.MarkSystemInitializing(
					ctx, encryption.KeyDerivationScheme, int(encryption.EnvelopeVersion),
				); err != nil {
					return err
				}
				if err := dbClient.MarkSystemInitialized(ctx); err != nil {
					return err
				}
			}

			log.WithFields(log.Fields{
				"module":           "halcyon",
				"kdf_scheme":       encryption.KeyDerivationScheme,
				"envelope_version": encryption.EnvelopeVersion,
			}).Info("System parameters verified")
			return nil
		},
	)
}

// connect open the configured database
func connect(cfg config.DatabaseConfig) (db.Client, error) {
	dialector, err := db.GetDialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	persistence, err := db.NewConnection(dialector, cfg.GetSQLLogLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}
	return persistence, nil
}
