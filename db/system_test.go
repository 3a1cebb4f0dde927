package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestDBSystemParameterInit(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/halcyon_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Close()) }()

	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))
	assert.Nil(uut.Ping(utCtx))

	// Read system parameters
	assert.Nil(
		uut.UseDatabaseInTransaction(
			utCtx, func(ctx context.Context, dbClient db.Database) error {
				params, err := dbClient.GetSystemParamEntry(ctx)
				assert.Nil(err)
				assert.Equal(db.GlobalSystemParamEntryID, params.ID)
				assert.Equal(models.SystemStatePreInit, params.State)
				assert.Empty(params.KeyDerivationScheme)
				return err
			},
		),
	)

	// Read again
	assert.Nil(
		uut.UseDatabase(
			utCtx, func(ctx context.Context, dbClient db.Database) error {
				params, err := dbClient.GetSystemParamEntry(ctx)
				assert.Nil(err)
				assert.Equal(db.GlobalSystemParamEntryID, params.ID)
				assert.Equal(models.SystemStatePreInit, params.State)
				return err
			},
		),
	)
}

func TestDBSystemParameterStateChange(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/halcyon_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	testScheme := fmt.Sprintf("ut-kdf-%s", ulid.Make().String())

	readState := func() models.SystemParams {
		var params models.SystemParams
		assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
			var err error
			params, err = dbClient.GetSystemParamEntry(ctx)
			return err
		}))
		return params
	}

	// 1. Initial state is PRE_INITIALIZATION
	assert.Equal(models.SystemStatePreInit, readState().State)

	// 2. Mark system as initializing
	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkSystemInitializing(ctx, testScheme, 1)
	}))

	// 3. Verify state is INITIALIZING, with the data format recorded
	params := readState()
	assert.Equal(models.SystemStateInit, params.State)
	assert.Equal(testScheme, params.KeyDerivationScheme)
	assert.Equal(1, params.EnvelopeVersion)

	// 4. Mark system as initializing again (idempotent)
	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkSystemInitializing(ctx, testScheme, 1)
	}))
	assert.Equal(models.SystemStateInit, readState().State)

	// 5. Mark system as initialized
	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkSystemInitialized(ctx)
	}))
	params = readState()
	assert.Equal(models.SystemStateRunning, params.State)
	assert.Nil(params.CheckCompatible(testScheme, 1))
	assert.Error(params.CheckCompatible("other-scheme", 1))
	assert.Error(params.CheckCompatible(testScheme, 2))

	// 6. Mark system as initialized again (idempotent)
	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkSystemInitialized(ctx)
	}))
	assert.Equal(models.SystemStateRunning, readState().State)

	// 7. Attempt to mark system initializing again should fail
	assert.Error(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkSystemInitializing(ctx, testScheme, 1)
	}))

	// 8. List audit events, there should be exactly two
	var events []models.AuditEvent
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err = dbClient.ListAuditEvents(ctx, db.AuditEventQueryFilter{})
		return err
	}))
	assert.Len(events, 2)
	assert.Equal(models.AuditEventTypeSystemInitializing, events[0].EventType)
	assert.Equal(models.AuditEventTypeSystemInitialized, events[1].EventType)

	// 9. Parse the initializing event metadata
	v := validator.New()
	assert.Nil(models.RegisterWithValidator(v))
	parsed, err := events[0].ParseMetadata(v)
	assert.Nil(err)
	metadata, ok := parsed.(models.AuditEventSystemRelated)
	assert.True(ok)
	assert.Equal(testScheme, metadata.KeyDerivationScheme)
}
