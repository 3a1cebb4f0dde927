// Package store - per-user data controllers which decrypt on read and encrypt on write
package store

import (
	"context"
	"errors"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"gorm.io/gorm"
)

// Default entity limits
const (
	DefaultMaxLabels = 1000
	DefaultMaxEvents = 10000
	// MaxAssetContentLen largest accepted asset content, in bytes
	MaxAssetContentLen = 8 * 1024 * 1024
)

// Limits per-user entity limits
type Limits struct {
	// MaxLabels maximum number of labels per user
	MaxLabels int `json:"max_labels" yaml:"max_labels" validate:"gte=1"`
	// MaxEvents maximum number of events per user
	MaxEvents int `json:"max_events" yaml:"max_events" validate:"gte=1"`
}

// DefaultLimits the default entity limits
func DefaultLimits() Limits {
	return Limits{MaxLabels: DefaultMaxLabels, MaxEvents: DefaultMaxEvents}
}

// newComponent define the logging component of a controller
func newComponent(name string) goutils.Component {
	return goutils.Component{
		LogTags: log.Fields{"module": "store", "component": name},
		LogTagModifiers: []goutils.LogMetadataModifier{
			goutils.ModifyLogMetadataByRestRequestParam,
		},
	}
}

/*
withSession run a result returning callback with a database handle, opening a new
transaction unless one is already active. A failed result rolls back a transaction
opened here.

	@param ctx context.Context - execution context
	@param activeDBClient db.Database - existing database transaction
	@param persistence db.Client - persistence client
	@param coreLogic func(ctx context.Context, dbClient db.Database) result.Result[T] - the
	    callback to execute
	@returns the callback result
*/
func withSession[T any](
	ctx context.Context,
	activeDBClient db.Database,
	persistence db.Client,
	coreLogic func(ctx context.Context, dbClient db.Database) result.Result[T],
) result.Result[T] {
	var outcome result.Result[T]
	if err := db.ActiveSessionWrapper(
		ctx, activeDBClient, persistence, func(dbCtx context.Context, dbClient db.Database) error {
			outcome = coreLogic(dbCtx, dbClient)
			if !outcome.IsOk() {
				return outcome.Error()
			}
			return nil
		},
	); err != nil {
		return result.Err[T](result.AsError(err))
	}
	return outcome
}

/*
lookupFailure convert a failed single row lookup into a result error. A missing row is a
validation failure with the given message. Anything else is an upstream failure.

	@param err error - the lookup error
	@param notFoundMsg string - message when the row does not exist
	@returns categorized error
*/
func lookupFailure(err error, notFoundMsg string) *result.Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result.Validation(notFoundMsg)
	}
	return result.Upstream(err)
}

// logUpstream log an upstream failure before it is returned
func logUpstream(ctx context.Context, c goutils.Component, err *result.Error, msg string) {
	if err != nil && err.Kind == result.KindUpstream {
		log.WithError(err).WithFields(c.GetLogTagsForContext(ctx)).Error(msg)
	}
}

// optionalID convert an empty ID into nil
func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// derefID convert a nil ID into empty
func derefID(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
