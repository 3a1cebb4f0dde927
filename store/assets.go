package store

import (
	"context"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
)

// Assets uploaded file controller
type Assets interface {
	/*
		Create store a new asset

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param fileName string - file name
			@param content string - file content
			@param activeDBClient db.Database - existing database transaction
			@returns the new asset
	*/
	Create(
		ctx context.Context,
		auth models.Auth,
		fileName string,
		content string,
		activeDBClient db.Database,
	) result.Result[models.Asset]

	/*
		FromID fetch an asset

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param assetID string - asset ID
			@param activeDBClient db.Database - existing database transaction
			@returns the asset
	*/
	FromID(
		ctx context.Context, auth models.Auth, assetID string, activeDBClient db.Database,
	) result.Result[models.Asset]

	/*
		All fetch all assets of the user

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the assets
	*/
	All(ctx context.Context, auth models.Auth, activeDBClient db.Database) result.Result[[]models.Asset]

	/*
		Delete delete an asset

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param assetID string - asset ID
			@param activeDBClient db.Database - existing database transaction
	*/
	Delete(
		ctx context.Context, auth models.Auth, assetID string, activeDBClient db.Database,
	) result.Result[result.Void]
}

// assetsImpl implements Assets
type assetsImpl struct {
	goutils.Component
	persistence db.Client
}

/*
NewAssets define new asset controller

	@param persistence db.Client - persistence layer client
	@returns controller
*/
func NewAssets(persistence db.Client) Assets {
	return &assetsImpl{Component: newComponent("assets"), persistence: persistence}
}

// decryptAsset convert a stored asset into its plain text form
func decryptAsset(record models.AssetRecord, key encryption.SymmetricKey) result.Result[models.Asset] {
	fields := result.Collect([]result.Result[string]{
		encryption.Decrypt(record.EncFileName, key),
		encryption.Decrypt(record.EncContent, key),
	})
	if !fields.IsOk() {
		return result.Forward[models.Asset](fields)
	}
	return result.Ok(models.Asset{
		ID:       record.ID,
		FileName: fields.Val()[0],
		Content:  fields.Val()[1],
		Created:  record.CreatedAt,
	})
}

// checkAsset validate the fields of a new asset
func checkAsset(fileName string, content string) *result.Error {
	if fileName == "" {
		return result.Validation("File name required")
	}
	if len(content) > MaxAssetContentLen {
		return result.Validationf("Asset is too large, limit is %d bytes", MaxAssetContentLen)
	}
	return nil
}

func (s *assetsImpl) Create(
	ctx context.Context,
	auth models.Auth,
	fileName string,
	content string,
	activeDBClient db.Database,
) result.Result[models.Asset] {
	if err := checkAsset(fileName, content); err != nil {
		return result.Err[models.Asset](err)
	}

	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Asset] {
			record, err := dbClient.DefineNewAsset(ctx, models.AssetRecord{
				UserID:      auth.ID,
				EncFileName: encryption.Encrypt(fileName, auth.Key),
				EncContent:  encryption.Encrypt(content, auth.Key),
			})
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Asset insert failed")
				return result.Err[models.Asset](result.Upstream(err))
			}
			return result.Ok(models.Asset{
				ID: record.ID, FileName: fileName, Content: content, Created: record.CreatedAt,
			})
		},
	)
}

func (s *assetsImpl) FromID(
	ctx context.Context, auth models.Auth, assetID string, activeDBClient db.Database,
) result.Result[models.Asset] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Asset] {
			record, err := dbClient.GetAsset(ctx, auth.ID, assetID)
			if err != nil {
				failure := lookupFailure(err, "Asset not found")
				logUpstream(ctx, s.Component, failure, "Asset fetch failed")
				return result.Err[models.Asset](failure)
			}
			return decryptAsset(record, auth.Key)
		},
	)
}

func (s *assetsImpl) All(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[[]models.Asset] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.Asset] {
			records, err := dbClient.ListAssets(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Asset list failed")
				return result.Err[[]models.Asset](result.Upstream(err))
			}
			return result.Map(records, func(r models.AssetRecord) result.Result[models.Asset] {
				return decryptAsset(r, auth.Key)
			})
		},
	)
}

func (s *assetsImpl) Delete(
	ctx context.Context, auth models.Auth, assetID string, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.DeleteAsset(ctx, auth.ID, assetID); err != nil {
				failure := lookupFailure(err, "Asset not found")
				logUpstream(ctx, s.Component, failure, "Asset delete failed")
				return result.Err[result.Void](failure)
			}
			return result.OkVoid()
		},
	)
}
