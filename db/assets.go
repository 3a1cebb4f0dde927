package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Assets

/*
DefineNewAsset define new asset. A new ID is assigned when the record carries none.

	@param ctx context.Context - execution context
	@param record models.AssetRecord - the asset
	@returns asset entry
*/
func (d *databaseImpl) DefineNewAsset(
	_ context.Context, record models.AssetRecord,
) (models.AssetRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	newEntry := AssetDBEntry{AssetRecord: record}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.AssetRecord{}, fmt.Errorf("new asset %s is not valid [%w]", record.ID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.AssetRecord{}, fmt.Errorf("new asset %s failed insert [%w]", record.ID, tmp.Error)
	}

	return newEntry.AssetRecord, nil
}

/*
GetAsset fetch an asset

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param assetID string - asset ID
	@returns asset entry
*/
func (d *databaseImpl) GetAsset(
	_ context.Context, userID string, assetID string,
) (models.AssetRecord, error) {
	var entry AssetDBEntry
	if tmp := d.db.
		Where("id = ? AND user_id = ?", assetID, userID).
		First(&entry); tmp.Error != nil {
		return models.AssetRecord{}, fmt.Errorf("failed to fetch asset %s [%w]", assetID, tmp.Error)
	}
	return entry.AssetRecord, nil
}

/*
ListAssets list assets of a user

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns list of assets
*/
func (d *databaseImpl) ListAssets(_ context.Context, userID string) ([]models.AssetRecord, error) {
	var entries []AssetDBEntry
	if tmp := d.db.
		Where("user_id = ?", userID).
		Order("created_at").Order("id").
		Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list assets [%w]", tmp.Error)
	}

	result := []models.AssetRecord{}
	for _, entry := range entries {
		result = append(result, entry.AssetRecord)
	}
	return result, nil
}

/*
DeleteAsset delete an asset

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param assetID string - asset ID
*/
func (d *databaseImpl) DeleteAsset(_ context.Context, userID string, assetID string) error {
	return d.deleteOwned(&AssetDBEntry{}, userID, assetID)
}
