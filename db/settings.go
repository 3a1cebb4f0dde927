package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Settings

/*
ListSettings list all setting rows of a user, newest first

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns list of settings
*/
func (d *databaseImpl) ListSettings(_ context.Context, userID string) ([]models.SettingRecord, error) {
	var entries []SettingDBEntry
	if tmp := d.db.
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id").
		Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list settings [%w]", tmp.Error)
	}

	result := []models.SettingRecord{}
	for _, entry := range entries {
		result = append(result, entry.SettingRecord)
	}
	return result, nil
}

/*
UpsertSetting set the encrypted value of a setting key

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param key string - setting key
	@param encValue string - encrypted JSON encoded value
	@returns the setting entry
*/
func (d *databaseImpl) UpsertSetting(
	_ context.Context, userID string, key string, encValue string,
) (models.SettingRecord, error) {
	var existing []SettingDBEntry
	if tmp := d.db.
		Where("user_id = ? AND setting_key = ?", userID, key).
		Order("created_at desc").
		Find(&existing); tmp.Error != nil {
		return models.SettingRecord{}, fmt.Errorf("failed to read setting '%s' [%w]", key, tmp.Error)
	}

	if len(existing) > 0 {
		entry := existing[0]
		if tmp := d.db.Model(&SettingDBEntry{}).
			Where("id = ?", entry.ID).
			Update("enc_value", encValue); tmp.Error != nil {
			return models.SettingRecord{}, fmt.Errorf(
				"failed to update setting '%s' [%w]", key, tmp.Error,
			)
		}
		entry.EncValue = encValue
		return entry.SettingRecord, nil
	}

	newEntry := SettingDBEntry{
		SettingRecord: models.SettingRecord{
			ID: uuid.NewString(), UserID: userID, Key: key, EncValue: encValue,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.SettingRecord{}, fmt.Errorf("new setting '%s' is not valid [%w]", key, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.SettingRecord{}, fmt.Errorf("new setting '%s' failed insert [%w]", key, tmp.Error)
	}

	return newEntry.SettingRecord, nil
}

/*
UpdateSettingValue replace the encrypted value of one setting row

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param settingID string - setting row ID
	@param encValue string - encrypted JSON encoded value
*/
func (d *databaseImpl) UpdateSettingValue(
	_ context.Context, userID string, settingID string, encValue string,
) error {
	return d.updateOwned(
		&SettingDBEntry{}, userID, settingID, map[string]interface{}{"enc_value": encValue},
	)
}

/*
DeleteSetting delete one setting row

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param settingID string - setting row ID
*/
func (d *databaseImpl) DeleteSetting(_ context.Context, userID string, settingID string) error {
	return d.deleteOwned(&SettingDBEntry{}, userID, settingID)
}
