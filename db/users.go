package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ======================================================================================
// Users

/*
DefineNewUser define a new user

	@param ctx context.Context - execution context
	@param username string - login name
	@param passwordHash string - stored key hash
	@param salt string - key hash salt
	@returns user entry
*/
func (d *databaseImpl) DefineNewUser(
	_ context.Context, username string, passwordHash string, salt string,
) (models.UserRecord, error) {
	newEntry := UserDBEntry{
		UserRecord: models.UserRecord{
			ID:           uuid.NewString(),
			Username:     username,
			PasswordHash: passwordHash,
			Salt:         salt,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.UserRecord{}, fmt.Errorf("new user '%s' is not valid [%w]", username, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.UserRecord{}, fmt.Errorf("new user '%s' failed insert [%w]", username, tmp.Error)
	}

	return newEntry.UserRecord, nil
}

/*
GetUser fetch a user by ID

	@param ctx context.Context - execution context
	@param userID string - user ID
	@returns user entry
*/
func (d *databaseImpl) GetUser(_ context.Context, userID string) (models.UserRecord, error) {
	var entry UserDBEntry
	if tmp := d.db.Where("id = ?", userID).First(&entry); tmp.Error != nil {
		return models.UserRecord{}, fmt.Errorf("failed to fetch user %s [%w]", userID, tmp.Error)
	}
	return entry.UserRecord, nil
}

/*
GetUserByUsername fetch a user by username

	@param ctx context.Context - execution context
	@param username string - login name
	@returns user entry
*/
func (d *databaseImpl) GetUserByUsername(
	_ context.Context, username string,
) (models.UserRecord, error) {
	var entry UserDBEntry
	if tmp := d.db.Where("username = ?", username).First(&entry); tmp.Error != nil {
		return models.UserRecord{}, fmt.Errorf("failed to fetch user '%s' [%w]", username, tmp.Error)
	}
	return entry.UserRecord, nil
}

/*
IsUsernameInUse check whether a username is taken

	@param ctx context.Context - execution context
	@param username string - login name
	@returns whether in use
*/
func (d *databaseImpl) IsUsernameInUse(_ context.Context, username string) (bool, error) {
	var count int64
	if tmp := d.db.Model(&UserDBEntry{}).Where("username = ?", username).Count(&count); tmp.Error != nil {
		return false, fmt.Errorf("failed to check username '%s' [%w]", username, tmp.Error)
	}
	return count > 0, nil
}

/*
IsSaltInUse check whether a salt is used by any user

	@param ctx context.Context - execution context
	@param salt string - key hash salt
	@returns whether in use
*/
func (d *databaseImpl) IsSaltInUse(_ context.Context, salt string) (bool, error) {
	var count int64
	if tmp := d.db.Model(&UserDBEntry{}).Where("salt = ?", salt).Count(&count); tmp.Error != nil {
		return false, fmt.Errorf("failed to check salt collision [%w]", tmp.Error)
	}
	return count > 0, nil
}

// updateUserColumn update one column of a user, failing when the user does not exist
func (d *databaseImpl) updateUserColumn(userID string, column string, value interface{}) error {
	var count int64
	if tmp := d.db.Model(&UserDBEntry{}).Where("id = ?", userID).Count(&count); tmp.Error != nil {
		return fmt.Errorf("failed to fetch user %s [%w]", userID, tmp.Error)
	}
	if count == 0 {
		return fmt.Errorf("user %s does not exist [%w]", userID, gorm.ErrRecordNotFound)
	}
	tmp := d.db.Model(&UserDBEntry{}).Where("id = ?", userID).Update(column, value)
	if tmp.Error != nil {
		return fmt.Errorf("failed to update user %s '%s' [%w]", userID, column, tmp.Error)
	}
	return nil
}

/*
UpdateUserPasswordHash replace the stored key hash of a user

	@param ctx context.Context - execution context
	@param userID string - user ID
	@param passwordHash string - new stored key hash
*/
func (d *databaseImpl) UpdateUserPasswordHash(
	_ context.Context, userID string, passwordHash string,
) error {
	return d.updateUserColumn(userID, "password_hash", passwordHash)
}

/*
UpdateUserGitHubToken replace the encrypted GitHub token of a user

	@param ctx context.Context - execution context
	@param userID string - user ID
	@param encToken string - encrypted token, empty to unlink
*/
func (d *databaseImpl) UpdateUserGitHubToken(
	_ context.Context, userID string, encToken string,
) error {
	return d.updateUserColumn(userID, "enc_gh_token", encToken)
}

/*
DeleteUser delete a user and all the user's data

	@param ctx context.Context - execution context
	@param userID string - user ID
*/
func (d *databaseImpl) DeleteUser(ctx context.Context, userID string) error {
	if err := d.PurgeUserData(ctx, userID); err != nil {
		return err
	}
	if tmp := d.db.Where("user_id = ?", userID).Delete(&SettingDBEntry{}); tmp.Error != nil {
		return fmt.Errorf("failed to delete settings of user %s [%w]", userID, tmp.Error)
	}
	if tmp := d.db.Where("id = ?", userID).Delete(&UserDBEntry{}); tmp.Error != nil {
		return fmt.Errorf("failed to delete user %s [%w]", userID, tmp.Error)
	}
	return nil
}

/*
PurgeUserData delete all entries, entry edits, labels, events and assets of a user.
Settings and the user itself are kept.

	@param ctx context.Context - execution context
	@param userID string - owning user
*/
func (d *databaseImpl) PurgeUserData(_ context.Context, userID string) error {
	for _, table := range []interface{}{
		&EntryEditDBEntry{}, &EntryDBEntry{}, &EventDBEntry{}, &LabelDBEntry{}, &AssetDBEntry{},
	} {
		if tmp := d.db.Where("user_id = ?", userID).Delete(table); tmp.Error != nil {
			return fmt.Errorf("failed to purge data of user %s [%w]", userID, tmp.Error)
		}
	}
	return nil
}
