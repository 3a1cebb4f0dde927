package store

import (
	"context"
	"encoding/json"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
)

// Settings user settings controller
type Settings interface {
	/*
		All fetch every setting the user has set. When a key was stored more than once,
		the newest value wins and the older rows are removed.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the settings
	*/
	All(ctx context.Context, auth models.Auth, activeDBClient db.Database) result.Result[[]models.Setting]

	/*
		AllWithDefaults fetch the value of every known setting, falling back to the default
		for keys the user never set

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns setting key to value
	*/
	AllWithDefaults(
		ctx context.Context, auth models.Auth, activeDBClient db.Database,
	) result.Result[map[string]any]

	/*
		GetValue fetch the value of one setting, or its default

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param key string - setting key
			@param activeDBClient db.Database - existing database transaction
			@returns the value
	*/
	GetValue(
		ctx context.Context, auth models.Auth, key string, activeDBClient db.Database,
	) result.Result[any]

	/*
		Update set the value of one setting

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param key string - setting key
			@param value any - decoded JSON value
			@param activeDBClient db.Database - existing database transaction
			@returns the setting
	*/
	Update(
		ctx context.Context, auth models.Auth, key string, value any, activeDBClient db.Database,
	) result.Result[models.Setting]

	/*
		ChangeEncryptionKey re-encrypt every stored setting value under a new key

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity holding the current key
			@param newKey encryption.SymmetricKey - the new key
			@param activeDBClient db.Database - existing database transaction
	*/
	ChangeEncryptionKey(
		ctx context.Context,
		auth models.Auth,
		newKey encryption.SymmetricKey,
		activeDBClient db.Database,
	) result.Result[result.Void]
}

// settingsImpl implements Settings
type settingsImpl struct {
	goutils.Component
	persistence db.Client
}

/*
NewSettings define new user settings controller

	@param persistence db.Client - persistence layer client
	@returns controller
*/
func NewSettings(persistence db.Client) Settings {
	return &settingsImpl{Component: newComponent("settings"), persistence: persistence}
}

// decryptSettingValue decrypt and decode a stored setting value
func decryptSettingValue(encValue string, key encryption.SymmetricKey) result.Result[any] {
	raw := encryption.Decrypt(encValue, key)
	if !raw.IsOk() {
		return result.Forward[any](raw)
	}
	var value any
	if err := json.Unmarshal([]byte(raw.Val()), &value); err != nil {
		return result.Err[any](result.Decryption())
	}
	return result.Ok(value)
}

func (s *settingsImpl) All(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[[]models.Setting] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.Setting] {
			records, err := dbClient.ListSettings(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Setting list failed")
				return result.Err[[]models.Setting](result.Upstream(err))
			}

			// Newest first, so the first row of a key is the one to keep
			seen := map[string]bool{}
			latest := []models.SettingRecord{}
			for _, record := range records {
				if !seen[record.Key] {
					seen[record.Key] = true
					latest = append(latest, record)
					continue
				}
				log.WithFields(s.GetLogTagsForContext(ctx)).
					WithField("user", auth.ID).
					WithField("key", record.Key).
					Warn("Removing duplicate setting")
				if err := dbClient.DeleteSetting(ctx, auth.ID, record.ID); err != nil {
					log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Setting delete failed")
					return result.Err[[]models.Setting](result.Upstream(err))
				}
			}

			return result.Map(latest, func(r models.SettingRecord) result.Result[models.Setting] {
				value := decryptSettingValue(r.EncValue, auth.Key)
				if !value.IsOk() {
					return result.Forward[models.Setting](value)
				}
				return result.Ok(models.Setting{Key: r.Key, Value: value.Val(), Created: r.CreatedAt})
			})
		},
	)
}

func (s *settingsImpl) AllWithDefaults(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[map[string]any] {
	stored := s.All(ctx, auth, activeDBClient)
	if !stored.IsOk() {
		return result.Forward[map[string]any](stored)
	}
	values := map[string]any{}
	for key, definition := range models.SettingDefinitions {
		values[key] = definition.Default
	}
	for _, setting := range stored.Val() {
		if _, known := models.SettingDefinitions[setting.Key]; known {
			values[setting.Key] = setting.Value
		}
	}
	return result.Ok(values)
}

func (s *settingsImpl) GetValue(
	ctx context.Context, auth models.Auth, key string, activeDBClient db.Database,
) result.Result[any] {
	definition, known := models.SettingDefinitions[key]
	if !known {
		return result.Err[any](result.Validation("Invalid setting key"))
	}
	stored := s.All(ctx, auth, activeDBClient)
	if !stored.IsOk() {
		return result.Forward[any](stored)
	}
	for _, setting := range stored.Val() {
		if setting.Key == key {
			return result.Ok(setting.Value)
		}
	}
	return result.Ok(definition.Default)
}

func (s *settingsImpl) Update(
	ctx context.Context, auth models.Auth, key string, value any, activeDBClient db.Database,
) result.Result[models.Setting] {
	definition, known := models.SettingDefinitions[key]
	if !known {
		return result.Err[models.Setting](result.Validation("Invalid setting key"))
	}
	if actual := models.TypeOf(value); actual != definition.Type {
		return result.Err[models.Setting](result.Validationf(
			"Invalid setting value, expected %s but got %s", definition.Type, actual,
		))
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return result.Err[models.Setting](result.Upstream(err))
	}

	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Setting] {
			record, err := dbClient.UpsertSetting(
				ctx, auth.ID, key, encryption.Encrypt(string(encoded), auth.Key),
			)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Setting update failed")
				return result.Err[models.Setting](result.Upstream(err))
			}
			return result.Ok(models.Setting{Key: key, Value: value, Created: record.CreatedAt})
		},
	)
}

func (s *settingsImpl) ChangeEncryptionKey(
	ctx context.Context,
	auth models.Auth,
	newKey encryption.SymmetricKey,
	activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			records, err := dbClient.ListSettings(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Setting list failed")
				return result.Err[result.Void](result.Upstream(err))
			}
			for _, record := range records {
				plain := encryption.Decrypt(record.EncValue, auth.Key)
				if !plain.IsOk() {
					return result.Forward[result.Void](plain)
				}
				if err := dbClient.UpdateSettingValue(
					ctx, auth.ID, record.ID, encryption.Encrypt(plain.Val(), newKey),
				); err != nil {
					log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Setting re-key failed")
					return result.Err[result.Void](result.Upstream(err))
				}
			}
			return result.OkVoid()
		},
	)
}
