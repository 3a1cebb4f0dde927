// Package models - persisted records and decrypted domain values
package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"system_state", validateSystemStateType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"audit_event_type", validateAuditEventType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"setting_key", validateSettingKey,
	); err != nil {
		return err
	}

	return nil
}

func validateSystemStateType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch SystemStateENUMType(fl.Field().String()) {
	case SystemStatePreInit:
		fallthrough
	case SystemStateInit:
		fallthrough
	case SystemStateRunning:
		return true
	}
	return false
}

func validateAuditEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch AuditEventTypeENUMType(fl.Field().String()) {
	case AuditEventTypeSystemInitializing:
		fallthrough
	case AuditEventTypeSystemInitialized:
		fallthrough
	case AuditEventTypeUserCreated:
		fallthrough
	case AuditEventTypePasswordChanged:
		fallthrough
	case AuditEventTypeBackupRestored:
		fallthrough
	case AuditEventTypeGitHubLinked:
		return true
	}
	return false
}

func validateSettingKey(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, ok := SettingDefinitions[fl.Field().String()]
	return ok
}
