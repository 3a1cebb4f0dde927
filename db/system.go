package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
)

// GlobalSystemParamEntryID ID of the singleton system parameter entry
const GlobalSystemParamEntryID = "system-parameters"

// getSystemParamEntry fetch the system param entry
//
// If the entry does not exist, initialize a new one.
func (d *databaseImpl) getSystemParamEntry() (SystemParamsDBEntry, error) {
	var entries []SystemParamsDBEntry
	dbErr := d.db.Where("id = ?", GlobalSystemParamEntryID).Find(&entries).Error
	if dbErr != nil {
		return SystemParamsDBEntry{}, fmt.Errorf("failed to read system params table [%w]", dbErr)
	}
	if len(entries) == 0 {
		// Make a new one
		newEntry := SystemParamsDBEntry{
			SystemParams: models.SystemParams{
				ID:    GlobalSystemParamEntryID,
				State: models.SystemStatePreInit,
			},
		}
		if dbErr = d.db.Create(&newEntry).Error; dbErr != nil {
			return SystemParamsDBEntry{}, fmt.Errorf(
				"failed to setup singleton system params table [%w]", dbErr,
			)
		}
		return newEntry, nil
	}
	return entries[0], nil
}

/*
GetSystemParamEntry fetch the global singleton system parameter entry

	@param ctx context.Context - execution context
	@returns the entry
*/
func (d *databaseImpl) GetSystemParamEntry(_ context.Context) (models.SystemParams, error) {
	entry, err := d.getSystemParamEntry()
	if err != nil {
		return entry.SystemParams, fmt.Errorf("unable to fetch system parameter entry [%w]", err)
	}
	return entry.SystemParams, nil
}

// updateSystemParamState update the system parameter entry with new state
func (d *databaseImpl) updateSystemParamState(
	newState models.SystemStateENUMType, changes map[string]interface{},
) error {
	entry, err := d.getSystemParamEntry()
	if err != nil {
		return fmt.Errorf("unable to fetch system parameter entry [%w]", err)
	}

	if entry.State == newState {
		// NOOP
		return nil
	}

	if err := entry.ValidateNextState(newState); err != nil {
		return fmt.Errorf("system state change to %s not allowed [%w]", newState, err)
	}

	oldState := entry.State
	if changes == nil {
		changes = map[string]interface{}{}
	}
	changes["state"] = newState
	if tmp := d.db.Model(&SystemParamsDBEntry{}).
		Where("id = ?", GlobalSystemParamEntryID).
		Updates(changes); tmp.Error != nil {
		return fmt.Errorf("system state change update failed [%w]", tmp.Error)
	}

	// record this event
	switch newState {
	case models.SystemStateInit:
		kdfScheme, _ := changes["kdf_scheme"].(string)
		_, err = d.RecordAuditEvent(
			context.Background(),
			"",
			models.AuditEventTypeSystemInitializing,
			models.AuditEventSystemRelated{KeyDerivationScheme: kdfScheme},
		)
		if err != nil {
			return fmt.Errorf("failed to log system state change audit event [%w]", err)
		}

	case models.SystemStateRunning:
		if oldState == models.SystemStateInit {
			_, err = d.RecordAuditEvent(
				context.Background(), "", models.AuditEventTypeSystemInitialized, nil,
			)
			if err != nil {
				return fmt.Errorf("failed to log system state change audit event [%w]", err)
			}
		}
	}

	return nil
}

/*
MarkSystemInitializing mark system is initializing, recording the data format
parameters all stored data will use

	@param ctx context.Context - execution context
	@param kdfScheme string - key derivation scheme
	@param envelopeVersion int - cipher text envelope version
*/
func (d *databaseImpl) MarkSystemInitializing(
	_ context.Context, kdfScheme string, envelopeVersion int,
) error {
	return d.updateSystemParamState(models.SystemStateInit, map[string]interface{}{
		"kdf_scheme": kdfScheme, "envelope_version": envelopeVersion,
	})
}

/*
MarkSystemInitialized mark system fully initialized

	@param ctx context.Context - execution context
*/
func (d *databaseImpl) MarkSystemInitialized(_ context.Context) error {
	return d.updateSystemParamState(models.SystemStateRunning, nil)
}
