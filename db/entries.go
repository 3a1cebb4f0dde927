package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Entries

/*
DefineNewEntry define new diary entry. A new ID is assigned when the record carries none.

	@param ctx context.Context - execution context
	@param record models.EntryRecord - the entry
	@returns entry
*/
func (d *databaseImpl) DefineNewEntry(
	_ context.Context, record models.EntryRecord,
) (models.EntryRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	newEntry := EntryDBEntry{EntryRecord: record}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.EntryRecord{}, fmt.Errorf("new entry %s is not valid [%w]", record.ID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.EntryRecord{}, fmt.Errorf("new entry %s failed insert [%w]", record.ID, tmp.Error)
	}

	return newEntry.EntryRecord, nil
}

/*
GetEntry fetch a diary entry

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param entryID string - entry ID
	@returns entry
*/
func (d *databaseImpl) GetEntry(
	_ context.Context, userID string, entryID string,
) (models.EntryRecord, error) {
	var entry EntryDBEntry
	if tmp := d.db.
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&entry); tmp.Error != nil {
		return models.EntryRecord{}, fmt.Errorf("failed to fetch entry %s [%w]", entryID, tmp.Error)
	}
	return entry.EntryRecord, nil
}

/*
ListEntries list diary entries of a user, newest first

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param filters EntryQueryFilter - entry listing filter
	@returns list of entries
*/
func (d *databaseImpl) ListEntries(
	_ context.Context, userID string, filters EntryQueryFilter,
) ([]models.EntryRecord, error) {
	query := d.db.Model(&EntryDBEntry{}).Where("user_id = ?", userID)

	if filters.Deleted != nil {
		query = query.Where("deleted = ?", *filters.Deleted)
	}

	query = applyPaging(query, filters.CommonListEntryQueryFilter).
		Order("created_at desc").Order("id")

	var entries []EntryDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list entries [%w]", tmp.Error)
	}

	result := []models.EntryRecord{}
	for _, entry := range entries {
		result = append(result, entry.EntryRecord)
	}
	return result, nil
}

/*
UpdateEntryContent replace the content fields of a diary entry

	@param ctx context.Context - execution context
	@param record models.EntryRecord - the entry with the new content
*/
func (d *databaseImpl) UpdateEntryContent(_ context.Context, record models.EntryRecord) error {
	if err := d.validator.Struct(&record); err != nil {
		return fmt.Errorf("updated entry %s is not valid [%w]", record.ID, err)
	}
	return d.updateOwned(&EntryDBEntry{}, record.UserID, record.ID, map[string]interface{}{
		"enc_title":           record.EncTitle,
		"enc_body":            record.EncBody,
		"enc_agent_data":      record.EncAgentData,
		"label_id":            record.LabelID,
		"latitude":            record.Latitude,
		"longitude":           record.Longitude,
		"timezone_utc_offset": record.TimezoneUTCOffset,
	})
}

/*
SetEntryDeleted soft delete or restore a diary entry

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param entryID string - entry ID
	@param deleted bool - new soft delete state
*/
func (d *databaseImpl) SetEntryDeleted(
	_ context.Context, userID string, entryID string, deleted bool,
) error {
	return d.updateOwned(
		&EntryDBEntry{}, userID, entryID, map[string]interface{}{"deleted": deleted},
	)
}

/*
SetEntryPinned pin or unpin a diary entry

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param entryID string - entry ID
	@param pinned bool - new pinned state
*/
func (d *databaseImpl) SetEntryPinned(
	_ context.Context, userID string, entryID string, pinned bool,
) error {
	return d.updateOwned(
		&EntryDBEntry{}, userID, entryID, map[string]interface{}{"pinned": pinned},
	)
}

/*
ListEntryTimestamps list creation times of all not deleted entries, newest first

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns creation times
*/
func (d *databaseImpl) ListEntryTimestamps(_ context.Context, userID string) ([]time.Time, error) {
	var timestamps []time.Time
	if tmp := d.db.Model(&EntryDBEntry{}).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("created_at desc").
		Pluck("created_at", &timestamps); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list entry timestamps [%w]", tmp.Error)
	}
	return timestamps, nil
}

// ======================================================================================
// Entry edits

/*
DefineNewEntryEdit record a previous version of a diary entry. A new ID is assigned
when the record carries none.

	@param ctx context.Context - execution context
	@param record models.EntryEditRecord - the previous version
	@returns edit entry
*/
func (d *databaseImpl) DefineNewEntryEdit(
	_ context.Context, record models.EntryEditRecord,
) (models.EntryEditRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	newEntry := EntryEditDBEntry{EntryEditRecord: record}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.EntryEditRecord{}, fmt.Errorf("new entry edit %s is not valid [%w]", record.ID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.EntryEditRecord{}, fmt.Errorf(
			"new entry edit %s failed insert [%w]", record.ID, tmp.Error,
		)
	}

	return newEntry.EntryEditRecord, nil
}

/*
ListEntryEdits list diary entry edits of a user, oldest first

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param filters EntryEditQueryFilter - entry listing filter
	@returns list of edits
*/
func (d *databaseImpl) ListEntryEdits(
	_ context.Context, userID string, filters EntryEditQueryFilter,
) ([]models.EntryEditRecord, error) {
	query := d.db.Model(&EntryEditDBEntry{}).Where("user_id = ?", userID)

	if filters.EntryID != nil {
		query = query.Where("entry_id = ?", *filters.EntryID)
	}

	query = applyPaging(query, filters.CommonListEntryQueryFilter).Order("created_at").Order("id")

	var entries []EntryEditDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list entry edits [%w]", tmp.Error)
	}

	result := []models.EntryEditRecord{}
	for _, entry := range entries {
		result = append(result, entry.EntryEditRecord)
	}
	return result, nil
}
