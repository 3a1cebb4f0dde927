package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Events

/*
DefineNewEvent define new event. A new ID is assigned when the record carries none.

	@param ctx context.Context - execution context
	@param record models.EventRecord - the event
	@returns event entry
*/
func (d *databaseImpl) DefineNewEvent(
	_ context.Context, record models.EventRecord,
) (models.EventRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	newEntry := EventDBEntry{EventRecord: record}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.EventRecord{}, fmt.Errorf("new event %s is not valid [%w]", record.ID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.EventRecord{}, fmt.Errorf("new event %s failed insert [%w]", record.ID, tmp.Error)
	}

	return newEntry.EventRecord, nil
}

/*
GetEvent fetch an event

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param eventID string - event ID
	@returns event entry
*/
func (d *databaseImpl) GetEvent(
	_ context.Context, userID string, eventID string,
) (models.EventRecord, error) {
	var entry EventDBEntry
	if tmp := d.db.
		Where("id = ? AND user_id = ?", eventID, userID).
		First(&entry); tmp.Error != nil {
		return models.EventRecord{}, fmt.Errorf("failed to fetch event %s [%w]", eventID, tmp.Error)
	}
	return entry.EventRecord, nil
}

/*
ListEvents list events of a user, by start time

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param filters EventQueryFilter - entry listing filter
	@returns list of events
*/
func (d *databaseImpl) ListEvents(
	_ context.Context, userID string, filters EventQueryFilter,
) ([]models.EventRecord, error) {
	query := d.db.Model(&EventDBEntry{}).Where("user_id = ?", userID)

	if filters.LabelID != nil {
		query = query.Where("label_id = ?", *filters.LabelID)
	}

	query = applyPaging(query, filters.CommonListEntryQueryFilter).Order("start").Order("id")

	var entries []EventDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list events [%w]", tmp.Error)
	}

	result := []models.EventRecord{}
	for _, entry := range entries {
		result = append(result, entry.EventRecord)
	}
	return result, nil
}

/*
CountEvents count events of a user

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns number of events
*/
func (d *databaseImpl) CountEvents(_ context.Context, userID string) (int64, error) {
	var count int64
	if tmp := d.db.Model(&EventDBEntry{}).Where("user_id = ?", userID).Count(&count); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count events [%w]", tmp.Error)
	}
	return count, nil
}

/*
UpdateEvent replace the name, time span and label of an event

	@param ctx context.Context - execution context
	@param record models.EventRecord - the event with the new values
*/
func (d *databaseImpl) UpdateEvent(_ context.Context, record models.EventRecord) error {
	if err := d.validator.Struct(&record); err != nil {
		return fmt.Errorf("updated event %s is not valid [%w]", record.ID, err)
	}
	return d.updateOwned(&EventDBEntry{}, record.UserID, record.ID, map[string]interface{}{
		"enc_name": record.EncName,
		"start":    record.Start,
		"end":      record.End,
		"label_id": record.LabelID,
	})
}

/*
DeleteEvent delete an event

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param eventID string - event ID
*/
func (d *databaseImpl) DeleteEvent(_ context.Context, userID string, eventID string) error {
	return d.deleteOwned(&EventDBEntry{}, userID, eventID)
}
