package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Labels

/*
DefineNewLabel define new label. A new ID is assigned when the record carries none.

	@param ctx context.Context - execution context
	@param record models.LabelRecord - the label
	@returns label entry
*/
func (d *databaseImpl) DefineNewLabel(
	_ context.Context, record models.LabelRecord,
) (models.LabelRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	newEntry := LabelDBEntry{LabelRecord: record}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.LabelRecord{}, fmt.Errorf("new label %s is not valid [%w]", record.ID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.LabelRecord{}, fmt.Errorf("new label %s failed insert [%w]", record.ID, tmp.Error)
	}

	return newEntry.LabelRecord, nil
}

/*
GetLabel fetch a label

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param labelID string - label ID
	@returns label entry
*/
func (d *databaseImpl) GetLabel(
	_ context.Context, userID string, labelID string,
) (models.LabelRecord, error) {
	var entry LabelDBEntry
	if tmp := d.db.
		Where("id = ? AND user_id = ?", labelID, userID).
		First(&entry); tmp.Error != nil {
		return models.LabelRecord{}, fmt.Errorf("failed to fetch label %s [%w]", labelID, tmp.Error)
	}
	return entry.LabelRecord, nil
}

/*
ListLabels list all labels of a user

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns list of labels
*/
func (d *databaseImpl) ListLabels(_ context.Context, userID string) ([]models.LabelRecord, error) {
	var entries []LabelDBEntry
	if tmp := d.db.
		Where("user_id = ?", userID).
		Order("created_at").Order("id").
		Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list labels [%w]", tmp.Error)
	}

	result := []models.LabelRecord{}
	for _, entry := range entries {
		result = append(result, entry.LabelRecord)
	}
	return result, nil
}

/*
CountLabels count labels of a user

	@param ctx context.Context - execution context
	@param userID string - owning user
	@returns number of labels
*/
func (d *databaseImpl) CountLabels(_ context.Context, userID string) (int64, error) {
	var count int64
	if tmp := d.db.Model(&LabelDBEntry{}).Where("user_id = ?", userID).Count(&count); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count labels [%w]", tmp.Error)
	}
	return count, nil
}

/*
CountLabelUsage count how many rows of a kind reference a label

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param labelID string - label ID
	@param usage LabelUsage - what to count
	@returns number of rows
*/
func (d *databaseImpl) CountLabelUsage(
	_ context.Context, userID string, labelID string, usage LabelUsage,
) (int64, error) {
	var model interface{}
	switch usage {
	case LabelUsageEntries:
		model = &EntryDBEntry{}
	case LabelUsageEntryEdits:
		model = &EntryEditDBEntry{}
	case LabelUsageEvents:
		model = &EventDBEntry{}
	default:
		return 0, fmt.Errorf("unknown label usage %d", usage)
	}

	var count int64
	if tmp := d.db.Model(model).
		Where("user_id = ? AND label_id = ?", userID, labelID).
		Count(&count); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count usage of label %s [%w]", labelID, tmp.Error)
	}
	return count, nil
}

/*
UpdateLabelName replace the encrypted name of a label

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param labelID string - label ID
	@param encName string - encrypted name
*/
func (d *databaseImpl) UpdateLabelName(
	_ context.Context, userID string, labelID string, encName string,
) error {
	return d.updateOwned(
		&LabelDBEntry{}, userID, labelID, map[string]interface{}{"enc_name": encName},
	)
}

/*
UpdateLabelColour replace the colour of a label

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param labelID string - label ID
	@param colour string - new colour
*/
func (d *databaseImpl) UpdateLabelColour(
	_ context.Context, userID string, labelID string, colour string,
) error {
	if err := d.validator.Var(colour, "required,hexcolor"); err != nil {
		return fmt.Errorf("label colour '%s' is not valid [%w]", colour, err)
	}
	return d.updateOwned(
		&LabelDBEntry{}, userID, labelID, map[string]interface{}{"colour": colour},
	)
}

/*
DeleteLabel delete a label, clearing it from entries, entry edits and events

	@param ctx context.Context - execution context
	@param userID string - owning user
	@param labelID string - label ID
*/
func (d *databaseImpl) DeleteLabel(_ context.Context, userID string, labelID string) error {
	for _, table := range []interface{}{&EntryDBEntry{}, &EntryEditDBEntry{}, &EventDBEntry{}} {
		if tmp := d.db.Model(table).
			Where("user_id = ? AND label_id = ?", userID, labelID).
			Update("label_id", nil); tmp.Error != nil {
			return fmt.Errorf("failed to unset label %s [%w]", labelID, tmp.Error)
		}
	}
	return d.deleteOwned(&LabelDBEntry{}, userID, labelID)
}
