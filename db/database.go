package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// AuditEventQueryFilter audit event query filter conditions
type AuditEventQueryFilter struct {
	CommonListEntryQueryFilter
	// UserID fetch only events of this user
	UserID *string
	// EventTypes the specific event types to query for
	EventTypes []models.AuditEventTypeENUMType
	// EventsAfter filter for events after this timestamp
	EventsAfter *time.Time
	// EventsBefore filter for events before this timestamp
	EventsBefore *time.Time
}

// EntryQueryFilter diary entry query filter conditions
type EntryQueryFilter struct {
	CommonListEntryQueryFilter
	// Deleted fetch only entries with this soft delete state
	Deleted *bool
}

// EntryEditQueryFilter diary entry edit query filter conditions
type EntryEditQueryFilter struct {
	CommonListEntryQueryFilter
	// EntryID fetch only edits of this entry
	EntryID *string
}

// EventQueryFilter event query filter conditions
type EventQueryFilter struct {
	CommonListEntryQueryFilter
	// LabelID fetch only events with this label
	LabelID *string
}

// PageLoadQueryFilter page load log query filter conditions
type PageLoadQueryFilter struct {
	CommonListEntryQueryFilter
	// UserID fetch only page loads of this user
	UserID *string
}

// LabelUsage which tables to count label usage in
type LabelUsage int

const (
	// LabelUsageEntries count entries
	LabelUsageEntries LabelUsage = iota
	// LabelUsageEntryEdits count entry edits
	LabelUsageEntryEdits
	// LabelUsageEvents count events
	LabelUsageEvents
)

/*
Database the database handle to interacting with the data base

Every user owned query filters by the owning user ID; a row of another user is reported
as not found.
*/
type Database interface {
	// ------------------------------------------------------------------------------------
	// Audit events

	/*
		RecordAuditEvent record a new audit event

			@param ctx context.Context - execution context
			@param userID string - related user, empty for system events
			@param eventType models.AuditEventTypeENUMType - event type
			@param metadata interface{} - optional event metadata
			@return the audit event
	*/
	RecordAuditEvent(
		ctx context.Context,
		userID string,
		eventType models.AuditEventTypeENUMType,
		metadata interface{},
	) (models.AuditEvent, error)

	/*
		ListAuditEvents list captured audit events

			@param ctx context.Context - execution context
			@param filters AuditEventQueryFilter - entry listing filter
			@return list of audit events
	*/
	ListAuditEvents(
		ctx context.Context, filters AuditEventQueryFilter,
	) ([]models.AuditEvent, error)

	// ------------------------------------------------------------------------------------
	// System parameters

	/*
		GetSystemParamEntry fetch the global singleton system parameter entry

			@param ctx context.Context - execution context
			@returns the entry
	*/
	GetSystemParamEntry(ctx context.Context) (models.SystemParams, error)

	/*
		MarkSystemInitializing mark system is initializing, recording the data format
		parameters all stored data will use

			@param ctx context.Context - execution context
			@param kdfScheme string - key derivation scheme
			@param envelopeVersion int - cipher text envelope version
	*/
	MarkSystemInitializing(ctx context.Context, kdfScheme string, envelopeVersion int) error

	/*
		MarkSystemInitialized mark system fully initialized

			@param ctx context.Context - execution context
	*/
	MarkSystemInitialized(ctx context.Context) error

	// ------------------------------------------------------------------------------------
	// Users

	/*
		DefineNewUser define a new user

			@param ctx context.Context - execution context
			@param username string - login name
			@param passwordHash string - stored key hash
			@param salt string - key hash salt
			@returns user entry
	*/
	DefineNewUser(
		ctx context.Context, username string, passwordHash string, salt string,
	) (models.UserRecord, error)

	/*
		GetUser fetch a user by ID

			@param ctx context.Context - execution context
			@param userID string - user ID
			@returns user entry
	*/
	GetUser(ctx context.Context, userID string) (models.UserRecord, error)

	/*
		GetUserByUsername fetch a user by username

			@param ctx context.Context - execution context
			@param username string - login name
			@returns user entry
	*/
	GetUserByUsername(ctx context.Context, username string) (models.UserRecord, error)

	/*
		IsUsernameInUse check whether a username is taken

			@param ctx context.Context - execution context
			@param username string - login name
			@returns whether in use
	*/
	IsUsernameInUse(ctx context.Context, username string) (bool, error)

	/*
		IsSaltInUse check whether a salt is used by any user

			@param ctx context.Context - execution context
			@param salt string - key hash salt
			@returns whether in use
	*/
	IsSaltInUse(ctx context.Context, salt string) (bool, error)

	/*
		UpdateUserPasswordHash replace the stored key hash of a user

			@param ctx context.Context - execution context
			@param userID string - user ID
			@param passwordHash string - new stored key hash
	*/
	UpdateUserPasswordHash(ctx context.Context, userID string, passwordHash string) error

	/*
		UpdateUserGitHubToken replace the encrypted GitHub token of a user

			@param ctx context.Context - execution context
			@param userID string - user ID
			@param encToken string - encrypted token, empty to unlink
	*/
	UpdateUserGitHubToken(ctx context.Context, userID string, encToken string) error

	/*
		DeleteUser delete a user and all the user's data

			@param ctx context.Context - execution context
			@param userID string - user ID
	*/
	DeleteUser(ctx context.Context, userID string) error

	// ------------------------------------------------------------------------------------
	// Labels

	/*
		DefineNewLabel define new label. A new ID is assigned when the record carries none.

			@param ctx context.Context - execution context
			@param record models.LabelRecord - the label
			@returns label entry
	*/
	DefineNewLabel(ctx context.Context, record models.LabelRecord) (models.LabelRecord, error)

	/*
		GetLabel fetch a label

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param labelID string - label ID
			@returns label entry
	*/
	GetLabel(ctx context.Context, userID string, labelID string) (models.LabelRecord, error)

	/*
		ListLabels list all labels of a user

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns list of labels
	*/
	ListLabels(ctx context.Context, userID string) ([]models.LabelRecord, error)

	/*
		CountLabels count labels of a user

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns number of labels
	*/
	CountLabels(ctx context.Context, userID string) (int64, error)

	/*
		CountLabelUsage count how many rows of a kind reference a label

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param labelID string - label ID
			@param usage LabelUsage - what to count
			@returns number of rows
	*/
	CountLabelUsage(
		ctx context.Context, userID string, labelID string, usage LabelUsage,
	) (int64, error)

	/*
		UpdateLabelName replace the encrypted name of a label

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param labelID string - label ID
			@param encName string - encrypted name
	*/
	UpdateLabelName(ctx context.Context, userID string, labelID string, encName string) error

	/*
		UpdateLabelColour replace the colour of a label

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param labelID string - label ID
			@param colour string - new colour
	*/
	UpdateLabelColour(ctx context.Context, userID string, labelID string, colour string) error

	/*
		DeleteLabel delete a label, clearing it from entries, entry edits and events

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param labelID string - label ID
	*/
	DeleteLabel(ctx context.Context, userID string, labelID string) error

	// ------------------------------------------------------------------------------------
	// Entries

	/*
		DefineNewEntry define new diary entry. A new ID is assigned when the record carries
		none.

			@param ctx context.Context - execution context
			@param record models.EntryRecord - the entry
			@returns entry
	*/
	DefineNewEntry(ctx context.Context, record models.EntryRecord) (models.EntryRecord, error)

	/*
		GetEntry fetch a diary entry

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param entryID string - entry ID
			@returns entry
	*/
	GetEntry(ctx context.Context, userID string, entryID string) (models.EntryRecord, error)

	/*
		ListEntries list diary entries of a user, newest first

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param filters EntryQueryFilter - entry listing filter
			@returns list of entries
	*/
	ListEntries(
		ctx context.Context, userID string, filters EntryQueryFilter,
	) ([]models.EntryRecord, error)

	/*
		UpdateEntryContent replace the content fields of a diary entry

			@param ctx context.Context - execution context
			@param record models.EntryRecord - the entry with the new content
	*/
	UpdateEntryContent(ctx context.Context, record models.EntryRecord) error

	/*
		SetEntryDeleted soft delete or restore a diary entry

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param entryID string - entry ID
			@param deleted bool - new soft delete state
	*/
	SetEntryDeleted(ctx context.Context, userID string, entryID string, deleted bool) error

	/*
		SetEntryPinned pin or unpin a diary entry

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param entryID string - entry ID
			@param pinned bool - new pinned state
	*/
	SetEntryPinned(ctx context.Context, userID string, entryID string, pinned bool) error

	/*
		ListEntryTimestamps list creation times of all not deleted entries, newest first

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns creation times
	*/
	ListEntryTimestamps(ctx context.Context, userID string) ([]time.Time, error)

	/*
		DefineNewEntryEdit record a previous version of a diary entry. A new ID is assigned
		when the record carries none.

			@param ctx context.Context - execution context
			@param record models.EntryEditRecord - the previous version
			@returns edit entry
	*/
	DefineNewEntryEdit(
		ctx context.Context, record models.EntryEditRecord,
	) (models.EntryEditRecord, error)

	/*
		ListEntryEdits list diary entry edits of a user, oldest first

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param filters EntryEditQueryFilter - entry listing filter
			@returns list of edits
	*/
	ListEntryEdits(
		ctx context.Context, userID string, filters EntryEditQueryFilter,
	) ([]models.EntryEditRecord, error)

	// ------------------------------------------------------------------------------------
	// Events

	/*
		DefineNewEvent define new event. A new ID is assigned when the record carries none.

			@param ctx context.Context - execution context
			@param record models.EventRecord - the event
			@returns event entry
	*/
	DefineNewEvent(ctx context.Context, record models.EventRecord) (models.EventRecord, error)

	/*
		GetEvent fetch an event

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param eventID string - event ID
			@returns event entry
	*/
	GetEvent(ctx context.Context, userID string, eventID string) (models.EventRecord, error)

	/*
		ListEvents list events of a user, by start time

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param filters EventQueryFilter - entry listing filter
			@returns list of events
	*/
	ListEvents(
		ctx context.Context, userID string, filters EventQueryFilter,
	) ([]models.EventRecord, error)

	/*
		CountEvents count events of a user

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns number of events
	*/
	CountEvents(ctx context.Context, userID string) (int64, error)

	/*
		UpdateEvent replace the name, time span and label of an event

			@param ctx context.Context - execution context
			@param record models.EventRecord - the event with the new values
	*/
	UpdateEvent(ctx context.Context, record models.EventRecord) error

	/*
		DeleteEvent delete an event

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param eventID string - event ID
	*/
	DeleteEvent(ctx context.Context, userID string, eventID string) error

	// ------------------------------------------------------------------------------------
	// Settings

	/*
		ListSettings list all setting rows of a user, newest first

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns list of settings
	*/
	ListSettings(ctx context.Context, userID string) ([]models.SettingRecord, error)

	/*
		UpsertSetting set the encrypted value of a setting key

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param key string - setting key
			@param encValue string - encrypted JSON encoded value
			@returns the setting entry
	*/
	UpsertSetting(
		ctx context.Context, userID string, key string, encValue string,
	) (models.SettingRecord, error)

	/*
		UpdateSettingValue replace the encrypted value of one setting row

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param settingID string - setting row ID
			@param encValue string - encrypted JSON encoded value
	*/
	UpdateSettingValue(
		ctx context.Context, userID string, settingID string, encValue string,
	) error

	/*
		DeleteSetting delete one setting row

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param settingID string - setting row ID
	*/
	DeleteSetting(ctx context.Context, userID string, settingID string) error

	// ------------------------------------------------------------------------------------
	// Assets

	/*
		DefineNewAsset define new asset. A new ID is assigned when the record carries none.

			@param ctx context.Context - execution context
			@param record models.AssetRecord - the asset
			@returns asset entry
	*/
	DefineNewAsset(ctx context.Context, record models.AssetRecord) (models.AssetRecord, error)

	/*
		GetAsset fetch an asset

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param assetID string - asset ID
			@returns asset entry
	*/
	GetAsset(ctx context.Context, userID string, assetID string) (models.AssetRecord, error)

	/*
		ListAssets list assets of a user

			@param ctx context.Context - execution context
			@param userID string - owning user
			@returns list of assets
	*/
	ListAssets(ctx context.Context, userID string) ([]models.AssetRecord, error)

	/*
		DeleteAsset delete an asset

			@param ctx context.Context - execution context
			@param userID string - owning user
			@param assetID string - asset ID
	*/
	DeleteAsset(ctx context.Context, userID string, assetID string) error

	// ------------------------------------------------------------------------------------
	// Bulk

	/*
		PurgeUserData delete all entries, entry edits, labels, events and assets of a user.
		Settings and the user itself are kept.

			@param ctx context.Context - execution context
			@param userID string - owning user
	*/
	PurgeUserData(ctx context.Context, userID string) error

	// ------------------------------------------------------------------------------------
	// Page loads

	/*
		RecordPageLoad record one served request

			@param ctx context.Context - execution context
			@param entry models.PageLoad - the request summary
	*/
	RecordPageLoad(ctx context.Context, entry models.PageLoad) error

	/*
		ListPageLoads list recorded requests, newest first

			@param ctx context.Context - execution context
			@param filters PageLoadQueryFilter - entry listing filter
			@returns list of page loads
	*/
	ListPageLoads(ctx context.Context, filters PageLoadQueryFilter) ([]models.PageLoad, error)
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "halcyon", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}

// applyPaging apply the common limit / offset filters
func applyPaging(query *gorm.DB, filters CommonListEntryQueryFilter) *gorm.DB {
	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}
	return query
}

/*
updateOwned apply column changes to one user owned row

	@param model interface{} - table DB entry
	@param userID string - owning user
	@param id string - row ID
	@param changes map[string]interface{} - column changes
	@returns gorm.ErrRecordNotFound (wrapped) when the user owns no such row
*/
func (d *databaseImpl) updateOwned(
	model interface{}, userID string, id string, changes map[string]interface{},
) error {
	var count int64
	if tmp := d.db.Model(model).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count); tmp.Error != nil {
		return fmt.Errorf("failed to fetch row %s [%w]", id, tmp.Error)
	}
	if count == 0 {
		return fmt.Errorf("row %s does not exist [%w]", id, gorm.ErrRecordNotFound)
	}
	if tmp := d.db.Model(model).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(changes); tmp.Error != nil {
		return fmt.Errorf("failed to update row %s [%w]", id, tmp.Error)
	}
	return nil
}

/*
deleteOwned delete one user owned row

	@param model interface{} - table DB entry
	@param userID string - owning user
	@param id string - row ID
	@returns gorm.ErrRecordNotFound (wrapped) when the user owns no such row
*/
func (d *databaseImpl) deleteOwned(model interface{}, userID string, id string) error {
	tmp := d.db.Where("id = ? AND user_id = ?", id, userID).Delete(model)
	if tmp.Error != nil {
		return fmt.Errorf("failed to delete row %s [%w]", id, tmp.Error)
	}
	if tmp.RowsAffected == 0 {
		return fmt.Errorf("row %s does not exist [%w]", id, gorm.ErrRecordNotFound)
	}
	return nil
}
