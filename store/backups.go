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
	"github.com/go-playground/validator/v10"
)

// EncryptedBackup wire form of an exported backup
type EncryptedBackup struct {
	// Data the JSON encoded backup, encrypted under the user key
	Data string `json:"data"`
}

// Backups user data snapshot controller
type Backups interface {
	/*
		Generate take a plain text snapshot of the user's entries, entry edits, labels,
		events and assets

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the snapshot
	*/
	Generate(
		ctx context.Context, auth models.Auth, activeDBClient db.Database,
	) result.Result[models.Backup]

	/*
		AsEncryptedString encode a snapshot as JSON and encrypt it

			@param backup models.Backup - the snapshot
			@param key encryption.SymmetricKey - encryption key
			@returns the cipher text
	*/
	AsEncryptedString(backup models.Backup, key encryption.SymmetricKey) result.Result[string]

	/*
		Restore replace the user's entries, entry edits, labels, events and assets with
		the content of a snapshot, encrypting under the session key. Identifiers and
		creation times are preserved.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param backup models.Backup - the snapshot
			@param activeDBClient db.Database - existing database transaction
			@returns what was written
	*/
	Restore(
		ctx context.Context, auth models.Auth, backup models.Backup, activeDBClient db.Database,
	) result.Result[models.AuditEventDataRewritten]

	/*
		Rewrite same as Restore, but records no audit event. For callers which rewrite the
		user's data as part of a larger operation with its own audit event.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param backup models.Backup - the snapshot
			@param activeDBClient db.Database - existing database transaction
			@returns what was written
	*/
	Rewrite(
		ctx context.Context, auth models.Auth, backup models.Backup, activeDBClient db.Database,
	) result.Result[models.AuditEventDataRewritten]

	/*
		RestoreFromEncrypted decrypt a snapshot produced by AsEncryptedString with the
		session key, then restore it

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param data string - the cipher text
			@param activeDBClient db.Database - existing database transaction
			@returns what was written
	*/
	RestoreFromEncrypted(
		ctx context.Context, auth models.Auth, data string, activeDBClient db.Database,
	) result.Result[models.AuditEventDataRewritten]
}

// backupsImpl implements Backups
type backupsImpl struct {
	goutils.Component
	persistence db.Client
	validator   *validator.Validate
}

/*
NewBackups define new backup controller

	@param persistence db.Client - persistence layer client
	@returns controller
*/
func NewBackups(persistence db.Client) Backups {
	return &backupsImpl{
		Component:   newComponent("backups"),
		persistence: persistence,
		validator:   validator.New(),
	}
}

func (s *backupsImpl) Generate(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[models.Backup] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Backup] {
			return s.generate(ctx, auth, dbClient)
		},
	)
}

func (s *backupsImpl) generate(
	ctx context.Context, auth models.Auth, dbClient db.Database,
) result.Result[models.Backup] {
	fail := func(err error, msg string) result.Result[models.Backup] {
		log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error(msg)
		return result.Err[models.Backup](result.Upstream(err))
	}

	labelRecords, err := dbClient.ListLabels(ctx, auth.ID)
	if err != nil {
		return fail(err, "Label list failed")
	}
	labels := result.Map(labelRecords, func(r models.LabelRecord) result.Result[models.Label] {
		return decryptLabel(r, auth.Key)
	})
	if !labels.IsOk() {
		return result.Forward[models.Backup](labels)
	}
	index := labelIndex(labels.Val())

	entryRecords, err := dbClient.ListEntries(ctx, auth.ID, db.EntryQueryFilter{})
	if err != nil {
		return fail(err, "Entry list failed")
	}
	entries := result.Map(entryRecords, func(r models.EntryRecord) result.Result[models.Entry] {
		return decryptEntry(r, auth.Key, index)
	})
	if !entries.IsOk() {
		return result.Forward[models.Backup](entries)
	}

	editRecords, err := dbClient.ListEntryEdits(ctx, auth.ID, db.EntryEditQueryFilter{})
	if err != nil {
		return fail(err, "Entry edit list failed")
	}
	edits := result.Map(editRecords, func(r models.EntryEditRecord) result.Result[models.EntryEdit] {
		return decryptEntryEdit(r, auth.Key, index)
	})
	if !edits.IsOk() {
		return result.Forward[models.Backup](edits)
	}

	eventRecords, err := dbClient.ListEvents(ctx, auth.ID, db.EventQueryFilter{})
	if err != nil {
		return fail(err, "Event list failed")
	}
	events := result.Map(eventRecords, func(r models.EventRecord) result.Result[models.Event] {
		return decryptEvent(r, auth.Key, index)
	})
	if !events.IsOk() {
		return result.Forward[models.Backup](events)
	}

	assetRecords, err := dbClient.ListAssets(ctx, auth.ID)
	if err != nil {
		return fail(err, "Asset list failed")
	}
	assets := result.Map(assetRecords, func(r models.AssetRecord) result.Result[models.Asset] {
		return decryptAsset(r, auth.Key)
	})
	if !assets.IsOk() {
		return result.Forward[models.Backup](assets)
	}

	return result.Ok(models.Backup{
		Entries:    entries.Val(),
		EntryEdits: edits.Val(),
		Labels:     labels.Val(),
		Events:     events.Val(),
		Assets:     assets.Val(),
	})
}

func (s *backupsImpl) AsEncryptedString(
	backup models.Backup, key encryption.SymmetricKey,
) result.Result[string] {
	encoded, err := json.Marshal(backup)
	if err != nil {
		return result.Err[string](result.Upstream(err))
	}
	return result.Ok(encryption.Encrypt(string(encoded), key))
}

func (s *backupsImpl) Restore(
	ctx context.Context, auth models.Auth, backup models.Backup, activeDBClient db.Database,
) result.Result[models.AuditEventDataRewritten] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.AuditEventDataRewritten] {
			written := s.restore(ctx, auth, backup, dbClient)
			if !written.IsOk() {
				return written
			}
			if _, err := dbClient.RecordAuditEvent(
				ctx, auth.ID, models.AuditEventTypeBackupRestored, written.Val(),
			); err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Audit record failed")
				return result.Err[models.AuditEventDataRewritten](result.Upstream(err))
			}
			log.WithFields(s.GetLogTagsForContext(ctx)).
				WithField("user", auth.ID).
				WithField("entries", written.Val().Entries).
				Info("Restored backup")
			return written
		},
	)
}

func (s *backupsImpl) Rewrite(
	ctx context.Context, auth models.Auth, backup models.Backup, activeDBClient db.Database,
) result.Result[models.AuditEventDataRewritten] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.AuditEventDataRewritten] {
			return s.restore(ctx, auth, backup, dbClient)
		},
	)
}

func (s *backupsImpl) RestoreFromEncrypted(
	ctx context.Context, auth models.Auth, data string, activeDBClient db.Database,
) result.Result[models.AuditEventDataRewritten] {
	plain := encryption.Decrypt(data, auth.Key)
	if !plain.IsOk() {
		return result.Forward[models.AuditEventDataRewritten](plain)
	}
	var backup models.Backup
	if err := json.Unmarshal([]byte(plain.Val()), &backup); err != nil {
		return result.Err[models.AuditEventDataRewritten](result.Validation("Invalid backup"))
	}
	return s.Restore(ctx, auth, backup, activeDBClient)
}

// checkID validate an identifier carried by a snapshot; empty means a new one is assigned
func (s *backupsImpl) checkID(id string) *result.Error {
	if err := s.validator.Var(id, "omitempty,uuid_rfc4122"); err != nil {
		return result.Validationf("Invalid backup, bad identifier '%s'", id)
	}
	return nil
}

/*
restore write a snapshot inside an existing transaction, without recording an audit event

	@param ctx context.Context - execution context
	@param auth models.Auth - session identity, its key encrypts the written data
	@param backup models.Backup - the snapshot
	@param dbClient db.Database - database transaction
	@returns what was written
*/
func (s *backupsImpl) restore(
	ctx context.Context, auth models.Auth, backup models.Backup, dbClient db.Database,
) result.Result[models.AuditEventDataRewritten] {
	type outcome = models.AuditEventDataRewritten
	invalid := func(err *result.Error) result.Result[outcome] { return result.Err[outcome](err) }
	fail := func(err error, msg string) result.Result[outcome] {
		log.WithError(err).
			WithFields(s.GetLogTagsForContext(ctx)).
			WithField("user", auth.ID).
			Error(msg)
		return result.Err[outcome](result.Upstream(err))
	}

	if err := dbClient.PurgeUserData(ctx, auth.ID); err != nil {
		return fail(err, "User data purge failed")
	}

	labelIDs := map[string]bool{}
	for _, label := range backup.Labels {
		if err := s.checkID(label.ID); err != nil {
			return invalid(err)
		}
		if err := s.validator.Var(label.Colour, "required,hexcolor"); err != nil {
			return invalid(result.Validation("Invalid colour"))
		}
		encName := encryption.EncryptName(label.Name, auth.Key)
		if !encName.IsOk() {
			return result.Forward[outcome](encName)
		}
		record, err := dbClient.DefineNewLabel(ctx, models.LabelRecord{
			ID:        label.ID,
			UserID:    auth.ID,
			EncName:   encName.Val(),
			Colour:    label.Colour,
			CreatedAt: label.Created,
		})
		if err != nil {
			return fail(err, "Label restore failed")
		}
		labelIDs[record.ID] = true
	}

	checkLabel := func(labelID string) *result.Error {
		if labelID != "" && !labelIDs[labelID] {
			return result.Validation("Label doesn't exist")
		}
		return nil
	}

	entryIDs := map[string]bool{}
	for _, entry := range backup.Entries {
		if err := s.checkID(entry.ID); err != nil {
			return invalid(err)
		}
		if entry.Body == "" {
			return invalid(result.Validation("Entry body required"))
		}
		if err := checkLabel(entry.LabelID); err != nil {
			return invalid(err)
		}
		encTitle := encryption.EncryptName(entry.Title, auth.Key)
		if !encTitle.IsOk() {
			return result.Forward[outcome](encTitle)
		}
		record, err := dbClient.DefineNewEntry(ctx, models.EntryRecord{
			ID:                entry.ID,
			UserID:            auth.ID,
			EncTitle:          encTitle.Val(),
			EncBody:           encryption.Encrypt(entry.Body, auth.Key),
			EncAgentData:      encryption.Encrypt(entry.AgentData, auth.Key),
			LabelID:           optionalID(entry.LabelID),
			Latitude:          entry.Latitude,
			Longitude:         entry.Longitude,
			TimezoneUTCOffset: entry.TimezoneUTCOffset,
			Deleted:           entry.Deleted,
			Pinned:            entry.Pinned,
			CreatedAt:         entry.Created,
		})
		if err != nil {
			return fail(err, "Entry restore failed")
		}
		entryIDs[record.ID] = true
	}

	for _, edit := range backup.EntryEdits {
		if err := s.checkID(edit.ID); err != nil {
			return invalid(err)
		}
		if !entryIDs[edit.EntryID] {
			return invalid(result.Validation("Entry not found"))
		}
		if edit.Body == "" {
			return invalid(result.Validation("Entry body required"))
		}
		if err := checkLabel(edit.LabelID); err != nil {
			return invalid(err)
		}
		encTitle := encryption.EncryptName(edit.Title, auth.Key)
		if !encTitle.IsOk() {
			return result.Forward[outcome](encTitle)
		}
		if _, err := dbClient.DefineNewEntryEdit(ctx, models.EntryEditRecord{
			ID:           edit.ID,
			UserID:       auth.ID,
			EntryID:      edit.EntryID,
			EncTitle:     encTitle.Val(),
			EncBody:      encryption.Encrypt(edit.Body, auth.Key),
			EncAgentData: encryption.Encrypt(edit.AgentData, auth.Key),
			LabelID:      optionalID(edit.LabelID),
			Latitude:     edit.Latitude,
			Longitude:    edit.Longitude,
			CreatedAt:    edit.Created,
		}); err != nil {
			return fail(err, "Entry edit restore failed")
		}
	}

	for _, event := range backup.Events {
		if err := s.checkID(event.ID); err != nil {
			return invalid(err)
		}
		if event.Name == "" {
			return invalid(result.Validation("Event name cannot be empty"))
		}
		if event.Start.After(event.End) {
			return invalid(result.Validation("Start time cannot be after end time"))
		}
		if err := checkLabel(event.LabelID); err != nil {
			return invalid(err)
		}
		encName := encryption.EncryptName(event.Name, auth.Key)
		if !encName.IsOk() {
			return result.Forward[outcome](encName)
		}
		if _, err := dbClient.DefineNewEvent(ctx, models.EventRecord{
			ID:        event.ID,
			UserID:    auth.ID,
			EncName:   encName.Val(),
			Start:     event.Start,
			End:       event.End,
			LabelID:   optionalID(event.LabelID),
			CreatedAt: event.Created,
		}); err != nil {
			return fail(err, "Event restore failed")
		}
	}

	for _, asset := range backup.Assets {
		if err := s.checkID(asset.ID); err != nil {
			return invalid(err)
		}
		if err := checkAsset(asset.FileName, asset.Content); err != nil {
			return invalid(err)
		}
		if _, err := dbClient.DefineNewAsset(ctx, models.AssetRecord{
			ID:          asset.ID,
			UserID:      auth.ID,
			EncFileName: encryption.Encrypt(asset.FileName, auth.Key),
			EncContent:  encryption.Encrypt(asset.Content, auth.Key),
			CreatedAt:   asset.Created,
		}); err != nil {
			return fail(err, "Asset restore failed")
		}
	}

	return result.Ok(outcome{
		Entries:    len(backup.Entries),
		EntryEdits: len(backup.EntryEdits),
		Labels:     len(backup.Labels),
		Events:     len(backup.Events),
		Assets:     len(backup.Assets),
	})
}
