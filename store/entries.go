package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
)

// MaxEntryPageSize largest accepted entry listing page size
const MaxEntryPageSize = 500

// EntryContent the user editable content of a diary entry
type EntryContent struct {
	Title             string   `json:"title"`
	Body              string   `json:"body"`
	AgentData         string   `json:"agentData"`
	LabelID           string   `json:"labelId"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	TimezoneUTCOffset int      `json:"timezoneUtcOffset"`
}

// EntryListQuery diary entry listing parameters
type EntryListQuery struct {
	// Page zero based page index
	Page int
	// PageSize entries per page
	PageSize int
	// Deleted list soft deleted entries instead
	Deleted bool
	// Search only entries whose title or body contains this, case insensitive
	Search string
}

// EntryList one page of diary entries
type EntryList struct {
	Entries      []models.Entry `json:"entries"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalEntries int            `json:"totalEntries"`
}

// Entries diary entry controller
type Entries interface {
	/*
		Create define a new diary entry

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param content EntryContent - entry content
			@param activeDBClient db.Database - existing database transaction
			@returns the new entry
	*/
	Create(
		ctx context.Context, auth models.Auth, content EntryContent, activeDBClient db.Database,
	) result.Result[models.Entry]

	/*
		FromID fetch a diary entry

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param entryID string - entry ID
			@param activeDBClient db.Database - existing database transaction
			@returns the entry
	*/
	FromID(
		ctx context.Context, auth models.Auth, entryID string, activeDBClient db.Database,
	) result.Result[models.Entry]

	/*
		List fetch one page of diary entries, newest first

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param query EntryListQuery - listing parameters
			@param activeDBClient db.Database - existing database transaction
			@returns the page
	*/
	List(
		ctx context.Context, auth models.Auth, query EntryListQuery, activeDBClient db.Database,
	) result.Result[EntryList]

	/*
		Edit replace the content of a diary entry. The previous content is kept as an entry
		edit.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param entryID string - entry ID
			@param content EntryContent - new content
			@param activeDBClient db.Database - existing database transaction
			@returns the updated entry
	*/
	Edit(
		ctx context.Context,
		auth models.Auth,
		entryID string,
		content EntryContent,
		activeDBClient db.Database,
	) result.Result[models.Entry]

	/*
		Edits fetch the previous versions of a diary entry, oldest first

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param entryID string - entry ID
			@param activeDBClient db.Database - existing database transaction
			@returns the previous versions
	*/
	Edits(
		ctx context.Context, auth models.Auth, entryID string, activeDBClient db.Database,
	) result.Result[[]models.EntryEdit]

	/*
		Delete soft delete a diary entry, or restore a soft deleted one

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param entryID string - entry ID
			@param restore bool - restore instead of delete
			@param activeDBClient db.Database - existing database transaction
	*/
	Delete(
		ctx context.Context, auth models.Auth, entryID string, restore bool, activeDBClient db.Database,
	) result.Result[result.Void]

	/*
		SetPinned pin or unpin a diary entry

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param entryID string - entry ID
			@param pinned bool - new pinned state
			@param activeDBClient db.Database - existing database transaction
	*/
	SetPinned(
		ctx context.Context, auth models.Auth, entryID string, pinned bool, activeDBClient db.Database,
	) result.Result[result.Void]

	/*
		Streaks compute the consecutive day entry streaks of the user

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param now time.Time - the current time
			@param activeDBClient db.Database - existing database transaction
			@returns the streaks
	*/
	Streaks(
		ctx context.Context, auth models.Auth, now time.Time, activeDBClient db.Database,
	) result.Result[models.Streaks]
}

// entriesImpl implements Entries
type entriesImpl struct {
	goutils.Component
	persistence db.Client
	labels      Labels
}

/*
NewEntries define new diary entry controller

	@param persistence db.Client - persistence layer client
	@param labels Labels - label controller
	@returns controller
*/
func NewEntries(persistence db.Client, labels Labels) Entries {
	return &entriesImpl{
		Component:   newComponent("entries"),
		persistence: persistence,
		labels:      labels,
	}
}

// labelIndex index labels by ID
func labelIndex(labels []models.Label) map[string]*models.Label {
	index := map[string]*models.Label{}
	for idx := range labels {
		index[labels[idx].ID] = &labels[idx]
	}
	return index
}

// decryptEntry convert a stored entry into its plain text form
func decryptEntry(
	record models.EntryRecord, key encryption.SymmetricKey, labels map[string]*models.Label,
) result.Result[models.Entry] {
	fields := result.Collect([]result.Result[string]{
		encryption.Decrypt(record.EncTitle, key),
		encryption.Decrypt(record.EncBody, key),
		encryption.Decrypt(record.EncAgentData, key),
	})
	if !fields.IsOk() {
		return result.Forward[models.Entry](fields)
	}
	entry := models.Entry{
		ID:                record.ID,
		Title:             fields.Val()[0],
		Body:              fields.Val()[1],
		AgentData:         fields.Val()[2],
		LabelID:           derefID(record.LabelID),
		Latitude:          record.Latitude,
		Longitude:         record.Longitude,
		TimezoneUTCOffset: record.TimezoneUTCOffset,
		Deleted:           record.Deleted,
		Pinned:            record.Pinned,
		Created:           record.CreatedAt,
	}
	if entry.LabelID != "" {
		label, ok := labels[entry.LabelID]
		if !ok {
			return result.Err[models.Entry](result.Validation("Label not found"))
		}
		entry.Label = label
	}
	return result.Ok(entry)
}

// decryptEntryEdit convert a stored entry edit into its plain text form
func decryptEntryEdit(
	record models.EntryEditRecord, key encryption.SymmetricKey, labels map[string]*models.Label,
) result.Result[models.EntryEdit] {
	fields := result.Collect([]result.Result[string]{
		encryption.Decrypt(record.EncTitle, key),
		encryption.Decrypt(record.EncBody, key),
		encryption.Decrypt(record.EncAgentData, key),
	})
	if !fields.IsOk() {
		return result.Forward[models.EntryEdit](fields)
	}
	edit := models.EntryEdit{
		ID:        record.ID,
		EntryID:   record.EntryID,
		Title:     fields.Val()[0],
		Body:      fields.Val()[1],
		AgentData: fields.Val()[2],
		LabelID:   derefID(record.LabelID),
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		Created:   record.CreatedAt,
	}
	if edit.LabelID != "" {
		label, ok := labels[edit.LabelID]
		if !ok {
			return result.Err[models.EntryEdit](result.Validation("Label not found"))
		}
		edit.Label = label
	}
	return result.Ok(edit)
}

/*
encryptContent validate and encrypt entry content into a stored record

	@param ctx context.Context - execution context
	@param auth models.Auth - session identity
	@param content EntryContent - entry content
	@param dbClient db.Database - database transaction
	@returns the record carrying the encrypted content
*/
func (s *entriesImpl) encryptContent(
	ctx context.Context, auth models.Auth, content EntryContent, dbClient db.Database,
) result.Result[models.EntryRecord] {
	if content.Body == "" {
		return result.Err[models.EntryRecord](result.Validation("Entry body required"))
	}

	encTitle := encryption.EncryptName(content.Title, auth.Key)
	if !encTitle.IsOk() {
		return result.Forward[models.EntryRecord](encTitle)
	}

	if content.LabelID != "" {
		if label := s.labels.FromID(ctx, auth, content.LabelID, dbClient); !label.IsOk() {
			if label.Error().Kind == result.KindValidation {
				return result.Err[models.EntryRecord](result.Validation("Label doesn't exist"))
			}
			return result.Forward[models.EntryRecord](label)
		}
	}

	if content.Latitude != nil && (*content.Latitude < -90 || *content.Latitude > 90) {
		return result.Err[models.EntryRecord](result.Validation("Invalid latitude"))
	}
	if content.Longitude != nil && (*content.Longitude < -180 || *content.Longitude > 180) {
		return result.Err[models.EntryRecord](result.Validation("Invalid longitude"))
	}

	return result.Ok(models.EntryRecord{
		UserID:            auth.ID,
		EncTitle:          encTitle.Val(),
		EncBody:           encryption.Encrypt(content.Body, auth.Key),
		EncAgentData:      encryption.Encrypt(content.AgentData, auth.Key),
		LabelID:           optionalID(content.LabelID),
		Latitude:          content.Latitude,
		Longitude:         content.Longitude,
		TimezoneUTCOffset: content.TimezoneUTCOffset,
	})
}

func (s *entriesImpl) labelIndex(
	ctx context.Context, auth models.Auth, dbClient db.Database,
) result.Result[map[string]*models.Label] {
	labels := s.labels.All(ctx, auth, dbClient)
	if !labels.IsOk() {
		return result.Forward[map[string]*models.Label](labels)
	}
	return result.Ok(labelIndex(labels.Val()))
}

func (s *entriesImpl) Create(
	ctx context.Context, auth models.Auth, content EntryContent, activeDBClient db.Database,
) result.Result[models.Entry] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Entry] {
			record := s.encryptContent(ctx, auth, content, dbClient)
			if !record.IsOk() {
				return result.Forward[models.Entry](record)
			}

			created, err := dbClient.DefineNewEntry(ctx, record.Val())
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Entry insert failed")
				return result.Err[models.Entry](result.Upstream(err))
			}

			log.WithFields(s.GetLogTagsForContext(ctx)).
				WithField("user", auth.ID).
				WithField("entry", created.ID).
				Debug("Defined new entry")

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Entry](labels)
			}
			return decryptEntry(created, auth.Key, labels.Val())
		},
	)
}

// getRecord fetch one stored entry
func (s *entriesImpl) getRecord(
	ctx context.Context, auth models.Auth, entryID string, dbClient db.Database,
) result.Result[models.EntryRecord] {
	record, err := dbClient.GetEntry(ctx, auth.ID, entryID)
	if err != nil {
		failure := lookupFailure(err, "Entry not found")
		logUpstream(ctx, s.Component, failure, "Entry fetch failed")
		return result.Err[models.EntryRecord](failure)
	}
	return result.Ok(record)
}

func (s *entriesImpl) FromID(
	ctx context.Context, auth models.Auth, entryID string, activeDBClient db.Database,
) result.Result[models.Entry] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Entry] {
			record := s.getRecord(ctx, auth, entryID, dbClient)
			if !record.IsOk() {
				return result.Forward[models.Entry](record)
			}
			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Entry](labels)
			}
			return decryptEntry(record.Val(), auth.Key, labels.Val())
		},
	)
}

func (s *entriesImpl) List(
	ctx context.Context, auth models.Auth, query EntryListQuery, activeDBClient db.Database,
) result.Result[EntryList] {
	if query.Page < 0 {
		return result.Err[EntryList](result.Validation("Invalid page number"))
	}
	if query.PageSize < 1 || query.PageSize > MaxEntryPageSize {
		return result.Err[EntryList](result.Validation("Invalid page size"))
	}

	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[EntryList] {
			records, err := dbClient.ListEntries(
				ctx, auth.ID, db.EntryQueryFilter{Deleted: &query.Deleted},
			)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Entry list failed")
				return result.Err[EntryList](result.Upstream(err))
			}

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[EntryList](labels)
			}
			decrypt := func(r models.EntryRecord) result.Result[models.Entry] {
				return decryptEntry(r, auth.Key, labels.Val())
			}

			var page []models.Entry
			total := len(records)
			start := query.Page * query.PageSize

			if query.Search != "" {
				// Content is encrypted so matching happens after decryption
				all := result.Map(records, decrypt)
				if !all.IsOk() {
					return result.Forward[EntryList](all)
				}
				needle := strings.ToLower(query.Search)
				matched := []models.Entry{}
				for _, entry := range all.Val() {
					if strings.Contains(strings.ToLower(entry.Title), needle) ||
						strings.Contains(strings.ToLower(entry.Body), needle) {
						matched = append(matched, entry)
					}
				}
				total = len(matched)
				page = []models.Entry{}
				if start < total {
					page = matched[start:min(start+query.PageSize, total)]
				}
			} else {
				window := []models.EntryRecord{}
				if start < total {
					window = records[start:min(start+query.PageSize, total)]
				}
				decrypted := result.Map(window, decrypt)
				if !decrypted.IsOk() {
					return result.Forward[EntryList](decrypted)
				}
				page = decrypted.Val()
			}

			return result.Ok(EntryList{
				Entries:      page,
				Page:         query.Page,
				TotalPages:   (total + query.PageSize - 1) / query.PageSize,
				TotalEntries: total,
			})
		},
	)
}

func (s *entriesImpl) Edit(
	ctx context.Context,
	auth models.Auth,
	entryID string,
	content EntryContent,
	activeDBClient db.Database,
) result.Result[models.Entry] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Entry] {
			current := s.getRecord(ctx, auth, entryID, dbClient)
			if !current.IsOk() {
				return result.Forward[models.Entry](current)
			}
			previous := current.Val()
			if previous.Deleted {
				return result.Err[models.Entry](result.Validation("Cannot edit a deleted entry"))
			}

			updated := s.encryptContent(ctx, auth, content, dbClient)
			if !updated.IsOk() {
				return result.Forward[models.Entry](updated)
			}

			if _, err := dbClient.DefineNewEntryEdit(ctx, models.EntryEditRecord{
				UserID:       auth.ID,
				EntryID:      previous.ID,
				EncTitle:     previous.EncTitle,
				EncBody:      previous.EncBody,
				EncAgentData: previous.EncAgentData,
				LabelID:      previous.LabelID,
				Latitude:     previous.Latitude,
				Longitude:    previous.Longitude,
			}); err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Entry edit insert failed")
				return result.Err[models.Entry](result.Upstream(err))
			}

			record := updated.Val()
			record.ID = previous.ID
			record.CreatedAt = previous.CreatedAt
			record.Deleted = previous.Deleted
			record.Pinned = previous.Pinned
			if err := dbClient.UpdateEntryContent(ctx, record); err != nil {
				failure := lookupFailure(err, "Entry not found")
				logUpstream(ctx, s.Component, failure, "Entry update failed")
				return result.Err[models.Entry](failure)
			}

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Entry](labels)
			}
			return decryptEntry(record, auth.Key, labels.Val())
		},
	)
}

func (s *entriesImpl) Edits(
	ctx context.Context, auth models.Auth, entryID string, activeDBClient db.Database,
) result.Result[[]models.EntryEdit] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.EntryEdit] {
			if entry := s.getRecord(ctx, auth, entryID, dbClient); !entry.IsOk() {
				return result.Forward[[]models.EntryEdit](entry)
			}

			records, err := dbClient.ListEntryEdits(
				ctx, auth.ID, db.EntryEditQueryFilter{EntryID: &entryID},
			)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Entry edit list failed")
				return result.Err[[]models.EntryEdit](result.Upstream(err))
			}

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[[]models.EntryEdit](labels)
			}
			return result.Map(records, func(r models.EntryEditRecord) result.Result[models.EntryEdit] {
				return decryptEntryEdit(r, auth.Key, labels.Val())
			})
		},
	)
}

func (s *entriesImpl) Delete(
	ctx context.Context, auth models.Auth, entryID string, restore bool, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			entry := s.getRecord(ctx, auth, entryID, dbClient)
			if !entry.IsOk() {
				return result.Forward[result.Void](entry)
			}
			if restore && !entry.Val().Deleted {
				return result.Err[result.Void](result.Validation("Entry is not deleted"))
			}
			if !restore && entry.Val().Deleted {
				return result.Err[result.Void](result.Validation("Entry already deleted"))
			}

			if err := dbClient.SetEntryDeleted(ctx, auth.ID, entryID, !restore); err != nil {
				failure := lookupFailure(err, "Entry not found")
				logUpstream(ctx, s.Component, failure, "Entry soft delete failed")
				return result.Err[result.Void](failure)
			}
			return result.OkVoid()
		},
	)
}

func (s *entriesImpl) SetPinned(
	ctx context.Context, auth models.Auth, entryID string, pinned bool, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.SetEntryPinned(ctx, auth.ID, entryID, pinned); err != nil {
				failure := lookupFailure(err, "Entry not found")
				logUpstream(ctx, s.Component, failure, "Entry pin change failed")
				return result.Err[result.Void](failure)
			}
			return result.OkVoid()
		},
	)
}

func (s *entriesImpl) Streaks(
	ctx context.Context, auth models.Auth, now time.Time, activeDBClient db.Database,
) result.Result[models.Streaks] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Streaks] {
			timestamps, err := dbClient.ListEntryTimestamps(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Entry timestamp list failed")
				return result.Err[models.Streaks](result.Upstream(err))
			}
			return result.Ok(ComputeStreaks(timestamps, now))
		},
	)
}

// utcDay truncate a time to the start of its UTC day
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

/*
ComputeStreaks compute consecutive day streaks from entry creation times. Days are UTC
days. The current streak counts only if it includes today or yesterday.

	@param timestamps []time.Time - entry creation times, in any order
	@param now time.Time - the current time
	@returns the streaks
*/
func ComputeStreaks(timestamps []time.Time, now time.Time) models.Streaks {
	seen := map[time.Time]bool{}
	days := []time.Time{}
	for _, ts := range timestamps {
		day := utcDay(ts)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return models.Streaks{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	const oneDay = 24 * time.Hour

	streaks := models.Streaks{}
	runLength := 1
	for idx := 1; idx <= len(days); idx++ {
		if idx < len(days) && days[idx-1].Sub(days[idx]) == oneDay {
			runLength++
			continue
		}
		streaks.Longest = max(streaks.Longest, runLength)
		runLength = 1
	}

	today := utcDay(now)
	if days[0].Equal(today) || days[0].Equal(today.Add(-oneDay)) {
		streaks.Current = 1
		for idx := 1; idx < len(days) && days[idx-1].Sub(days[idx]) == oneDay; idx++ {
			streaks.Current++
		}
		since := days[streaks.Current-1]
		streaks.RunningSince = &since
	}
	return streaks
}
