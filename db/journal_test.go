package db_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestClient(t *testing.T) db.Client {
	testDB := fmt.Sprintf("/tmp/halcyon_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	require.Nil(t, err)
	require.Nil(t, uut.RunSQLInTransaction(context.Background(), db.DefineTables))
	return uut
}

func defineTestUser(t *testing.T, uut db.Client, username string) models.UserRecord {
	var user models.UserRecord
	require.Nil(t, uut.UseDatabaseInTransaction(
		context.Background(), func(ctx context.Context, dbClient db.Database) error {
			var err error
			user, err = dbClient.DefineNewUser(
				ctx, username, fmt.Sprintf("%064d", 0), ulid.Make().String(),
			)
			return err
		},
	))
	return user
}

func TestDBUsers(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	hash := fmt.Sprintf("%064x", 42)
	salt := ulid.Make().String()

	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// Case 0: define user
		user, err := dbClient.DefineNewUser(ctx, "alice", hash, salt)
		assert.Nil(err)
		assert.NotEmpty(user.ID)

		// Case 1: username and salt are taken
		inUse, err := dbClient.IsUsernameInUse(ctx, "alice")
		assert.Nil(err)
		assert.True(inUse)
		inUse, err = dbClient.IsUsernameInUse(ctx, "bob")
		assert.Nil(err)
		assert.False(inUse)
		inUse, err = dbClient.IsSaltInUse(ctx, salt)
		assert.Nil(err)
		assert.True(inUse)

		// Case 2: duplicate username rejected
		_, err = dbClient.DefineNewUser(ctx, "alice", hash, ulid.Make().String())
		assert.Error(err)

		// Case 3: invalid usernames rejected
		_, err = dbClient.DefineNewUser(ctx, "al", hash, ulid.Make().String())
		assert.Error(err)

		// Case 4: fetch
		byName, err := dbClient.GetUserByUsername(ctx, "alice")
		assert.Nil(err)
		assert.Equal(user.ID, byName.ID)
		assert.Equal(hash, byName.PasswordHash)
		_, err = dbClient.GetUserByUsername(ctx, "bob")
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))

		// Case 5: update hash and token
		newHash := fmt.Sprintf("%064x", 43)
		assert.Nil(dbClient.UpdateUserPasswordHash(ctx, user.ID, newHash))
		assert.Nil(dbClient.UpdateUserGitHubToken(ctx, user.ID, "enc-token"))
		byID, err := dbClient.GetUser(ctx, user.ID)
		assert.Nil(err)
		assert.Equal(newHash, byID.PasswordHash)
		assert.Equal("enc-token", byID.EncGitHubToken)

		err = dbClient.UpdateUserPasswordHash(ctx, uuid.NewString(), newHash)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))

		// Case 6: delete
		assert.Nil(dbClient.DeleteUser(ctx, user.ID))
		_, err = dbClient.GetUser(ctx, user.ID)
		assert.Error(err)
		return nil
	}))
}

func TestDBLabels(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	alice := defineTestUser(t, uut, "alice")
	bob := defineTestUser(t, uut, "bobby")

	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// Case 0: define labels
		label1, err := dbClient.DefineNewLabel(ctx, models.LabelRecord{
			UserID: alice.ID, EncName: "enc-label-1", Colour: "#00ff00",
		})
		assert.Nil(err)
		assert.NotEmpty(label1.ID)

		presetID := uuid.NewString()
		label2, err := dbClient.DefineNewLabel(ctx, models.LabelRecord{
			ID: presetID, UserID: alice.ID, EncName: "enc-label-2", Colour: "#000000",
		})
		assert.Nil(err)
		assert.Equal(presetID, label2.ID)

		// Case 1: bad colour
		_, err = dbClient.DefineNewLabel(ctx, models.LabelRecord{
			UserID: alice.ID, EncName: "enc-label-3", Colour: "green",
		})
		assert.Error(err)

		// Case 2: ownership enforced
		_, err = dbClient.GetLabel(ctx, bob.ID, label1.ID)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))
		assert.True(errors.Is(
			dbClient.UpdateLabelName(ctx, bob.ID, label1.ID, "stolen"), gorm.ErrRecordNotFound,
		))
		assert.True(errors.Is(dbClient.DeleteLabel(ctx, bob.ID, label1.ID), gorm.ErrRecordNotFound))

		// Case 3: list and count
		labels, err := dbClient.ListLabels(ctx, alice.ID)
		assert.Nil(err)
		assert.Len(labels, 2)
		count, err := dbClient.CountLabels(ctx, alice.ID)
		assert.Nil(err)
		assert.Equal(int64(2), count)
		count, err = dbClient.CountLabels(ctx, bob.ID)
		assert.Nil(err)
		assert.Equal(int64(0), count)

		// Case 4: update
		assert.Nil(dbClient.UpdateLabelName(ctx, alice.ID, label1.ID, "enc-renamed"))
		assert.Nil(dbClient.UpdateLabelColour(ctx, alice.ID, label1.ID, "#123456"))
		assert.Error(dbClient.UpdateLabelColour(ctx, alice.ID, label1.ID, "blue"))
		fetched, err := dbClient.GetLabel(ctx, alice.ID, label1.ID)
		assert.Nil(err)
		assert.Equal("enc-renamed", fetched.EncName)
		assert.Equal("#123456", fetched.Colour)

		// Case 5: usage counting and delete
		entry, err := dbClient.DefineNewEntry(ctx, models.EntryRecord{
			UserID: alice.ID, EncBody: "enc-body", LabelID: &label1.ID,
		})
		assert.Nil(err)
		_, err = dbClient.DefineNewEntryEdit(ctx, models.EntryEditRecord{
			UserID: alice.ID, EntryID: entry.ID, EncBody: "enc-old-body", LabelID: &label1.ID,
		})
		assert.Nil(err)
		_, err = dbClient.DefineNewEvent(ctx, models.EventRecord{
			UserID:  alice.ID,
			EncName: "enc-event",
			Start:   time.Now(),
			End:     time.Now().Add(time.Hour),
			LabelID: &label1.ID,
		})
		assert.Nil(err)

		for _, usage := range []db.LabelUsage{
			db.LabelUsageEntries, db.LabelUsageEntryEdits, db.LabelUsageEvents,
		} {
			count, err := dbClient.CountLabelUsage(ctx, alice.ID, label1.ID, usage)
			assert.Nil(err)
			assert.Equal(int64(1), count)
		}

		assert.Nil(dbClient.DeleteLabel(ctx, alice.ID, label1.ID))
		for _, usage := range []db.LabelUsage{
			db.LabelUsageEntries, db.LabelUsageEntryEdits, db.LabelUsageEvents,
		} {
			count, err := dbClient.CountLabelUsage(ctx, alice.ID, label1.ID, usage)
			assert.Nil(err)
			assert.Equal(int64(0), count)
		}
		fetchedEntry, err := dbClient.GetEntry(ctx, alice.ID, entry.ID)
		assert.Nil(err)
		assert.Nil(fetchedEntry.LabelID)
		return nil
	}))
}

func TestDBEntries(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	alice := defineTestUser(t, uut, "alice")

	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// Case 0: define entries with distinct creation times
		now := time.Now().UTC().Truncate(time.Second)
		entryIDs := []string{}
		for idx := 0; idx < 5; idx++ {
			entry, err := dbClient.DefineNewEntry(ctx, models.EntryRecord{
				UserID:    alice.ID,
				EncBody:   fmt.Sprintf("enc-body-%d", idx),
				CreatedAt: now.Add(time.Duration(idx) * time.Hour),
			})
			assert.Nil(err)
			entryIDs = append(entryIDs, entry.ID)
		}

		// Case 1: body required
		_, err := dbClient.DefineNewEntry(ctx, models.EntryRecord{UserID: alice.ID})
		assert.Error(err)

		// Case 2: list newest first with paging
		limit := 2
		offset := 1
		entries, err := dbClient.ListEntries(ctx, alice.ID, db.EntryQueryFilter{
			CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit, Offset: &offset},
		})
		assert.Nil(err)
		assert.Len(entries, 2)
		assert.Equal(entryIDs[3], entries[0].ID)
		assert.Equal(entryIDs[2], entries[1].ID)

		// Case 3: soft delete
		assert.Nil(dbClient.SetEntryDeleted(ctx, alice.ID, entryIDs[0], true))
		deleted := true
		entries, err = dbClient.ListEntries(ctx, alice.ID, db.EntryQueryFilter{Deleted: &deleted})
		assert.Nil(err)
		assert.Len(entries, 1)
		assert.Equal(entryIDs[0], entries[0].ID)
		timestamps, err := dbClient.ListEntryTimestamps(ctx, alice.ID)
		assert.Nil(err)
		assert.Len(timestamps, 4)

		// Case 4: pin and unpin
		assert.Nil(dbClient.SetEntryPinned(ctx, alice.ID, entryIDs[1], true))
		entry, err := dbClient.GetEntry(ctx, alice.ID, entryIDs[1])
		assert.Nil(err)
		assert.True(entry.Pinned)
		assert.Nil(dbClient.SetEntryPinned(ctx, alice.ID, entryIDs[1], false))
		entry, err = dbClient.GetEntry(ctx, alice.ID, entryIDs[1])
		assert.Nil(err)
		assert.False(entry.Pinned)

		// Case 5: content update
		latitude := 51.5
		entry.EncTitle = "enc-title"
		entry.EncBody = "enc-new-body"
		entry.Latitude = &latitude
		assert.Nil(dbClient.UpdateEntryContent(ctx, entry))
		entry, err = dbClient.GetEntry(ctx, alice.ID, entryIDs[1])
		assert.Nil(err)
		assert.Equal("enc-title", entry.EncTitle)
		assert.Equal("enc-new-body", entry.EncBody)
		assert.NotNil(entry.Latitude)

		// Case 6: edits
		for idx := 0; idx < 2; idx++ {
			_, err := dbClient.DefineNewEntryEdit(ctx, models.EntryEditRecord{
				UserID: alice.ID, EntryID: entryIDs[1], EncBody: fmt.Sprintf("enc-prev-%d", idx),
			})
			assert.Nil(err)
		}
		edits, err := dbClient.ListEntryEdits(ctx, alice.ID, db.EntryEditQueryFilter{
			EntryID: &entryIDs[1],
		})
		assert.Nil(err)
		assert.Len(edits, 2)
		edits, err = dbClient.ListEntryEdits(ctx, alice.ID, db.EntryEditQueryFilter{
			EntryID: &entryIDs[2],
		})
		assert.Nil(err)
		assert.Empty(edits)

		// Case 7: purge
		assert.Nil(dbClient.PurgeUserData(ctx, alice.ID))
		entries, err = dbClient.ListEntries(ctx, alice.ID, db.EntryQueryFilter{})
		assert.Nil(err)
		assert.Empty(entries)
		edits, err = dbClient.ListEntryEdits(ctx, alice.ID, db.EntryEditQueryFilter{})
		assert.Nil(err)
		assert.Empty(edits)
		return nil
	}))
}

func TestDBEventsSettingsAssets(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	alice := defineTestUser(t, uut, "alice")

	assert.Nil(uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		start := time.Now().UTC().Truncate(time.Second)

		// Case 0: events
		event, err := dbClient.DefineNewEvent(ctx, models.EventRecord{
			UserID: alice.ID, EncName: "enc-event", Start: start, End: start.Add(time.Hour),
		})
		assert.Nil(err)
		_, err = dbClient.DefineNewEvent(ctx, models.EventRecord{
			UserID: alice.ID, EncName: "enc-event", Start: start, End: start.Add(-time.Hour),
		})
		assert.Error(err)
		count, err := dbClient.CountEvents(ctx, alice.ID)
		assert.Nil(err)
		assert.Equal(int64(1), count)

		event.End = start.Add(2 * time.Hour)
		event.EncName = "enc-renamed"
		assert.Nil(dbClient.UpdateEvent(ctx, event))
		fetched, err := dbClient.GetEvent(ctx, alice.ID, event.ID)
		assert.Nil(err)
		assert.Equal("enc-renamed", fetched.EncName)
		assert.True(start.Add(2 * time.Hour).Equal(fetched.End))

		events, err := dbClient.ListEvents(ctx, alice.ID, db.EventQueryFilter{})
		assert.Nil(err)
		assert.Len(events, 1)
		assert.Nil(dbClient.DeleteEvent(ctx, alice.ID, event.ID))
		assert.Error(dbClient.DeleteEvent(ctx, alice.ID, event.ID))

		// Case 1: settings upsert
		first, err := dbClient.UpsertSetting(ctx, alice.ID, "yearOfBirth", "enc-1990")
		assert.Nil(err)
		second, err := dbClient.UpsertSetting(ctx, alice.ID, "yearOfBirth", "enc-1991")
		assert.Nil(err)
		assert.Equal(first.ID, second.ID)
		_, err = dbClient.UpsertSetting(ctx, alice.ID, "notASetting", "enc")
		assert.Error(err)
		settings, err := dbClient.ListSettings(ctx, alice.ID)
		assert.Nil(err)
		assert.Len(settings, 1)
		assert.Equal("enc-1991", settings[0].EncValue)
		assert.Nil(dbClient.UpdateSettingValue(ctx, alice.ID, first.ID, "enc-1992"))
		assert.Nil(dbClient.DeleteSetting(ctx, alice.ID, first.ID))
		settings, err = dbClient.ListSettings(ctx, alice.ID)
		assert.Nil(err)
		assert.Empty(settings)

		// Case 2: assets
		asset, err := dbClient.DefineNewAsset(ctx, models.AssetRecord{
			UserID: alice.ID, EncFileName: "enc-name", EncContent: "enc-content",
		})
		assert.Nil(err)
		assets, err := dbClient.ListAssets(ctx, alice.ID)
		assert.Nil(err)
		assert.Len(assets, 1)
		fetchedAsset, err := dbClient.GetAsset(ctx, alice.ID, asset.ID)
		assert.Nil(err)
		assert.Equal("enc-content", fetchedAsset.EncContent)
		assert.Nil(dbClient.DeleteAsset(ctx, alice.ID, asset.ID))
		_, err = dbClient.GetAsset(ctx, alice.ID, asset.ID)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))

		// Case 3: page loads
		assert.Nil(dbClient.RecordPageLoad(ctx, models.PageLoad{
			UserID: alice.ID, Method: "GET", URL: "/api/labels", ResponseCode: 200,
		}))
		assert.Error(dbClient.RecordPageLoad(ctx, models.PageLoad{Method: "GET"}))
		loads, err := dbClient.ListPageLoads(ctx, db.PageLoadQueryFilter{UserID: &alice.ID})
		assert.Nil(err)
		assert.Len(loads, 1)
		return nil
	}))
}
