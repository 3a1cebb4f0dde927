package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBackupRoundTrip(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")

	label := uut.Labels.Create(utCtx, alice, "work", "#ff0000", nil)
	assert.True(label.IsOk())
	entry := uut.Entries.Create(utCtx, alice, store.EntryContent{
		Title: "t", Body: "b", LabelID: label.Val().ID,
	}, nil)
	assert.True(entry.IsOk())
	assert.True(uut.Entries.Edit(utCtx, alice, entry.Val().ID, store.EntryContent{
		Title: "t", Body: "b2", LabelID: label.Val().ID,
	}, nil).IsOk())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(uut.Events.Create(utCtx, alice, store.EventContent{
		Name: "e", Start: start, End: start.Add(time.Hour),
	}, nil).IsOk())
	assert.True(uut.Assets.Create(utCtx, alice, "a.txt", "content", nil).IsOk())

	// Case 0: generate
	backup := uut.Backups.Generate(utCtx, alice, nil)
	assert.True(backup.IsOk())
	assert.Len(backup.Val().Entries, 1)
	assert.Len(backup.Val().EntryEdits, 1)
	assert.Len(backup.Val().Labels, 1)
	assert.Len(backup.Val().Events, 1)
	assert.Len(backup.Val().Assets, 1)

	// Case 1: encrypted export only opens with the user key
	exported := uut.Backups.AsEncryptedString(backup.Val(), alice.Key)
	assert.True(exported.IsOk())
	wrong := alice
	wrong.Key = encryption.DeriveKey("another")
	failed := uut.Backups.RestoreFromEncrypted(utCtx, wrong, exported.Val(), nil)
	assert.False(failed.IsOk())
	assert.Equal(result.KindDecryption, failed.Error().Kind)

	// Case 2: wipe some data, then restore
	assert.True(uut.Labels.Delete(utCtx, alice, label.Val().ID, nil).IsOk())
	restored := uut.Backups.RestoreFromEncrypted(utCtx, alice, exported.Val(), nil)
	assert.True(restored.IsOk())
	assert.Equal(models.AuditEventDataRewritten{
		Entries: 1, EntryEdits: 1, Labels: 1, Events: 1, Assets: 1,
	}, restored.Val())

	readBack := uut.Entries.FromID(utCtx, alice, entry.Val().ID, nil)
	assert.True(readBack.IsOk())
	assert.Equal("b2", readBack.Val().Body)
	assert.Equal(label.Val().ID, readBack.Val().LabelID)
	assert.WithinDuration(entry.Val().Created, readBack.Val().Created, time.Second)

	again := uut.Backups.Generate(utCtx, alice, nil)
	assert.True(again.IsOk())
	assert.Len(again.Val().Entries, 1)
	assert.Len(again.Val().Labels, 1)

	// Case 3: audited
	trail := uut.Users.AuditTrail(utCtx, alice, nil)
	assert.True(trail.IsOk())
	assert.Equal(models.AuditEventTypeBackupRestored, trail.Val()[len(trail.Val())-1].EventType)
}

func TestBackupRestoreRejectsBadData(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")
	entry := uut.Entries.Create(utCtx, alice, store.EntryContent{Body: "keep me"}, nil)
	assert.True(entry.IsOk())

	// Case 0: not JSON
	garbage := uut.Backups.RestoreFromEncrypted(
		utCtx, alice, encryption.Encrypt("not json", alice.Key), nil,
	)
	assert.Equal("Invalid backup", garbage.Error().Message)

	// Case 1: reference to a label not in the backup, nothing is lost
	bad := uut.Backups.Restore(utCtx, alice, models.Backup{
		Entries: []models.Entry{{ID: uuid.NewString(), Body: "x", LabelID: uuid.NewString()}},
	}, nil)
	assert.False(bad.IsOk())
	assert.Equal("Label doesn't exist", bad.Error().Message)
	readBack := uut.Entries.FromID(utCtx, alice, entry.Val().ID, nil)
	assert.True(readBack.IsOk())
	assert.Equal("keep me", readBack.Val().Body)

	// Case 2: bad identifier
	badID := uut.Backups.Restore(utCtx, alice, models.Backup{
		Labels: []models.Label{{ID: "not-a-uuid", Name: "n", Colour: "#ffffff"}},
	}, nil)
	assert.False(badID.IsOk())
	assert.Equal(result.KindValidation, badID.Error().Kind)
}
