package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestSettings(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, persistence := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")

	// Case 0: defaults
	defaults := uut.Settings.AllWithDefaults(utCtx, alice, nil)
	assert.True(defaults.IsOk())
	assert.Equal(float64(2000), defaults.Val()["yearOfBirth"])
	assert.Equal(true, defaults.Val()["showNYearsAgoEntryTitles"])

	// Case 1: bad key and bad type
	assert.Equal(
		"Invalid setting key",
		uut.Settings.Update(utCtx, alice, "nope", true, nil).Error().Message,
	)
	assert.Equal(
		"Invalid setting value, expected number but got string",
		uut.Settings.Update(utCtx, alice, "yearOfBirth", "1990", nil).Error().Message,
	)

	// Case 2: update and read back
	assert.True(uut.Settings.Update(utCtx, alice, "passcode", "1234", nil).IsOk())
	assert.True(uut.Settings.Update(utCtx, alice, "passcode", "4321", nil).IsOk())
	value := uut.Settings.GetValue(utCtx, alice, "passcode", nil)
	assert.True(value.IsOk())
	assert.Equal("4321", value.Val())

	// Case 3: a key updated twice is stored once
	all := uut.Settings.All(utCtx, alice, nil)
	assert.True(all.IsOk())
	assert.Len(all.Val(), 1)
	assert.Nil(persistence.UseDatabase(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			rows, err := dbClient.ListSettings(ctx, alice.ID)
			assert.Len(rows, 1)
			return err
		},
	))
}

func TestAssets(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")
	bob := signUp(t, uut, "bob", "password1")

	// Case 0: validation
	assert.Equal("File name required", uut.Assets.Create(utCtx, alice, "", "data", nil).Error().Message)
	tooBig := strings.Repeat("a", store.MaxAssetContentLen+1)
	assert.False(uut.Assets.Create(utCtx, alice, "big.bin", tooBig, nil).IsOk())

	// Case 1: create and read
	asset := uut.Assets.Create(utCtx, alice, "photo.png", "base64-content", nil)
	assert.True(asset.IsOk())
	readBack := uut.Assets.FromID(utCtx, alice, asset.Val().ID, nil)
	assert.True(readBack.IsOk())
	assert.Equal("photo.png", readBack.Val().FileName)
	assert.Equal("base64-content", readBack.Val().Content)
	assert.Equal("Asset not found", uut.Assets.FromID(utCtx, bob, asset.Val().ID, nil).Error().Message)

	// Case 2: wrong key
	wrong := alice
	wrong.Key = encryption.DeriveKey("another")
	assert.False(uut.Assets.FromID(utCtx, wrong, asset.Val().ID, nil).IsOk())

	// Case 3: list and delete
	all := uut.Assets.All(utCtx, alice, nil)
	assert.True(all.IsOk())
	assert.Len(all.Val(), 1)
	assert.True(uut.Assets.Delete(utCtx, alice, asset.Val().ID, nil).IsOk())
	assert.False(uut.Assets.Delete(utCtx, alice, asset.Val().ID, nil).IsOk())
}
