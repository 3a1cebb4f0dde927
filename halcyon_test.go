package halcyon_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alwitt/halcyon"
	"github.com/alwitt/halcyon/config"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Database.DSN = fmt.Sprintf("/tmp/halcyon_ut_%s.db", ulid.Make().String())
	cfg.Session.Secret = "ut-service-secret-0123456789abcdef"
	return cfg
}

// storedBody fetch the raw stored cipher text of an entry body
func storedBody(t *testing.T, persistence db.Client, userID string, entryID string) string {
	var encBody string
	require.Nil(t, persistence.UseDatabase(
		context.Background(), func(ctx context.Context, dbClient db.Database) error {
			record, err := dbClient.GetEntry(ctx, userID, entryID)
			encBody = record.EncBody
			return err
		},
	))
	return encBody
}

// TestJournalEndToEnd follows one user through sign up, writing an entry, and a
// password change, checking what is actually stored along the way.
func TestJournalEndToEnd(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	ctx := context.Background()
	cfg := testConfig()
	log.WithField("db", cfg.Database.DSN).Debug("Test database")

	// ------------------------------------------------------------------
	// 1. Prepare the database and start the service
	// ------------------------------------------------------------------
	assert.Nil(halcyon.Migrate(ctx, cfg.Database))

	uut, err := halcyon.NewService(ctx, cfg)
	require.Nil(t, err)
	defer func() { assert.Nil(uut.Close()) }()

	assert.Nil(uut.Persistence.UseDatabase(
		ctx, func(ctx context.Context, dbClient db.Database) error {
			params, err := dbClient.GetSystemParamEntry(ctx)
			assert.Equal(models.SystemStateRunning, params.State)
			assert.Equal(encryption.KeyDerivationScheme, params.KeyDerivationScheme)
			assert.Equal(int(encryption.EnvelopeVersion), params.EnvelopeVersion)
			return err
		},
	))

	resp := httptest.NewRecorder()
	uut.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(http.StatusOK, resp.Code)

	// ------------------------------------------------------------------
	// 2. Create alice, her key is derived from the password
	// ------------------------------------------------------------------
	created := uut.Store.Users.Create(ctx, "alice", "password123", nil)
	require.True(t, created.IsOk())
	alice := created.Val()
	k1 := encryption.DeriveKey("password123")
	assert.True(k1.Equal(alice.Key))

	// ------------------------------------------------------------------
	// 3. Write an entry, the stored body is cipher text
	// ------------------------------------------------------------------
	entry := uut.Store.Entries.Create(ctx, alice, store.EntryContent{Body: "hello"}, nil)
	require.True(t, entry.IsOk())
	entryID := entry.Val().ID

	before := storedBody(t, uut.Persistence, alice.ID, entryID)
	assert.NotEqual("hello", before)
	assert.NotContains(before, "hello")

	// ------------------------------------------------------------------
	// 4. Read it back under K1
	// ------------------------------------------------------------------
	readBack := uut.Store.Entries.FromID(ctx, alice, entryID, nil)
	assert.True(readBack.IsOk())
	assert.Equal("hello", readBack.Val().Body)
	assert.Equal("hello", encryption.Decrypt(before, k1).Val())

	// ------------------------------------------------------------------
	// 5. Change the password, the new key is K2
	// ------------------------------------------------------------------
	changed := uut.Store.Users.ChangePassword(ctx, alice, "password123", "newpass1234", nil)
	require.True(t, changed.IsOk())
	rotated := changed.Val()
	k2 := encryption.DeriveKey("newpass1234")
	assert.True(k2.Equal(rotated.Key))
	assert.Equal(alice.ID, rotated.ID)

	// ------------------------------------------------------------------
	// 6. The same entry reads under K2, the stored cipher text changed
	// ------------------------------------------------------------------
	readBack = uut.Store.Entries.FromID(ctx, rotated, entryID, nil)
	assert.True(readBack.IsOk())
	assert.Equal("hello", readBack.Val().Body)

	after := storedBody(t, uut.Persistence, alice.ID, entryID)
	assert.NotEqual(before, after)
	assert.Equal("hello", encryption.Decrypt(after, k2).Val())
	stale := encryption.Decrypt(after, k1)
	assert.False(stale.IsOk())
	assert.Equal(result.KindDecryption, stale.Error().Kind)

	// ------------------------------------------------------------------
	// 7. Old credentials are rejected, new ones accepted
	// ------------------------------------------------------------------
	oldLogin := uut.Store.Users.Login(ctx, "alice", "password123", nil)
	assert.False(oldLogin.IsOk())
	assert.Equal(result.KindAuthentication, oldLogin.Error().Kind)
	assert.True(uut.Store.Users.Login(ctx, "alice", "newpass1234", nil).IsOk())
	assert.False(uut.Store.Entries.FromID(ctx, alice, entryID, nil).IsOk())
}

func TestServiceRestart(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	ctx := context.Background()
	cfg := testConfig()

	// Case 0: tables missing
	_, err := halcyon.NewService(ctx, cfg)
	assert.Error(err)

	// Case 1: first start, then restart against the same data
	assert.Nil(halcyon.Migrate(ctx, cfg.Database))
	first, err := halcyon.NewService(ctx, cfg)
	assert.Nil(err)
	assert.Nil(first.Close())
	second, err := halcyon.NewService(ctx, cfg)
	assert.Nil(err)
	assert.Nil(second.Close())

	// Case 2: bad driver
	cfg.Database.Driver = "oracle"
	_, err = halcyon.NewService(ctx, cfg)
	assert.Error(err)
}
