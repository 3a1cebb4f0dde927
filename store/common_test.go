package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// mockGitHubExchanger testify mock of store.GitHubTokenExchanger
type mockGitHubExchanger struct {
	mock.Mock
}

func (m *mockGitHubExchanger) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockGitHubExchanger) Exchange(ctx context.Context, code string, state string) (string, error) {
	args := m.Called(ctx, code, state)
	return args.String(0), args.Error(1)
}

func newTestPersistence(t *testing.T) db.Client {
	testDB := fmt.Sprintf("/tmp/halcyon_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	require.Nil(t, err)
	require.Nil(t, uut.RunSQLInTransaction(context.Background(), db.DefineTables))
	t.Cleanup(func() { _ = uut.Close() })
	return uut
}

func newTestStore(
	t *testing.T, limits store.Limits, github store.GitHubTokenExchanger,
) (*store.Store, db.Client) {
	persistence := newTestPersistence(t)
	return store.NewStore(persistence, limits, github), persistence
}

func signUp(t *testing.T, uut *store.Store, username string, password string) models.Auth {
	created := uut.Users.Create(context.Background(), username, password, nil)
	require.True(t, created.IsOk(), "%v", created.Error())
	return created.Val()
}
