package auth_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"document-chat/internal/auth"
	"document-chat/internal/config"
)

func newTestService(t *testing.T) *auth.Service {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.NewDropTable().Model((*auth.User)(nil)).IfExists().Exec(context.Background())
	require.NoError(t, err)

	service := auth.NewService(db, &config.AuthConfig{SecretKey: "test-secret", TokenTTLMinutes: 5})
	require.NoError(t, service.CreateSchema(context.Background()))
	return service
}

func TestRegisterAndLogin(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "alice", "s3cret-pass", "alice@example.com", "Alice"))

	token, err := service.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLoginWrongPassword(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "alice", "s3cret-pass", "", ""))

	_, err := service.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	service := newTestService(t)

	_, err := service.Login(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "alice", "s3cret-pass", "", ""))
	err := service.Register(ctx, "alice", "other-pass", "", "")
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestVerifyGarbageToken(t *testing.T) {
	service := newTestService(t)

	_, err := service.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
