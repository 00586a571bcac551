package content

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logintoken"
	"github.com/tech-arch1tect/seminary/testutils"
)

type env struct {
	db    *gorm.DB
	clock *clockwork.FakeClock
	users *auth.Service
}

func newEnv(t *testing.T) env {
	t.Helper()
	clock := testutils.NewFakeClock()
	models := append([]any{&auth.User{}, &logintoken.LoginToken{}}, Models()...)
	db := testutils.SetupTestDB(t, clock, models...)
	return env{
		db:    db,
		clock: clock,
		users: auth.NewService(testutils.GetTestConfig(), db, clock, nil),
	}
}

func (e env) user(t *testing.T, email string, role auth.Role) *auth.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), auth.NewUser{
		Email:    email,
		Role:     role,
		Password: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)
	return u
}
