package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/testutil"
)

// Тесты внутри пакета: state-машина диалогов живёт в памяти
// и не требует БД, репозиторий сессий не используется.

func newService(t *testing.T) (*Service, *accounts.Service) {
	t.Helper()
	acctSvc := accounts.NewService(testutil.NewMemAccounts())
	cfg := &config.Config{AdminIDs: []int64{42}}
	return NewService(nil, acctSvc, cfg), acctSvc
}

func TestIsAdminTelegramID(t *testing.T) {
	svc, _ := newService(t)
	require.True(t, svc.IsAdminTelegramID(42))
	require.False(t, svc.IsAdminTelegramID(7))
}

func TestStateLifecycle(t *testing.T) {
	svc, _ := newService(t)

	require.Nil(t, svc.GetState(42))

	svc.SetState(42, StateGrantSelect, nil)
	st := svc.GetState(42)
	require.NotNil(t, st)
	require.Equal(t, StateGrantSelect, st.State)

	svc.ClearState(42)
	require.Nil(t, svc.GetState(42))
}

func TestStateExpires(t *testing.T) {
	svc, _ := newService(t)

	svc.SetState(42, StateTakeSelect, nil)
	svc.statesMu.Lock()
	svc.states[42].ExpiresAt = time.Now().Add(-time.Minute)
	svc.statesMu.Unlock()

	require.Nil(t, svc.GetState(42))
}

func TestStateCarriesData(t *testing.T) {
	svc, _ := newService(t)

	svc.SetState(42, StateGrantAmount, int64(7))
	st := svc.GetState(42)
	require.NotNil(t, st)
	require.Equal(t, int64(7), st.Data)
}

func TestGrantAndTakeCoins(t *testing.T) {
	svc, acctSvc := newService(t)
	ctx := context.Background()

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "u@example.com", Name: "U",
	})
	require.NoError(t, err)

	require.NoError(t, svc.GrantCoins(ctx, acct.ID, 300))
	got, _ := acctSvc.GetByID(ctx, acct.ID)
	require.Equal(t, int64(300), got.Coins)

	require.NoError(t, svc.TakeCoins(ctx, acct.ID, 100))
	got, _ = acctSvc.GetByID(ctx, acct.ID)
	require.Equal(t, int64(200), got.Coins)
}

func TestChangeRoleValidates(t *testing.T) {
	svc, acctSvc := newService(t)
	ctx := context.Background()

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "r@example.com", Name: "R",
	})
	require.NoError(t, err)

	require.Error(t, svc.ChangeRole(ctx, acct.ID, "superuser"))

	require.NoError(t, svc.ChangeRole(ctx, acct.ID, accounts.RoleAdvertiser))
	got, _ := acctSvc.GetByID(ctx, acct.ID)
	require.Equal(t, accounts.RoleAdvertiser, got.Role)
}

func TestToggleBan(t *testing.T) {
	svc, acctSvc := newService(t)
	ctx := context.Background()

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "b@example.com", Name: "B",
	})
	require.NoError(t, err)

	banned, err := svc.ToggleBan(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, banned)

	banned, err = svc.ToggleBan(ctx, acct.ID)
	require.NoError(t, err)
	require.False(t, banned)
}

func TestVerifyArgon2idFormat(t *testing.T) {
	// Хеш пароля "secret", сгенерированный scripts/generate_hash.go
	require.False(t, verifyArgon2id("secret", "не-хеш"))
	require.False(t, verifyArgon2id("secret", "$argon2id$v=19$m=65536,t=3,p=2$AAAA$BBBB"))
}
