package accounts_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/testutil"
)

func newService() (*accounts.Service, *testutil.MemAccounts) {
	store := testutil.NewMemAccounts()
	return accounts.NewService(store), store
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	acct, inviter, err := svc.Register(ctx, accounts.RegisterParams{
		Email: "  Alice@Example.COM ",
		Name:  "Alice",
	})
	require.NoError(t, err)
	require.Nil(t, inviter)
	require.Equal(t, "alice@example.com", acct.Email)
	require.Equal(t, accounts.RoleUser, acct.Role)
	require.True(t, strings.HasPrefix(acct.ReferralCode, "REF"))
	require.Len(t, acct.ReferralCode, 8)
	require.True(t, acct.Balance.IsZero())
}

func TestRegisterEmailTaken(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, accounts.RegisterParams{Email: "BOB@example.com", Name: "Bob 2"})
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegisterWithReferralCode(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	inviterAcct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "inviter@example.com", Name: "Inviter"})
	require.NoError(t, err)

	acct, inviter, err := svc.Register(ctx, accounts.RegisterParams{
		Email:        "invited@example.com",
		Name:         "Invited",
		ReferralCode: inviterAcct.ReferralCode,
	})
	require.NoError(t, err)
	require.NotNil(t, inviter)
	require.Equal(t, inviterAcct.ID, inviter.ID)
	require.NotEqual(t, acct.ID, inviter.ID)

	stored, err := store.GetByID(ctx, inviterAcct.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.ReferralCount)
}

func TestRegisterUnknownReferralCodeIsIgnored(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	acct, inviter, err := svc.Register(ctx, accounts.RegisterParams{
		Email:        "carol@example.com",
		Name:         "Carol",
		ReferralCode: "REF99999",
	})
	require.NoError(t, err)
	require.NotNil(t, acct)
	require.Nil(t, inviter)
}

func TestEnsureForTelegram(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	acct, inviter, created, err := svc.EnsureForTelegram(ctx, 777, "Dave", "")
	require.NoError(t, err)
	require.True(t, created)
	require.Nil(t, inviter)
	require.Equal(t, "tg777@users.adspredia.site", acct.Email)
	require.NotNil(t, acct.TelegramID)
	require.Equal(t, int64(777), *acct.TelegramID)

	// Повторный вызов возвращает тот же аккаунт
	again, _, created, err := svc.EnsureForTelegram(ctx, 777, "Dave", "")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, acct.ID, again.ID)
}

func TestCreditCoinsAndBalanceKeepsRatio(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	acct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "w@example.com", Name: "W"})
	require.NoError(t, err)

	require.NoError(t, svc.CreditCoinsAndBalance(ctx, acct.ID, 2500))

	stored, err := store.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2500), stored.Coins)
	require.True(t, stored.Balance.Equal(decimal.RequireFromString("2.5")),
		"баланс: %s", stored.Balance)
}

func TestDebitClampsAtZero(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	acct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "x@example.com", Name: "X"})
	require.NoError(t, err)
	require.NoError(t, svc.CreditCoinsAndBalance(ctx, acct.ID, 1000))

	// Изъятие больше остатка прижимает обе величины к нулю
	require.NoError(t, svc.CreditCoinsAndBalance(ctx, acct.ID, -5000))

	stored, err := store.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), stored.Coins)
	require.True(t, stored.Balance.IsZero())
}

func TestDebitBalanceRejectsNonPositive(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	acct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "y@example.com", Name: "Y"})
	require.NoError(t, err)

	err = svc.DebitBalance(ctx, acct.ID, decimal.Zero)
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	err = svc.DebitBalance(ctx, acct.ID, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestSetMoneyEnforcesRatio(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	acct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "z@example.com", Name: "Z"})
	require.NoError(t, err)

	// 5000 монет должны соответствовать ровно $5
	err = svc.SetMoney(ctx, acct.ID, 5000, decimal.NewFromInt(7))
	require.ErrorIs(t, err, common.ErrRatioViolated)

	require.NoError(t, svc.SetMoney(ctx, acct.ID, 5000, decimal.NewFromInt(5)))

	stored, err := store.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), stored.Coins)
	require.True(t, stored.Balance.Equal(decimal.NewFromInt(5)))
}

func TestSetMoneyRejectsNegative(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	acct, _, err := svc.Register(ctx, accounts.RegisterParams{Email: "n@example.com", Name: "N"})
	require.NoError(t, err)

	err = svc.SetMoney(ctx, acct.ID, -10, decimal.Zero)
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}
