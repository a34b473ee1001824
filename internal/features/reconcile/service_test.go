package reconcile_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/reconcile"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/testutil"
)

type fixture struct {
	svc      *reconcile.Service
	accounts *accounts.Service
	ledger   *ledger.Service
	acctID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	acctStore := testutil.NewMemAccounts()
	acctSvc := accounts.NewService(acctStore)
	ledgerSvc := ledger.NewService(testutil.NewMemLedger(acctStore))
	taskSvc := tasks.NewService(testutil.NewMemTasks())

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "worker@example.com", Name: "Worker",
	})
	require.NoError(t, err)

	// Заработок исполнителя: 10000 монет = $10
	require.NoError(t, ledgerSvc.Grant(ctx, acct.ID, acct.Name, 10000, ledger.TypeEarning, ""))

	return &fixture{
		svc:      reconcile.NewService(acctSvc, ledgerSvc, taskSvc, decimal.NewFromInt(3)),
		accounts: acctSvc,
		ledger:   ledgerSvc,
		acctID:   acct.ID,
	}
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	acct, err := f.accounts.GetByID(context.Background(), f.acctID)
	require.NoError(t, err)
	return acct.Balance
}

func TestRequestWithdrawalHoldsFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.RequestWithdrawal(ctx, f.acctID, decimal.NewFromInt(5), "JazzCash", "0300-1234567", "Worker")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPending, tx.Status)
	require.Equal(t, ledger.TypeWithdrawal, tx.Type)

	// Сумма удержана сразу при подаче
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(5)))
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestWithdrawal(context.Background(), f.acctID,
		decimal.RequireFromString("2.99"), "Payeer", "P1", "Worker")
	require.ErrorIs(t, err, common.ErrAmountBelowMinimum)
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestWithdrawal(context.Background(), f.acctID,
		decimal.NewFromInt(50), "USDT", "T1", "Worker")
	require.ErrorIs(t, err, common.ErrInsufficientBalance)

	// Ничего не удержано
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(10)))
}

func TestRequestWithdrawalRejectsNonPositive(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestWithdrawal(context.Background(), f.acctID,
		decimal.Zero, "USDT", "T1", "Worker")
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestResolveWithdrawalRejectRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.RequestWithdrawal(ctx, f.acctID, decimal.NewFromInt(5), "JazzCash", "0300", "Worker")
	require.NoError(t, err)

	require.NoError(t, f.svc.Resolve(ctx, tx.ID, false))

	// Отклонение возвращает удержанное
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(10)))
}

func TestResolveWithdrawalApproveKeepsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.RequestWithdrawal(ctx, f.acctID, decimal.NewFromInt(5), "JazzCash", "0300", "Worker")
	require.NoError(t, err)

	require.NoError(t, f.svc.Resolve(ctx, tx.ID, true))

	require.True(t, f.balance(t).Equal(decimal.NewFromInt(5)))

	// Повторное решение по закрытой транзакции не проходит
	err = f.svc.Resolve(ctx, tx.ID, false)
	require.ErrorIs(t, err, common.ErrAlreadyFinalized)
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(5)))
}

func TestRequestDepositDoesNotCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.RequestDeposit(ctx, f.acctID, decimal.NewFromInt(20), "EasyPaisa")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPending, tx.Status)

	// Деньги приходят только после подтверждения
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(10)))

	require.NoError(t, f.svc.Resolve(ctx, tx.ID, true))
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(30)))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestWithdrawal(ctx, f.acctID, decimal.NewFromInt(4), "USDT", "T1", "Worker")
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Accounts)
	require.Equal(t, int64(0), st.Tasks)
	require.Equal(t, int64(1), st.Ledger.PendingCount)
	require.True(t, st.Ledger.TotalEarned.Equal(decimal.NewFromInt(10)))
}
