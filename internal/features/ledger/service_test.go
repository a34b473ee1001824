package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/testutil"
)

type fixture struct {
	svc      *ledger.Service
	accounts *accounts.Service
	store    *testutil.MemLedger
	acctID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	acctStore := testutil.NewMemAccounts()
	acctSvc := accounts.NewService(acctStore)
	ledgerStore := testutil.NewMemLedger(acctStore)

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "worker@example.com",
		Name:  "Worker",
	})
	require.NoError(t, err)

	return &fixture{
		svc:      ledger.NewService(ledgerStore),
		accounts: acctSvc,
		store:    ledgerStore,
		acctID:   acct.ID,
	}
}

func (f *fixture) balance(t *testing.T) (int64, decimal.Decimal) {
	t.Helper()
	acct, err := f.accounts.GetByID(context.Background(), f.acctID)
	require.NoError(t, err)
	return acct.Coins, acct.Balance
}

func TestAppendDefaultsToCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeBonus,
		Amount: decimal.RequireFromString("0.05"),
	}
	require.NoError(t, f.svc.Append(ctx, tx))
	require.Equal(t, ledger.StatusCompleted, tx.Status)
}

func TestAppendRejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Append(context.Background(), &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeEarning,
		Amount: decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestGrantCreditsAndJournals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Grant(ctx, f.acctID, "Worker", 50, ledger.TypeEarning, ""))

	coins, balance := f.balance(t)
	require.Equal(t, int64(50), coins)
	require.True(t, balance.Equal(decimal.RequireFromString("0.05")))

	history, err := f.svc.HistoryFor(ctx, f.acctID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, ledger.TypeEarning, history[0].Type)
	require.Equal(t, ledger.StatusCompleted, history[0].Status)
}

func TestGrantUnknownAccountLeavesNoJournalEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Grant(ctx, 999, "Ghost", 50, ledger.TypeEarning, "")
	require.ErrorIs(t, err, common.ErrAccountNotFound)

	// Начисление не прошло — записи в журнале быть не должно
	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestGrantDailyBonusCreditsAndMarksDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.GrantDailyBonus(ctx, f.acctID, "Worker", 50, day, 4))

	coins, _ := f.balance(t)
	require.Equal(t, int64(50), coins)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.NotNil(t, acct.LastBonusDate)
	require.True(t, acct.LastBonusDate.Equal(day))
	require.Equal(t, 4, acct.LoginStreak)

	history, err := f.svc.HistoryFor(ctx, f.acctID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, ledger.TypeBonus, history[0].Type)
}

func TestRecordSpinZeroWinOnlyMovesCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecordSpin(ctx, f.acctID, "Worker", 0, day, 1))

	coins, _ := f.balance(t)
	require.Equal(t, int64(0), coins)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, 1, acct.SpinsToday)

	history, err := f.svc.HistoryFor(ctx, f.acctID, 0)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestSetStatusDepositCompletedCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeDeposit,
		Amount: decimal.NewFromInt(10),
		Status: ledger.StatusPending,
	}
	require.NoError(t, f.svc.Append(ctx, tx))

	require.NoError(t, f.svc.SetStatus(ctx, tx.ID, ledger.StatusCompleted))

	coins, balance := f.balance(t)
	require.Equal(t, int64(10000), coins)
	require.True(t, balance.Equal(decimal.NewFromInt(10)))
}

func TestSetStatusDepositRejectedNoCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeDeposit,
		Amount: decimal.NewFromInt(10),
		Status: ledger.StatusPending,
	}
	require.NoError(t, f.svc.Append(ctx, tx))
	require.NoError(t, f.svc.SetStatus(ctx, tx.ID, ledger.StatusRejected))

	coins, balance := f.balance(t)
	require.Equal(t, int64(0), coins)
	require.True(t, balance.IsZero())
}

func TestSetStatusWithdrawalRejectedRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Удержание при запросе вывода
	require.NoError(t, f.svc.Grant(ctx, f.acctID, "Worker", 5000, ledger.TypeEarning, ""))
	require.NoError(t, f.accounts.DebitBalance(ctx, f.acctID, decimal.NewFromInt(5)))

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeWithdrawal,
		Amount: decimal.NewFromInt(5),
		Status: ledger.StatusPending,
		Method: "JazzCash",
	}
	require.NoError(t, f.svc.Append(ctx, tx))

	require.NoError(t, f.svc.SetStatus(ctx, tx.ID, ledger.StatusRejected))

	// Отклонённый вывод возвращает удержанное
	coins, balance := f.balance(t)
	require.Equal(t, int64(5000), coins)
	require.True(t, balance.Equal(decimal.NewFromInt(5)))
}

func TestSetStatusWithdrawalCompletedKeepsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Grant(ctx, f.acctID, "Worker", 5000, ledger.TypeEarning, ""))
	require.NoError(t, f.accounts.DebitBalance(ctx, f.acctID, decimal.NewFromInt(5)))

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeWithdrawal,
		Amount: decimal.NewFromInt(5),
		Status: ledger.StatusPending,
	}
	require.NoError(t, f.svc.Append(ctx, tx))
	require.NoError(t, f.svc.SetStatus(ctx, tx.ID, ledger.StatusCompleted))

	coins, balance := f.balance(t)
	require.Equal(t, int64(0), coins)
	require.True(t, balance.IsZero())
}

func TestSetStatusIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := &ledger.Transaction{
		UserID: f.acctID,
		Type:   ledger.TypeDeposit,
		Amount: decimal.NewFromInt(3),
		Status: ledger.StatusPending,
	}
	require.NoError(t, f.svc.Append(ctx, tx))
	require.NoError(t, f.svc.SetStatus(ctx, tx.ID, ledger.StatusCompleted))

	// Повторное решение не проходит и не двигает деньги
	err := f.svc.SetStatus(ctx, tx.ID, ledger.StatusRejected)
	require.ErrorIs(t, err, common.ErrAlreadyFinalized)

	coins, _ := f.balance(t)
	require.Equal(t, int64(3000), coins)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetStatus(context.Background(), 1, "frozen")
	require.ErrorIs(t, err, common.ErrInvalidStatus)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Grant(ctx, f.acctID, "Worker", 100, ledger.TypeEarning, ""))

	dep := &ledger.Transaction{UserID: f.acctID, Type: ledger.TypeDeposit,
		Amount: decimal.NewFromInt(20), Status: ledger.StatusPending}
	require.NoError(t, f.svc.Append(ctx, dep))
	require.NoError(t, f.svc.SetStatus(ctx, dep.ID, ledger.StatusCompleted))

	wd := &ledger.Transaction{UserID: f.acctID, Type: ledger.TypeWithdrawal,
		Amount: decimal.NewFromInt(2), Status: ledger.StatusPending}
	require.NoError(t, f.svc.Append(ctx, wd))

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.True(t, st.TotalDeposited.Equal(decimal.NewFromInt(20)))
	require.True(t, st.TotalEarned.Equal(decimal.RequireFromString("0.1")))
	require.True(t, st.TotalWithdrawn.IsZero())
	require.Equal(t, int64(1), st.PendingCount)
}
