package daily

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/testutil"
)

// Тесты внутри пакета — подменяют s.now для контроля календарного дня.

type fixture struct {
	svc      *Service
	accounts *accounts.Service
	acctID   int64
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	acctStore := testutil.NewMemAccounts()
	acctSvc := accounts.NewService(acctStore)
	ledgerSvc := ledger.NewService(testutil.NewMemLedger(acctStore))

	acct, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "player@example.com", Name: "Player",
	})
	require.NoError(t, err)

	f := &fixture{
		accounts: acctSvc,
		acctID:   acct.ID,
		clock:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(acctSvc, ledgerSvc, time.UTC, 50, 3)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) nextDay() {
	f.clock = f.clock.AddDate(0, 0, 1)
}

// brokenLedger отклоняет любые начисления — так ведёт себя сервис
// при недоступной базе.
type brokenLedger struct{}

func (brokenLedger) GrantDailyBonus(ctx context.Context, accountID int64, accountName string, coins int64, day time.Time, streak int) error {
	return errors.New("журнал недоступен")
}

func (brokenLedger) RecordSpin(ctx context.Context, accountID int64, accountName string, win int64, day time.Time, spins int) error {
	return errors.New("журнал недоступен")
}

// withBrokenLedger возвращает копию сервиса с тем же хранилищем
// аккаунтов, но с отказывающим журналом.
func (f *fixture) withBrokenLedger() *Service {
	svc := NewService(f.svc.accounts, brokenLedger{}, time.UTC, 50, 3)
	svc.now = f.svc.now
	return svc
}

func TestClaimBonusOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ClaimBonus(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(50), res.Coins)
	require.Equal(t, 1, res.Streak)

	_, err = f.svc.ClaimBonus(ctx, f.acctID)
	require.ErrorIs(t, err, common.ErrAlreadyClaimed)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(50), acct.Coins)
}

func TestClaimBonusFailedGrantDoesNotBurnDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.withBrokenLedger().ClaimBonus(ctx, f.acctID)
	require.Error(t, err)
	require.NotErrorIs(t, err, common.ErrAlreadyClaimed)

	// Неудачная выдача ничего не меняет: ни денег, ни отметки дня
	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(0), acct.Coins)
	require.Nil(t, acct.LastBonusDate)
	require.Equal(t, 0, acct.LoginStreak)

	// Повторная попытка в тот же день проходит
	res, err := f.svc.ClaimBonus(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(50), res.Coins)
	require.Equal(t, 1, res.Streak)
}

func TestSpinFailedGrantDoesNotBurnSpin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.withBrokenLedger().Spin(ctx, f.acctID, 60)
	require.Error(t, err)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(0), acct.Coins)
	require.Equal(t, 0, acct.SpinsToday)

	// Вращение не потрачено — лимит позволяет все три
	for i := 0; i < 3; i++ {
		_, err := f.svc.Spin(ctx, f.acctID, 0)
		require.NoError(t, err)
	}
}

func TestClaimBonusStreakGrows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ClaimBonus(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Streak)

	f.nextDay()
	res, err = f.svc.ClaimBonus(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Streak)

	// Пропуск дня серию не обнуляет
	f.nextDay()
	f.nextDay()
	res, err = f.svc.ClaimBonus(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, 3, res.Streak)
}

func TestSpinLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := f.svc.Spin(ctx, f.acctID, 0)
		require.NoError(t, err)
		require.Equal(t, 2-i, res.SpinsLeft)
	}

	_, err := f.svc.Spin(ctx, f.acctID, 10)
	require.ErrorIs(t, err, common.ErrSpinLimitReached)
}

func TestSpinCounterResetsNextDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Spin(ctx, f.acctID, 0)
		require.NoError(t, err)
	}
	_, err := f.svc.Spin(ctx, f.acctID, 0)
	require.ErrorIs(t, err, common.ErrSpinLimitReached)

	f.nextDay()
	res, err := f.svc.Spin(ctx, f.acctID, 0)
	require.NoError(t, err)
	require.Equal(t, 2, res.SpinsLeft)
}

func TestSpinWinIsCredited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Spin(ctx, f.acctID, 60)
	require.NoError(t, err)
	require.Equal(t, int64(60), res.Win)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(60), acct.Coins)
}

func TestSpinZeroWinNotCredited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Spin(ctx, f.acctID, 0)
	require.NoError(t, err)

	acct, err := f.accounts.GetByID(ctx, f.acctID)
	require.NoError(t, err)
	require.Equal(t, int64(0), acct.Coins)
}
