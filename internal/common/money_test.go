package common_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
)

func TestCoinsToMoney(t *testing.T) {
	cases := []struct {
		coins int64
		want  string
	}{
		{0, "0"},
		{50, "0.05"},
		{1000, "1"},
		{2500, "2.5"},
		{123456, "123.456"},
	}
	for _, tc := range cases {
		got := common.CoinsToMoney(tc.coins)
		require.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"%d монет: %s", tc.coins, got)
	}
}

func TestMoneyToCoinsFloors(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"1", 1000},
		{"2.5", 2500},
		{"1.2345", 1234}, // вниз, не к ближайшему
		{"0.0009", 0},
	}
	for _, tc := range cases {
		got := common.MoneyToCoins(decimal.RequireFromString(tc.amount))
		require.Equal(t, tc.want, got, "сумма %s", tc.amount)
	}
}

func TestRoundTripIsExactForCoins(t *testing.T) {
	for _, coins := range []int64{0, 1, 49, 999, 1000, 123456789} {
		require.Equal(t, coins, common.MoneyToCoins(common.CoinsToMoney(coins)))
	}
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$3.50", common.FormatMoney(decimal.RequireFromString("3.5")))
	require.Equal(t, "$0.05", common.FormatMoney(decimal.RequireFromString("0.05")))
}

func TestSameDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Karachi")
	require.NoError(t, err)

	require.False(t, common.SameDay(nil, time.Now(), loc))

	morning := time.Date(2026, 3, 10, 1, 0, 0, 0, loc)
	evening := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)
	require.True(t, common.SameDay(&morning, evening, loc))

	nextDay := time.Date(2026, 3, 11, 0, 30, 0, 0, loc)
	require.False(t, common.SameDay(&evening, nextDay, loc))

	// 22:00 UTC — это уже 03:00 следующего дня по Карачи
	utcEvening := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	localNext := time.Date(2026, 3, 11, 8, 0, 0, 0, loc)
	require.True(t, common.SameDay(&utcEvening, localNext, loc))
}

func TestPluralizeCoins(t *testing.T) {
	cases := map[int64]string{
		0:   "монет",
		1:   "монета",
		2:   "монеты",
		5:   "монет",
		11:  "монет",
		12:  "монет",
		21:  "монета",
		24:  "монеты",
		111: "монет",
	}
	for n, want := range cases {
		require.Equal(t, want, common.PluralizeCoins(n), "n=%d", n)
	}
}

func TestPluralizeDays(t *testing.T) {
	require.Equal(t, "день", common.PluralizeDays(1))
	require.Equal(t, "дня", common.PluralizeDays(3))
	require.Equal(t, "дней", common.PluralizeDays(14))
	require.Equal(t, "день", common.PluralizeDays(21))
}
