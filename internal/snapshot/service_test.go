package snapshot_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/snapshot"
	"adspredia.site/platform-bot/internal/testutil"
)

func TestExportImportRoundTrip(t *testing.T) {
	store := testutil.NewMemSnapshots()
	svc := snapshot.NewService(store)
	ctx := context.Background()

	state := &snapshot.Snapshot{
		Accounts: map[string]*accounts.Account{
			"worker@example.com": {
				ID:           1,
				Email:        "worker@example.com",
				Name:         "Worker",
				Role:         accounts.RoleUser,
				Coins:        2500,
				Balance:      decimal.RequireFromString("2.5"),
				ReferralCode: "REF00001",
			},
		},
		Tasks: []*tasks.Task{
			{ID: 1, Title: "Подписаться", Category: "YouTube", RewardCoins: 50,
				Status: tasks.StatusAvailable, CreatorID: 2, CompletionLimit: 10},
		},
		Branding: &snapshot.Branding{SiteName: "AdsPredia", LogoURL: "https://cdn/logo.png"},
	}
	require.NoError(t, store.Restore(ctx, state))

	data, err := svc.Export(ctx)
	require.NoError(t, err)

	fresh := testutil.NewMemSnapshots()
	freshSvc := snapshot.NewService(fresh)
	require.NoError(t, freshSvc.Import(ctx, data))

	restored, err := fresh.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, restored.Accounts, 1)
	acct := restored.Accounts["worker@example.com"]
	require.NotNil(t, acct)
	require.Equal(t, int64(2500), acct.Coins)
	require.True(t, acct.Balance.Equal(decimal.RequireFromString("2.5")))
	require.Len(t, restored.Tasks, 1)
	require.Equal(t, "Подписаться", restored.Tasks[0].Title)
	require.Equal(t, "https://cdn/logo.png", restored.Branding.LogoURL)
}

func TestImportPartialDocument(t *testing.T) {
	store := testutil.NewMemSnapshots()
	svc := snapshot.NewService(store)
	ctx := context.Background()

	// Документ только с пользователями — остальное дефолтное
	require.NoError(t, svc.Import(ctx, []byte(`{"users":{}}`)))

	restored, err := store.Dump(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored.Tasks)
	require.Empty(t, restored.Tasks)
	require.NotNil(t, restored.Branding)
	require.Equal(t, "AdsPredia", restored.Branding.SiteName)
}

func TestImportInvalidJSON(t *testing.T) {
	svc := snapshot.NewService(testutil.NewMemSnapshots())
	err := svc.Import(context.Background(), []byte("{not json"))
	require.Error(t, err)
}

func TestExportUsesStableKeys(t *testing.T) {
	store := testutil.NewMemSnapshots()
	svc := snapshot.NewService(store)
	ctx := context.Background()

	data, err := svc.Export(ctx)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"users", "tasks", "submissions", "transactions", "branding"} {
		require.Contains(t, doc, key)
	}
}

func TestNormalizeFillsNils(t *testing.T) {
	var snap snapshot.Snapshot
	snap.Normalize()

	require.NotNil(t, snap.Accounts)
	require.NotNil(t, snap.Tasks)
	require.NotNil(t, snap.Submissions)
	require.NotNil(t, snap.Transactions)
	require.NotNil(t, snap.Branding)
	require.Equal(t, "AdsPredia", snap.Branding.SiteName)
}
