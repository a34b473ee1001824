package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/testutil"
)

func newCatalog(t *testing.T) (*tasks.Service, *tasks.Task) {
	t.Helper()
	svc := tasks.NewService(testutil.NewMemTasks())
	task, err := svc.Create(context.Background(), tasks.CreateParams{
		Title:           "Подписаться на канал",
		Category:        "YouTube",
		RewardCoins:     50,
		CreatorID:       1,
		CompletionLimit: 2,
	})
	require.NoError(t, err)
	return svc, task
}

func TestCreateValidation(t *testing.T) {
	svc := tasks.NewService(testutil.NewMemTasks())
	ctx := context.Background()

	_, err := svc.Create(ctx, tasks.CreateParams{Title: "", RewardCoins: 10, CompletionLimit: 1})
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, tasks.CreateParams{Title: "X", RewardCoins: 0, CompletionLimit: 1})
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, tasks.CreateParams{Title: "X", RewardCoins: 10, CompletionLimit: 0})
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestCreateStartsAvailable(t *testing.T) {
	_, task := newCatalog(t)
	require.Equal(t, tasks.StatusAvailable, task.Status)
	require.True(t, task.IsOpen())
}

func TestRecordCompletionReachesLimit(t *testing.T) {
	svc, task := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordCompletion(ctx, task.ID))

	got, err := svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Completions)
	require.True(t, got.IsOpen())

	// Второе выполнение достигает лимита и закрывает задание
	require.NoError(t, svc.RecordCompletion(ctx, task.ID))

	got, err = svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Completions)
	require.Equal(t, tasks.StatusCompleted, got.Status)
	require.False(t, got.IsOpen())
}

func TestRecordCompletionSaturates(t *testing.T) {
	svc, task := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordCompletion(ctx, task.ID))
	require.NoError(t, svc.RecordCompletion(ctx, task.ID))

	// Счётчик на лимите не двигается, ошибки нет
	require.NoError(t, svc.RecordCompletion(ctx, task.ID))

	got, err := svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Completions)
}

func TestPauseResumeRemove(t *testing.T) {
	svc, task := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.Pause(ctx, task.ID))
	got, _ := svc.GetByID(ctx, task.ID)
	require.Equal(t, tasks.StatusPaused, got.Status)
	require.False(t, got.IsOpen())

	require.NoError(t, svc.Resume(ctx, task.ID))
	got, _ = svc.GetByID(ctx, task.ID)
	require.Equal(t, tasks.StatusAvailable, got.Status)

	require.NoError(t, svc.Remove(ctx, task.ID))
	got, _ = svc.GetByID(ctx, task.ID)
	require.Equal(t, tasks.StatusRemoved, got.Status)
}

func TestListAvailableFiltersClosed(t *testing.T) {
	svc, task := newCatalog(t)
	ctx := context.Background()

	other, err := svc.Create(ctx, tasks.CreateParams{
		Title:           "Посетить сайт",
		Category:        "Website Visit",
		RewardCoins:     20,
		CreatorID:       1,
		CompletionLimit: 5,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Pause(ctx, task.ID))

	list, err := svc.ListAvailable(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, other.ID, list[0].ID)

	// Фильтр по категории
	list, err = svc.ListAvailable(ctx, "YouTube")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := tasks.NewService(testutil.NewMemTasks())
	_, err := svc.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, common.ErrTaskNotFound)
}
