package submissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/testutil"
)

type stubVerifier struct {
	verdict string
	err     error
	calls   int
}

func (v *stubVerifier) Verify(ctx context.Context, title string, instructions []string, proofText, imageMime, imageB64 string) (string, error) {
	v.calls++
	return v.verdict, v.err
}

type fixture struct {
	svc      *submissions.Service
	tasks    *tasks.Service
	accounts *accounts.Service
	ledger   *ledger.Service
	worker   *accounts.Account
	task     *tasks.Task
}

func newFixture(t *testing.T, autoApprove bool, verifier submissions.Verifier) *fixture {
	t.Helper()
	ctx := context.Background()

	acctStore := testutil.NewMemAccounts()
	taskStore := testutil.NewMemTasks()
	ledgerStore := testutil.NewMemLedger(acctStore)
	subStore := testutil.NewMemSubmissions(taskStore, acctStore, ledgerStore)

	acctSvc := accounts.NewService(acctStore)
	taskSvc := tasks.NewService(taskStore)
	ledgerSvc := ledger.NewService(ledgerStore)
	subSvc := submissions.NewService(subStore, taskSvc, acctSvc, verifier)

	worker, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "worker@example.com", Name: "Worker",
	})
	require.NoError(t, err)

	advertiser, _, err := acctSvc.Register(ctx, accounts.RegisterParams{
		Email: "adv@example.com", Name: "Advertiser", Role: accounts.RoleAdvertiser,
	})
	require.NoError(t, err)

	task, err := taskSvc.Create(ctx, tasks.CreateParams{
		Title:           "Подписаться на канал",
		Category:        "YouTube",
		RewardCoins:     50,
		Instructions:    []string{"Открыть канал", "Нажать Subscribe"},
		CreatorID:       advertiser.ID,
		CompletionLimit: 2,
		AutoApprove:     autoApprove,
	})
	require.NoError(t, err)

	return &fixture{
		svc:      subSvc,
		tasks:    taskSvc,
		accounts: acctSvc,
		ledger:   ledgerSvc,
		worker:   worker,
		task:     task,
	}
}

func TestSubmitCreatesPending(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID:    f.task.ID,
		WorkerID:  f.worker.ID,
		ProofText: "скриншот подписки",
	})
	require.NoError(t, err)
	require.Equal(t, submissions.StatusPending, sub.Status)
	require.Equal(t, f.task.RewardCoins, sub.RewardCoins)
	require.Equal(t, "Worker", sub.WorkerName)

	// Выплаты до решения нет
	acct, err := f.accounts.GetByID(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), acct.Coins)
}

func TestSubmitDuplicateClaim(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, submissions.SubmitParams{TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, submissions.SubmitParams{TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p2"})
	require.ErrorIs(t, err, common.ErrAlreadyClaimed)
}

func TestSubmitClosedTask(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	require.NoError(t, f.tasks.Pause(ctx, f.task.ID))

	_, err := f.svc.Submit(ctx, submissions.SubmitParams{TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p"})
	require.ErrorIs(t, err, common.ErrTaskUnavailable)
}

func TestSubmitAutoApprovePaysImmediately(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "done",
	})
	require.NoError(t, err)
	require.Equal(t, submissions.StatusApproved, sub.Status)

	acct, err := f.accounts.GetByID(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), acct.Coins)
	require.True(t, acct.Balance.Equal(decimal.RequireFromString("0.05")))

	task, err := f.tasks.GetByID(ctx, f.task.ID)
	require.NoError(t, err)
	require.Equal(t, 1, task.Completions)
}

func TestSubmitOracleVerdictAttached(t *testing.T) {
	verifier := &stubVerifier{verdict: "APPROVE — proof matches instructions."}
	f := newFixture(t, false, verifier)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "done",
	})
	require.NoError(t, err)
	require.Equal(t, 1, verifier.calls)
	require.Equal(t, verifier.verdict, sub.Verdict)

	// Рекомендация совещательная — заявка остаётся pending
	require.Equal(t, submissions.StatusPending, sub.Status)
}

func TestSubmitOracleFailureIsNotFatal(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("timeout")}
	f := newFixture(t, false, verifier)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "done",
	})
	require.NoError(t, err)
	require.Equal(t, submissions.StatusPending, sub.Status)
	require.Equal(t, "AI verification failed.", sub.Verdict)
}

func TestApprovePaysOnce(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Approve(ctx, sub.ID))

	// Повторное одобрение не проходит и не платит второй раз
	err = f.svc.Approve(ctx, sub.ID)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)

	acct, err := f.accounts.GetByID(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), acct.Coins)

	history, err := f.ledger.HistoryFor(ctx, f.worker.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestApproveMissingWorker(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p",
	})
	require.NoError(t, err)

	require.NoError(t, f.accounts.Delete(ctx, "worker@example.com"))

	err = f.svc.Approve(ctx, sub.ID)
	require.ErrorIs(t, err, common.ErrWorkerNotFound)

	// Заявка осталась pending — решение можно принять позже
	got, err := f.svc.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.True(t, got.IsPending())

	// Ни записи в журнале, ни засчитанного выполнения
	all, err := f.ledger.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	task, err := f.tasks.GetByID(ctx, f.task.ID)
	require.NoError(t, err)
	require.Equal(t, 0, task.Completions)
}

func TestTaskDeleteKeepsSubmissions(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p",
	})
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, f.task.ID))
	_, err = f.tasks.GetByID(ctx, f.task.ID)
	require.ErrorIs(t, err, common.ErrTaskNotFound)

	// Заявка пережила удаление задания и осталась действительной
	got, err := f.svc.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.True(t, got.IsPending())

	history, err := f.svc.ListByWorker(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	// Одобрение проходит и платит, счётчика выполнений уже нет
	require.NoError(t, f.svc.Approve(ctx, sub.ID))

	acct, err := f.accounts.GetByID(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), acct.Coins)
}

func TestRejectNoPayout(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, submissions.SubmitParams{
		TaskID: f.task.ID, WorkerID: f.worker.ID, ProofText: "p",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Reject(ctx, sub.ID))

	err = f.svc.Approve(ctx, sub.ID)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)

	acct, err := f.accounts.GetByID(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), acct.Coins)

	task, err := f.tasks.GetByID(ctx, f.task.ID)
	require.NoError(t, err)
	require.Equal(t, 0, task.Completions)
}
