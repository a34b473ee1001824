// Package submissions — service.go содержит бизнес-логику модерации заявок.
// Одобрение атомарно: статус, выплата и счётчик выполнений задания
// меняются одной транзакцией БД, выплата по одной заявке происходит
// не более одного раза.
package submissions

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/tasks"
)

// Store — операции хранилища заявок, которые нужны сервису.
// ApproveAndPay делает одобрение с выплатой одной транзакцией БД.
type Store interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id int64) (*Submission, error)
	ApproveAndPay(ctx context.Context, id int64) error
	MarkProcessed(ctx context.Context, id int64, status string) error
	AttachVerdict(ctx context.Context, id int64, verdict string) error
	ListByWorker(ctx context.Context, workerID int64) ([]*Submission, error)
	ListPendingForCreator(ctx context.Context, creatorID int64) ([]*Submission, error)
	HasPendingOrApproved(ctx context.Context, taskID, workerID int64) (bool, error)
	RejectStale(ctx context.Context, olderThanDays int) ([]int64, error)
	ListAll(ctx context.Context) ([]*Submission, error)
}

// Tasks — операции каталога, которые нужны модерации.
// Реализуется tasks.Service.
type Tasks interface {
	GetByID(ctx context.Context, id int64) (*tasks.Task, error)
}

// Workers — доступ к аккаунтам исполнителей. Реализуется accounts.Service.
type Workers interface {
	GetByID(ctx context.Context, id int64) (*accounts.Account, error)
}

// Verifier — совещательный оракул: смотрит на доказательство и
// возвращает текстовую рекомендацию. Реализуется oracle.Client.
type Verifier interface {
	Verify(ctx context.Context, title string, instructions []string, proofText, imageMime, imageB64 string) (string, error)
}

// Service управляет жизненным циклом заявок.
type Service struct {
	store    Store
	tasks    Tasks
	workers  Workers
	verifier Verifier // nil — оракул выключен
}

// NewService создаёт сервис заявок. verifier может быть nil.
func NewService(store Store, tasks Tasks, workers Workers, verifier Verifier) *Service {
	return &Service{store: store, tasks: tasks, workers: workers, verifier: verifier}
}

// Submit подаёт заявку на выполнение задания.
//
// Для задания с авто-одобрением заявка проходит полный цикл сразу:
// одобрение, выплата, счётчик выполнений. Иначе заявка остаётся
// pending, а оракул (если подключён) записывает рекомендацию —
// ошибка оракула подачу не ломает.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*Submission, error) {
	task, err := s.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOpen() {
		return nil, common.ErrTaskUnavailable
	}

	worker, err := s.workers.GetByID(ctx, p.WorkerID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.store.HasPendingOrApproved(ctx, p.TaskID, p.WorkerID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, common.ErrAlreadyClaimed
	}

	sub := &Submission{
		TaskID:         task.ID,
		WorkerID:       p.WorkerID,
		WorkerName:     worker.Name,
		ProofText:      strings.TrimSpace(p.ProofText),
		ProofImageMime: p.ProofImageMime,
		ProofImageB64:  p.ProofImageB64,
		Status:         StatusPending,
		RewardCoins:    task.RewardCoins,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"submission_id": sub.ID,
		"task_id":       task.ID,
		"worker_id":     p.WorkerID,
	}).Info("Подана заявка на задание")

	if task.AutoApprove {
		if err := s.Approve(ctx, sub.ID); err != nil {
			return nil, err
		}
		sub.Status = StatusApproved
		return sub, nil
	}

	if s.verifier != nil {
		verdict, err := s.verifier.Verify(ctx, task.Title, task.Instructions,
			sub.ProofText, sub.ProofImageMime, sub.ProofImageB64)
		if err != nil {
			log.WithError(err).Warn("Оракул недоступен, заявка ждёт ручной модерации")
			verdict = "AI verification failed."
		}
		sub.Verdict = verdict
		if err := s.store.AttachVerdict(ctx, sub.ID, verdict); err != nil {
			log.WithError(err).Error("Ошибка записи вердикта оракула")
		}
	}

	return sub, nil
}

// Approve одобряет заявку. Статус, выплата с записью earning в журнал
// и счётчик выполнений задания меняются одной транзакцией БД — заявка
// не может стать approved без выплаты. Повторное одобрение —
// ErrAlreadyProcessed, исчезнувший исполнитель — ErrWorkerNotFound
// (заявка остаётся pending).
func (s *Service) Approve(ctx context.Context, id int64) error {
	if err := s.store.ApproveAndPay(ctx, id); err != nil {
		return err
	}
	log.WithField("submission_id", id).Info("Заявка одобрена, награда выплачена")
	return nil
}

// Reject отклоняет заявку без выплаты.
func (s *Service) Reject(ctx context.Context, id int64) error {
	if err := s.store.MarkProcessed(ctx, id, StatusRejected); err != nil {
		return err
	}
	log.WithField("submission_id", id).Info("Заявка отклонена")
	return nil
}

// GetByID возвращает заявку по ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Submission, error) {
	return s.store.GetByID(ctx, id)
}

// ListByWorker возвращает заявки исполнителя.
func (s *Service) ListByWorker(ctx context.Context, workerID int64) ([]*Submission, error) {
	return s.store.ListByWorker(ctx, workerID)
}

// ListPendingForCreator возвращает очередь модерации рекламодателя.
func (s *Service) ListPendingForCreator(ctx context.Context, creatorID int64) ([]*Submission, error) {
	return s.store.ListPendingForCreator(ctx, creatorID)
}

// ListAll возвращает все заявки.
func (s *Service) ListAll(ctx context.Context) ([]*Submission, error) {
	return s.store.ListAll(ctx)
}

// RejectStale отклоняет зависшие заявки старше указанного числа дней.
// Вызывается ночным заданием планировщика.
func (s *Service) RejectStale(ctx context.Context, olderThanDays int) (int, error) {
	ids, err := s.store.RejectStale(ctx, olderThanDays)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		log.WithFields(log.Fields{
			"count": len(ids),
			"days":  olderThanDays,
		}).Info("Авто-отклонены зависшие заявки")
	}
	return len(ids), nil
}
