// Package tasks — service.go содержит бизнес-логику каталога заданий.
package tasks

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
)

// Store — операции хранилища заданий, которые нужны сервису.
type Store interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetAutoApprove(ctx context.Context, id int64, on bool) error
	Delete(ctx context.Context, id int64) error
	RecordCompletion(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// Service управляет каталогом заданий.
type Service struct {
	store Store
}

// NewService создаёт сервис каталога.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create добавляет задание в каталог со статусом available.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Task, error) {
	if strings.TrimSpace(p.Title) == "" || p.RewardCoins <= 0 || p.CompletionLimit <= 0 {
		return nil, common.ErrInvalidAmount
	}

	t := &Task{
		Title:           strings.TrimSpace(p.Title),
		Category:        p.Category,
		Description:     p.Description,
		RewardCoins:     p.RewardCoins,
		Instructions:    p.Instructions,
		Status:          StatusAvailable,
		CreatorID:       p.CreatorID,
		CompletionLimit: p.CompletionLimit,
		AutoApprove:     p.AutoApprove,
		Link:            p.Link,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"task_id":    t.ID,
		"creator_id": t.CreatorID,
		"reward":     t.RewardCoins,
		"limit":      t.CompletionLimit,
	}).Info("Создано новое задание")

	return t, nil
}

// GetByID возвращает задание по ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Task, error) {
	return s.store.GetByID(ctx, id)
}

// ListAvailable возвращает открытые задания каталога
// (опционально по категории).
func (s *Service) ListAvailable(ctx context.Context, category string) ([]*Task, error) {
	return s.store.List(ctx, Filter{Category: category, Status: StatusAvailable})
}

// List возвращает задания по произвольному фильтру (админка, снапшот).
func (s *Service) List(ctx context.Context, f Filter) ([]*Task, error) {
	return s.store.List(ctx, f)
}

// Update сохраняет редактируемые поля задания.
func (s *Service) Update(ctx context.Context, t *Task) error {
	return s.store.Update(ctx, t)
}

// Pause скрывает задание из каталога.
func (s *Service) Pause(ctx context.Context, id int64) error {
	return s.store.SetStatus(ctx, id, StatusPaused)
}

// Resume возвращает приостановленное задание в каталог.
func (s *Service) Resume(ctx context.Context, id int64) error {
	return s.store.SetStatus(ctx, id, StatusAvailable)
}

// Remove снимает задание с публикации. Запись остаётся в базе —
// на неё ссылаются заявки и история транзакций.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.store.SetStatus(ctx, id, StatusRemoved)
}

// Delete удаляет задание окончательно (только админка).
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// SetAutoApprove переключает мгновенное одобрение заявок.
func (s *Service) SetAutoApprove(ctx context.Context, id int64, on bool) error {
	return s.store.SetAutoApprove(ctx, id, on)
}

// RecordCompletion засчитывает выполнение: счётчик растёт до лимита,
// на лимите задание закрывается. Повторный вызов после закрытия — no-op.
func (s *Service) RecordCompletion(ctx context.Context, id int64) error {
	return s.store.RecordCompletion(ctx, id)
}

// Count возвращает число заданий.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
