// Package snapshot — service.go сериализует состояние в JSON и обратно.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Store — операции хранилища состояния. Реализуется Repository
// и testutil.MemSnapshots.
type Store interface {
	Dump(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) error
	GetBranding(ctx context.Context) (*Branding, error)
	SaveBranding(ctx context.Context, b *Branding) error
}

// Service выгружает и восстанавливает состояние платформы.
type Service struct {
	store Store
}

// NewService создаёт сервис снапшотов.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Export выгружает состояние платформы в JSON.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.store.Dump(ctx)
	if err != nil {
		return nil, err
	}
	snap.Normalize()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации снапшота: %w", err)
	}

	log.WithFields(log.Fields{
		"accounts":     len(snap.Accounts),
		"tasks":        len(snap.Tasks),
		"submissions":  len(snap.Submissions),
		"transactions": len(snap.Transactions),
	}).Info("Снапшот выгружен")
	return data, nil
}

// Import замещает состояние платформы содержимым JSON-документа.
// Частичный документ допустим: отсутствующие коллекции считаются
// пустыми, отсутствующий брендинг — дефолтным.
func (s *Service) Import(ctx context.Context, data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("ошибка разбора снапшота: %w", err)
	}
	snap.Normalize()

	if err := s.store.Restore(ctx, &snap); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"accounts":     len(snap.Accounts),
		"tasks":        len(snap.Tasks),
		"submissions":  len(snap.Submissions),
		"transactions": len(snap.Transactions),
	}).Info("Снапшот восстановлен")
	return nil
}

// GetBranding возвращает текущий брендинг.
func (s *Service) GetBranding(ctx context.Context) (*Branding, error) {
	return s.store.GetBranding(ctx)
}

// SaveBranding сохраняет брендинг.
func (s *Service) SaveBranding(ctx context.Context, b *Branding) error {
	return s.store.SaveBranding(ctx, b)
}
