package testutil

import (
	"context"
	"sync"

	"adspredia.site/platform-bot/internal/snapshot"
)

// MemSnapshots — in-memory реализация snapshot.Store. Хранит одно
// состояние и брендинг целиком.
type MemSnapshots struct {
	mu       sync.Mutex
	state    *snapshot.Snapshot
	branding *snapshot.Branding
}

// NewMemSnapshots создаёт хранилище с пустым состоянием.
func NewMemSnapshots() *MemSnapshots {
	state := &snapshot.Snapshot{}
	state.Normalize()
	return &MemSnapshots{state: state}
}

func (m *MemSnapshots) Dump(ctx context.Context) (*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemSnapshots) Restore(ctx context.Context, snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = snap
	if snap.Branding != nil {
		m.branding = snap.Branding
	}
	return nil
}

func (m *MemSnapshots) GetBranding(ctx context.Context) (*snapshot.Branding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.branding == nil {
		return snapshot.DefaultBranding(), nil
	}
	cp := *m.branding
	return &cp, nil
}

func (m *MemSnapshots) SaveBranding(ctx context.Context, b *snapshot.Branding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.branding = &cp
	return nil
}
