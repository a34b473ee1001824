// Package admin — service.go содержит логику аутентификации, управления
// сессиями и state-машину для пошаговых админ-действий.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// Service управляет админ-панелью.
type Service struct {
	repo     *Repository
	accounts *accounts.Service
	cfg      *config.Config
	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(repo *Repository, accountsSvc *accounts.Service, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		accounts: accountsSvc,
		cfg:      cfg,
		states:   make(map[int64]*AdminState),
	}
}

// IsAdminTelegramID проверяет, входит ли Telegram ID в список админов.
func (s *Service) IsAdminTelegramID(userID int64) bool {
	for _, id := range s.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	attempts, err := s.repo.GetRecentAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return err
	}
	if attempts >= 3 {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Error("Ошибка записи попытки входа")
	}

	if !match {
		return common.ErrWrongPassword
	}

	// Сессия живёт 24 часа
	token := generateSecureToken()
	session := &AdminSession{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}
	return s.repo.CreateSession(ctx, session)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID)
	return err == nil && session != nil
}

// Logout деактивирует сессию администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	s.ClearState(userID)
	return s.repo.DeactivateSession(ctx, userID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(userID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	if time.Now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(userID int64, stateName string, data interface{}) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &AdminState{
		State:     stateName,
		Data:      data,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// --- Операции панели ---

// ListAccounts возвращает все аккаунты для диалогов выбора.
func (s *Service) ListAccounts(ctx context.Context) ([]*accounts.Account, error) {
	return s.accounts.List(ctx)
}

// GrantCoins начисляет аккаунту монеты и эквивалент в валюте.
func (s *Service) GrantCoins(ctx context.Context, accountID, coins int64) error {
	if coins <= 0 {
		return common.ErrInvalidAmount
	}
	return s.accounts.CreditCoinsAndBalance(ctx, accountID, coins)
}

// TakeCoins изымает у аккаунта монеты и эквивалент в валюте.
// Баланс прижимается к нулю.
func (s *Service) TakeCoins(ctx context.Context, accountID, coins int64) error {
	if coins <= 0 {
		return common.ErrInvalidAmount
	}
	return s.accounts.CreditCoinsAndBalance(ctx, accountID, -coins)
}

// SetMoney выставляет абсолютные монеты и баланс с проверкой курса.
func (s *Service) SetMoney(ctx context.Context, accountID, coins int64, balance decimal.Decimal) error {
	return s.accounts.SetMoney(ctx, accountID, coins, balance)
}

// ChangeRole меняет роль аккаунта.
func (s *Service) ChangeRole(ctx context.Context, accountID int64, role string) error {
	switch role {
	case accounts.RoleUser, accounts.RoleAdvertiser, accounts.RoleAdmin:
	default:
		return fmt.Errorf("неизвестная роль %q", role)
	}
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	acct.Role = role
	return s.accounts.Update(ctx, acct)
}

// ToggleBan переключает бан аккаунта и возвращает новое значение.
func (s *Service) ToggleBan(ctx context.Context, accountID int64) (bool, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	acct.IsBanned = !acct.IsBanned
	if err := s.accounts.Update(ctx, acct); err != nil {
		return false, err
	}
	return acct.IsBanned, nil
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравнение в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
