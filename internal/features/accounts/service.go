// Package accounts — service.go содержит бизнес-логику работы с аккаунтами.
// Сервис — единственная точка, через которую меняются монеты и баланс:
// CreditCoinsAndBalance и DebitBalance держат курс 1000 монет = $1.
package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
)

// Store — операции хранилища аккаунтов, которые нужны сервису.
// Реализуется Repository (PostgreSQL) и testutil.MemAccounts (тесты).
type Store interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, email string) error
	AdjustBalance(ctx context.Context, id int64, coinDelta int64, moneyDelta decimal.Decimal) error
	SetMoney(ctx context.Context, id int64, coins int64, balance decimal.Decimal) error
	IncrementReferrals(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// Service управляет аккаунтами.
type Service struct {
	store Store
}

// NewService создаёт сервис аккаунтов.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register создаёт новый аккаунт. Если указан реферальный код,
// пригласившему увеличивается счётчик, а его аккаунт возвращается
// вторым значением — начисление бонуса делает вызывающая сторона
// (обработчик), у которой есть доступ к леджеру.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*Account, *Account, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, nil, fmt.Errorf("пустой email")
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, nil, common.ErrEmailTaken
	}

	role := p.Role
	if role == "" {
		role = RoleUser
	}

	code, err := s.newReferralCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	acct := &Account{
		TelegramID:   p.TelegramID,
		Email:        email,
		Name:         strings.TrimSpace(p.Name),
		Role:         role,
		Coins:        0,
		Balance:      decimal.Zero,
		ReferralCode: code,
		JoinedAt:     time.Now().UTC(),
	}
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, nil, err
	}

	// Реферальный код пригласившего — best-effort: опечатка в коде
	// не должна ломать регистрацию.
	var inviter *Account
	if p.ReferralCode != "" {
		inviter, err = s.store.GetByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(p.ReferralCode)))
		if err != nil {
			log.WithField("code", p.ReferralCode).Debug("Реферальный код не найден")
			inviter = nil
		} else if inviter.ID == acct.ID {
			inviter = nil
		} else if err := s.store.IncrementReferrals(ctx, inviter.ID); err != nil {
			log.WithError(err).Error("Ошибка обновления счётчика рефералов")
			inviter = nil
		}
	}

	log.WithFields(log.Fields{
		"account_id": acct.ID,
		"email":      acct.Email,
		"role":       acct.Role,
	}).Info("Зарегистрирован новый аккаунт")

	return acct, inviter, nil
}

// EnsureForTelegram возвращает аккаунт пользователя Telegram, регистрируя
// его при первом обращении. Email генерируется из Telegram ID — ключ
// аккаунта остаётся email в нижнем регистре, как и у обычных аккаунтов.
// Третье значение — пригласивший (не nil только при новой регистрации
// по чужому коду), четвёртое — признак новой регистрации.
func (s *Service) EnsureForTelegram(ctx context.Context, telegramID int64, name, referralCode string) (*Account, *Account, bool, error) {
	acct, err := s.store.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return acct, nil, false, nil
	}
	if !errors.Is(err, common.ErrAccountNotFound) {
		return nil, nil, false, err
	}

	acct, inviter, err := s.Register(ctx, RegisterParams{
		TelegramID:   &telegramID,
		Email:        fmt.Sprintf("tg%d@users.adspredia.site", telegramID),
		Name:         name,
		ReferralCode: referralCode,
	})
	if err != nil {
		return nil, nil, false, err
	}
	return acct, inviter, true, nil
}

// GetByID возвращает аккаунт по внутреннему ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Account, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail возвращает аккаунт по email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.store.GetByEmail(ctx, email)
}

// GetByTelegramID возвращает аккаунт по Telegram user ID.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	return s.store.GetByTelegramID(ctx, telegramID)
}

// List возвращает все аккаунты.
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.store.List(ctx)
}

// Count возвращает число аккаунтов.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Update сохраняет профильные поля аккаунта.
func (s *Service) Update(ctx context.Context, a *Account) error {
	return s.store.Update(ctx, a)
}

// Delete удаляет аккаунт по email.
func (s *Service) Delete(ctx context.Context, email string) error {
	return s.store.Delete(ctx, email)
}

// CreditCoinsAndBalance начисляет монеты и эквивалент в валюте
// (coins/1000). Отрицательное значение — изъятие; обе величины
// прижимаются к нулю. Нулевая дельта — no-op.
func (s *Service) CreditCoinsAndBalance(ctx context.Context, id int64, coins int64) error {
	if coins == 0 {
		return nil
	}
	return s.store.AdjustBalance(ctx, id, coins, common.CoinsToMoney(coins))
}

// DebitBalance списывает сумму в валюте и эквивалент в монетах
// (floor(amount*1000)). Используется при выводе средств.
func (s *Service) DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.store.AdjustBalance(ctx, id, -common.MoneyToCoins(amount), amount.Neg())
}

// CreditBalance зачисляет сумму в валюте и эквивалент в монетах.
// Зеркало DebitBalance — используется при возврате удержанного вывода.
func (s *Service) CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.store.AdjustBalance(ctx, id, common.MoneyToCoins(amount), amount)
}

// SetMoney выставляет абсолютные монеты и баланс (админ-операция).
// Пара обязана соответствовать курсу 1000:1 — иначе ErrRatioViolated.
func (s *Service) SetMoney(ctx context.Context, id int64, coins int64, balance decimal.Decimal) error {
	if coins < 0 || balance.IsNegative() {
		return common.ErrInvalidAmount
	}
	if !common.CoinsToMoney(coins).Equal(balance) {
		return common.ErrRatioViolated
	}
	return s.store.SetMoney(ctx, id, coins, balance)
}

// newReferralCode генерирует уникальный код вида REF12345.
func (s *Service) newReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(100000))
		if err != nil {
			return "", fmt.Errorf("ошибка генерации кода: %w", err)
		}
		code := fmt.Sprintf("REF%05d", n.Int64())
		if _, err := s.store.GetByReferralCode(ctx, code); err != nil {
			// Кода нет в базе — свободен
			return code, nil
		}
	}
	return "", fmt.Errorf("не удалось подобрать свободный реферальный код")
}
