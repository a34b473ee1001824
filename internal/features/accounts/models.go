// Package accounts управляет аккаунтами платформы: балансы, роли,
// реферальные коды, счётчики дневных лимитов.
// models.go описывает структуры для работы с таблицей accounts.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Роли аккаунтов
const (
	RoleUser       = "user"       // Исполнитель заданий
	RoleAdvertiser = "advertiser" // Рекламодатель (создаёт задания)
	RoleAdmin      = "admin"      // Администратор платформы
)

// Account представляет аккаунт пользователя платформы.
// Монеты и баланс хранятся отдельно, но двигаются вместе по курсу
// 1000 монет = $1 — любые начисления/списания обязаны идти через
// Service.CreditCoinsAndBalance / Service.DebitBalance.
type Account struct {
	ID         int64  `db:"id" json:"id"`                   // Автоинкрементный ID записи в БД
	TelegramID *int64 `db:"telegram_id" json:"telegramId"`  // Telegram user ID (nil для сидированных аккаунтов)
	Email      string `db:"email" json:"email"`             // Ключ аккаунта, всегда в нижнем регистре
	Name       string `db:"name" json:"name"`               // Отображаемое имя
	Role       string `db:"role" json:"role"`               // user / advertiser / admin

	Coins   int64           `db:"coins" json:"coins"`     // Монеты (всегда ≥ 0)
	Balance decimal.Decimal `db:"balance" json:"balance"` // Баланс в валюте (всегда ≥ 0)

	ReferralCode  string `db:"referral_code" json:"referralCode"`   // Код для приглашения
	ReferralCount int    `db:"referral_count" json:"referralCount"` // Сколько пользователей привёл

	LoginStreak   int        `db:"login_streak" json:"loginStreak"`     // Серия ежедневных бонусов
	LastBonusDate *time.Time `db:"last_bonus_date" json:"lastBonusDate"` // Дата последнего бонуса (календарный день)
	SpinsToday    int        `db:"spins_today" json:"spinsToday"`        // Вращений за сегодня
	LastSpinDate  *time.Time `db:"last_spin_date" json:"lastSpinDate"`   // Дата последнего вращения

	IsBanned  bool      `db:"is_banned" json:"isBanned"` // Флаг бана
	JoinedAt  time.Time `db:"joined_at" json:"joinDate"` // Дата регистрации
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// IsAdmin сообщает, является ли аккаунт администратором платформы.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanCreateTasks сообщает, может ли аккаунт создавать задания.
func (a *Account) CanCreateTasks() bool {
	return a.Role == RoleAdvertiser || a.Role == RoleAdmin
}

// RegisterParams — данные для регистрации нового аккаунта.
type RegisterParams struct {
	TelegramID   *int64 // Telegram ID (nil при сидировании из app)
	Email        string // Будет приведён к нижнему регистру
	Name         string
	Role         string // Пустая строка → user
	ReferralCode string // Код пригласившего (опционально)
}
