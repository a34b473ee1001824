// Package ledger ведёт журнал денежных операций: депозиты, выводы,
// заработок с заданий, бонусы и реферальные начисления.
// models.go описывает структуры для работы с таблицей transactions.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Типы транзакций
const (
	TypeDeposit    = "deposit"    // Пополнение рекламодателем
	TypeWithdrawal = "withdrawal" // Вывод средств исполнителем
	TypeEarning    = "earning"    // Награда за одобренную заявку
	TypeReferral   = "referral"   // Бонус за приглашённого
	TypeBonus      = "bonus"      // Ежедневный бонус
	TypeSpin       = "spin"       // Выигрыш в колесе
)

// Статусы транзакций. Completed и rejected — терминальные:
// из них транзакция больше никуда не переходит.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// Способы выплат
var PaymentMethods = []string{"EasyPaisa", "JazzCash", "Payeer", "USDT"}

// Transaction — одна запись журнала. Сумма всегда положительная,
// направление определяется типом.
type Transaction struct {
	ID       int64           `db:"id" json:"id"`
	UserID   int64           `db:"user_id" json:"userId"`
	UserName string          `db:"user_name" json:"userName"` // Снимок имени на момент операции
	Type     string          `db:"tx_type" json:"type"`
	Amount   decimal.Decimal `db:"amount" json:"amount"` // В валюте платформы
	Status   string          `db:"status" json:"status"`

	// Платёжные реквизиты — только для deposit/withdrawal
	Method        string `db:"method" json:"method,omitempty"`
	AccountNumber string `db:"account_number" json:"accountNumber,omitempty"`
	AccountName   string `db:"account_name" json:"accountName,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"date"`
}

// IsPending сообщает, ожидает ли транзакция решения.
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// BalanceCredit — начисление аккаунту, выполняемое атомарно вместе
// со сменой статуса транзакции (депозит подтверждён, вывод отклонён).
type BalanceCredit struct {
	AccountID int64
	Coins     int64
	Money     decimal.Decimal
}

// Stats — агрегаты журнала для /stats и админки.
type Stats struct {
	TotalDeposited decimal.Decimal `json:"totalDeposited"` // Сумма подтверждённых депозитов
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"` // Сумма подтверждённых выводов
	TotalEarned    decimal.Decimal `json:"totalEarned"`    // Выплачено за задания (earning)
	PendingCount   int64           `json:"pendingCount"`   // Ожидают решения
}
