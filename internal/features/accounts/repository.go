// Package accounts — repository.go выполняет все операции с таблицей accounts.
// Денежные изменения выполняются одним UPDATE с GREATEST(0, ...) —
// база никогда не хранит отрицательные монеты или баланс.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"adspredia.site/platform-bot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = `
	id, telegram_id, email, name, role, coins, balance,
	referral_code, referral_count, login_streak, last_bonus_date,
	spins_today, last_spin_date, is_banned, joined_at, created_at, updated_at
`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.TelegramID, &a.Email, &a.Name, &a.Role, &a.Coins, &a.Balance,
		&a.ReferralCode, &a.ReferralCount, &a.LoginStreak, &a.LastBonusDate,
		&a.SpinsToday, &a.LastSpinDate, &a.IsBanned, &a.JoinedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create добавляет новый аккаунт и заполняет его ID.
func (r *Repository) Create(ctx context.Context, a *Account) error {
	query := `
		INSERT INTO accounts (telegram_id, email, name, role, coins, balance,
		                      referral_code, referral_count, login_streak,
		                      spins_today, is_banned, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.TelegramID, strings.ToLower(a.Email), a.Name, a.Role, a.Coins, a.Balance,
		a.ReferralCode, a.ReferralCount, a.LoginStreak,
		a.SpinsToday, a.IsBanned, a.JoinedAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

// GetByID возвращает аккаунт по внутреннему ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (id=%d): %w", id, err)
	}
	return a, nil
}

// GetByEmail возвращает аккаунт по email (регистр не важен).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = LOWER($1)`
	a, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (email=%s): %w", email, err)
	}
	return a, nil
}

// GetByTelegramID возвращает аккаунт по Telegram user ID.
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (telegram_id=%d): %w", telegramID, err)
	}
	return a, nil
}

// GetByReferralCode возвращает аккаунт по реферальному коду.
func (r *Repository) GetByReferralCode(ctx context.Context, code string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (referral_code=%s): %w", code, err)
	}
	return a, nil
}

// List возвращает все аккаунты (для админки и снапшота).
func (r *Repository) List(ctx context.Context) ([]*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аккаунтов: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования аккаунта: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update сохраняет изменяемые поля профиля (имя, email, роль, бан).
// Денежные поля здесь намеренно не трогаются.
func (r *Repository) Update(ctx context.Context, a *Account) error {
	query := `
		UPDATE accounts
		SET email = LOWER($2), name = $3, role = $4, is_banned = $5, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, a.ID, a.Email, a.Name, a.Role, a.IsBanned)
	if err != nil {
		return fmt.Errorf("ошибка обновления аккаунта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// Delete удаляет аккаунт по email. Заявки и транзакции не каскадируются.
func (r *Repository) Delete(ctx context.Context, email string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE email = LOWER($1)`, email)
	if err != nil {
		return fmt.Errorf("ошибка удаления аккаунта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// AdjustBalance атомарно сдвигает монеты и баланс на указанные дельты.
// Обе величины прижимаются к нулю снизу прямо в SQL.
func (r *Repository) AdjustBalance(ctx context.Context, id int64, coinDelta int64, moneyDelta decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET coins = GREATEST(0, coins + $2),
		    balance = GREATEST(0, balance + $3),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, coinDelta, moneyDelta)
	if err != nil {
		return fmt.Errorf("ошибка изменения баланса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// SetMoney выставляет абсолютные значения монет и баланса (админка).
// Проверка соотношения 1000:1 выполняется в сервисе ДО вызова.
func (r *Repository) SetMoney(ctx context.Context, id int64, coins int64, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET coins = GREATEST(0, $2), balance = GREATEST(0, $3), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, coins, balance)
	if err != nil {
		return fmt.Errorf("ошибка установки баланса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// IncrementReferrals увеличивает счётчик приглашённых.
func (r *Repository) IncrementReferrals(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET referral_count = referral_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления рефералов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// Count возвращает число аккаунтов (для статистики платформы).
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта аккаунтов: %w", err)
	}
	return n, nil
}
