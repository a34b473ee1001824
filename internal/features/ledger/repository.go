// Package ledger — repository.go выполняет операции с таблицей transactions.
// Finalize меняет статус и начисляет деньги аккаунту одной транзакцией БД:
// подтверждение депозита не может пройти без зачисления и наоборот.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adspredia.site/platform-bot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const txColumns = `
	id, user_id, user_name, tx_type, amount, status,
	method, account_number, account_name, created_at
`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.UserName, &t.Type, &t.Amount, &t.Status,
		&t.Method, &t.AccountNumber, &t.AccountName, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Append добавляет запись в журнал и заполняет её ID.
func (r *Repository) Append(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (user_id, user_name, tx_type, amount, status,
		                          method, account_number, account_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		t.UserID, t.UserName, t.Type, t.Amount, t.Status,
		t.Method, t.AccountNumber, t.AccountName,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// insert добавляет запись журнала внутри открытой транзакции БД.
func insert(ctx context.Context, tx pgx.Tx, t *Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, user_name, tx_type, amount, status,
		                          method, account_number, account_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, t.UserID, t.UserName, t.Type, t.Amount, t.Status,
		t.Method, t.AccountNumber, t.AccountName,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// Grant начисляет монеты с эквивалентом баланса и пишет запись журнала
// одной транзакцией БД. Неизвестный аккаунт — ErrAccountNotFound,
// начисление откатывается.
func (r *Repository) Grant(ctx context.Context, t *Transaction, coins int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET coins = GREATEST(0, coins + $2),
		    balance = GREATEST(0, balance + $3),
		    updated_at = NOW()
		WHERE id = $1
	`, t.UserID, coins, common.CoinsToMoney(coins))
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}

	if err := insert(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GrantBonus начисляет ежедневный бонус: деньги, дата выдачи с серией
// и запись журнала — одна транзакция БД.
func (r *Repository) GrantBonus(ctx context.Context, t *Transaction, coins int64, day time.Time, streak int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET coins = GREATEST(0, coins + $2),
		    balance = GREATEST(0, balance + $3),
		    last_bonus_date = $4,
		    login_streak = $5,
		    updated_at = NOW()
		WHERE id = $1
	`, t.UserID, coins, common.CoinsToMoney(coins), day, streak)
	if err != nil {
		return fmt.Errorf("ошибка выдачи бонуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}

	if err := insert(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GrantSpin фиксирует вращение колеса и начисляет выигрыш одной
// транзакцией БД. При нулевом выигрыше двигается только счётчик,
// запись в журнал не делается.
func (r *Repository) GrantSpin(ctx context.Context, t *Transaction, win int64, day time.Time, spins int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET coins = GREATEST(0, coins + $2),
		    balance = GREATEST(0, balance + $3),
		    last_spin_date = $4,
		    spins_today = $5,
		    updated_at = NOW()
		WHERE id = $1
	`, t.UserID, win, common.CoinsToMoney(win), day, spins)
	if err != nil {
		return fmt.Errorf("ошибка учёта вращения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}

	if win > 0 {
		if err := insert(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID возвращает транзакцию по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения транзакции (id=%d): %w", id, err)
	}
	return t, nil
}

// Finalize переводит ожидающую транзакцию в терминальный статус.
// Если передан credit — аккаунт получает монеты и баланс в той же
// транзакции БД. Из терминального статуса перехода нет.
func (r *Repository) Finalize(ctx context.Context, id int64, status string, credit *BalanceCredit) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrTransactionNotFound
		}
		return fmt.Errorf("ошибка блокировки транзакции: %w", err)
	}
	if current != StatusPending {
		return common.ErrAlreadyFinalized
	}

	if _, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("ошибка смены статуса транзакции: %w", err)
	}

	if credit != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE accounts
			SET coins = GREATEST(0, coins + $2),
			    balance = GREATEST(0, balance + $3),
			    updated_at = NOW()
			WHERE id = $1
		`, credit.AccountID, credit.Coins, credit.Money)
		if err != nil {
			return fmt.Errorf("ошибка зачисления по транзакции: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.ErrAccountNotFound
		}
	}

	return tx.Commit(ctx)
}

// ListByUser возвращает историю операций аккаунта, новые первыми.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

// ListPending возвращает все ожидающие транзакции, старые первыми.
func (r *Repository) ListPending(ctx context.Context) ([]*Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions WHERE status = 'pending'
		ORDER BY created_at, id`
	return r.list(ctx, query)
}

// ListAll возвращает весь журнал (для снапшота).
func (r *Repository) ListAll(ctx context.Context) ([]*Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions ORDER BY id`
	return r.list(ctx, query)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats считает агрегаты журнала одним запросом.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'deposit' AND status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'withdrawal' AND status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'earning' AND status = 'completed'), 0),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM transactions
	`).Scan(&s.TotalDeposited, &s.TotalWithdrawn, &s.TotalEarned, &s.PendingCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта статистики: %w", err)
	}
	return &s, nil
}
