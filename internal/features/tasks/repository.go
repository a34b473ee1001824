// Package tasks — repository.go выполняет операции с таблицей tasks.
// RecordCompletion — единственное место, где двигается счётчик
// выполнений: строка блокируется FOR UPDATE, лимит проверяется
// внутри той же транзакции.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

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

const taskColumns = `
	id, title, category, description, reward_coins, instructions,
	status, creator_id, completions, completion_limit, auto_approve, link,
	created_at, updated_at
`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Category, &t.Description, &t.RewardCoins, &t.Instructions,
		&t.Status, &t.CreatorID, &t.Completions, &t.CompletionLimit, &t.AutoApprove, &t.Link,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create добавляет новое задание и заполняет его ID.
func (r *Repository) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (title, category, description, reward_coins, instructions,
		                   status, creator_id, completions, completion_limit, auto_approve, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		t.Title, t.Category, t.Description, t.RewardCoins, t.Instructions,
		t.Status, t.CreatorID, t.Completions, t.CompletionLimit, t.AutoApprove, t.Link,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания задания: %w", err)
	}
	return nil
}

// GetByID возвращает задание по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTaskNotFound
		}
		return nil, fmt.Errorf("ошибка чтения задания (id=%d): %w", id, err)
	}
	return t, nil
}

// List возвращает задания по фильтру, новые первыми.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.CreatorID != 0 {
		args = append(args, f.CreatorID)
		query += ` AND creator_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заданий: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования задания: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update сохраняет редактируемые поля задания.
func (r *Repository) Update(ctx context.Context, t *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, category = $3, description = $4, reward_coins = $5,
		    instructions = $6, completion_limit = $7, link = $8, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		t.ID, t.Title, t.Category, t.Description, t.RewardCoins,
		t.Instructions, t.CompletionLimit, t.Link,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления задания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTaskNotFound
	}
	return nil
}

// SetStatus переводит задание в указанный статус.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса задания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTaskNotFound
	}
	return nil
}

// SetAutoApprove переключает мгновенное одобрение заявок.
func (r *Repository) SetAutoApprove(ctx context.Context, id int64, on bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET auto_approve = $2, updated_at = NOW() WHERE id = $1`, id, on)
	if err != nil {
		return fmt.Errorf("ошибка переключения авто-одобрения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTaskNotFound
	}
	return nil
}

// Delete удаляет задание из каталога.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления задания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTaskNotFound
	}
	return nil
}

// RecordCompletion засчитывает одно выполнение задания.
// Строка блокируется FOR UPDATE: счётчик увеличивается только если
// лимит ещё не достигнут, при достижении лимита статус становится
// completed. Для уже завершённого задания вызов — no-op (заявка могла
// быть подана до закрытия, одобрение не должно падать).
func (r *Repository) RecordCompletion(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var completions, limit int
	err = tx.QueryRow(ctx,
		`SELECT completions, completion_limit FROM tasks WHERE id = $1 FOR UPDATE`, id,
	).Scan(&completions, &limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrTaskNotFound
		}
		return fmt.Errorf("ошибка блокировки задания: %w", err)
	}

	if completions >= limit {
		// Лимит уже достигнут — счётчик не двигаем
		return tx.Commit(ctx)
	}

	completions++
	status := StatusAvailable
	if completions >= limit {
		status = StatusCompleted
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tasks
		SET completions = $2,
		    status = CASE WHEN $3 = 'completed' THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, completions, status); err != nil {
		return fmt.Errorf("ошибка записи выполнения: %w", err)
	}

	return tx.Commit(ctx)
}

// Count возвращает число заданий (для статистики платформы).
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заданий: %w", err)
	}
	return n, nil
}
