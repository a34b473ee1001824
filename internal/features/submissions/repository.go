// Package submissions — repository.go выполняет операции с таблицей submissions.
// MarkProcessed меняет статус условным UPDATE с WHERE status = 'pending' —
// две гонящиеся модерации одной заявки не смогут обе засчитать выплату.
package submissions

import (
	"context"
	"errors"
	"fmt"

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

const submissionColumns = `
	id, task_id, worker_id, worker_name, proof_text, proof_image_mime,
	proof_image_b64, status, reward_coins, verdict, submitted_at
`

func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(
		&s.ID, &s.TaskID, &s.WorkerID, &s.WorkerName, &s.ProofText, &s.ProofImageMime,
		&s.ProofImageB64, &s.Status, &s.RewardCoins, &s.Verdict, &s.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create добавляет заявку и заполняет её ID.
func (r *Repository) Create(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO submissions (task_id, worker_id, worker_name, proof_text,
		                         proof_image_mime, proof_image_b64, status, reward_coins, verdict)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, submitted_at
	`
	err := r.db.QueryRow(ctx, query,
		s.TaskID, s.WorkerID, s.WorkerName, s.ProofText,
		s.ProofImageMime, s.ProofImageB64, s.Status, s.RewardCoins, s.Verdict,
	).Scan(&s.ID, &s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

// GetByID возвращает заявку по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заявки (id=%d): %w", id, err)
	}
	return s, nil
}

// ApproveAndPay одобряет ожидающую заявку и выплачивает награду одной
// транзакцией БД: смена статуса, зачисление исполнителю, запись earning
// в журнал и счётчик выполнений задания либо проходят целиком, либо
// откатываются. Заявка не в статусе pending — ErrAlreadyProcessed,
// исчезнувший аккаунт исполнителя — ErrWorkerNotFound. Удалённое
// задание одобрению не мешает: счётчик просто некуда двигать.
func (r *Repository) ApproveAndPay(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		taskID, workerID, reward int64
		status                   string
	)
	err = tx.QueryRow(ctx,
		`SELECT task_id, worker_id, reward_coins, status FROM submissions WHERE id = $1 FOR UPDATE`,
		id).Scan(&taskID, &workerID, &reward, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrSubmissionNotFound
		}
		return fmt.Errorf("ошибка блокировки заявки: %w", err)
	}
	if status != StatusPending {
		return common.ErrAlreadyProcessed
	}

	if _, err := tx.Exec(ctx,
		`UPDATE submissions SET status = 'approved' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ошибка смены статуса заявки: %w", err)
	}

	amount := common.CoinsToMoney(reward)
	var workerName string
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET coins = GREATEST(0, coins + $2),
		    balance = GREATEST(0, balance + $3),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING name
	`, workerID, reward, amount).Scan(&workerName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrWorkerNotFound
		}
		return fmt.Errorf("ошибка выплаты исполнителю: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, user_name, tx_type, amount, status)
		VALUES ($1, $2, 'earning', $3, 'completed')
	`, workerID, workerName, amount); err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	var completions, limit int
	err = tx.QueryRow(ctx,
		`SELECT completions, completion_limit FROM tasks WHERE id = $1 FOR UPDATE`,
		taskID).Scan(&completions, &limit)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Задание удалено — заявка и выплата остаются в силе
	case err != nil:
		return fmt.Errorf("ошибка блокировки задания: %w", err)
	case completions < limit:
		if _, err := tx.Exec(ctx, `
			UPDATE tasks
			SET completions = completions + 1,
			    status = CASE WHEN completions + 1 >= completion_limit THEN 'completed' ELSE status END,
			    updated_at = NOW()
			WHERE id = $1
		`, taskID); err != nil {
			return fmt.Errorf("ошибка записи выполнения: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkProcessed переводит ожидающую заявку в терминальный статус.
// Возвращает ErrAlreadyProcessed, если заявка уже решена, и
// ErrSubmissionNotFound, если её нет вовсе.
func (r *Repository) MarkProcessed(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET status = $2 WHERE id = $1 AND status = 'pending'`,
		id, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return common.ErrAlreadyProcessed
	}
	return nil
}

// AttachVerdict сохраняет рекомендацию оракула. Совещательная запись:
// статус заявки не трогается.
func (r *Repository) AttachVerdict(ctx context.Context, id int64, verdict string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET verdict = $2 WHERE id = $1`, id, verdict)
	if err != nil {
		return fmt.Errorf("ошибка записи вердикта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrSubmissionNotFound
	}
	return nil
}

// ListByWorker возвращает заявки исполнителя, новые первыми.
func (r *Repository) ListByWorker(ctx context.Context, workerID int64) ([]*Submission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM submissions WHERE worker_id = $1
		ORDER BY submitted_at DESC, id DESC`
	return r.list(ctx, query, workerID)
}

// ListPendingForCreator возвращает ожидающие заявки по заданиям
// указанного рекламодателя, старые первыми.
func (r *Repository) ListPendingForCreator(ctx context.Context, creatorID int64) ([]*Submission, error) {
	query := `SELECT s.id, s.task_id, s.worker_id, s.worker_name, s.proof_text,
		       s.proof_image_mime, s.proof_image_b64, s.status, s.reward_coins,
		       s.verdict, s.submitted_at
		FROM submissions s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.status = 'pending' AND t.creator_id = $1
		ORDER BY s.submitted_at, s.id`
	return r.list(ctx, query, creatorID)
}

// HasPendingOrApproved сообщает, подавал ли исполнитель заявку на это
// задание, которая ещё висит или уже одобрена. Отклонённая заявка
// повторной подаче не мешает.
func (r *Repository) HasPendingOrApproved(ctx context.Context, taskID, workerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM submissions
			WHERE task_id = $1 AND worker_id = $2 AND status IN ('pending', 'approved')
		)
	`, taskID, workerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки заявок: %w", err)
	}
	return exists, nil
}

// RejectStale отклоняет заявки, висящие без решения дольше указанного
// числа дней. Возвращает ID отклонённых заявок.
func (r *Repository) RejectStale(ctx context.Context, olderThanDays int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE submissions
		SET status = 'rejected',
		    verdict = CASE WHEN verdict = '' THEN 'Auto-rejected: no review within deadline.' ELSE verdict END
		WHERE status = 'pending'
		  AND submitted_at < NOW() - make_interval(days => $1)
		RETURNING id
	`, olderThanDays)
	if err != nil {
		return nil, fmt.Errorf("ошибка авто-отклонения заявок: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListAll возвращает все заявки (для снапшота).
func (r *Repository) ListAll(ctx context.Context) ([]*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY id`
	return r.list(ctx, query)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Submission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
