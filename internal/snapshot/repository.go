// Package snapshot — repository.go читает и пишет состояние платформы.
// Restore выполняется одной транзакцией БД: очистка и вставка всех
// таблиц либо проходят целиком, либо откатываются.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
)

type Repository struct {
	db       *pgxpool.Pool
	accounts *accounts.Service
	tasks    *tasks.Service
	subs     *submissions.Service
	ledger   *ledger.Service
}

func NewRepository(db *pgxpool.Pool, accountsSvc *accounts.Service, tasksSvc *tasks.Service, subsSvc *submissions.Service, ledgerSvc *ledger.Service) *Repository {
	return &Repository{db: db, accounts: accountsSvc, tasks: tasksSvc, subs: subsSvc, ledger: ledgerSvc}
}

// GetBranding возвращает настройки брендинга, при пустой таблице — дефолт.
func (r *Repository) GetBranding(ctx context.Context) (*Branding, error) {
	var b Branding
	err := r.db.QueryRow(ctx,
		`SELECT site_name, logo_url, hero_banner_url FROM settings WHERE id = 1`,
	).Scan(&b.SiteName, &b.LogoURL, &b.HeroBannerURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultBranding(), nil
		}
		return nil, fmt.Errorf("ошибка чтения брендинга: %w", err)
	}
	return &b, nil
}

// SaveBranding сохраняет настройки брендинга (upsert единственной строки).
func (r *Repository) SaveBranding(ctx context.Context, b *Branding) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (id, site_name, logo_url, hero_banner_url)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET site_name = EXCLUDED.site_name,
		    logo_url = EXCLUDED.logo_url,
		    hero_banner_url = EXCLUDED.hero_banner_url
	`, b.SiteName, b.LogoURL, b.HeroBannerURL)
	if err != nil {
		return fmt.Errorf("ошибка сохранения брендинга: %w", err)
	}
	return nil
}

// Dump читает полное состояние платформы.
func (r *Repository) Dump(ctx context.Context) (*Snapshot, error) {
	accountList, err := r.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	taskList, err := r.tasks.List(ctx, tasks.Filter{})
	if err != nil {
		return nil, err
	}
	subList, err := r.subs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	txList, err := r.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	branding, err := r.GetBranding(ctx)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]*accounts.Account, len(accountList))
	for _, a := range accountList {
		byEmail[strings.ToLower(a.Email)] = a
	}

	snap := &Snapshot{
		Accounts:     byEmail,
		Tasks:        taskList,
		Submissions:  subList,
		Transactions: txList,
		Branding:     branding,
	}
	snap.Normalize()
	return snap, nil
}

// Restore замещает состояние платформы снапшотом. ID сохраняются,
// сиквенсы подтягиваются до максимума.
func (r *Repository) Restore(ctx context.Context, snap *Snapshot) error {
	snap.Normalize()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"transactions", "submissions", "tasks", "accounts"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("ошибка очистки %s: %w", table, err)
		}
	}

	for _, a := range snap.Accounts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, telegram_id, email, name, role, coins, balance,
			                      referral_code, referral_count, login_streak, last_bonus_date,
			                      spins_today, last_spin_date, is_banned, joined_at)
			VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, a.ID, a.TelegramID, a.Email, a.Name, a.Role, a.Coins, a.Balance,
			a.ReferralCode, a.ReferralCount, a.LoginStreak, a.LastBonusDate,
			a.SpinsToday, a.LastSpinDate, a.IsBanned, a.JoinedAt); err != nil {
			return fmt.Errorf("ошибка восстановления аккаунта %d: %w", a.ID, err)
		}
	}

	for _, t := range snap.Tasks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tasks (id, title, category, description, reward_coins, instructions,
			                   status, creator_id, completions, completion_limit, auto_approve, link, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, t.ID, t.Title, t.Category, t.Description, t.RewardCoins, t.Instructions,
			t.Status, t.CreatorID, t.Completions, t.CompletionLimit, t.AutoApprove, t.Link, t.CreatedAt); err != nil {
			return fmt.Errorf("ошибка восстановления задания %d: %w", t.ID, err)
		}
	}

	for _, s := range snap.Submissions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO submissions (id, task_id, worker_id, worker_name, proof_text,
			                         proof_image_mime, proof_image_b64, status, reward_coins, verdict, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, s.ID, s.TaskID, s.WorkerID, s.WorkerName, s.ProofText,
			s.ProofImageMime, s.ProofImageB64, s.Status, s.RewardCoins, s.Verdict, s.SubmittedAt); err != nil {
			return fmt.Errorf("ошибка восстановления заявки %d: %w", s.ID, err)
		}
	}

	for _, t := range snap.Transactions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions (id, user_id, user_name, tx_type, amount, status,
			                          method, account_number, account_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, t.ID, t.UserID, t.UserName, t.Type, t.Amount, t.Status,
			t.Method, t.AccountNumber, t.AccountName, t.CreatedAt); err != nil {
			return fmt.Errorf("ошибка восстановления транзакции %d: %w", t.ID, err)
		}
	}

	// Сиквенсы должны продолжать с максимального ID
	for _, seq := range []struct{ table, id string }{
		{"accounts", "id"}, {"tasks", "id"}, {"submissions", "id"}, {"transactions", "id"},
	} {
		query := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)`,
			seq.table, seq.id, seq.id, seq.table)
		if _, err := tx.Exec(ctx, query); err != nil {
			return fmt.Errorf("ошибка обновления сиквенса %s: %w", seq.table, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO settings (id, site_name, logo_url, hero_banner_url)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET site_name = EXCLUDED.site_name,
		    logo_url = EXCLUDED.logo_url,
		    hero_banner_url = EXCLUDED.hero_banner_url
	`, snap.Branding.SiteName, snap.Branding.LogoURL, snap.Branding.HeroBannerURL); err != nil {
		return fmt.Errorf("ошибка восстановления брендинга: %w", err)
	}

	return tx.Commit(ctx)
}
