// Package testutil содержит in-memory реализации хранилищ для юнит-тестов
// сервисов. Семантика повторяет SQL-репозитории: прижатие балансов к нулю,
// условные обновления статусов, насыщение счётчика выполнений.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
)

// === Аккаунты ===

// MemAccounts — in-memory реализация accounts.Store.
type MemAccounts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*accounts.Account
}

// NewMemAccounts создаёт пустое хранилище аккаунтов.
func NewMemAccounts() *MemAccounts {
	return &MemAccounts{nextID: 1, byID: make(map[int64]*accounts.Account)}
}

func (m *MemAccounts) Create(ctx context.Context, a *accounts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID
	m.nextID++
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.JoinedAt.IsZero() {
		a.JoinedAt = now
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *MemAccounts) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == strings.ToLower(email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrAccountNotFound
}

func (m *MemAccounts) GetByTelegramID(ctx context.Context, telegramID int64) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.TelegramID != nil && *a.TelegramID == telegramID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrAccountNotFound
}

func (m *MemAccounts) GetByReferralCode(ctx context.Context, code string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.ReferralCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrAccountNotFound
}

func (m *MemAccounts) List(ctx context.Context) ([]*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*accounts.Account, 0, len(m.byID))
	for _, a := range m.byID {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemAccounts) Update(ctx context.Context, a *accounts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[a.ID]
	if !ok {
		return common.ErrAccountNotFound
	}
	stored.Email = a.Email
	stored.Name = a.Name
	stored.Role = a.Role
	stored.IsBanned = a.IsBanned
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MemAccounts) Delete(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.byID {
		if a.Email == strings.ToLower(email) {
			delete(m.byID, id)
			return nil
		}
	}
	return common.ErrAccountNotFound
}

func (m *MemAccounts) AdjustBalance(ctx context.Context, id int64, coinDelta int64, moneyDelta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	a.Coins += coinDelta
	if a.Coins < 0 {
		a.Coins = 0
	}
	a.Balance = a.Balance.Add(moneyDelta)
	if a.Balance.IsNegative() {
		a.Balance = decimal.Zero
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MemAccounts) SetMoney(ctx context.Context, id int64, coins int64, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	a.Coins = coins
	a.Balance = balance
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MemAccounts) SetBonusState(ctx context.Context, id int64, day time.Time, streak int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	d := day
	a.LastBonusDate = &d
	a.LoginStreak = streak
	return nil
}

func (m *MemAccounts) SetSpinState(ctx context.Context, id int64, day time.Time, spins int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	d := day
	a.LastSpinDate = &d
	a.SpinsToday = spins
	return nil
}

func (m *MemAccounts) IncrementReferrals(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	a.ReferralCount++
	return nil
}

func (m *MemAccounts) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

// === Задания ===

// MemTasks — in-memory реализация tasks.Store.
type MemTasks struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*tasks.Task
}

// NewMemTasks создаёт пустое хранилище заданий.
func NewMemTasks() *MemTasks {
	return &MemTasks{nextID: 1, byID: make(map[int64]*tasks.Task)}
}

func (m *MemTasks) Create(ctx context.Context, t *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *MemTasks) GetByID(ctx context.Context, id int64) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, common.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemTasks) List(ctx context.Context, f tasks.Filter) ([]*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*tasks.Task
	for _, t := range m.byID {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.CreatorID != 0 && t.CreatorID != f.CreatorID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemTasks) Update(ctx context.Context, t *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[t.ID]
	if !ok {
		return common.ErrTaskNotFound
	}
	stored.Title = t.Title
	stored.Category = t.Category
	stored.Description = t.Description
	stored.RewardCoins = t.RewardCoins
	stored.Instructions = t.Instructions
	stored.CompletionLimit = t.CompletionLimit
	stored.Link = t.Link
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MemTasks) SetStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return common.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (m *MemTasks) SetAutoApprove(ctx context.Context, id int64, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return common.ErrTaskNotFound
	}
	t.AutoApprove = on
	return nil
}

func (m *MemTasks) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return common.ErrTaskNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MemTasks) RecordCompletion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return common.ErrTaskNotFound
	}
	// Насыщение: на лимите счётчик не двигается
	if t.Completions >= t.CompletionLimit {
		return nil
	}
	t.Completions++
	if t.Completions >= t.CompletionLimit {
		t.Status = tasks.StatusCompleted
	}
	return nil
}

func (m *MemTasks) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

// === Журнал ===

// MemLedger — in-memory реализация ledger.Store. Для Finalize нужен
// доступ к аккаунтам: начисление идёт вместе со сменой статуса.
type MemLedger struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*ledger.Transaction
	Accounts *MemAccounts
}

// NewMemLedger создаёт пустой журнал поверх хранилища аккаунтов.
func NewMemLedger(accts *MemAccounts) *MemLedger {
	return &MemLedger{nextID: 1, byID: make(map[int64]*ledger.Transaction), Accounts: accts}
}

func (m *MemLedger) Append(ctx context.Context, t *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now()
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

// Grant повторяет атомарное начисление SQL-репозитория: при неизвестном
// аккаунте запись в журнал не появляется.
func (m *MemLedger) Grant(ctx context.Context, t *ledger.Transaction, coins int64) error {
	if err := m.Accounts.AdjustBalance(ctx, t.UserID, coins, common.CoinsToMoney(coins)); err != nil {
		return err
	}
	return m.Append(ctx, t)
}

func (m *MemLedger) GrantBonus(ctx context.Context, t *ledger.Transaction, coins int64, day time.Time, streak int) error {
	if err := m.Accounts.AdjustBalance(ctx, t.UserID, coins, common.CoinsToMoney(coins)); err != nil {
		return err
	}
	if err := m.Accounts.SetBonusState(ctx, t.UserID, day, streak); err != nil {
		return err
	}
	return m.Append(ctx, t)
}

func (m *MemLedger) GrantSpin(ctx context.Context, t *ledger.Transaction, win int64, day time.Time, spins int) error {
	if err := m.Accounts.SetSpinState(ctx, t.UserID, day, spins); err != nil {
		return err
	}
	if win > 0 {
		if err := m.Accounts.AdjustBalance(ctx, t.UserID, win, common.CoinsToMoney(win)); err != nil {
			return err
		}
		return m.Append(ctx, t)
	}
	return nil
}

func (m *MemLedger) GetByID(ctx context.Context, id int64) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, common.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemLedger) Finalize(ctx context.Context, id int64, status string, credit *ledger.BalanceCredit) error {
	m.mu.Lock()
	t, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return common.ErrTransactionNotFound
	}
	if t.Status != ledger.StatusPending {
		m.mu.Unlock()
		return common.ErrAlreadyFinalized
	}
	t.Status = status
	m.mu.Unlock()

	if credit != nil {
		return m.Accounts.AdjustBalance(ctx, credit.AccountID, credit.Coins, credit.Money)
	}
	return nil
}

func (m *MemLedger) ListByUser(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error) {
	all, _ := m.ListAll(ctx)
	var out []*ledger.Transaction
	for _, t := range all {
		if t.UserID == userID {
			out = append(out, t)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemLedger) ListPending(ctx context.Context) ([]*ledger.Transaction, error) {
	all, _ := m.ListAll(ctx)
	var out []*ledger.Transaction
	for _, t := range all {
		if t.IsPending() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemLedger) ListAll(ctx context.Context) ([]*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ledger.Transaction, 0, len(m.byID))
	for _, t := range m.byID {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemLedger) Stats(ctx context.Context) (*ledger.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &ledger.Stats{
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalEarned:    decimal.Zero,
	}
	for _, t := range m.byID {
		switch {
		case t.Type == ledger.TypeDeposit && t.Status == ledger.StatusCompleted:
			st.TotalDeposited = st.TotalDeposited.Add(t.Amount)
		case t.Type == ledger.TypeWithdrawal && t.Status == ledger.StatusCompleted:
			st.TotalWithdrawn = st.TotalWithdrawn.Add(t.Amount)
		case t.Type == ledger.TypeEarning && t.Status == ledger.StatusCompleted:
			st.TotalEarned = st.TotalEarned.Add(t.Amount)
		}
		if t.IsPending() {
			st.PendingCount++
		}
	}
	return st, nil
}

// === Заявки ===

// MemSubmissions — in-memory реализация submissions.Store.
// Tasks нужен для ListPendingForCreator и счётчика выполнений,
// Accounts и Journal — для одобрения с выплатой.
type MemSubmissions struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*submissions.Submission
	Tasks    *MemTasks
	Accounts *MemAccounts
	Journal  *MemLedger
}

// NewMemSubmissions создаёт пустое хранилище заявок.
func NewMemSubmissions(taskStore *MemTasks, acctStore *MemAccounts, journal *MemLedger) *MemSubmissions {
	return &MemSubmissions{
		nextID:   1,
		byID:     make(map[int64]*submissions.Submission),
		Tasks:    taskStore,
		Accounts: acctStore,
		Journal:  journal,
	}
}

func (m *MemSubmissions) Create(ctx context.Context, s *submissions.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID
	m.nextID++
	s.SubmittedAt = time.Now()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *MemSubmissions) GetByID(ctx context.Context, id int64) (*submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, common.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

// ApproveAndPay повторяет атомарное одобрение SQL-репозитория:
// исполнитель проверяется до любых мутаций, удалённое задание
// выплате не мешает.
func (m *MemSubmissions) ApproveAndPay(ctx context.Context, id int64) error {
	m.mu.Lock()
	s, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return common.ErrSubmissionNotFound
	}
	if s.Status != submissions.StatusPending {
		m.mu.Unlock()
		return common.ErrAlreadyProcessed
	}
	taskID, workerID, reward := s.TaskID, s.WorkerID, s.RewardCoins
	m.mu.Unlock()

	worker, err := m.Accounts.GetByID(ctx, workerID)
	if err != nil {
		return common.ErrWorkerNotFound
	}

	m.mu.Lock()
	m.byID[id].Status = submissions.StatusApproved
	m.mu.Unlock()

	if err := m.Accounts.AdjustBalance(ctx, workerID, reward, common.CoinsToMoney(reward)); err != nil {
		return err
	}
	if err := m.Journal.Append(ctx, &ledger.Transaction{
		UserID:   workerID,
		UserName: worker.Name,
		Type:     ledger.TypeEarning,
		Amount:   common.CoinsToMoney(reward),
		Status:   ledger.StatusCompleted,
	}); err != nil {
		return err
	}
	if err := m.Tasks.RecordCompletion(ctx, taskID); err != nil && !errors.Is(err, common.ErrTaskNotFound) {
		return err
	}
	return nil
}

func (m *MemSubmissions) MarkProcessed(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return common.ErrSubmissionNotFound
	}
	if s.Status != submissions.StatusPending {
		return common.ErrAlreadyProcessed
	}
	s.Status = status
	return nil
}

func (m *MemSubmissions) AttachVerdict(ctx context.Context, id int64, verdict string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return common.ErrSubmissionNotFound
	}
	s.Verdict = verdict
	return nil
}

func (m *MemSubmissions) ListByWorker(ctx context.Context, workerID int64) ([]*submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*submissions.Submission
	for _, s := range m.byID {
		if s.WorkerID == workerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemSubmissions) ListPendingForCreator(ctx context.Context, creatorID int64) ([]*submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*submissions.Submission
	for _, s := range m.byID {
		if s.Status != submissions.StatusPending {
			continue
		}
		t, err := m.Tasks.GetByID(ctx, s.TaskID)
		if err != nil || t.CreatorID != creatorID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemSubmissions) HasPendingOrApproved(ctx context.Context, taskID, workerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.TaskID == taskID && s.WorkerID == workerID &&
			(s.Status == submissions.StatusPending || s.Status == submissions.StatusApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemSubmissions) RejectStale(ctx context.Context, olderThanDays int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var ids []int64
	for _, s := range m.byID {
		if s.Status == submissions.StatusPending && s.SubmittedAt.Before(cutoff) {
			s.Status = submissions.StatusRejected
			if s.Verdict == "" {
				s.Verdict = "Auto-rejected: no review within deadline."
			}
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (m *MemSubmissions) ListAll(ctx context.Context) ([]*submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*submissions.Submission, 0, len(m.byID))
	for _, s := range m.byID {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
