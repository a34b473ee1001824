// Package ledger — service.go содержит бизнес-логику журнала.
// SetStatus — единственное место, где решается денежный эффект смены
// статуса: подтверждённый депозит зачисляется, отклонённый вывод
// возвращается на баланс, остальные комбинации денег не двигают.
package ledger

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
)

// Store — операции хранилища журнала, которые нужны сервису.
// Grant, GrantBonus и GrantSpin двигают деньги и пишут журнал одной
// транзакцией БД — половинчатых начислений не бывает.
type Store interface {
	Append(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	Grant(ctx context.Context, t *Transaction, coins int64) error
	GrantBonus(ctx context.Context, t *Transaction, coins int64, day time.Time, streak int) error
	GrantSpin(ctx context.Context, t *Transaction, win int64, day time.Time, spins int) error
	Finalize(ctx context.Context, id int64, status string, credit *BalanceCredit) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
	ListPending(ctx context.Context) ([]*Transaction, error)
	ListAll(ctx context.Context) ([]*Transaction, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Service ведёт журнал денежных операций.
type Service struct {
	store Store
}

// NewService создаёт сервис журнала.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Append добавляет запись в журнал. Пустой статус означает completed —
// начисления (earning, bonus, spin, referral) фиксируются уже
// свершившимися.
func (s *Service) Append(ctx context.Context, t *Transaction) error {
	if t.Amount.IsNegative() {
		return common.ErrInvalidAmount
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	return s.store.Append(ctx, t)
}

// Grant начисляет монеты аккаунту и записывает completed-транзакцию.
// Зачисление и запись в журнал проходят одной транзакцией БД.
// Используется для наград: earning, bonus, spin, referral.
func (s *Service) Grant(ctx context.Context, accountID int64, accountName string, coins int64, txType, method string) error {
	if coins <= 0 {
		return common.ErrInvalidAmount
	}
	t := &Transaction{
		UserID:   accountID,
		UserName: accountName,
		Type:     txType,
		Amount:   common.CoinsToMoney(coins),
		Status:   StatusCompleted,
		Method:   method,
	}
	return s.store.Grant(ctx, t, coins)
}

// GrantDailyBonus начисляет ежедневный бонус и фиксирует дату выдачи
// с новой серией входов. Деньги, отметка дня и запись в журнал — одна
// транзакция БД: отметка без начисления (и наоборот) невозможна.
func (s *Service) GrantDailyBonus(ctx context.Context, accountID int64, accountName string, coins int64, day time.Time, streak int) error {
	if coins <= 0 {
		return common.ErrInvalidAmount
	}
	t := &Transaction{
		UserID:   accountID,
		UserName: accountName,
		Type:     TypeBonus,
		Amount:   common.CoinsToMoney(coins),
		Status:   StatusCompleted,
	}
	return s.store.GrantBonus(ctx, t, coins, day, streak)
}

// RecordSpin засчитывает вращение колеса и начисляет выигрыш.
// Счётчик вращений и деньги меняются одной транзакцией БД; нулевой
// выигрыш двигает только счётчик, без записи в журнал.
func (s *Service) RecordSpin(ctx context.Context, accountID int64, accountName string, win int64, day time.Time, spins int) error {
	if win < 0 {
		return common.ErrInvalidAmount
	}
	t := &Transaction{
		UserID:   accountID,
		UserName: accountName,
		Type:     TypeSpin,
		Amount:   common.CoinsToMoney(win),
		Status:   StatusCompleted,
	}
	return s.store.GrantSpin(ctx, t, win, day, spins)
}

// GetByID возвращает транзакцию по ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	return s.store.GetByID(ctx, id)
}

// SetStatus переводит ожидающую транзакцию в терминальный статус
// и применяет денежный эффект:
//
//	deposit    + completed → зачисление суммы и монет
//	withdrawal + rejected  → возврат удержанной суммы
//	остальные комбинации   → только смена статуса
//
// Для транзакции не в статусе pending возвращает ErrAlreadyFinalized.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	if status != StatusCompleted && status != StatusRejected {
		return common.ErrInvalidStatus
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !t.IsPending() {
		return common.ErrAlreadyFinalized
	}

	var credit *BalanceCredit
	if (t.Type == TypeDeposit && status == StatusCompleted) ||
		(t.Type == TypeWithdrawal && status == StatusRejected) {
		credit = &BalanceCredit{
			AccountID: t.UserID,
			Coins:     common.MoneyToCoins(t.Amount),
			Money:     t.Amount,
		}
	}

	if err := s.store.Finalize(ctx, id, status, credit); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"tx_id":   id,
		"tx_type": t.Type,
		"status":  status,
		"amount":  t.Amount.String(),
	}).Info("Транзакция закрыта")
	return nil
}

// HistoryFor возвращает последние операции аккаунта.
func (s *Service) HistoryFor(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// ListPending возвращает ожидающие решения транзакции.
func (s *Service) ListPending(ctx context.Context) ([]*Transaction, error) {
	return s.store.ListPending(ctx)
}

// ListAll возвращает весь журнал.
func (s *Service) ListAll(ctx context.Context) ([]*Transaction, error) {
	return s.store.ListAll(ctx)
}

// Stats возвращает агрегаты журнала.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}
