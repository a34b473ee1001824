// Package reconcile сводит денежные потоки платформы: приём заявок
// на вывод и пополнение, их разрешение и сводная статистика.
// Вывод удерживается с баланса сразу при подаче заявки — отклонение
// возвращает удержанное, подтверждение ничего больше не списывает.
package reconcile

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
)

// Accounts — операции с аккаунтами, которые нужны сверке.
// Реализуется accounts.Service.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (*accounts.Account, error)
	DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) error
	CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) error
	Count(ctx context.Context) (int64, error)
}

// Ledger — операции журнала, которые нужны сверке. Реализуется ledger.Service.
type Ledger interface {
	Append(ctx context.Context, t *ledger.Transaction) error
	SetStatus(ctx context.Context, id int64, status string) error
	ListPending(ctx context.Context) ([]*ledger.Transaction, error)
	Stats(ctx context.Context) (*ledger.Stats, error)
}

// TaskCounter — размер каталога. Реализуется tasks.Service.
type TaskCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Service управляет заявками на движение денег.
type Service struct {
	accounts      Accounts
	ledger        Ledger
	tasks         TaskCounter
	minWithdrawal decimal.Decimal
}

// NewService создаёт сервис сверки.
func NewService(accountsSvc Accounts, ledgerSvc Ledger, tasksSvc TaskCounter, minWithdrawal decimal.Decimal) *Service {
	return &Service{
		accounts:      accountsSvc,
		ledger:        ledgerSvc,
		tasks:         tasksSvc,
		minWithdrawal: minWithdrawal,
	}
}

// RequestWithdrawal создаёт заявку на вывод. Сумма удерживается
// с баланса сразу — повторная заявка не может потратить те же деньги.
func (s *Service) RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, method, accountNumber, accountName string) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}
	if amount.LessThan(s.minWithdrawal) {
		return nil, common.ErrAmountBelowMinimum
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Balance.LessThan(amount) {
		return nil, common.ErrInsufficientBalance
	}

	if err := s.accounts.DebitBalance(ctx, accountID, amount); err != nil {
		return nil, err
	}

	t := &ledger.Transaction{
		UserID:        accountID,
		UserName:      acct.Name,
		Type:          ledger.TypeWithdrawal,
		Amount:        amount,
		Status:        ledger.StatusPending,
		Method:        method,
		AccountNumber: accountNumber,
		AccountName:   accountName,
	}
	if err := s.ledger.Append(ctx, t); err != nil {
		// Деньги удержаны, а заявки нет — возвращаем удержанное
		log.WithError(err).WithField("account_id", accountID).
			Error("Ошибка записи заявки на вывод, возвращаем удержание")
		if refundErr := s.accounts.CreditBalance(ctx, accountID, amount); refundErr != nil {
			log.WithError(refundErr).Error("Возврат удержания не прошёл")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"tx_id":      t.ID,
		"account_id": accountID,
		"amount":     amount.String(),
		"method":     method,
	}).Info("Создана заявка на вывод")
	return t, nil
}

// RequestDeposit создаёт заявку на пополнение. Деньги зачисляются
// только после подтверждения админом.
func (s *Service) RequestDeposit(ctx context.Context, accountID int64, amount decimal.Decimal, method string) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	t := &ledger.Transaction{
		UserID:   accountID,
		UserName: acct.Name,
		Type:     ledger.TypeDeposit,
		Amount:   amount,
		Status:   ledger.StatusPending,
		Method:   method,
	}
	if err := s.ledger.Append(ctx, t); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"tx_id":      t.ID,
		"account_id": accountID,
		"amount":     amount.String(),
	}).Info("Создана заявка на пополнение")
	return t, nil
}

// Resolve закрывает ожидающую транзакцию: approve=true — completed,
// иначе rejected. Денежные эффекты применяет леджер.
func (s *Service) Resolve(ctx context.Context, txID int64, approve bool) error {
	status := ledger.StatusRejected
	if approve {
		status = ledger.StatusCompleted
	}
	return s.ledger.SetStatus(ctx, txID, status)
}

// ListPending возвращает очередь ожидающих транзакций.
func (s *Service) ListPending(ctx context.Context) ([]*ledger.Transaction, error) {
	return s.ledger.ListPending(ctx)
}

// PlatformStats — сводка платформы для /stats и админки.
type PlatformStats struct {
	Accounts int64
	Tasks    int64
	Ledger   *ledger.Stats
}

// Stats собирает сводную статистику платформы.
func (s *Service) Stats(ctx context.Context) (*PlatformStats, error) {
	accountCount, err := s.accounts.Count(ctx)
	if err != nil {
		return nil, err
	}
	taskCount, err := s.tasks.Count(ctx)
	if err != nil {
		return nil, err
	}
	ls, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{Accounts: accountCount, Tasks: taskCount, Ledger: ls}, nil
}
