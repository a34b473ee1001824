// Package daily управляет дневными механиками: ежедневный бонус
// с серией входов и колесо фортуны с лимитом вращений.
// Календарный день считается в часовом поясе платформы.
package daily

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// Accounts — чтение аккаунтов. Реализуется accounts.Service.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (*accounts.Account, error)
}

// Ledger — атомарные дневные начисления: деньги, отметка дня и запись
// в журнал проходят одной транзакцией БД. Реализуется ledger.Service.
type Ledger interface {
	GrantDailyBonus(ctx context.Context, accountID int64, accountName string, coins int64, day time.Time, streak int) error
	RecordSpin(ctx context.Context, accountID int64, accountName string, win int64, day time.Time, spins int) error
}

// Service реализует дневные механики.
type Service struct {
	accounts   Accounts
	ledger     Ledger
	loc        *time.Location
	bonusCoins int64
	spinLimit  int

	now func() time.Time // Подменяется в тестах
}

// NewService создаёт сервис дневных механик.
func NewService(accountsSvc Accounts, ledgerSvc Ledger, loc *time.Location, bonusCoins int64, spinLimit int) *Service {
	return &Service{
		accounts:   accountsSvc,
		ledger:     ledgerSvc,
		loc:        loc,
		bonusCoins: bonusCoins,
		spinLimit:  spinLimit,
		now:        time.Now,
	}
}

// BonusResult — итог выдачи ежедневного бонуса.
type BonusResult struct {
	Coins  int64 // Начислено монет
	Streak int   // Новая серия входов
}

// ClaimBonus выдаёт ежедневный бонус. Повторная попытка в тот же
// календарный день — ErrAlreadyClaimed. Серия только растёт:
// пропущенный день её не обнуляет. Отметка дня и начисление проходят
// одной транзакцией БД: сорвавшаяся выдача не съедает день.
func (s *Service) ClaimBonus(ctx context.Context, accountID int64) (*BonusResult, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	if common.SameDay(acct.LastBonusDate, now, s.loc) {
		return nil, common.ErrAlreadyClaimed
	}

	streak := acct.LoginStreak + 1
	if err := s.ledger.GrantDailyBonus(ctx, accountID, acct.Name, s.bonusCoins, dayOf(now), streak); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"coins":      s.bonusCoins,
		"streak":     streak,
	}).Info("Выдан ежедневный бонус")

	return &BonusResult{Coins: s.bonusCoins, Streak: streak}, nil
}

// SpinResult — итог вращения колеса.
type SpinResult struct {
	Win       int64 // Выигрыш в монетах (0 — пусто)
	SpinsLeft int   // Осталось вращений сегодня
}

// Spin засчитывает вращение колеса и начисляет выигрыш.
// Счётчик вращений сбрасывается с наступлением нового календарного
// дня; при исчерпании лимита — ErrSpinLimitReached. Нулевой выигрыш
// в журнал не пишется.
func (s *Service) Spin(ctx context.Context, accountID int64, win int64) (*SpinResult, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	spins := acct.SpinsToday
	if !common.SameDay(acct.LastSpinDate, now, s.loc) {
		spins = 0
	}
	if spins >= s.spinLimit {
		return nil, common.ErrSpinLimitReached
	}

	spins++
	if err := s.ledger.RecordSpin(ctx, accountID, acct.Name, win, dayOf(now), spins); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"win":        win,
		"spins":      spins,
	}).Info("Вращение колеса")

	return &SpinResult{Win: win, SpinsLeft: s.spinLimit - spins}, nil
}

// dayOf обрезает время до начала календарного дня.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
