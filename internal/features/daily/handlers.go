// Package daily — handlers.go обрабатывает /bonus и /spin.
package daily

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// Handler обрабатывает команды дневных механик.
type Handler struct {
	service  *Service
	accounts *accounts.Service
	bot      *tgbotapi.BotAPI
	cfg      *config.Config
}

// NewHandler создаёт обработчик дневных механик.
func NewHandler(service *Service, accountsSvc *accounts.Service, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, accounts: accountsSvc, bot: bot, cfg: cfg}
}

// HandleBonus обрабатывает /bonus — выдача ежедневного бонуса.
func (h *Handler) HandleBonus(ctx context.Context, chatID, userID int64) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	res, err := h.service.ClaimBonus(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyClaimed) {
			h.sendMessage(chatID, "Бонус за сегодня уже получен. Возвращайтесь завтра!")
			return
		}
		log.WithError(err).Error("Ошибка выдачи бонуса")
		h.sendMessage(chatID, "❌ Не удалось выдать бонус")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🎁 Ежедневный бонус: +%s\n🔥 Серия: %d %s",
		common.FormatCoins(res.Coins),
		res.Streak, common.PluralizeDays(res.Streak),
	))
}

// HandleSpin обрабатывает /spin — вращение колеса фортуны.
// Приз выбирается равновероятно из настроенного списка.
func (h *Handler) HandleSpin(ctx context.Context, chatID, userID int64) {
	if !h.cfg.FeatureSpinEnabled {
		h.sendMessage(chatID, "Колесо фортуны временно отключено")
		return
	}

	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	win, err := h.pickPrize()
	if err != nil {
		log.WithError(err).Error("Ошибка выбора приза")
		h.sendMessage(chatID, "❌ Колесо заело, попробуйте ещё раз")
		return
	}

	res, err := h.service.Spin(ctx, acct.ID, win)
	if err != nil {
		if errors.Is(err, common.ErrSpinLimitReached) {
			h.sendMessage(chatID, fmt.Sprintf(
				"Лимит вращений на сегодня исчерпан (%d в день). Возвращайтесь завтра!",
				h.cfg.SpinDailyLimit))
			return
		}
		log.WithError(err).Error("Ошибка вращения колеса")
		h.sendMessage(chatID, "❌ Не удалось крутануть колесо")
		return
	}

	var text string
	if res.Win > 0 {
		text = fmt.Sprintf("🎰 Колесо остановилось... +%s!", common.FormatCoins(res.Win))
	} else {
		text = "🎰 Колесо остановилось... пусто. Повезёт в следующий раз!"
	}
	text += fmt.Sprintf("\nОсталось вращений: %d %s",
		res.SpinsLeft, common.PluralizeSpins(res.SpinsLeft))
	h.sendMessage(chatID, text)
}

// pickPrize выбирает случайный приз из настроенного списка.
func (h *Handler) pickPrize() (int64, error) {
	prizes := h.cfg.SpinPrizes
	if len(prizes) == 0 {
		return 0, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(prizes))))
	if err != nil {
		return 0, err
	}
	return prizes[n.Int64()], nil
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
