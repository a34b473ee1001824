// Package reconcile — handlers.go обрабатывает /withdraw, /deposit и /stats.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
)

// Handler обрабатывает денежные команды.
type Handler struct {
	service  *Service
	accounts *accounts.Service
	bot      *tgbotapi.BotAPI
	cfg      *config.Config
}

// NewHandler создаёт обработчик денежных команд.
func NewHandler(service *Service, accountsSvc *accounts.Service, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, accounts: accountsSvc, bot: bot, cfg: cfg}
}

// HandleWithdraw обрабатывает
// /withdraw <сумма> <способ> <номер счёта> <имя получателя>.
func (h *Handler) HandleWithdraw(ctx context.Context, chatID, userID int64, args string) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	fields := strings.Fields(args)
	if len(fields) < 4 {
		h.sendMessage(chatID, fmt.Sprintf(
			"Использование: /withdraw <сумма> <способ> <номер счёта> <имя>\n"+
				"Способы: %s\nМинимум: %s",
			strings.Join(ledger.PaymentMethods, ", "),
			common.FormatMoney(h.cfg.MinWithdrawal)))
		return
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		h.sendMessage(chatID, "Сумма должна быть числом, например: 5.00")
		return
	}
	method := fields[1]
	if !validMethod(method) {
		h.sendMessage(chatID, "Неизвестный способ. Доступны: "+strings.Join(ledger.PaymentMethods, ", "))
		return
	}
	accountNumber := fields[2]
	accountName := strings.Join(fields[3:], " ")

	t, err := h.service.RequestWithdrawal(ctx, acct.ID, amount, method, accountNumber, accountName)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAmountBelowMinimum):
			h.sendMessage(chatID, fmt.Sprintf("Минимальная сумма вывода: %s",
				common.FormatMoney(h.cfg.MinWithdrawal)))
		case errors.Is(err, common.ErrInsufficientBalance):
			h.sendMessage(chatID, fmt.Sprintf("Недостаточно средств. Ваш баланс: %s",
				common.FormatMoney(acct.Balance)))
		case errors.Is(err, common.ErrInvalidAmount):
			h.sendMessage(chatID, "Сумма должна быть больше нуля")
		default:
			log.WithError(err).Error("Ошибка заявки на вывод")
			h.sendMessage(chatID, "❌ Не удалось создать заявку на вывод")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"💸 Заявка на вывод #%d создана\nСумма: %s · %s\n"+
			"Средства удержаны и будут отправлены после подтверждения.",
		t.ID, common.FormatMoney(t.Amount), t.Method))
}

// HandleDeposit обрабатывает /deposit <сумма> [способ] — заявка
// на пополнение (только рекламодатели).
func (h *Handler) HandleDeposit(ctx context.Context, chatID, userID int64, args string) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}
	if !acct.CanCreateTasks() {
		h.sendMessage(chatID, "Пополнение доступно только рекламодателям")
		return
	}

	fields := strings.Fields(args)
	if len(fields) < 1 {
		h.sendMessage(chatID, "Использование: /deposit <сумма> [способ]")
		return
	}
	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		h.sendMessage(chatID, "Сумма должна быть числом, например: 25.00")
		return
	}
	method := ""
	if len(fields) > 1 {
		method = fields[1]
	}

	t, err := h.service.RequestDeposit(ctx, acct.ID, amount, method)
	if err != nil {
		if errors.Is(err, common.ErrInvalidAmount) {
			h.sendMessage(chatID, "Сумма должна быть больше нуля")
			return
		}
		log.WithError(err).Error("Ошибка заявки на пополнение")
		h.sendMessage(chatID, "❌ Не удалось создать заявку на пополнение")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"💳 Заявка на пополнение #%d создана\nСумма: %s\n"+
			"Баланс будет зачислен после подтверждения оплаты.",
		t.ID, common.FormatMoney(t.Amount)))
}

// HandleStats обрабатывает /stats — публичная сводка платформы.
func (h *Handler) HandleStats(ctx context.Context, chatID int64) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики")
		h.sendMessage(chatID, "❌ Не удалось загрузить статистику")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"📊 AdsPredia в цифрах\n\n"+
			"Пользователей: %d\n"+
			"Заданий: %d\n"+
			"Выплачено за задания: %s\n"+
			"Выведено: %s",
		stats.Accounts, stats.Tasks,
		common.FormatMoney(stats.Ledger.TotalEarned),
		common.FormatMoney(stats.Ledger.TotalWithdrawn)))
}

func validMethod(m string) bool {
	for _, v := range ledger.PaymentMethods {
		if strings.EqualFold(m, v) {
			return true
		}
	}
	return false
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
