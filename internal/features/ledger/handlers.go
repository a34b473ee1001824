// Package ledger — handlers.go обрабатывает /history — историю операций.
package ledger

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
)

// Handler обрабатывает команды журнала.
type Handler struct {
	service *Service
	lookup  func(ctx context.Context, telegramID int64) (int64, error)
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик журнала. lookup переводит Telegram ID
// во внутренний ID аккаунта.
func NewHandler(service *Service, lookup func(ctx context.Context, telegramID int64) (int64, error), bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, lookup: lookup, bot: bot}
}

// HandleHistory обрабатывает /history — последние 15 операций аккаунта.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	accountID, err := h.lookup(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	list, err := h.service.HistoryFor(ctx, accountID, 15)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		h.sendMessage(chatID, "❌ Не удалось загрузить историю")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "История операций пуста")
		return
	}

	var b strings.Builder
	b.WriteString("📒 История операций\n\n")
	for _, t := range list {
		fmt.Fprintf(&b, "%s · %s %s — %s\n",
			common.FormatDateTime(t.CreatedAt),
			typeLabel(t.Type),
			common.FormatMoney(t.Amount),
			statusLabel(t.Status),
		)
	}
	h.sendMessage(chatID, b.String())
}

func typeLabel(txType string) string {
	switch txType {
	case TypeDeposit:
		return "Пополнение"
	case TypeWithdrawal:
		return "Вывод"
	case TypeEarning:
		return "Заработок"
	case TypeReferral:
		return "Реферал"
	case TypeBonus:
		return "Бонус"
	case TypeSpin:
		return "Колесо"
	default:
		return txType
	}
}

func statusLabel(status string) string {
	switch status {
	case StatusPending:
		return "⏳ ожидает"
	case StatusCompleted:
		return "✅ завершена"
	case StatusRejected:
		return "❌ отклонена"
	default:
		return status
	}
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
