// Package filters отсекает сообщения, которые бот не должен обрабатывать.
package filters

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// AccessFilter пропускает только личные сообщения от незабаненных
// аккаунтов. Незарегистрированные пользователи проходят — им нужен /start.
type AccessFilter struct {
	accounts *accounts.Service
	bot      *tgbotapi.BotAPI
}

func NewAccessFilter(accountsSvc *accounts.Service, bot *tgbotapi.BotAPI) *AccessFilter {
	return &AccessFilter{
		accounts: accountsSvc,
		bot:      bot,
	}
}

func (f *AccessFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "AccessFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "AccessFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (сервисное сообщение?)")
		return false
	}

	// Платформа работает только в личке
	if !message.Chat.IsPrivate() {
		return false
	}

	userID := message.From.ID

	acct, err := f.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			// Новый пользователь — пропускаем до /start
			return true
		}
		log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки аккаунта")
		return false
	}

	if acct.IsBanned {
		log.WithField("user_id", userID).Info("deny: аккаунт забанен")
		msg := tgbotapi.NewMessage(message.Chat.ID, "🚫 Ваш аккаунт заблокирован")
		if _, sendErr := f.bot.Send(msg); sendErr != nil {
			log.WithError(sendErr).Warn("Не удалось отправить сообщение о бане")
		}
		return false
	}

	return true
}
