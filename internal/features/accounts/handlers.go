// Package accounts — handlers.go обрабатывает команды профиля:
// /start (регистрация), /profile, /balance, /email, /referral.
package accounts

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
)

// Granter начисляет монеты с записью в леджер. Реализуется
// ledger.Service — интерфейс объявлен здесь, чтобы не тянуть
// пакет леджера в accounts.
type Granter interface {
	Grant(ctx context.Context, accountID int64, accountName string, coins int64, txType, method string) error
}

// Handler обрабатывает команды профиля.
type Handler struct {
	service *Service
	granter Granter
	bot     *tgbotapi.BotAPI
	cfg     *config.Config
}

// NewHandler создаёт обработчик команд профиля.
func NewHandler(service *Service, granter Granter, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, granter: granter, bot: bot, cfg: cfg}
}

// HandleStart обрабатывает /start. Аргумент команды — реферальный код
// пригласившего (из deep-link вида t.me/bot?start=REF12345).
// При первой регистрации по чужому коду пригласивший получает бонус.
func (h *Handler) HandleStart(ctx context.Context, chatID, userID int64, name, payload string) {
	acct, inviter, created, err := h.service.EnsureForTelegram(ctx, userID, name, strings.TrimSpace(payload))
	if err != nil {
		log.WithError(err).Error("Ошибка регистрации аккаунта")
		h.sendMessage(chatID, "❌ Не удалось создать аккаунт, попробуйте позже")
		return
	}

	if created && inviter != nil && h.granter != nil {
		bonus := h.cfg.ReferralBonusCoins
		if err := h.granter.Grant(ctx, inviter.ID, inviter.Name, bonus, "referral", ""); err != nil {
			log.WithError(err).WithField("inviter_id", inviter.ID).
				Error("Ошибка начисления реферального бонуса")
		} else {
			log.WithFields(log.Fields{
				"inviter_id": inviter.ID,
				"invited_id": acct.ID,
				"coins":      bonus,
			}).Info("Начислен реферальный бонус")
		}
	}

	var text string
	if created {
		text = fmt.Sprintf(
			"👋 Добро пожаловать на AdsPredia, %s!\n\n"+
				"Выполняйте задания, получайте монеты и выводите деньги.\n"+
				"Курс: %d монет = $1\n\n"+
				"Ваш реферальный код: %s\n\n"+
				"Команды: /tasks — задания, /bonus — ежедневный бонус, /help — справка",
			acct.Name, common.CoinsPerUnit, acct.ReferralCode,
		)
	} else {
		text = fmt.Sprintf(
			"С возвращением, %s!\n\n"+
				"💰 Монеты: %s\n"+
				"💵 Баланс: %s\n\n"+
				"/tasks — задания, /help — справка",
			acct.Name, common.FormatCoins(acct.Coins), common.FormatMoney(acct.Balance),
		)
	}
	h.sendMessage(chatID, text)
}

// HandleProfile обрабатывает /profile — карточка аккаунта.
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64) {
	acct, err := h.service.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendNotRegistered(chatID)
		return
	}

	text := fmt.Sprintf(
		"👤 Профиль\n\n"+
			"Имя: %s\n"+
			"Email: %s\n"+
			"Роль: %s\n"+
			"Дата регистрации: %s\n\n"+
			"💰 Монеты: %s\n"+
			"💵 Баланс: %s\n\n"+
			"🔥 Серия бонусов: %d %s\n"+
			"👥 Приглашено: %d",
		acct.Name, acct.Email, acct.Role,
		common.FormatDateTime(acct.JoinedAt),
		common.FormatCoins(acct.Coins), common.FormatMoney(acct.Balance),
		acct.LoginStreak, common.PluralizeDays(acct.LoginStreak),
		acct.ReferralCount,
	)
	h.sendMessage(chatID, text)
}

// HandleBalance обрабатывает /balance — короткая сводка по деньгам.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	acct, err := h.service.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendNotRegistered(chatID)
		return
	}

	text := fmt.Sprintf(
		"💰 Монеты: %s\n💵 Баланс: %s\n\nМинимальная сумма вывода: %s",
		common.FormatCoins(acct.Coins),
		common.FormatMoney(acct.Balance),
		common.FormatMoney(h.cfg.MinWithdrawal),
	)
	h.sendMessage(chatID, text)
}

// HandleEmail обрабатывает /email <адрес> — смена email аккаунта.
func (h *Handler) HandleEmail(ctx context.Context, chatID, userID int64, arg string) {
	acct, err := h.service.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendNotRegistered(chatID)
		return
	}

	email := strings.ToLower(strings.TrimSpace(arg))
	if email == "" || !strings.Contains(email, "@") {
		h.sendMessage(chatID, "Использование: /email адрес@почты")
		return
	}
	if email == acct.Email {
		h.sendMessage(chatID, "Этот email уже привязан к вашему аккаунту")
		return
	}
	if _, err := h.service.GetByEmail(ctx, email); err == nil {
		h.sendMessage(chatID, "❌ Этот email уже занят другим аккаунтом")
		return
	}

	acct.Email = email
	if err := h.service.Update(ctx, acct); err != nil {
		log.WithError(err).Error("Ошибка смены email")
		h.sendMessage(chatID, "❌ Не удалось сменить email")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Email изменён на %s", email))
}

// HandleReferral обрабатывает /referral — код и статистика приглашений.
func (h *Handler) HandleReferral(ctx context.Context, chatID, userID int64) {
	acct, err := h.service.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendNotRegistered(chatID)
		return
	}

	text := fmt.Sprintf(
		"👥 Реферальная программа\n\n"+
			"Ваш код: %s\n"+
			"Приглашено: %d\n\n"+
			"За каждого приглашённого вы получаете %s.\n"+
			"Ссылка: t.me/%s?start=%s",
		acct.ReferralCode, acct.ReferralCount,
		common.FormatCoins(h.cfg.ReferralBonusCoins),
		h.bot.Self.UserName, acct.ReferralCode,
	)
	h.sendMessage(chatID, text)
}

func (h *Handler) sendNotRegistered(chatID int64) {
	h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
