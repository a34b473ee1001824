// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики фич и запускает polling.
package bot

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/bot/filters"
	"adspredia.site/platform-bot/internal/bot/middleware"
	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/admin"
	"adspredia.site/platform-bot/internal/features/daily"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/reconcile"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	accessFilter *filters.AccessFilter
	rateLimiter  *middleware.RateLimiter

	accountHandler    *accounts.Handler
	taskHandler       *tasks.Handler
	submissionHandler *submissions.Handler
	ledgerHandler     *ledger.Handler
	dailyHandler      *daily.Handler
	reconcileHandler  *reconcile.Handler
	adminHandler      *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	accountHandler *accounts.Handler,
	taskHandler *tasks.Handler,
	submissionHandler *submissions.Handler,
	ledgerHandler *ledger.Handler,
	dailyHandler *daily.Handler,
	reconcileHandler *reconcile.Handler,
	adminHandler *admin.Handler,
	accessFilter *filters.AccessFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:               api,
		cfg:               cfg,
		accessFilter:      accessFilter,
		rateLimiter:       middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		accountHandler:    accountHandler,
		taskHandler:       taskHandler,
		submissionHandler: submissionHandler,
		ledgerHandler:     ledgerHandler,
		dailyHandler:      dailyHandler,
		reconcileHandler:  reconcileHandler,
		adminHandler:      adminHandler,
		parser:            NewCommandParser(),
		inflight:          make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil {
		return
	}
	message := update.Message

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if text == "" && message.Photo == nil {
		return
	}

	middleware.LogMessage(message)

	if !b.accessFilter.CheckAccess(ctx, message) {
		return
	}

	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Админ-панель перехватывает DM-сообщения своих пользователей
	if b.adminHandler.HandleAdminMessage(ctx, chatID, userID, text) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(text)
	if !isCommand {
		return
	}

	b.routeCommand(ctx, message, chatID, userID, cmd, strings.Join(args, " "))
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, chatID, userID int64, cmd, args string) {
	name := displayName(message.From)

	switch cmd {
	case "start":
		b.accountHandler.HandleStart(ctx, chatID, userID, name, args)

	case "help":
		b.sendHelp(chatID)

	case "profile":
		b.accountHandler.HandleProfile(ctx, chatID, userID)

	case "balance":
		b.accountHandler.HandleBalance(ctx, chatID, userID)

	case "email":
		b.accountHandler.HandleEmail(ctx, chatID, userID, args)

	case "referral":
		b.accountHandler.HandleReferral(ctx, chatID, userID)

	case "tasks":
		b.taskHandler.HandleTasks(ctx, chatID, args)

	case "task":
		b.taskHandler.HandleTask(ctx, chatID, args)

	case "newtask":
		b.taskHandler.HandleNewTask(ctx, chatID, userID, args)

	case "submit":
		mime, data := b.extractPhoto(message)
		b.submissionHandler.HandleSubmit(ctx, chatID, userID, args, mime, data)

	case "mysubmissions":
		b.submissionHandler.HandleMySubmissions(ctx, chatID, userID)

	case "review":
		b.submissionHandler.HandleReview(ctx, chatID, userID)

	case "approve":
		b.submissionHandler.HandleApprove(ctx, chatID, userID, args)

	case "reject":
		b.submissionHandler.HandleReject(ctx, chatID, userID, args)

	case "history":
		b.ledgerHandler.HandleHistory(ctx, chatID, userID)

	case "bonus":
		b.dailyHandler.HandleBonus(ctx, chatID, userID)

	case "spin":
		b.dailyHandler.HandleSpin(ctx, chatID, userID)

	case "withdraw":
		b.reconcileHandler.HandleWithdraw(ctx, chatID, userID, args)

	case "deposit":
		b.reconcileHandler.HandleDeposit(ctx, chatID, userID, args)

	case "stats":
		b.reconcileHandler.HandleStats(ctx, chatID)
	}
}

// extractPhoto скачивает самое крупное фото сообщения и возвращает
// его MIME-тип и base64. Ошибка не фатальна — заявка уйдёт без фото.
func (b *Bot) extractPhoto(message *tgbotapi.Message) (string, string) {
	if len(message.Photo) == 0 {
		return "", ""
	}

	// Последний элемент — максимальное разрешение
	photo := message.Photo[len(message.Photo)-1]
	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		log.WithError(err).Warn("Не удалось получить URL фото")
		return "", ""
	}

	resp, err := http.Get(url)
	if err != nil {
		log.WithError(err).Warn("Не удалось скачать фото")
		return "", ""
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		log.WithError(err).Warn("Не удалось прочитать фото")
		return "", ""
	}

	return "image/jpeg", base64.StdEncoding.EncodeToString(data)
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendMessage(chatID,
		"📖 Команды AdsPredia\n\n"+
			"Исполнителям:\n"+
			"/tasks — доступные задания\n"+
			"/task <номер> — карточка задания\n"+
			"/submit <номер> <доказательство> — подать заявку\n"+
			"/mysubmissions — мои заявки\n"+
			"/bonus — ежедневный бонус\n"+
			"/spin — колесо фортуны\n"+
			"/withdraw — вывод средств\n\n"+
			"Рекламодателям:\n"+
			"/newtask — создать задание\n"+
			"/review — очередь модерации\n"+
			"/approve, /reject — решения по заявкам\n"+
			"/deposit — пополнение\n\n"+
			"Общее:\n"+
			"/profile, /balance, /history, /referral, /stats")
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

// CommandParser парсит команды с префиксами / и !
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// Команда может приходить как /start@BotName
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
