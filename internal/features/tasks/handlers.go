// Package tasks — handlers.go обрабатывает команды каталога:
// /tasks — список открытых заданий, /task <id> — карточка,
// /newtask — создание задания рекламодателем.
package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// Handler обрабатывает команды каталога заданий.
type Handler struct {
	service  *Service
	accounts *accounts.Service
	bot      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик каталога.
func NewHandler(service *Service, accountsSvc *accounts.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, accounts: accountsSvc, bot: bot}
}

// HandleTasks обрабатывает /tasks [категория] — список открытых заданий.
func (h *Handler) HandleTasks(ctx context.Context, chatID int64, arg string) {
	category := strings.TrimSpace(arg)
	list, err := h.service.ListAvailable(ctx, category)
	if err != nil {
		log.WithError(err).Error("Ошибка получения каталога")
		h.sendMessage(chatID, "❌ Не удалось загрузить задания")
		return
	}

	if len(list) == 0 {
		h.sendMessage(chatID, "Сейчас нет доступных заданий. Загляните позже!")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Доступные задания\n\n")
	for _, t := range list {
		fmt.Fprintf(&b, "#%d · %s [%s]\n    Награда: %s · Осталось мест: %d\n",
			t.ID, t.Title, t.Category,
			common.FormatCoins(t.RewardCoins),
			t.CompletionLimit-t.Completions,
		)
	}
	b.WriteString("\nПодробнее: /task <номер>")
	h.sendMessage(chatID, b.String())
}

// HandleTask обрабатывает /task <id> — карточка задания с инструкциями.
func (h *Handler) HandleTask(ctx context.Context, chatID int64, arg string) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "Использование: /task <номер задания>")
		return
	}

	t, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.sendMessage(chatID, "❌ Задание не найдено")
		return
	}
	if !t.IsOpen() {
		h.sendMessage(chatID, "Это задание больше не принимает заявки")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n\nКатегория: %s\nНаграда: %s\n\n%s\n",
		t.Title, t.Category, common.FormatCoins(t.RewardCoins), t.Description)
	if t.Link != "" {
		fmt.Fprintf(&b, "\nСсылка: %s\n", t.Link)
	}
	if len(t.Instructions) > 0 {
		b.WriteString("\nИнструкции:\n")
		for i, step := range t.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	fmt.Fprintf(&b, "\nОтправить доказательство: /submit %d <текст>", t.ID)
	h.sendMessage(chatID, b.String())
}

// HandleNewTask обрабатывает /newtask — создание задания рекламодателем.
// Поля разделяются вертикальной чертой:
//
//	/newtask Название | Категория | награда | лимит | описание | ссылка
func (h *Handler) HandleNewTask(ctx context.Context, chatID, userID int64, args string) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}
	if !acct.CanCreateTasks() {
		h.sendMessage(chatID, "Создание заданий доступно только рекламодателям")
		return
	}

	parts := strings.Split(args, "|")
	if len(parts) < 4 {
		h.sendMessage(chatID,
			"Использование:\n/newtask Название | Категория | награда_в_монетах | лимит | описание | ссылка\n\n"+
				"Категории: "+strings.Join(Categories, ", "))
		return
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	reward, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || reward <= 0 {
		h.sendMessage(chatID, "Награда должна быть положительным числом монет")
		return
	}
	limit, err := strconv.Atoi(parts[3])
	if err != nil || limit <= 0 {
		h.sendMessage(chatID, "Лимит выполнений должен быть положительным числом")
		return
	}

	p := CreateParams{
		Title:           parts[0],
		Category:        parts[1],
		RewardCoins:     reward,
		CreatorID:       acct.ID,
		CompletionLimit: limit,
	}
	if len(parts) > 4 {
		p.Description = parts[4]
	}
	if len(parts) > 5 {
		p.Link = parts[5]
	}

	t, err := h.service.Create(ctx, p)
	if err != nil {
		log.WithError(err).Error("Ошибка создания задания")
		h.sendMessage(chatID, "❌ Не удалось создать задание")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Задание #%d создано\n%s · %s · лимит %d",
		t.ID, t.Title, common.FormatCoins(t.RewardCoins), t.CompletionLimit))
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
