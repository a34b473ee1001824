// Package submissions — handlers.go обрабатывает команды заявок:
// /submit, /mysubmissions — для исполнителей,
// /review, /approve, /reject — для рекламодателей.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
)

// Handler обрабатывает команды заявок.
type Handler struct {
	service  *Service
	accounts *accounts.Service
	bot      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик заявок.
func NewHandler(service *Service, accountsSvc *accounts.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, accounts: accountsSvc, bot: bot}
}

// HandleSubmit обрабатывает /submit <id задания> <текст доказательства>.
// Если команда пришла подписью к фото, imageMime и imageB64 заполнены.
func (h *Handler) HandleSubmit(ctx context.Context, chatID, userID int64, args, imageMime, imageB64 string) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	taskArg, proof, _ := strings.Cut(strings.TrimSpace(args), " ")
	taskID, err := strconv.ParseInt(taskArg, 10, 64)
	if err != nil {
		h.sendMessage(chatID, "Использование: /submit <номер задания> <доказательство>")
		return
	}
	proof = strings.TrimSpace(proof)
	if proof == "" && imageB64 == "" {
		h.sendMessage(chatID, "Добавьте текст или фото с доказательством выполнения")
		return
	}

	sub, err := h.service.Submit(ctx, SubmitParams{
		TaskID:         taskID,
		WorkerID:       acct.ID,
		ProofText:      proof,
		ProofImageMime: imageMime,
		ProofImageB64:  imageB64,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTaskNotFound):
			h.sendMessage(chatID, "❌ Задание не найдено")
		case errors.Is(err, common.ErrTaskUnavailable):
			h.sendMessage(chatID, "Это задание больше не принимает заявки")
		case errors.Is(err, common.ErrAlreadyClaimed):
			h.sendMessage(chatID, "Вы уже подавали заявку на это задание")
		default:
			log.WithError(err).Error("Ошибка подачи заявки")
			h.sendMessage(chatID, "❌ Не удалось подать заявку, попробуйте позже")
		}
		return
	}

	if sub.Status == StatusApproved {
		h.sendMessage(chatID, fmt.Sprintf(
			"✅ Заявка одобрена автоматически!\nНачислено: %s",
			common.FormatCoins(sub.RewardCoins)))
		return
	}
	h.sendMessage(chatID, fmt.Sprintf(
		"📨 Заявка #%d отправлена на модерацию.\nНаграда после одобрения: %s",
		sub.ID, common.FormatCoins(sub.RewardCoins)))
}

// HandleMySubmissions обрабатывает /mysubmissions — заявки исполнителя.
func (h *Handler) HandleMySubmissions(ctx context.Context, chatID, userID int64) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}

	list, err := h.service.ListByWorker(ctx, acct.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения заявок")
		h.sendMessage(chatID, "❌ Не удалось загрузить заявки")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "У вас пока нет заявок. Найдите задание: /tasks")
		return
	}

	var b strings.Builder
	b.WriteString("📨 Ваши заявки\n\n")
	for _, s := range list {
		fmt.Fprintf(&b, "#%d · задание %d · %s · %s\n",
			s.ID, s.TaskID, common.FormatCoins(s.RewardCoins), submissionStatusLabel(s.Status))
	}
	h.sendMessage(chatID, b.String())
}

// HandleReview обрабатывает /review — очередь модерации рекламодателя.
func (h *Handler) HandleReview(ctx context.Context, chatID, userID int64) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return
	}
	if !acct.CanCreateTasks() {
		h.sendMessage(chatID, "Модерация доступна только рекламодателям")
		return
	}

	list, err := h.service.ListPendingForCreator(ctx, acct.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения очереди модерации")
		h.sendMessage(chatID, "❌ Не удалось загрузить очередь")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "Очередь модерации пуста")
		return
	}

	var b strings.Builder
	b.WriteString("🔍 Очередь модерации\n\n")
	for _, s := range list {
		fmt.Fprintf(&b, "#%d · %s · задание %d\nДоказательство: %s\n",
			s.ID, s.WorkerName, s.TaskID, truncate(s.ProofText, 120))
		if s.ProofImageB64 != "" {
			b.WriteString("📷 Приложено фото\n")
		}
		if s.Verdict != "" {
			fmt.Fprintf(&b, "🤖 Оракул: %s\n", truncate(s.Verdict, 200))
		}
		b.WriteString("\n")
	}
	b.WriteString("Решение: /approve <номер> или /reject <номер>")
	h.sendMessage(chatID, b.String())
}

// HandleApprove обрабатывает /approve <id заявки>.
func (h *Handler) HandleApprove(ctx context.Context, chatID, userID int64, arg string) {
	sub, ok := h.authorizeDecision(ctx, chatID, userID, arg)
	if !ok {
		return
	}

	if err := h.service.Approve(ctx, sub.ID); err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyProcessed):
			h.sendMessage(chatID, "Эта заявка уже решена")
		case errors.Is(err, common.ErrWorkerNotFound):
			h.sendMessage(chatID, "❌ Аккаунт исполнителя не найден")
		default:
			log.WithError(err).Error("Ошибка одобрения заявки")
			h.sendMessage(chatID, "❌ Не удалось одобрить заявку")
		}
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Заявка #%d одобрена, исполнителю начислено %s",
		sub.ID, common.FormatCoins(sub.RewardCoins)))
}

// HandleReject обрабатывает /reject <id заявки>.
func (h *Handler) HandleReject(ctx context.Context, chatID, userID int64, arg string) {
	sub, ok := h.authorizeDecision(ctx, chatID, userID, arg)
	if !ok {
		return
	}

	if err := h.service.Reject(ctx, sub.ID); err != nil {
		if errors.Is(err, common.ErrAlreadyProcessed) {
			h.sendMessage(chatID, "Эта заявка уже решена")
			return
		}
		log.WithError(err).Error("Ошибка отклонения заявки")
		h.sendMessage(chatID, "❌ Не удалось отклонить заявку")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("Заявка #%d отклонена", sub.ID))
}

// authorizeDecision проверяет, что команда пришла от рекламодателя,
// которому принадлежит задание заявки (или от админа).
func (h *Handler) authorizeDecision(ctx context.Context, chatID, userID int64, arg string) (*Submission, bool) {
	acct, err := h.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "Сначала зарегистрируйтесь: /start")
		return nil, false
	}
	if !acct.CanCreateTasks() {
		h.sendMessage(chatID, "Модерация доступна только рекламодателям")
		return nil, false
	}

	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "Укажите номер заявки, например: /approve 12")
		return nil, false
	}

	sub, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.sendMessage(chatID, "❌ Заявка не найдена")
		return nil, false
	}

	if !acct.IsAdmin() {
		task, err := h.service.tasks.GetByID(ctx, sub.TaskID)
		if err != nil || task.CreatorID != acct.ID {
			h.sendMessage(chatID, "Это заявка по чужому заданию")
			return nil, false
		}
	}
	return sub, true
}

func submissionStatusLabel(status string) string {
	switch status {
	case StatusPending:
		return "⏳ на модерации"
	case StatusApproved:
		return "✅ одобрена"
	case StatusRejected:
		return "❌ отклонена"
	default:
		return status
	}
}

func truncate(s string, n int) string {
	if s == "" {
		return "—"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
