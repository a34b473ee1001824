// Package admin — handlers.go обрабатывает взаимодействие с админ-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: аутентификация → клавиатура → выбор действия → пошаговый диалог.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/reconcile"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/snapshot"
)

// Кнопки клавиатуры админ-панели
const (
	btnGrantCoins = "Выдать монеты"
	btnTakeCoins  = "Отнять монеты"
	btnChangeRole = "Сменить роль"
	btnToggleBan  = "Бан/разбан"
	btnPayments   = "Платёжные заявки"
	btnTasks      = "Задания"
	btnBranding   = "Брендинг"
	btnSnapshot   = "Снапшот"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service   *Service
	tasks     *tasks.Service
	reconcile *reconcile.Service
	snapshots *snapshot.Service
	bot       *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, tasksSvc *tasks.Service, reconcileSvc *reconcile.Service, snapshotSvc *snapshot.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:   service,
		tasks:     tasksSvc,
		reconcile: reconcileSvc,
		snapshots: snapshotSvc,
		bot:       bot,
	}
}

// HandleAdminMessage обрабатывает любое сообщение от администратора в DM.
// Определяет текущее состояние диалога и маршрутизирует сообщение.
// Возвращает true, если сообщение обработано панелью.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID int64, userID int64, text string) bool {
	if !h.service.IsAdminTelegramID(userID) {
		return false
	}

	state := h.service.GetState(userID)

	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	// Панель открывается только по явному запросу
	wantsPanel := false
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "админ", "панель", "/admin":
		wantsPanel = true
	}

	if !h.service.HasActiveSession(ctx, userID) {
		if !wantsPanel && state == nil {
			return false
		}
		h.sendMessage(chatID, "🔐 Введите пароль для доступа к админ-панели:")
		h.service.SetState(userID, StateAwaitingPassword, nil)
		return true
	}

	if err := h.service.repo.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).Debug("Ошибка обновления активности сессии")
	}

	if wantsPanel {
		h.showKeyboard(chatID)
		return true
	}

	if state != nil {
		switch state.State {
		case StateGrantSelect:
			h.handleAccountSelect(ctx, chatID, userID, text, StateGrantAmount, "Введите количество монет для начисления:")
			return true
		case StateGrantAmount:
			h.handleGrantAmount(ctx, chatID, userID, text, true)
			return true
		case StateTakeSelect:
			h.handleAccountSelect(ctx, chatID, userID, text, StateTakeAmount, "Введите количество монет для изъятия:")
			return true
		case StateTakeAmount:
			h.handleGrantAmount(ctx, chatID, userID, text, false)
			return true
		case StateRoleSelect:
			h.handleAccountSelect(ctx, chatID, userID, text, StateRoleText, "Введите роль (user / advertiser / admin):")
			return true
		case StateRoleText:
			h.handleRoleText(ctx, chatID, userID, text)
			return true
		case StateBanSelect:
			h.handleBanSelect(ctx, chatID, userID, text)
			return true
		case StateTxSelect:
			h.handleTxSelect(ctx, chatID, userID, text)
			return true
		case StateTxDecision:
			h.handleTxDecision(ctx, chatID, userID, text)
			return true
		case StateTaskSelect:
			h.handleTaskSelect(ctx, chatID, userID, text)
			return true
		case StateTaskAction:
			h.handleTaskAction(ctx, chatID, userID, text)
			return true
		case StateBrandingField:
			h.handleBrandingField(ctx, chatID, userID, text)
			return true
		case StateBrandingValue:
			h.handleBrandingValue(ctx, chatID, userID, text)
			return true
		case StateSnapshotMenu:
			h.handleSnapshotMenu(ctx, chatID, userID, text)
			return true
		case StateSnapshotImport:
			h.handleSnapshotImport(ctx, chatID, userID, text)
			return true
		}
	}

	switch text {
	case btnGrantCoins:
		h.startAccountSelect(ctx, chatID, userID, StateGrantSelect)
		return true
	case btnTakeCoins:
		h.startAccountSelect(ctx, chatID, userID, StateTakeSelect)
		return true
	case btnChangeRole:
		h.startAccountSelect(ctx, chatID, userID, StateRoleSelect)
		return true
	case btnToggleBan:
		h.startAccountSelect(ctx, chatID, userID, StateBanSelect)
		return true
	case btnPayments:
		h.startPayments(ctx, chatID, userID)
		return true
	case btnTasks:
		h.startTasks(ctx, chatID, userID)
		return true
	case btnBranding:
		h.startBranding(ctx, chatID, userID)
		return true
	case btnSnapshot:
		h.sendMessage(chatID, "Снапшот состояния:\n1. Выгрузить\n2. Восстановить из JSON")
		h.service.SetState(userID, StateSnapshotMenu, nil)
		return true
	}

	return false
}

// handlePasswordInput обрабатывает ввод пароля.
func (h *Handler) handlePasswordInput(ctx context.Context, chatID int64, userID int64, password string) {
	err := h.service.VerifyPassword(ctx, userID, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			h.sendMessage(chatID, "❌ Слишком много попыток, подождите 1 час")
		case errors.Is(err, common.ErrWrongPassword):
			h.sendMessage(chatID, "❌ Неверный пароль")
		default:
			h.sendMessage(chatID, fmt.Sprintf("❌ %s", err.Error()))
		}
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, "✅ Аутентификация успешна!")
	h.showKeyboard(chatID)
}

// showKeyboard отображает клавиатуру админ-панели.
func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGrantCoins),
			tgbotapi.NewKeyboardButton(btnTakeCoins),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnChangeRole),
			tgbotapi.NewKeyboardButton(btnToggleBan),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPayments),
			tgbotapi.NewKeyboardButton(btnTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBranding),
			tgbotapi.NewKeyboardButton(btnSnapshot),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "✅ Админ-панель открыта")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

// --- Выбор аккаунта (общий первый шаг) ---

func (h *Handler) startAccountSelect(ctx context.Context, chatID, userID int64, nextState string) {
	list, err := h.service.ListAccounts(ctx)
	if err != nil || len(list) == 0 {
		h.sendMessage(chatID, "Аккаунтов нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("Выберите аккаунт (отправьте номер):\n\n")
	for i, a := range list {
		fmt.Fprintf(&sb, "%d. %s (%s) · %s · %s\n",
			i+1, a.Name, a.Role, common.FormatCoins(a.Coins), common.FormatMoney(a.Balance))
	}

	h.sendMessage(chatID, sb.String())
	h.service.SetState(userID, nextState, list)
}

// handleAccountSelect — админ выбрал номер аккаунта, переходим к вводу значения.
func (h *Handler) handleAccountSelect(ctx context.Context, chatID, userID int64, text, nextState, prompt string) {
	state := h.service.GetState(userID)
	list, ok := state.Data.([]*accounts.Account)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(list) {
		h.sendMessage(chatID, "❌ Неверный номер. Попробуйте ещё раз.")
		return
	}

	selected := list[num-1]
	h.sendMessage(chatID, fmt.Sprintf("Аккаунт: %s\n%s", selected.Name, prompt))
	h.service.SetState(userID, nextState, selected)
}

// handleGrantAmount — ввод количества монет для выдачи/изъятия.
func (h *Handler) handleGrantAmount(ctx context.Context, chatID, userID int64, text string, grant bool) {
	state := h.service.GetState(userID)
	selected, ok := state.Data.(*accounts.Account)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	coins, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || coins <= 0 {
		h.sendMessage(chatID, "❌ Введите положительное число монет")
		return
	}

	if grant {
		err = h.service.GrantCoins(ctx, selected.ID, coins)
	} else {
		err = h.service.TakeCoins(ctx, selected.ID, coins)
	}
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		h.service.ClearState(userID)
		return
	}

	verb := "начислено"
	if !grant {
		verb = "изъято"
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ %s: %s %s", selected.Name, verb, common.FormatCoins(coins)))
	h.service.ClearState(userID)
}

// handleRoleText — ввод новой роли.
func (h *Handler) handleRoleText(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	selected, ok := state.Data.(*accounts.Account)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	role := strings.ToLower(strings.TrimSpace(text))
	if err := h.service.ChangeRole(ctx, selected.ID, role); err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		h.service.ClearState(userID)
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Роль изменена: %s → %s", selected.Name, role))
	h.service.ClearState(userID)
}

// handleBanSelect — выбор аккаунта для бана/разбана.
func (h *Handler) handleBanSelect(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	list, ok := state.Data.([]*accounts.Account)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(list) {
		h.sendMessage(chatID, "❌ Неверный номер")
		return
	}

	selected := list[num-1]
	banned, err := h.service.ToggleBan(ctx, selected.ID)
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		h.service.ClearState(userID)
		return
	}

	if banned {
		h.sendMessage(chatID, fmt.Sprintf("🚫 %s забанен", selected.Name))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("✅ %s разбанен", selected.Name))
	}
	h.service.ClearState(userID)
}

// --- Платёжные заявки ---

func (h *Handler) startPayments(ctx context.Context, chatID, userID int64) {
	list, err := h.reconcile.ListPending(ctx)
	if err != nil {
		h.sendMessage(chatID, "❌ Не удалось загрузить заявки")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "Ожидающих платёжных заявок нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("Выберите заявку (отправьте номер):\n\n")
	for i, t := range list {
		fmt.Fprintf(&sb, "%d. %s · %s · %s",
			i+1, t.UserName, paymentLabel(t.Type), common.FormatMoney(t.Amount))
		if t.Method != "" {
			fmt.Fprintf(&sb, " · %s %s", t.Method, t.AccountNumber)
		}
		fmt.Fprintf(&sb, " · %s\n", common.FormatDateTime(t.CreatedAt))
	}

	h.sendMessage(chatID, sb.String())
	h.service.SetState(userID, StateTxSelect, list)
}

func (h *Handler) handleTxSelect(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	list, ok := state.Data.([]*ledger.Transaction)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(list) {
		h.sendMessage(chatID, "❌ Неверный номер")
		return
	}

	selected := list[num-1]
	h.sendMessage(chatID, fmt.Sprintf(
		"Заявка #%d: %s %s от %s\n1. Подтвердить\n2. Отклонить",
		selected.ID, paymentLabel(selected.Type),
		common.FormatMoney(selected.Amount), selected.UserName))
	h.service.SetState(userID, StateTxDecision, selected)
}

func (h *Handler) handleTxDecision(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	selected, ok := state.Data.(*ledger.Transaction)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	choice := strings.TrimSpace(text)
	if choice != "1" && choice != "2" {
		h.sendMessage(chatID, "Отправьте 1 (подтвердить) или 2 (отклонить)")
		return
	}

	approve := choice == "1"
	if err := h.reconcile.Resolve(ctx, selected.ID, approve); err != nil {
		if errors.Is(err, common.ErrAlreadyFinalized) {
			h.sendMessage(chatID, "Эта заявка уже решена")
		} else {
			h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		}
		h.service.ClearState(userID)
		return
	}

	if approve {
		h.sendMessage(chatID, fmt.Sprintf("✅ Заявка #%d подтверждена", selected.ID))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("Заявка #%d отклонена", selected.ID))
	}
	h.service.ClearState(userID)
}

// --- Задания ---

func (h *Handler) startTasks(ctx context.Context, chatID, userID int64) {
	list, err := h.tasks.List(ctx, tasks.Filter{})
	if err != nil || len(list) == 0 {
		h.sendMessage(chatID, "Заданий нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("Выберите задание (отправьте номер):\n\n")
	for i, t := range list {
		auto := ""
		if t.AutoApprove {
			auto = " · авто"
		}
		fmt.Fprintf(&sb, "%d. #%d %s [%s] · %d/%d%s\n",
			i+1, t.ID, t.Title, t.Status, t.Completions, t.CompletionLimit, auto)
	}

	h.sendMessage(chatID, sb.String())
	h.service.SetState(userID, StateTaskSelect, list)
}

func (h *Handler) handleTaskSelect(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	list, ok := state.Data.([]*tasks.Task)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(list) {
		h.sendMessage(chatID, "❌ Неверный номер")
		return
	}

	selected := list[num-1]
	h.sendMessage(chatID, fmt.Sprintf(
		"Задание #%d: %s\n1. Приостановить\n2. Возобновить\n3. Снять с публикации\n4. Удалить\n5. Переключить авто-одобрение",
		selected.ID, selected.Title))
	h.service.SetState(userID, StateTaskAction, selected)
}

func (h *Handler) handleTaskAction(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	selected, ok := state.Data.(*tasks.Task)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	var err error
	var result string
	switch strings.TrimSpace(text) {
	case "1":
		err = h.tasks.Pause(ctx, selected.ID)
		result = "приостановлено"
	case "2":
		err = h.tasks.Resume(ctx, selected.ID)
		result = "возобновлено"
	case "3":
		err = h.tasks.Remove(ctx, selected.ID)
		result = "снято с публикации"
	case "4":
		err = h.tasks.Delete(ctx, selected.ID)
		result = "удалено"
	case "5":
		err = h.tasks.SetAutoApprove(ctx, selected.ID, !selected.AutoApprove)
		result = fmt.Sprintf("авто-одобрение: %v", !selected.AutoApprove)
	default:
		h.sendMessage(chatID, "Отправьте число от 1 до 5")
		return
	}

	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("✅ Задание #%d: %s", selected.ID, result))
	}
	h.service.ClearState(userID)
}

// --- Брендинг ---

func (h *Handler) startBranding(ctx context.Context, chatID, userID int64) {
	b, err := h.snapshots.GetBranding(ctx)
	if err != nil {
		h.sendMessage(chatID, "❌ Не удалось загрузить брендинг")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"Текущий брендинг:\nНазвание: %s\nЛоготип: %s\nБаннер: %s\n\n"+
			"Что изменить?\n1. Название\n2. Логотип (URL)\n3. Баннер (URL)",
		b.SiteName, valueOrDash(b.LogoURL), valueOrDash(b.HeroBannerURL)))
	h.service.SetState(userID, StateBrandingField, b)
}

func (h *Handler) handleBrandingField(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	b, ok := state.Data.(*snapshot.Branding)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	choice := strings.TrimSpace(text)
	if choice != "1" && choice != "2" && choice != "3" {
		h.sendMessage(chatID, "Отправьте 1, 2 или 3")
		return
	}

	h.sendMessage(chatID, "Введите новое значение:")
	h.service.SetState(userID, StateBrandingValue, &brandingEdit{branding: b, field: choice})
}

type brandingEdit struct {
	branding *snapshot.Branding
	field    string
}

func (h *Handler) handleBrandingValue(ctx context.Context, chatID, userID int64, text string) {
	state := h.service.GetState(userID)
	edit, ok := state.Data.(*brandingEdit)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	value := strings.TrimSpace(text)
	switch edit.field {
	case "1":
		edit.branding.SiteName = value
	case "2":
		edit.branding.LogoURL = value
	case "3":
		edit.branding.HeroBannerURL = value
	}

	if err := h.snapshots.SaveBranding(ctx, edit.branding); err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
	} else {
		h.sendMessage(chatID, "✅ Брендинг обновлён")
	}
	h.service.ClearState(userID)
}

// --- Снапшот ---

func (h *Handler) handleSnapshotMenu(ctx context.Context, chatID, userID int64, text string) {
	switch strings.TrimSpace(text) {
	case "1":
		h.service.ClearState(userID)
		data, err := h.snapshots.Export(ctx)
		if err != nil {
			h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка выгрузки: %s", err.Error()))
			return
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("adspredia-%s.json", time.Now().Format("2006-01-02")),
			Bytes: data,
		})
		if _, err := h.bot.Send(doc); err != nil {
			log.WithError(err).Error("Ошибка отправки снапшота")
			h.sendMessage(chatID, "❌ Не удалось отправить файл")
		}
	case "2":
		h.sendMessage(chatID, "⚠️ Восстановление ЗАМЕНИТ все данные платформы.\nОтправьте JSON-снапшот одним сообщением:")
		h.service.SetState(userID, StateSnapshotImport, nil)
	default:
		h.sendMessage(chatID, "Отправьте 1 (выгрузить) или 2 (восстановить)")
	}
}

func (h *Handler) handleSnapshotImport(ctx context.Context, chatID, userID int64, text string) {
	h.service.ClearState(userID)

	if err := h.snapshots.Import(ctx, []byte(text)); err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка восстановления: %s", err.Error()))
		return
	}
	h.sendMessage(chatID, "✅ Состояние платформы восстановлено из снапшота")
}

func paymentLabel(txType string) string {
	switch txType {
	case ledger.TypeDeposit:
		return "пополнение"
	case ledger.TypeWithdrawal:
		return "вывод"
	default:
		return txType
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
