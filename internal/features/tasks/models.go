// Package tasks управляет каталогом заданий: создание, листинг,
// статусы и счётчик выполнений с жёстким лимитом.
// models.go описывает структуры для работы с таблицей tasks.
package tasks

import "time"

// Статусы задания
const (
	StatusAvailable = "available" // Принимает заявки
	StatusPaused    = "paused"    // Временно скрыто из каталога
	StatusRemoved   = "removed"   // Снято рекламодателем или админом
	StatusCompleted = "completed" // Достигнут лимит выполнений
)

// Категории заданий
var Categories = []string{
	"Spin & Income",
	"YouTube",
	"Social Media",
	"Website Visit",
	"App Engagement",
}

// Task представляет задание в каталоге.
// Completions никогда не превышает CompletionLimit: при достижении
// лимита задание автоматически переводится в статус completed.
type Task struct {
	ID              int64    `db:"id" json:"id"`
	Title           string   `db:"title" json:"title"`
	Category        string   `db:"category" json:"category"`
	Description     string   `db:"description" json:"description"`
	RewardCoins     int64    `db:"reward_coins" json:"reward"`       // Награда за выполнение, в монетах
	Instructions    []string `db:"instructions" json:"instructions"` // Пошаговые инструкции
	Status          string   `db:"status" json:"status"`
	CreatorID       int64    `db:"creator_id" json:"creatorId"` // Аккаунт рекламодателя
	Completions     int      `db:"completions" json:"completions"`
	CompletionLimit int      `db:"completion_limit" json:"completionLimit"`
	AutoApprove     bool     `db:"auto_approve" json:"autoApprove"` // Заявки одобряются мгновенно
	Link            string   `db:"link" json:"link"`                // Целевая ссылка (видео, сайт, приложение)

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// IsOpen сообщает, принимает ли задание новые заявки.
func (t *Task) IsOpen() bool {
	return t.Status == StatusAvailable && t.Completions < t.CompletionLimit
}

// Filter ограничивает выборку каталога.
type Filter struct {
	Category  string // Пустая строка — все категории
	Status    string // Пустая строка — все статусы
	CreatorID int64  // 0 — все рекламодатели
}

// CreateParams — данные для создания задания.
type CreateParams struct {
	Title           string
	Category        string
	Description     string
	RewardCoins     int64
	Instructions    []string
	CreatorID       int64
	CompletionLimit int
	AutoApprove     bool
	Link            string
}
