// Package submissions управляет заявками на выполнение заданий:
// подача доказательств, модерация, выплата наград.
// models.go описывает структуры для работы с таблицей submissions.
package submissions

import "time"

// Статусы заявки. Approved и rejected — терминальные.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Submission — заявка исполнителя на выполнение задания.
// RewardCoins — снимок награды на момент подачи: последующее
// редактирование задания не меняет выплату по уже поданной заявке.
type Submission struct {
	ID         int64  `db:"id" json:"id"`
	TaskID     int64  `db:"task_id" json:"taskId"`
	WorkerID   int64  `db:"worker_id" json:"workerId"`
	WorkerName string `db:"worker_name" json:"workerName"` // Снимок имени исполнителя

	ProofText      string `db:"proof_text" json:"proofText"`
	ProofImageMime string `db:"proof_image_mime" json:"proofImageMime,omitempty"`
	ProofImageB64  string `db:"proof_image_b64" json:"proofImageB64,omitempty"` // base64 без префикса data:

	Status      string `db:"status" json:"status"`
	RewardCoins int64  `db:"reward_coins" json:"reward"`
	Verdict     string `db:"verdict" json:"verdict,omitempty"` // Рекомендация оракула (совещательная)

	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
}

// IsPending сообщает, ожидает ли заявка решения.
func (s *Submission) IsPending() bool {
	return s.Status == StatusPending
}

// SubmitParams — данные для подачи заявки.
type SubmitParams struct {
	TaskID         int64
	WorkerID       int64
	ProofText      string
	ProofImageMime string
	ProofImageB64  string
}
