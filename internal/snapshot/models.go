// Package snapshot выгружает и восстанавливает полное состояние
// платформы одним JSON-документом: аккаунты, каталог, заявки,
// журнал и брендинг. Используется для резервных копий и переноса.
package snapshot

import (
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
)

// Branding — настройки внешнего вида платформы. Хранится одной
// строкой в таблице settings.
type Branding struct {
	SiteName      string `db:"site_name" json:"siteName"`
	LogoURL       string `db:"logo_url" json:"logoUrl"`
	HeroBannerURL string `db:"hero_banner_url" json:"heroBannerUrl"`
}

// DefaultBranding — значения при первом запуске.
func DefaultBranding() *Branding {
	return &Branding{SiteName: "AdsPredia"}
}

// Snapshot — полное состояние платформы. Аккаунты индексируются
// email в нижнем регистре, остальные коллекции — списки в порядке ID.
type Snapshot struct {
	Accounts     map[string]*accounts.Account `json:"users"`
	Tasks        []*tasks.Task                `json:"tasks"`
	Submissions  []*submissions.Submission    `json:"submissions"`
	Transactions []*ledger.Transaction        `json:"transactions"`
	Branding     *Branding                    `json:"branding"`
}

// Normalize приводит снапшот к канонической форме: nil-коллекции
// становятся пустыми, отсутствующий брендинг — дефолтным.
// Восстановление из частичного документа не должно падать.
func (s *Snapshot) Normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]*accounts.Account{}
	}
	if s.Tasks == nil {
		s.Tasks = []*tasks.Task{}
	}
	if s.Submissions == nil {
		s.Submissions = []*submissions.Submission{}
	}
	if s.Transactions == nil {
		s.Transactions = []*ledger.Transaction{}
	}
	if s.Branding == nil {
		s.Branding = DefaultBranding()
	}
}
