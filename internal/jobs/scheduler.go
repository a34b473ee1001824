// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночное авто-отклонение
// зависших заявок и часовая очистка истёкших админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/features/admin"
	"adspredia.site/platform-bot/internal/features/submissions"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	submissions *submissions.Service
	adminRepo   *admin.Repository
	cfg         *config.Config
}

// NewScheduler создаёт планировщик задач в часовом поясе платформы.
func NewScheduler(submissionSvc *submissions.Service, adminRepo *admin.Repository, cfg *config.Config) *Scheduler {
	loc := cfg.Location()
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:        c,
		submissions: submissionSvc,
		adminRepo:   adminRepo,
		cfg:         cfg,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночью отклоняем заявки без решения старше настроенного срока
	s.cron.AddFunc("30 0 * * *", func() {
		log.Info("[CRON] Авто-отклонение зависших заявок")
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		n, err := s.submissions.RejectStale(jobCtx, s.cfg.SubmissionStaleAfterDays)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка авто-отклонения")
			return
		}
		log.WithField("count", n).Info("[CRON] Авто-отклонение завершено")
	})

	// Каждый час чистим истёкшие админ-сессии
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Очистка истёкших админ-сессий")
		jobCtx, cancel := context.WithTimeout(ctx, 1*time.Minute)
		defer cancel()
		n, err := s.adminRepo.CleanupExpiredSessions(jobCtx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки сессий")
			return
		}
		if n > 0 {
			log.WithField("count", n).Info("[CRON] Деактивированы истёкшие сессии")
		}
	})

	s.cron.Start()
	log.WithField("timezone", s.cfg.AppTimezone).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
