// Package config загружает конфигурацию платформы из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Telegram user ID администраторов через запятую (доступ к админ-панели)
	AdminIDsRaw string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"platform"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"adspredia"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Календарный день для дневных лимитов считается в этом часовом поясе
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Karachi"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Rewards ---
	DailyBonusCoins    int64   `envconfig:"DAILY_BONUS_COINS" default:"50"`
	ReferralBonusCoins int64   `envconfig:"REFERRAL_BONUS_COINS" default:"100"`
	SpinDailyLimit     int     `envconfig:"SPIN_DAILY_LIMIT" default:"3"`
	SpinPrizesRaw      string  `envconfig:"SPIN_PRIZES" default:"0,20,30,50,10,60,0,100,50,10"`
	SpinPrizes         []int64 `envconfig:"-"` // заполним вручную

	// --- Payouts ---
	MinWithdrawalRaw string          `envconfig:"MIN_WITHDRAWAL" default:"3.00"`
	MinWithdrawal    decimal.Decimal `envconfig:"-"` // заполним вручную

	// --- Proof verification oracle ---
	OracleAPIKey  string        `envconfig:"ORACLE_API_KEY" default:""`
	OracleBaseURL string        `envconfig:"ORACLE_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	OracleModel   string        `envconfig:"ORACLE_MODEL" default:"gemini-3-flash-preview"`
	OracleTimeout time.Duration `envconfig:"ORACLE_TIMEOUT" default:"10s"`

	// --- Jobs ---
	// Заявки в статусе pending старше этого срока отклоняются ночной задачей
	SubmissionStaleAfterDays int `envconfig:"SUBMISSION_STALE_AFTER_DAYS" default:"7"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureSpinEnabled   bool `envconfig:"FEATURE_SPIN_ENABLED" default:"true"`
	FeatureOracleEnabled bool `envconfig:"FEATURE_ORACLE_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает часовой пояс платформы.
// Если пояс из конфига не загрузился — UTC, чтобы дневные лимиты оставались детерминированными.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DailyBonusCoins <= 0 {
		return fmt.Errorf("DAILY_BONUS_COINS должен быть > 0")
	}
	if c.SpinDailyLimit <= 0 {
		return fmt.Errorf("SPIN_DAILY_LIMIT должен быть > 0")
	}
	if len(c.SpinPrizes) == 0 {
		return fmt.Errorf("SPIN_PRIZES не задан")
	}
	if c.MinWithdrawal.IsNegative() {
		return fmt.Errorf("MIN_WITHDRAWAL не может быть отрицательным")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS не задан")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	prizes, err := parseInt64CSV(cfg.SpinPrizesRaw)
	if err != nil {
		return nil, fmt.Errorf("SPIN_PRIZES parse: %w", err)
	}
	cfg.SpinPrizes = prizes

	minW, err := decimal.NewFromString(strings.TrimSpace(cfg.MinWithdrawalRaw))
	if err != nil {
		return nil, fmt.Errorf("MIN_WITHDRAWAL parse: %w", err)
	}
	cfg.MinWithdrawal = minW

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
