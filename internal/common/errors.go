// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях платформы.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки поиска сущностей
var (
	// ErrAccountNotFound — аккаунт не найден в базе
	ErrAccountNotFound = errors.New("аккаунт не найден")
	// ErrWorkerNotFound — аккаунт исполнителя заявки не найден
	ErrWorkerNotFound = errors.New("аккаунт исполнителя не найден")
	// ErrTaskNotFound — задание не найдено
	ErrTaskNotFound = errors.New("задание не найдено")
	// ErrSubmissionNotFound — заявка на выполнение не найдена
	ErrSubmissionNotFound = errors.New("заявка не найдена")
	// ErrTransactionNotFound — транзакция не найдена
	ErrTransactionNotFound = errors.New("транзакция не найдена")
)

// Ошибки терминальных состояний
var (
	// ErrAlreadyProcessed — заявка уже одобрена или отклонена
	ErrAlreadyProcessed = errors.New("заявка уже обработана")
	// ErrAlreadyClaimed — ежедневный бонус уже получен сегодня
	ErrAlreadyClaimed = errors.New("бонус уже получен сегодня")
	// ErrAlreadyFinalized — транзакция уже в терминальном статусе
	ErrAlreadyFinalized = errors.New("транзакция уже финализирована")
	// ErrInvalidStatus — запрошен переход в неизвестный статус
	ErrInvalidStatus = errors.New("недопустимый целевой статус")
)

// Ошибки экономики
var (
	// ErrInsufficientBalance — недостаточно средств на балансе
	ErrInsufficientBalance = errors.New("недостаточно средств на балансе")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrAmountBelowMinimum — сумма меньше минимально допустимой
	ErrAmountBelowMinimum = errors.New("сумма меньше минимальной")
	// ErrRatioViolated — прямое изменение нарушает соотношение 1000 монет = $1
	ErrRatioViolated = errors.New("нарушено соотношение монет и баланса")
	// ErrEmailTaken — email уже зарегистрирован
	ErrEmailTaken = errors.New("email уже зарегистрирован")
)

// Ошибки лимитов и доступности
var (
	// ErrSpinLimitReached — дневной лимит вращений колеса исчерпан
	ErrSpinLimitReached = errors.New("лимит вращений на сегодня исчерпан")
	// ErrTaskUnavailable — задание не принимает новые заявки (пауза, удаление, лимит выполнений)
	ErrTaskUnavailable = errors.New("задание недоступно для выполнения")
	// ErrOracleUnavailable — внешний сервис проверки не ответил (не фатально)
	ErrOracleUnavailable = errors.New("сервис проверки недоступен")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
