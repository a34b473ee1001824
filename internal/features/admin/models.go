// Package admin реализует админ-панель с парольной аутентификацией.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Панель работает по шагам: выбор действия → выбор объекта → ввод значения.
type AdminState struct {
	State     string      // Текущее состояние ("", "awaiting_password", ...)
	Data      interface{} // Данные контекста (список аккаунтов, выбранный аккаунт)
	ExpiresAt time.Time   // Когда состояние истекает (5 минут)
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""                    // Нет активного состояния
	StateAwaitingPassword = "awaiting_password"   // Ждём пароль
	StateGrantSelect      = "grant_select"        // Выдать монеты: выбор аккаунта
	StateGrantAmount      = "grant_amount"        // Выдать монеты: ввод суммы
	StateTakeSelect       = "take_select"         // Отнять монеты: выбор аккаунта
	StateTakeAmount       = "take_amount"         // Отнять монеты: ввод суммы
	StateRoleSelect       = "role_select"         // Смена роли: выбор аккаунта
	StateRoleText         = "role_text"           // Смена роли: ввод роли
	StateBanSelect        = "ban_select"          // Бан/разбан: выбор аккаунта
	StateTxSelect         = "tx_select"           // Платёжные заявки: выбор транзакции
	StateTxDecision       = "tx_decision"         // Платёжные заявки: решение
	StateTaskSelect       = "task_select"         // Задания: выбор задания
	StateTaskAction       = "task_action"         // Задания: выбор действия
	StateBrandingField    = "branding_field"      // Брендинг: выбор поля
	StateBrandingValue    = "branding_value"      // Брендинг: ввод значения
	StateSnapshotMenu     = "snapshot_menu"       // Снапшот: выбор операции
	StateSnapshotImport   = "snapshot_import"     // Снапшот: ожидание JSON
)
