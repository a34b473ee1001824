// Package common содержит общие утилиты, используемые во всём проекте.
// helpers.go — форматирование монет, дат и вычисление календарного дня.
package common

import (
	"fmt"
	"time"
)

// FormatCoins форматирует количество монет в читабельную строку.
// Пример: FormatCoins(150) → "150 монет"
func FormatCoins(coins int64) string {
	return fmt.Sprintf("%d %s", coins, PluralizeCoins(coins))
}

// FormatDateTime форматирует дату и время для истории транзакций.
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// DateKey возвращает календарный день в формате YYYY-MM-DD.
// Все дневные лимиты (бонус, вращения) сравнивают именно эти ключи.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay сообщает, приходится ли сохранённая дата на тот же календарный
// день, что и now, в часовом поясе loc. nil-дата — "никогда".
func SameDay(stored *time.Time, now time.Time, loc *time.Location) bool {
	if stored == nil {
		return false
	}
	return DateKey(stored.In(loc)) == DateKey(now.In(loc))
}
