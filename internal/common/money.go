// Package common — money.go отвечает за пересчёт монет в валюту и обратно.
// Курс фиксированный и НЕ настраивается через конфиг: все начисления
// и списания обязаны проходить через эти функции, иначе монеты
// и баланс разъедутся.
package common

import (
	"github.com/shopspring/decimal"
)

// CoinsPerUnit — курс обмена: 1000 монет = $1.
const CoinsPerUnit = 1000

// CoinsToMoney переводит монеты в валюту: 50 монет → $0.050.
// Shift(-3) точен для любого целого количества монет (CoinsPerUnit = 10^3).
func CoinsToMoney(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).Shift(-3)
}

// MoneyToCoins переводит валюту в монеты с округлением вниз:
// $1.2345 → 1234 монеты. Округление вниз — чтобы платформа
// никогда не начисляла больше, чем есть.
func MoneyToCoins(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(CoinsPerUnit)).Floor().IntPart()
}

// FormatMoney форматирует сумму в валюте: $3.50.
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
