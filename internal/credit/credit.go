// Package credit считает сумму начисления на кошелёк по строке CSV.
package credit

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/iurnickita/campaignadmin/internal/csvrow"
)

const (
	TypeFlat       = "flat"
	TypePercentage = "percentage"
)

// WalletAction настройка начисления, приходит с формой публикации.
type WalletAction struct {
	CreditWallet     string  `json:"creditWallet,omitempty"`
	WalletID         string  `json:"walletId,omitempty"`
	CreditType       string  `json:"creditType"`
	CreditAmount     float64 `json:"creditAmount,omitempty"`
	CreditPercentage float64 `json:"creditPercentage,omitempty"`
	PercentageField  string  `json:"percentageField,omitempty"`
	HasMaxLimit      bool    `json:"hasMaxLimit,omitempty"`
	MaxLimit         float64 `json:"maxLimit,omitempty"`
}

// Calculate возвращает сумму начисления для строки.
// Нечисловые значения дают 0, NaN и бесконечности наружу не выходят.
func Calculate(action WalletAction, row csvrow.Row) float64 {
	switch action.CreditType {
	case TypeFlat:
		return finite(action.CreditAmount)
	case TypePercentage:
		raw := row.Get(action.PercentageField)
		if raw == "" {
			raw = "0"
		}
		amount := finite(ParseNumber(raw) * action.CreditPercentage / 100)
		// maxLimit == 0 считается "не задан"
		if action.HasMaxLimit && action.MaxLimit != 0 && !math.IsNaN(action.MaxLimit) {
			amount = math.Min(amount, action.MaxLimit)
		}
		return amount
	default:
		return 0
	}
}

// ParseNumber разбирает самый длинный числовой префикс строки
// (ведущие пробелы допускаются): "12.5abc" -> 12.5, "abc" -> 0.
func ParseNumber(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	n := numericPrefixLen(s)
	if n == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	// экспонента учитывается, только если после неё есть цифры
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
