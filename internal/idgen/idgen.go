// Package idgen генерирует идентификаторы сущностей.
package idgen

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/theplant/luhn"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	WalletPrefix  = "wallet_"
	ProgramPrefix = "iprog_"
	LoadPrefix    = "LD"

	campaignIDLength = 12
	walletIDLength   = 13
	programIDLength  = 14
)

// Token случайная строка из A-Z0-9.
func Token(length int) string {
	var sb strings.Builder
	sb.Grow(length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String()
}

func CampaignID() string {
	return Token(campaignIDLength)
}

func WalletID() string {
	return WalletPrefix + Token(walletIDLength)
}

func ProgramID() string {
	return ProgramPrefix + Token(programIDLength)
}

// LoadID номер загрузки строки: LD + 11 случайных цифр + контрольная цифра Луна.
func LoadID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(90_000_000_000))
	if err != nil {
		panic(err)
	}
	base := int(n.Int64()) + 10_000_000_000
	return LoadPrefix + strconv.Itoa(base*10+luhn.CalculateLuhn(base))
}

// validLoadID проверяет формат и контрольную цифру.
func validLoadID(id string) bool {
	digits, ok := strings.CutPrefix(id, LoadPrefix)
	if !ok || digits == "" {
		return false
	}
	number, err := strconv.Atoi(digits)
	if err != nil {
		return false
	}
	return luhn.Valid(number)
}
