package payouts

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

var (
	SupportedCurrencies = []string{"USD", "EUR", "ZAR", "GBP"}

	MinAmount = decimal.NewFromInt(1)
	MaxAmount = decimal.NewFromInt(1_000_000)
)

const (
	maxAmountLen = 32
	// сравнение с большим по модулю показателем степени стоит дорого,
	// такие суммы заведомо вне диапазона
	maxAmountExp = 10
	minAmountExp = -40
)

// Form то, что ввел пользователь
type Form struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Candidate проверенная форма, ждет подтверждения
type Candidate struct {
	Amount   decimal.Decimal
	Currency string
}

// Validate проверяет сумму и валюту. Сумма не округляется,
// округление до копеек делается при подтверждении.
func Validate(amount, currency string) (*Candidate, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, &ValidationError{Field: "amount", Message: "Amount is required"}
	}
	if len(amount) > maxAmountLen {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be a number"}
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be a number"}
	}
	if value.Sign() <= 0 || value.Exponent() < minAmountExp {
		return nil, &ValidationError{Field: "amount", Message: "Minimum amount is R1"}
	}
	if value.Exponent() > maxAmountExp {
		return nil, &ValidationError{Field: "amount", Message: "Maximum amount is R1,000,000"}
	}
	if value.LessThan(MinAmount) {
		return nil, &ValidationError{Field: "amount", Message: "Minimum amount is R1"}
	}
	if value.GreaterThan(MaxAmount) {
		return nil, &ValidationError{Field: "amount", Message: "Maximum amount is R1,000,000"}
	}

	if currency == "" {
		return nil, &ValidationError{Field: "currency", Message: "Currency is required"}
	}
	if !slices.Contains(SupportedCurrencies, currency) {
		return nil, &ValidationError{Field: "currency", Message: "Unsupported currency"}
	}
	return &Candidate{Amount: value, Currency: currency}, nil
}
