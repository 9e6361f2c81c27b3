package payouts

import (
	"slices"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/shopspring/decimal"
)

const TopCurrencies = 4

type CurrencyTotal struct {
	Currency string
	Total    decimal.Decimal
}

// Summarize суммирует оплаченные (PAID) выплаты за месяц по валютам.
// Возвращает не больше TopCurrencies валют по убыванию суммы,
// при равенстве порядок первого появления.
func Summarize(items []models.Payout, month time.Month, year int, loc *time.Location) []CurrencyTotal {
	if loc == nil {
		loc = time.UTC
	}
	totals := make([]CurrencyTotal, 0, TopCurrencies)
	index := make(map[string]int)
	for _, p := range items {
		if p.Status != models.PayoutPaid {
			continue
		}
		d := p.Date.In(loc)
		if d.Month() != month || d.Year() != year {
			continue
		}
		i, ok := index[p.Currency]
		if !ok {
			index[p.Currency] = len(totals)
			totals = append(totals, CurrencyTotal{Currency: p.Currency, Total: p.Amount})
			continue
		}
		totals[i].Total = totals[i].Total.Add(p.Amount)
	}

	// стабильная сортировка сохраняет порядок вставки при равных суммах
	slices.SortStableFunc(totals, func(a, b CurrencyTotal) int {
		return b.Total.Cmp(a.Total)
	})
	if len(totals) > TopCurrencies {
		totals = totals[:TopCurrencies]
	}
	return totals
}
