package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutInitiated  PayoutStatus = "INITIATED"
	PayoutPending    PayoutStatus = "PENDING"
	PayoutInTransit  PayoutStatus = "IN_TRANSIT"
	PayoutAuthorized PayoutStatus = "AUTHORIZED"
	PayoutExecuted   PayoutStatus = "EXECUTED"
	PayoutPaid       PayoutStatus = "PAID"
	PayoutBounced    PayoutStatus = "BOUNCED"
	PayoutBlocked    PayoutStatus = "BLOCKED"
	PayoutCancelled  PayoutStatus = "CANCELLED"
)

var payoutStatusTitle = map[PayoutStatus]string{
	PayoutInitiated:  "Initiated",
	PayoutPending:    "Pending",
	PayoutInTransit:  "In transit",
	PayoutAuthorized: "Authorized",
	PayoutExecuted:   "Executed",
	PayoutPaid:       "Paid",
	PayoutBounced:    "Bounced",
	PayoutBlocked:    "Blocked",
	PayoutCancelled:  "Cancelled",
}

func (s PayoutStatus) Valid() bool {
	_, ok := payoutStatusTitle[s]
	return ok
}

func (s PayoutStatus) Title() string {
	if t, ok := payoutStatusTitle[s]; ok {
		return t
	}
	return string(s)
}

func (s *PayoutStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	st := PayoutStatus(v)
	if !st.Valid() {
		return fmt.Errorf("unknown payout status %q", v)
	}
	*s = st
	return nil
}

// Timestamp принимает RFC 3339 и время без зоны (считается UTC)
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, v)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("bad timestamp %q", v)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

type Payout struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   PayoutStatus    `json:"status"`
	Date     Timestamp       `json:"date"`
}
type Payouts []Payout

type Pagination struct {
	Total         int  `json:"total"`
	CurrentOffset int  `json:"current_offset"`
	HasMore       bool `json:"has_more"`
}

type PaginatedPayouts struct {
	Payouts    Payouts    `json:"payouts"`
	Pagination Pagination `json:"pagination"`
}

// Page окно списка выплат. Total и Items приходят с сервера,
// Offset и Limit задает клиент.
type Page struct {
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Total  int     `json:"total"`
	Items  Payouts `json:"items"`
}

type IdempotencyKey = uuid.UUID

type NewPayout struct {
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey IdempotencyKey
}

// MarshalJSON отдает amount числом, как ждет сервер
func (p NewPayout) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount         json.Number `json:"amount"`
		Currency       string      `json:"currency"`
		IdempotencyKey string      `json:"idempotency_key"`
	}{
		Amount:         json.Number(p.Amount.StringFixed(2)),
		Currency:       p.Currency,
		IdempotencyKey: p.IdempotencyKey.String(),
	})
}
