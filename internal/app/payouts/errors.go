package payouts

import (
	"errors"
	"fmt"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
)

var (
	ErrInvalidLimit   = errors.New("invalid page limit")
	ErrStaleResponse  = errors.New("stale response")
	ErrFlowState      = errors.New("operation not allowed in current state")
	ErrSubmissionBusy = errors.New("submission in progress")
)

// ValidationError ошибка формы, до сети не доходит
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FetchError не удалось получить страницу выплат.
// Повтор делает тот же запрос.
type FetchError struct {
	Offset int
	Limit  int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed fetch payouts offset=%d limit=%d: %v", e.Offset, e.Limit, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SubmissionError не удалось создать выплату.
// Ключ сохраняется, повтор безопасен.
type SubmissionError struct {
	IdempotencyKey models.IdempotencyKey
	Err            error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed create payout %s: %v", e.IdempotencyKey, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
