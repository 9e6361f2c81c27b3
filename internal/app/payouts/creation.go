package payouts

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
)

type FlowState string

const (
	FlowClosed     FlowState = "closed"
	FlowEditing    FlowState = "editing"
	FlowConfirming FlowState = "confirming"
)

type Submitter interface {
	SubmitPayout(ctx context.Context, payout models.NewPayout) (*models.Payout, error)
}

type SubmitterFunc func(ctx context.Context, payout models.NewPayout) (*models.Payout, error)

func (f SubmitterFunc) SubmitPayout(ctx context.Context, payout models.NewPayout) (*models.Payout, error) {
	return f(ctx, payout)
}

type FlowView struct {
	State          FlowState
	IdempotencyKey models.IdempotencyKey
	Candidate      *Candidate
	Busy           bool
	Err            error
}

// CreationFlow форма создания выплаты с обязательным подтверждением.
// closed -> editing -> confirming -> closed (успех) | confirming (ошибка) | editing (отмена)
type CreationFlow struct {
	mu        sync.Mutex
	submitter Submitter
	onCreated func(ctx context.Context)
	newKey    func() uuid.UUID

	state     FlowState
	key       models.IdempotencyKey
	candidate *Candidate
	busy      bool
	gen       uint64
	err       error
}

// NewCreationFlow onCreated вызывается только после успешного ответа сервера
func NewCreationFlow(s Submitter, onCreated func(ctx context.Context)) *CreationFlow {
	return &CreationFlow{
		submitter: s,
		onCreated: onCreated,
		newKey:    uuid.New,
		state:     FlowClosed,
	}
}

// Open выдает новый ключ идемпотентности. Для уже открытой формы ничего не меняет.
func (f *CreationFlow) Open() models.IdempotencyKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowClosed {
		return f.key
	}
	f.key = f.newKey()
	f.state = FlowEditing
	f.err = nil
	return f.key
}

func (f *CreationFlow) RequestConfirmation(form Form) (*Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowEditing {
		return nil, ErrFlowState
	}
	candidate, err := Validate(form.Amount, form.Currency)
	if err != nil {
		f.err = err
		return nil, err
	}
	f.candidate = candidate
	f.state = FlowConfirming
	f.err = nil
	return candidate, nil
}

// Confirm отправляет выплату ровно один раз на вызов.
// При ошибке форма остается в confirming с тем же ключом.
func (f *CreationFlow) Confirm(ctx context.Context) (*models.Payout, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, ErrSubmissionBusy
	}
	if f.state != FlowConfirming {
		f.mu.Unlock()
		return nil, ErrFlowState
	}
	payload := models.NewPayout{
		Amount:         f.candidate.Amount.Round(2),
		Currency:       f.candidate.Currency,
		IdempotencyKey: f.key,
	}
	f.busy = true
	f.err = nil
	gen := f.gen
	f.mu.Unlock()

	created, err := f.submitter.SubmitPayout(ctx, payload)

	f.mu.Lock()
	// форму закрыли пока шел запрос, ее состояние не трогаем
	stale := gen != f.gen
	if err != nil {
		se := &SubmissionError{IdempotencyKey: payload.IdempotencyKey, Err: err}
		if !stale {
			f.busy = false
			f.err = se
		}
		f.mu.Unlock()
		return nil, se
	}
	if !stale {
		f.reset()
	}
	f.mu.Unlock()

	if f.onCreated != nil {
		f.onCreated(ctx)
	}
	return created, nil
}

// Cancel из confirming возвращает к редактированию, из editing закрывает форму
func (f *CreationFlow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrSubmissionBusy
	}
	switch f.state {
	case FlowConfirming:
		f.candidate = nil
		f.state = FlowEditing
		f.err = nil
	case FlowEditing:
		f.reset()
	}
	return nil
}

func (f *CreationFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *CreationFlow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FlowView{
		State:          f.state,
		IdempotencyKey: f.key,
		Candidate:      f.candidate,
		Busy:           f.busy,
		Err:            f.err,
	}
}

// вызывать под f.mu
func (f *CreationFlow) reset() {
	f.gen++
	f.state = FlowClosed
	f.key = uuid.Nil
	f.candidate = nil
	f.busy = false
	f.err = nil
}
