package payouts

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
)

const DefaultLimit = 10

var PageLimits = []int{5, 10, 15, 20, 50}

func ValidLimit(limit int) bool {
	return slices.Contains(PageLimits, limit)
}

type ListState string

const (
	ListIdle    ListState = "idle"
	ListLoading ListState = "loading"
	ListSuccess ListState = "success"
	ListError   ListState = "error"
)

type Fetcher interface {
	FetchPayouts(ctx context.Context, offset, limit int) (*models.PaginatedPayouts, error)
}

type FetcherFunc func(ctx context.Context, offset, limit int) (*models.PaginatedPayouts, error)

func (f FetcherFunc) FetchPayouts(ctx context.Context, offset, limit int) (*models.PaginatedPayouts, error) {
	return f(ctx, offset, limit)
}

// ListView снимок состояния списка.
// Page последняя успешно загруженная страница, при ошибке не сбрасывается.
type ListView struct {
	State  ListState
	Offset int
	Limit  int
	Page   *models.Page
	Err    error
}

// ListController держит курсор offset/limit и текущую страницу выплат.
// Ответ применяется только если он от последнего выданного запроса.
type ListController struct {
	mu      sync.Mutex
	fetcher Fetcher
	offset  int
	limit   int
	total   int
	seq     uint64
	state   ListState
	page    *models.Page
	err     error

	// после Discard контроллер больше не делает запросов
	discarded bool
}

func NewListController(f Fetcher) *ListController {
	return &ListController{
		fetcher: f,
		limit:   DefaultLimit,
		state:   ListIdle,
	}
}

func (c *ListController) FetchPage(ctx context.Context, offset, limit int) (*models.Page, error) {
	if !ValidLimit(limit) {
		return nil, ErrInvalidLimit
	}
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return nil, ErrStaleResponse
	}
	c.offset = max(offset, 0)
	c.limit = limit
	offset = c.offset
	seq := c.begin()
	c.mu.Unlock()

	return c.fetch(ctx, seq, offset, limit)
}

// Refresh повторяет запрос для текущего курсора
func (c *ListController) Refresh(ctx context.Context) (*models.Page, error) {
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return nil, ErrStaleResponse
	}
	seq, offset, limit := c.begin(), c.offset, c.limit
	c.mu.Unlock()

	return c.fetch(ctx, seq, offset, limit)
}

// NextPage и PrevPage считают шаг от показанной страницы, а не от курсора
// неудачного запроса, чтобы не пропустить страницу
func (c *ListController) NextPage(ctx context.Context) (*models.Page, error) {
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return nil, ErrStaleResponse
	}
	base := c.shownOffset()
	if base+c.limit >= c.total {
		page := c.page
		c.mu.Unlock()
		return page, nil
	}
	c.offset = base + c.limit
	seq, offset, limit := c.begin(), c.offset, c.limit
	c.mu.Unlock()

	return c.fetch(ctx, seq, offset, limit)
}

func (c *ListController) PrevPage(ctx context.Context) (*models.Page, error) {
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return nil, ErrStaleResponse
	}
	base := c.shownOffset()
	if base == 0 {
		page := c.page
		c.mu.Unlock()
		return page, nil
	}
	c.offset = max(base-c.limit, 0)
	seq, offset, limit := c.begin(), c.offset, c.limit
	c.mu.Unlock()

	return c.fetch(ctx, seq, offset, limit)
}

// вызывать под c.mu
func (c *ListController) shownOffset() int {
	if c.page != nil && c.page.Limit == c.limit {
		return c.page.Offset
	}
	return c.offset
}

// SetLimit меняет размер страницы и всегда возвращает на первую страницу
func (c *ListController) SetLimit(ctx context.Context, limit int) (*models.Page, error) {
	return c.FetchPage(ctx, 0, limit)
}

// Discard отбрасывает все запросы в полете. Дальнейшие запросы
// контроллер не выполняет и возвращает ErrStaleResponse.
func (c *ListController) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = true
	c.seq++
	if c.state == ListLoading {
		c.state = ListIdle
	}
}

func (c *ListController) View() ListView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListView{
		State:  c.state,
		Offset: c.offset,
		Limit:  c.limit,
		Page:   c.page,
		Err:    c.err,
	}
}

// Summary итоги по валютам только для загруженной страницы
func (c *ListController) Summary(now time.Time) []CurrencyTotal {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	if page == nil {
		return []CurrencyTotal{}
	}
	return Summarize(page.Items, now.Month(), now.Year(), now.Location())
}

// вызывать под c.mu
func (c *ListController) begin() uint64 {
	c.seq++
	c.state = ListLoading
	c.err = nil
	return c.seq
}

func (c *ListController) fetch(ctx context.Context, seq uint64, offset, limit int) (*models.Page, error) {
	data, err := c.fetcher.FetchPayouts(ctx, offset, limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return nil, ErrStaleResponse
	}
	if err != nil {
		fe := &FetchError{Offset: offset, Limit: limit, Err: err}
		c.state = ListError
		c.err = fe
		return nil, fe
	}

	items := data.Payouts
	if items == nil {
		items = models.Payouts{}
	}
	c.page = &models.Page{
		Offset: offset,
		Limit:  limit,
		Total:  max(data.Pagination.Total, 0),
		Items:  items,
	}
	c.total = c.page.Total
	c.state = ListSuccess
	return c.page, nil
}
