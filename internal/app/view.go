package app

import (
	"errors"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/app/payouts"
)

const dateDisplayLayout = "Monday 02 Jan 2006 at 15:04"

type profileView struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ProfilePicURL string `json:"profile_pic_url"`
}

type payoutView struct {
	Date        time.Time           `json:"date"`
	DateDisplay string              `json:"date_display"`
	Currency    string              `json:"currency"`
	Amount      string              `json:"amount"`
	Status      models.PayoutStatus `json:"status"`
	StatusTitle string              `json:"status_title"`
}

type pageView struct {
	Offset      int          `json:"offset"`
	Limit       int          `json:"limit"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
	From        int          `json:"from"`
	To          int          `json:"to"`
	Items       []payoutView `json:"items"`
}

type currencyTotalView struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type listView struct {
	State   payouts.ListState   `json:"state"`
	Offset  int                 `json:"offset"`
	Limit   int                 `json:"limit"`
	Limits  []int               `json:"limits"`
	HasPrev bool                `json:"has_prev"`
	HasNext bool                `json:"has_next"`
	Page    *pageView           `json:"page"`
	Summary []currencyTotalView `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

type candidateView struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type flowView struct {
	State           payouts.FlowState `json:"state"`
	IdempotencyKey  string            `json:"idempotency_key,omitempty"`
	Candidate       *candidateView    `json:"candidate,omitempty"`
	Busy            bool              `json:"busy"`
	Currencies      []string          `json:"currencies"`
	DefaultCurrency string            `json:"default_currency"`
	Error           string            `json:"error,omitempty"`
}

type dashboardView struct {
	Profile profileView `json:"profile"`
	Payouts listView    `json:"payouts"`
	Create  flowView    `json:"create"`
	Error   string      `json:"error,omitempty"`
}

func (a *App) renderDashboard(d *Dashboard) dashboardView {
	profile := d.Profile()
	return dashboardView{
		Profile: profileView{
			FullName:      profile.FullName,
			Email:         profile.Email,
			ProfilePicURL: profile.Avatar(),
		},
		Payouts: a.renderList(d.List),
		Create:  renderFlow(d.Create.View()),
	}
}

func (a *App) renderList(c *payouts.ListController) listView {
	v := c.View()
	lv := listView{
		State:  v.State,
		Offset: v.Offset,
		Limit:  v.Limit,
		Limits: payouts.PageLimits,
	}
	if v.Err != nil {
		lv.Error = "Failed to fetch payouts"
	}

	summary := c.Summary(a.now().In(a.loc))
	lv.Summary = make([]currencyTotalView, 0, len(summary))
	for _, ct := range summary {
		lv.Summary = append(lv.Summary, currencyTotalView{
			Currency: ct.Currency,
			Total:    ct.Total.StringFixed(2),
		})
	}

	if v.Page == nil {
		return lv
	}
	// кнопки считаются от показанной страницы
	lv.HasPrev = v.Page.Offset > 0
	lv.HasNext = v.Page.Offset+v.Page.Limit < v.Page.Total
	lv.Page = a.renderPage(v.Page)
	return lv
}

func (a *App) renderPage(p *models.Page) *pageView {
	pv := &pageView{
		Offset:      p.Offset,
		Limit:       p.Limit,
		Total:       p.Total,
		CurrentPage: 1,
		TotalPages:  1,
		Items:       make([]payoutView, 0, len(p.Items)),
	}
	limit := max(p.Limit, 1)
	if p.Total > 0 {
		pv.TotalPages = (p.Total + limit - 1) / limit
		pv.CurrentPage = p.Offset/limit + 1
		pv.From = p.Offset + 1
		pv.To = min(p.Offset+limit, p.Total)
	}
	for _, item := range p.Items {
		pv.Items = append(pv.Items, payoutView{
			Date:        item.Date.Time,
			DateDisplay: item.Date.In(a.loc).Format(dateDisplayLayout),
			Currency:    item.Currency,
			Amount:      item.Amount.StringFixed(2),
			Status:      item.Status,
			StatusTitle: item.Status.Title(),
		})
	}
	return pv
}

func renderFlow(v payouts.FlowView) flowView {
	fv := flowView{
		State:           v.State,
		Busy:            v.Busy,
		Currencies:      payouts.SupportedCurrencies,
		DefaultCurrency: payouts.DefaultCurrency,
	}
	if v.State != payouts.FlowClosed {
		fv.IdempotencyKey = v.IdempotencyKey.String()
	}
	if v.Candidate != nil {
		fv.Candidate = &candidateView{
			Amount:   v.Candidate.Amount.StringFixed(2),
			Currency: v.Candidate.Currency,
		}
	}
	if v.Err != nil {
		fv.Error = flowErrorMessage(v.Err)
	}
	return fv
}

func flowErrorMessage(err error) string {
	var ve *payouts.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return "Failed to create payout"
}
