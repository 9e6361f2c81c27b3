package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/serg2014/go-payouts-dashboard/internal/app/auth"
	usercontext "github.com/serg2014/go-payouts-dashboard/internal/app/context"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/app/payouts"
	"github.com/serg2014/go-payouts-dashboard/internal/app/payoutsapi"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
	"go.uber.org/zap"
)

const (
	dashboardPath    = "/dashboard"
	loginFailurePath = "/login/failure"
	// формы дашборда крошечные
	maxBodySize = 1 << 10
)

func (a *App) setRoute() {
	r := a.GetRouter()
	r.Use(logger.WithLogging)
	r.Use(gzipMiddleware)
	r.Get("/ping", a.ping())
	r.Get(auth.LoginPath, a.login())
	r.Get("/login/success", a.loginSuccess())
	r.Get(loginFailurePath, a.loginFailure())

	r.Group(func(r chi.Router) {
		r.Use(a.auth.Guard)

		r.Post("/logout", a.logout())
		r.Route(dashboardPath, func(r chi.Router) {
			r.Get("/", a.getDashboard())

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/next", a.listAction(func(ctx context.Context, c *payouts.ListController) error {
					_, err := c.NextPage(ctx)
					return err
				}))
				r.Post("/prev", a.listAction(func(ctx context.Context, c *payouts.ListController) error {
					_, err := c.PrevPage(ctx)
					return err
				}))
				r.Post("/retry", a.listAction(func(ctx context.Context, c *payouts.ListController) error {
					_, err := c.Refresh(ctx)
					return err
				}))
				r.Post("/limit", a.setLimit())
			})

			r.Route("/create", func(r chi.Router) {
				r.Post("/open", a.openCreate())
				r.Post("/request", a.requestConfirmation())
				r.Post("/confirm", a.confirmCreate())
				r.Post("/cancel", a.cancelCreate())
				r.Post("/close", a.closeCreate())
			})
		})
	})
}

func simpleError(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	// порядок важен
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		logger.Log.Error("error encoding response", zap.Error(err))
	}
}

func (a *App) writeDashboard(w http.ResponseWriter, code int, d *Dashboard, errText string) {
	view := a.renderDashboard(d)
	view.Error = errText
	writeJSON(w, code, view)
}

// sessionDashboard достает сессию, положенную в контекст auth.Guard
func (a *App) sessionDashboard(w http.ResponseWriter, r *http.Request) (*models.Session, *Dashboard, bool) {
	session, err := usercontext.GetSession(r.Context())
	if err != nil {
		simpleError(w, http.StatusUnauthorized)
		return nil, nil, false
	}
	return session, a.dashboard(session), true
}

// endSession внешний сервис больше не принимает токен, сессия закончена
func (a *App) endSession(w http.ResponseWriter, r *http.Request, session *models.Session) {
	if err := a.auth.Logout(r.Context(), session.ID); err != nil {
		logger.Log.Error("failed delete session", zap.Error(err))
	}
	a.dropDashboard(session.ID)
	http.SetCookie(w, a.auth.ClearSessionCookie())
	writeJSON(w, http.StatusUnauthorized, dashboardView{Error: "session expired, please log in again"})
}

func (a *App) ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			logger.Log.Error("failed ping storage", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}
}

func (a *App) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, a.api.LoginURL(), http.StatusSeeOther)
	}
}

func (a *App) loginSuccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(payoutsapi.AccessTokenCookie)
		if err != nil || cookie.Value == "" {
			logger.Log.Debug("no access token after login")
			http.Redirect(w, r, loginFailurePath, http.StatusSeeOther)
			return
		}
		profile, err := a.api.Me(r.Context(), cookie.Value)
		if err != nil {
			logger.Log.Warn("failed fetch user", zap.Error(err))
			http.Redirect(w, r, loginFailurePath, http.StatusSeeOther)
			return
		}
		session, err := a.auth.Login(r.Context(), cookie.Value, *profile)
		if err != nil {
			logger.Log.Error("failed login", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, a.auth.CreateSessionCookie(session.ID))
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
	}
}

func (a *App) loginFailure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authorization failed", http.StatusUnauthorized)
	}
}

func (a *App) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := usercontext.GetSession(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		if err := a.auth.Logout(r.Context(), session.ID); err != nil {
			logger.Log.Error("failed logout", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		a.dropDashboard(session.ID)
		http.SetCookie(w, a.auth.ClearSessionCookie())
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
	}
}

func (a *App) getDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		if err := a.loadDashboard(r.Context(), session, d); err != nil {
			if errors.Is(err, payoutsapi.ErrUnauthorized) {
				a.endSession(w, r, session)
				return
			}
			logger.Log.Error("failed load dashboard", zap.Error(err))
		}
		a.writeDashboard(w, http.StatusOK, d, "")
	}
}

func (a *App) listAction(op func(ctx context.Context, c *payouts.ListController) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		a.listResult(w, r, session, d, op(r.Context(), d.List))
	}
}

func (a *App) listResult(w http.ResponseWriter, r *http.Request, session *models.Session, d *Dashboard, err error) {
	switch {
	case err == nil, errors.Is(err, payouts.ErrStaleResponse):
		// устаревший ответ не применили, показываем текущее состояние
		a.writeDashboard(w, http.StatusOK, d, "")
	case errors.Is(err, payoutsapi.ErrUnauthorized):
		a.endSession(w, r, session)
	case errors.Is(err, payouts.ErrInvalidLimit):
		a.writeDashboard(w, http.StatusBadRequest, d, "Invalid page size")
	default:
		logger.Log.Warn("failed fetch payouts", zap.Error(err))
		a.writeDashboard(w, http.StatusBadGateway, d, "Failed to fetch payouts")
	}
}

type limitRequest struct {
	Limit int `json:"limit"`
}

func (a *App) setLimit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		var req limitRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err := dec.Decode(&req); err != nil {
			logger.Log.Debug("cannot decode request JSON body", zap.Error(err))
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		_, err := d.List.SetLimit(r.Context(), req.Limit)
		a.listResult(w, r, session, d, err)
	}
}

func (a *App) openCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		d.Create.Open()
		a.writeDashboard(w, http.StatusOK, d, "")
	}
}

func (a *App) requestConfirmation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		var form payouts.Form
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err := dec.Decode(&form); err != nil {
			logger.Log.Debug("cannot decode request JSON body", zap.Error(err))
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		_, err := d.Create.RequestConfirmation(form)
		var ve *payouts.ValidationError
		switch {
		case err == nil:
			a.writeDashboard(w, http.StatusOK, d, "")
		case errors.As(err, &ve):
			a.writeDashboard(w, http.StatusUnprocessableEntity, d, ve.Message)
		case errors.Is(err, payouts.ErrFlowState):
			a.writeDashboard(w, http.StatusConflict, d, "Payout form is not open")
		default:
			logger.Log.Error("failed request confirmation", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
		}
	}
}

func (a *App) confirmCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}

		_, err := d.Create.Confirm(r.Context())
		var se *payouts.SubmissionError
		switch {
		case err == nil:
			a.writeDashboard(w, http.StatusCreated, d, "")
		case errors.Is(err, payouts.ErrSubmissionBusy):
			a.writeDashboard(w, http.StatusConflict, d, "Payout is already being submitted")
		case errors.Is(err, payouts.ErrFlowState):
			a.writeDashboard(w, http.StatusConflict, d, "Nothing to confirm")
		case errors.Is(err, payoutsapi.ErrUnauthorized):
			a.endSession(w, r, session)
		case errors.As(err, &se):
			logger.Log.Warn("failed create payout",
				zap.String("idempotency_key", se.IdempotencyKey.String()),
				zap.Error(err))
			a.writeDashboard(w, http.StatusBadGateway, d, "Failed to create payout")
		default:
			logger.Log.Error("failed confirm payout", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
		}
	}
}

func (a *App) cancelCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		if err := d.Create.Cancel(); err != nil {
			a.writeDashboard(w, http.StatusConflict, d, "Payout is already being submitted")
			return
		}
		a.writeDashboard(w, http.StatusOK, d, "")
	}
}

func (a *App) closeCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, d, ok := a.sessionDashboard(w, r)
		if !ok {
			return
		}
		d.Create.Close()
		a.writeDashboard(w, http.StatusOK, d, "")
	}
}
