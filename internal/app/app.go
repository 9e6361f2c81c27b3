package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/serg2014/go-payouts-dashboard/internal/app/auth"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/app/payouts"
	"github.com/serg2014/go-payouts-dashboard/internal/app/payoutsapi"
	"github.com/serg2014/go-payouts-dashboard/internal/app/storage"
	"github.com/serg2014/go-payouts-dashboard/internal/config"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	router *chi.Mux
	store  storage.Storager
	auth   *auth.Auth
	api    *payoutsapi.Client
	loc    *time.Location
	now    func() time.Time

	mu         sync.Mutex
	dashboards map[models.SessionID]*Dashboard
}

// Dashboard состояние страницы одного пользователя
type Dashboard struct {
	List   *payouts.ListController
	Create *payouts.CreationFlow

	mu      sync.Mutex
	profile models.UserProfile
}

func (d *Dashboard) Profile() models.UserProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

func (d *Dashboard) setProfile(p models.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile = p
}

func NewApp(cnf *config.Config) (*App, error) {
	s, err := storage.NewStorage(context.Background(), cnf.DatabaseDSN, cnf.RedisAddress, cnf.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("filed to create NewStorage: %w", err)
	}
	api := payoutsapi.NewClient(cnf.APIAddress, cnf.RequestTimeout)
	return newApp(cnf, s, api), nil
}

func newApp(cnf *config.Config, s storage.Storager, api *payoutsapi.Client) *App {
	app := &App{
		config:     cnf,
		router:     chi.NewRouter(),
		store:      s,
		auth:       auth.New(cnf.SessionSecret, s, cnf.SessionTTL),
		api:        api,
		loc:        cnf.Location(),
		now:        time.Now,
		dashboards: make(map[models.SessionID]*Dashboard),
	}
	app.setRoute()
	return app
}

func (a *App) Address() string {
	return a.config.Address
}

func (a *App) GetRouter() *chi.Mux {
	return a.router
}

func (a *App) Close() error {
	a.mu.Lock()
	for id, d := range a.dashboards {
		d.List.Discard()
		d.Create.Close()
		delete(a.dashboards, id)
	}
	a.mu.Unlock()
	return a.store.Close()
}

// dashboard возвращает состояние страницы сессии, создавая его при первом обращении
func (a *App) dashboard(session *models.Session) *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.dashboards[session.ID]; ok {
		return d
	}

	token := session.AccessToken
	list := payouts.NewListController(payouts.FetcherFunc(
		func(ctx context.Context, offset, limit int) (*models.PaginatedPayouts, error) {
			return a.api.ListPayouts(ctx, token, offset, limit)
		}))
	create := payouts.NewCreationFlow(payouts.SubmitterFunc(
		func(ctx context.Context, p models.NewPayout) (*models.Payout, error) {
			return a.api.CreatePayout(ctx, token, p)
		}),
		func(ctx context.Context) {
			// после успешного создания показываем свежий список
			_, err := list.Refresh(ctx)
			if err != nil && !errors.Is(err, payouts.ErrStaleResponse) {
				logger.Log.Warn("failed refresh payouts after create", zap.Error(err))
			}
		})

	d := &Dashboard{
		List:    list,
		Create:  create,
		profile: session.Profile,
	}
	a.dashboards[session.ID] = d
	return d
}

func (a *App) dropDashboard(sessionID models.SessionID) {
	a.mu.Lock()
	d, ok := a.dashboards[sessionID]
	delete(a.dashboards, sessionID)
	a.mu.Unlock()
	if ok {
		// ответы запросов в полете больше никуда не применяются
		d.List.Discard()
		d.Create.Close()
	}
}

// loadDashboard при первом открытии параллельно обновляет профиль и грузит первую страницу
func (a *App) loadDashboard(ctx context.Context, session *models.Session, d *Dashboard) error {
	if d.List.View().State != payouts.ListIdle {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := a.api.Me(gctx, session.AccessToken)
		if err != nil {
			if errors.Is(err, payoutsapi.ErrUnauthorized) {
				return err
			}
			// остается профиль из сессии
			logger.Log.Warn("failed refresh profile", zap.Error(err))
			return nil
		}
		d.setProfile(*profile)
		return nil
	})
	g.Go(func() error {
		_, err := d.List.FetchPage(gctx, 0, payouts.DefaultLimit)
		if errors.Is(err, payoutsapi.ErrUnauthorized) {
			return err
		}
		// ошибку загрузки покажет состояние списка
		return nil
	})
	return g.Wait()
}

// CleanupSessions удаляет истекшие сессии и состояние их страниц
func (a *App) CleanupSessions(ctx context.Context, ttl time.Duration) error {
	ra, err := a.store.CleanupExpired(ctx, ttl)
	if err != nil {
		return err
	}
	logger.Log.Debug("expired sessions removed", zap.Int64("count", ra))

	a.mu.Lock()
	ids := make([]models.SessionID, 0, len(a.dashboards))
	for id := range a.dashboards {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		_, err := a.store.GetSession(ctx, id)
		if errors.Is(err, storage.ErrSessionNotFound) {
			a.dropDashboard(id)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
