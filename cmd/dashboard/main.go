package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app"
	"github.com/serg2014/go-payouts-dashboard/internal/config"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cnf, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cnf.LogLevel); err != nil {
		log.Fatal(err)
	}
	a, err := app.NewApp(cnf)
	if err != nil {
		logger.Log.Fatal("error NewApp", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Log.Error("failed close app", zap.Error(err))
		}
	}()

	runServer(a.Address(), a.GetRouter(), cnf.SessionTTL, a.CleanupSessions)
}

func runServer(address string, h http.Handler, ttl time.Duration, cleanup func(ctx context.Context, ttl time.Duration) error) {
	srv := http.Server{
		Addr:    address,
		Handler: h,
	}

	var wg sync.WaitGroup
	stopChannel := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		// истекшие сессии чистим с периодом в половину их жизни
		ticker := time.NewTicker(max(ttl/2, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-stopChannel:
				logger.Log.Info("Stop cleanup goroutine")
				return
			}
			if err := cleanup(context.Background(), ttl); err != nil {
				logger.Log.Error("failed cleanup", zap.Error(err))
			} else {
				logger.Log.Debug("cleanup done")
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		// создаем контекст, который будет отменен при получении сигнала
		ctxS, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		// 	ждем сигнала от ОС
		case <-ctxS.Done():
			logger.Log.Info("catch signal")
		// ждем закрытия канала
		case <-stopChannel:
			logger.Log.Info("stop")
		}

		ctxT, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxT); err != nil {
			logger.Log.Info("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Log.Info(fmt.Sprintf("Start server on %s", address))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error("error in ListenAndServe", zap.Error(err))
	}

	close(stopChannel)
	wg.Wait()
	logger.Log.Info("Server is shutdown")
}
