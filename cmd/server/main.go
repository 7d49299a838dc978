// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quickjoin/lobbyd/internal/cache"
	"github.com/quickjoin/lobbyd/internal/database"
	"github.com/quickjoin/lobbyd/internal/handlers"
	"github.com/quickjoin/lobbyd/internal/middleware"
	"github.com/quickjoin/lobbyd/internal/notify"
	"github.com/quickjoin/lobbyd/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx)
	if err != nil {
		logger.Fatalf("database connect: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("database migrate: %v", err)
	}

	rdb, err := cache.Connect()
	if err != nil {
		logger.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	store := database.NewStore(pool)
	svc := service.NewLobbyService(store, logger)
	notifier := notify.NewNotifier(rdb, logger)

	// Bridge Postgres row changes into the per-lobby redis channels.
	listenCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	listener := notify.NewListener(database.ConnString(), rdb, logger)
	go func() {
		if err := listener.Run(listenCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("change listener stopped")
		}
	}()

	logMW := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.Handle("/lobby/create", logMW(handlers.CreateLobbyHandler(svc)))
	mux.Handle("/lobby/join", logMW(handlers.JoinLobbyHandler(svc)))
	mux.Handle("/lobby/leave", logMW(handlers.LeaveLobbyHandler(svc)))
	mux.Handle("/lobby/fetch", logMW(handlers.FetchLobbyHandler(svc)))
	// The WS route skips the logging wrapper: the upgrade needs the raw
	// hijackable ResponseWriter, and the handler logs connects itself.
	mux.Handle("/lobby/ws/", handlers.WatchLobbyHandler(logger, svc, notifier))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Infof("Running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")
	stopListener()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server shutdown")
	}
}
