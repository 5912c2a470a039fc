// reminderd runs the reminder engine on its own, for deployments that keep
// the scan out of the API process. Exactly one instance should be active;
// the marker columns make a duplicate send unlikely but the design assumes
// a single scanner.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/config"
	"github.com/Issouf-Kindo/scheduler/internal/db"
	"github.com/Issouf-Kindo/scheduler/internal/notify"
	"github.com/Issouf-Kindo/scheduler/internal/reminder"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// ---- Context / signals ----
	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- DB ----
	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db pool", zap.Error(err))
		exitCode = 1
		return
	}
	defer pool.Close()

	if err := pool.Ping(rootCtx); err != nil {
		log.Error("db ping", zap.Error(err))
		exitCode = 1
		return
	}

	store := db.NewStore(pool)

	// ---- Notification channels ----
	var email notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, log); sg != nil {
		email = sg
	} else {
		email = notify.NewStubEmailSender(log)
	}
	dispatcher := notify.NewDispatcher(email, notify.NewSMSSenderFor(cfg.SMSProvider, log), notify.Options{
		BaseURL:     cfg.PublicBaseURL,
		SendTimeout: cfg.SendTimeout,
		QPS:         cfg.NotifyQPS,
		Burst:       cfg.NotifyBurst,
	}, log)

	// ---- Healthz ----
	go serveHealthz()

	// ---- Engine ----
	engine := reminder.New(store, dispatcher, reminder.Options{Interval: cfg.ReminderInterval}, log)
	if err := engine.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("reminder engine exited", zap.Error(err))
		exitCode = 1
		return
	}
}

func serveHealthz() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	addr := os.Getenv("HEALTH_ADDR")
	if addr == "" {
		addr = "0.0.0.0:9090"
	}
	_ = http.ListenAndServe(addr, mux)
}
