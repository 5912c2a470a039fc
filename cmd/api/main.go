package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/config"
	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/db"
	httpapi "github.com/Issouf-Kindo/scheduler/internal/http"
	"github.com/Issouf-Kindo/scheduler/internal/memstore"
	"github.com/Issouf-Kindo/scheduler/internal/metrics"
	"github.com/Issouf-Kindo/scheduler/internal/notify"
	"github.com/Issouf-Kindo/scheduler/internal/reminder"
	"github.com/Issouf-Kindo/scheduler/internal/token"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Store ----
	var store core.Store
	var ready func(ctx context.Context) error
	if cfg.UseMemoryStore {
		log.Warn("using in-memory store; appointments will not survive a restart")
		store = memstore.New()
	} else {
		pool, perr := pgxpool.New(rootCtx, cfg.DatabaseURL)
		if perr != nil {
			log.Fatal("db pool", zap.Error(perr))
		}
		defer pool.Close()
		if perr := pool.Ping(rootCtx); perr != nil {
			log.Fatal("db ping", zap.Error(perr))
		}
		if perr := db.Migrate(rootCtx, pool); perr != nil {
			log.Fatal("db migrate", zap.Error(perr))
		}
		store = db.NewStore(pool)
		ready = pool.Ping

		stop := make(chan struct{})
		defer close(stop)
		go metrics.NewPGXPoolStats(pool).Start(15*time.Second, stop)
	}

	// ---- Notifications ----
	var email notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, log); sg != nil {
		email = sg
	} else {
		log.Warn("sendgrid not configured, emails will only be logged")
		email = notify.NewStubEmailSender(log)
	}
	dispatcher := notify.NewDispatcher(email, notify.NewSMSSenderFor(cfg.SMSProvider, log), notify.Options{
		BaseURL:     cfg.PublicBaseURL,
		SendTimeout: cfg.SendTimeout,
		QPS:         cfg.NotifyQPS,
		Burst:       cfg.NotifyBurst,
	}, log)

	svc := core.NewService(store, token.NewService(cfg.TokenSecret), dispatcher, log)

	// ---- Reminder engine ----
	if cfg.RunReminder {
		engine := reminder.New(store, dispatcher, reminder.Options{Interval: cfg.ReminderInterval}, log)
		go func() {
			if err := engine.Run(rootCtx); err != nil && rootCtx.Err() == nil {
				log.Error("reminder engine exited", zap.Error(err))
			}
		}()
	}

	// ---- HTTP server ----
	srv := httpapi.NewServer(svc, ready, log)
	server := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	cancel()
	_ = server.Shutdown(shutdownCtx)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
