package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"creditflow/auth"
	"creditflow/db"
	"creditflow/dispute"
	"creditflow/escalate"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("bootstrap database pool", zap.Error(err))
	}
	defer pool.Close()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	windows := dispute.DefaultWindows()
	if path := os.Getenv("DEADLINE_WINDOWS_FILE"); path != "" {
		windows, err = dispute.LoadWindows(path)
		if err != nil {
			log.Fatal("load statutory windows", zap.Error(err))
		}
	}

	repo := dispute.NewPGRepository(pool)
	srv := &server{
		log:      log,
		auth:     auth.NewService(auth.NewRepository(pool), secret),
		disputes: dispute.NewService(repo, windows),
		scheduler: escalate.NewScheduler(repo, &escalate.StubBuilder{
			Consumer: escalate.ConsumerInfo{Name: os.Getenv("CONSUMER_NAME")},
		}, log),
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("api listening", zap.String("addr", addr))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
}
