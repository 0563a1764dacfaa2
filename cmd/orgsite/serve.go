package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/orgsite"
	"github.com/eringen/orgsite/backend/local"
	"github.com/eringen/orgsite/views"
)

func runServe() error {
	cfg, err := orgsite.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := orgsite.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	renderer, err := views.New()
	if err != nil {
		return err
	}
	app := orgsite.New(cfg, orgsite.DefaultViews(renderer), orgsite.WithLogger(logger))
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
		return err
	}
	return <-errc
}

func runCreateAdmin(email, password string) error {
	cfg, err := orgsite.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend != orgsite.BackendLocal {
		return errors.New("create-admin only works with BACKEND=local; add users in the Supabase dashboard")
	}
	logger, err := orgsite.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	be, closeFn, err := orgsite.OpenBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	lb, ok := be.(*local.Backend)
	if !ok {
		return fmt.Errorf("unexpected backend %T", be)
	}
	if err := lb.CreateUser(context.Background(), email, password); err != nil {
		return err
	}
	fmt.Printf("Created admin %s\n", email)
	return nil
}
