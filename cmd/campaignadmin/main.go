package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iurnickita/campaignadmin/internal/auth"
	"github.com/iurnickita/campaignadmin/internal/config"
	"github.com/iurnickita/campaignadmin/internal/handler"
	"github.com/iurnickita/campaignadmin/internal/logger"
	"github.com/iurnickita/campaignadmin/internal/service"
	"github.com/iurnickita/campaignadmin/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.Store.DBDsn == "" {
		zaplog.Info("using in-memory store")
	}

	auth := auth.NewAuth(cfg.Auth, store, zaplog)
	service, err := service.NewService(cfg.Service, store, zaplog)
	if err != nil {
		return err
	}

	if err := handler.Serve(ctx, cfg.Handler, auth, service, zaplog); err != nil {
		zaplog.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
