package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/sliterok/tasktimer/internal/config"
	"github.com/sliterok/tasktimer/internal/daemon"
	"github.com/sliterok/tasktimer/internal/storage"
	"github.com/sliterok/tasktimer/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./tasktimer.yaml", "path to config yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logx.New(logx.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console || cfg.Log.File == "",
		File:    logx.FileConfig{Enabled: cfg.Log.File != "", Path: cfg.Log.File},
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	mgr.SetLogger(log.With(logx.String("component", "config")))

	store, err := storage.Open(storage.Config{
		Enabled: cfg.History.Enabled,
		Path:    cfg.History.Path,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	svc, err := daemon.New(daemon.Options{
		Config: cfg,
		Log:    log,
		Store:  store,
	})
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}
	go func() { _ = mgr.Watch(ctx) }()
	go svc.WatchConfig(ctx, mgr)

	_, _ = sd.SdNotify(false, sd.SdNotifyReady)

	<-ctx.Done()
	_, _ = sd.SdNotify(false, sd.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return svc.Stop(stopCtx)
}
