package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/estrelametais/label-engine/config"
	"github.com/estrelametais/label-engine/internal/api"
	"github.com/estrelametais/label-engine/internal/catalog"
	"github.com/estrelametais/label-engine/internal/printer"
	"github.com/estrelametais/label-engine/internal/util"
)

// Version is set during build via ldflags.
var Version = "dev"

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()
	log := util.GetLogger()

	log.Info("label engine starting",
		zap.String("version", Version),
		zap.String("env", cfg.Server.Env))

	store, err := catalog.New(cfg.Catalog.DatabasePath, cfg.Catalog.BarcodePrefix)
	if err != nil {
		log.Fatal("opening catalog", zap.Error(err))
	}
	defer store.Close()

	session := printer.NewSession(log)
	session.AllowSimulatedFallback(cfg.Printer.AllowSimulated)
	defer session.Disconnect()

	monitor := printer.NewMonitor(session,
		time.Duration(cfg.Printer.MonitorIntervalSeconds)*time.Second, log)
	monitor.Start()
	defer monitor.Stop()

	server := api.NewServer(store, session, log)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%s", cfg.Server.Port)
		log.Info("api listening", zap.String("addr", addr))
		serverErr <- server.Run(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal("server error", zap.Error(err))
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}
}
