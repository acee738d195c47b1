package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"line_supervisor/internal/aggregator"
	"line_supervisor/internal/config"
	"line_supervisor/internal/equipment"
	"line_supervisor/internal/handlers"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/metrics"
	"line_supervisor/internal/repository"
	"line_supervisor/internal/repository/db"
	"line_supervisor/internal/server"
	"line_supervisor/internal/service"
	"line_supervisor/internal/station"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config.yml (default ./configs/config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	m := metrics.New()
	line := aggregator.New(cfg.Line.Stations, aggregator.WithEquipmentAck(cfg.Line.RequireEquipmentAck))
	stations := station.NewRegistry(cfg.Line.Stations,
		station.WithLogCapacity(cfg.Line.LogCapacity),
		station.WithOperators(line),
	)
	rooms := hub.New(cfg.Line.Stations,
		hub.WithClientBuffer(cfg.Hub.ClientBuffer),
		hub.WithObserver(m),
		hub.WithLogger(log),
	)
	adapter := equipment.New(cfg.MQTT, cfg.NFC.Cards, log, equipment.WithObserver(m))

	services := service.NewService(service.Deps{
		Repos:     repository.NewRepository(conn),
		Stations:  stations,
		Line:      line,
		Hub:       rooms,
		Equipment: adapter,
		Metrics:   m,
		Log:       log,
		Options: service.Options{
			RequireOrder:      cfg.Line.RequireOrder,
			SigningKey:        cfg.Auth.SigningKey,
			AdminPasswordHash: cfg.Admin.PasswordHash,
		},
	})
	adapter.Bind(services.EquipmentHandler())

	apiHandler := handlers.NewHandler(services, rooms, log, handlers.WithMetrics(m.Handler()))
	srv := server.New(cfg.Port, apiHandler.InitRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("http_listening", "addr", srv.Addr(), "stations", cfg.Line.Stations)
		return srv.Run()
	})
	g.Go(func() error { return adapter.Run(ctx) })
	g.Go(func() error {
		services.Run(ctx, cfg.Line.SyncInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infow("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorw("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Infow("server stopped")
}
