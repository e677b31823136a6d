package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Depado/ginprom"
	"github.com/aurowora/compress"
	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/kofalt/go-memoize"
	"github.com/rs/zerolog"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/mqtt"
	"github.com/rm-hull/prix-carburant/internal/routes"
	"github.com/rm-hull/prix-carburant/internal/sensors"
)

const nearestCacheTTL = 15 * time.Minute

func ApiServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, registry, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	fuels, err := cfg.EnabledFuels()
	if err != nil {
		return err
	}

	coordinator := newCoordinator(cfg, registry, logger)

	if cfg.MQTT.Enabled {
		publisher, err := mqtt.Connect(cfg.MQTT, sensors.Options{
			Fuels:                 fuels,
			DisplayEntityPictures: cfg.DisplayEntityPictures,
		}, logger)
		if err != nil {
			return errors.Wrap(err, "failed to connect to MQTT broker")
		}
		defer publisher.Close()
		coordinator.OnRefresh(publisher.OnRefresh)
	}

	scheduler, err := internal.StartCron(ctx, coordinator, cfg.ScanInterval, logger)
	if err != nil {
		return errors.Wrap(err, "failed to start CRON jobs")
	}
	defer scheduler.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
		compress.Compress(),
		cors.Default(),
	)

	if cfg.Debug {
		logger.Warn().Msg("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err = healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{
		internal.RegistryCheck(registry),
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize healthcheck")
	}

	memo := memoize.NewMemoizer(nearestCacheTTL, 2*nearestCacheTTL)

	v1 := r.Group("/v1/prix-carburant")
	v1.GET("/stations", routes.Stations(registry, fuels))
	v1.GET("/stations.gpx", routes.StationsGPX(registry, fuels, logger))
	v1.GET("/stations/:id", routes.Station(registry))
	v1.GET("/nearest", routes.Nearest(registry, memo, logger))
	v1.GET("/manual-stations", routes.ManualStations(coordinator))
	v1.POST("/manual-stations", routes.AddManualStation(coordinator, logger))
	v1.DELETE("/manual-stations/:id", routes.RemoveManualStation(coordinator, logger))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("starting HTTP API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrapf(err, "HTTP API server failed to start on port %d", cfg.HTTPPort)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP API server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
