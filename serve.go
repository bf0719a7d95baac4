package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"twinconsole/internal/config"
	"twinconsole/internal/controllers"
	"twinconsole/internal/logger"
	"twinconsole/internal/middleware"
	"twinconsole/internal/models"
	"twinconsole/internal/observability"
	"twinconsole/internal/routes"
	"twinconsole/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console server",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FindConfigFile(configPath)
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Logging.IsEnabled(), cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Close()
		logger.Infof("[MAIN] twinconsole %s starting (config %s)", version, path)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	loc, err := time.LoadLocation(cfg.Console.BucketTZ)
	if err != nil {
		return fmt.Errorf("bucket timezone: %w", err)
	}
	console := services.NewConsole(services.ConsoleOptions{
		Channels:    cfg.Console.Channels,
		TrendLength: cfg.Console.TrendLength,
		MaxEvents:   cfg.Console.MaxEvents,
		MaxBuckets:  cfg.Console.MaxBuckets,
		BucketWidth: cfg.Console.BucketWidth,
		Location:    loc,
		LogMessages: cfg.Console.LogMessages,
		Metrics:     metrics,
	})

	playback, err := services.NewPlaybackService(services.PlaybackOptions{
		BaseURL:      cfg.Control.BaseURL,
		Timeout:      cfg.Control.Timeout,
		InitialSpeed: cfg.Control.InitialSpeed,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer playback.Close()

	var auth *services.AuthService
	if cfg.Auth.Enabled {
		auth, err = services.NewAuthService(cfg.Auth.Secret, cfg.Auth.SecretFile, cfg.Auth.TokenExpiry)
		if err != nil {
			return err
		}
		logger.Infof("[AUTH] Operator tokens required for /ws and /api/control")
	}
	middleware.NewSecurityLogger()

	var wg sync.WaitGroup
	var connected func() bool

	switch cfg.Stream.Source {
	case "simulated":
		sim := services.NewSimulator(services.SimulatorOptions{
			Sensors:  rawSensorIDs(cfg.Console.Channels),
			Interval: cfg.Stream.SimInterval,
			Playback: playback.State,
		}, console)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Run(ctx)
		}()
	default:
		stream := services.NewStreamClient(services.StreamOptions{
			URL:          cfg.Stream.URL,
			Reconnect:    cfg.Stream.ReconnectEnabled(),
			ReconnectMin: cfg.Stream.ReconnectMin,
			ReconnectMax: cfg.Stream.ReconnectMax,
			DialTimeout:  cfg.Stream.DialTimeout,
			Metrics:      metrics,
		}, console)
		connected = stream.Connected
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stream.Run(ctx); err != nil {
				logger.Errorf("[STREAM] Subscription ended: %v", err)
			}
		}()
	}

	hub := services.NewWebSocketHub(console, cfg.Hub.Interval, metrics)
	history := services.NewHistoryCollector(console, connected, cfg.History.MaxPoints)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		history.Run(ctx, cfg.History.Interval)
	}()

	h := &controllers.Handlers{
		Console:        console,
		Playback:       playback,
		StatusCache:    services.NewTTLCache[models.BackendStatus](cfg.Control.StatusTTL),
		Hub:            hub,
		History:        history,
		Diagnostics:    services.NewDiagnosticsService(time.Second, connected, hub.ClientCount),
		Auth:           auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Connected:      connected,
		SendBuffer:     cfg.Hub.SendBuffer,
		Source:         cfg.Stream.Source,
		Version:        version,
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newEngine(cfg, h, reg),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[HTTP] Listening on %s (source: %s)", cfg.Server.Addr, cfg.Stream.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Infof("[MAIN] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("[HTTP] Shutdown: %v", err)
	}
	wg.Wait()
	return nil
}

func newEngine(cfg *config.Config, h *controllers.Handlers, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = logger.Writer(logger.Info)
	gin.DefaultErrorWriter = logger.Writer(logger.Error)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middleware.IPAllowListMiddleware(middleware.NewIPAllowList(cfg.Server.AllowedIPs)))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter()))

	if dir := cfg.Server.StaticDir; dir != "" {
		r.Static("/app", dir)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(dir, "index.html"))
		})
	}

	routes.RegisterDashboardRoutes(r, h)
	routes.RegisterControlRoutes(r, h, middleware.NewControlRateLimiter())
	routes.RegisterWebSocketRoutes(r, h)
	routes.RegisterMetricsRoutes(r, reg)
	return r
}

// rawSensorIDs drops the synthetic anomaly channel.
func rawSensorIDs(channels []models.ChannelMeta) []string {
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch.ID != services.AnomalyScoreChannel {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}
