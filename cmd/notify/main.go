package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/allylab/notify/internal/analytics"
	"github.com/allylab/notify/internal/api"
	"github.com/allylab/notify/internal/circuitbreaker"
	"github.com/allylab/notify/internal/config"
	"github.com/allylab/notify/internal/dispatcher"
	"github.com/allylab/notify/internal/domain"
	"github.com/allylab/notify/internal/metrics"
	"github.com/allylab/notify/internal/monitor"
	"github.com/allylab/notify/internal/ratelimit"
	"github.com/allylab/notify/internal/registry"
	"github.com/allylab/notify/internal/transport/channel"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`notify - accessibility scan webhook notification engine

Usage:
  notify <command>

Commands:
  serve      Start the notification engine and HTTP API
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  HTTP_ADDR                 HTTP server address (default: ":8080")
  REDIS_ADDR                Redis address for delivery analytics (optional)

  WEBHOOK_TIMEOUT           Per-request delivery timeout (default: "10s")
  WEBHOOK_MAX_RETRIES       Retries after the initial attempt (default: "5")
  WEBHOOK_BASE_DELAY        First retry delay (default: "1s")
  WEBHOOK_MAX_DELAY         Backoff delay cap (default: "60s")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  DISPATCHER_DRAIN_TIMEOUT  Dispatcher event drain timeout (default: "30s")
  EVENTBUS_BUFFER_SIZE      Event bus buffer size (default: "100")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")

  HEALTHCHECK_SCHEDULE      Cron expression for destination probing (default: disabled)
  RATE_LIMIT_RPS            Per-destination deliveries per second, 0 disables (default: "0")
  RATE_LIMIT_BURST          Per-destination burst size (default: "1")
  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before opening, 0 disables (default: "5")
  CIRCUIT_BREAKER_COOLDOWN  Open-state cooldown (default: "2m")
  ANALYTICS_RETENTION       Redis counter retention (default: "168h")`)
}

// redisHealth adapts a redis client to the api health checker.
type redisHealth struct {
	client *redis.Client
}

func (r redisHealth) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logConfigWarnings(&cfg)

	reg := registry.New()
	sender := dispatcher.NewHTTPSender()

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("notify: metrics enabled (path=%s)", cfg.MetricsPath)
	} else {
		log.Println("notify: METRICS_ENABLED not set; metrics disabled")
	}

	// Create event bus with optional metrics
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	disp := dispatcher.New(reg, sender).
		WithRetryConfig(domain.RetryConfig{
			MaxRetries:        cfg.WebhookMaxRetries,
			BaseDelay:         cfg.WebhookBaseDelay,
			MaxDelay:          cfg.WebhookMaxDelay,
			BackoffMultiplier: 2,
		}).
		WithRequestTimeout(cfg.WebhookTimeout).
		WithDrainTimeout(cfg.DispatcherDrainTimeout)
	if metricsSink != nil {
		disp = disp.WithMetrics(metricsSink)
	}

	if cfg.CircuitBreakerThreshold > 0 {
		breaker := circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
		disp = disp.WithBreaker(breaker)
		log.Printf("notify: circuit breaker enabled (threshold=%d, cooldown=%s)",
			cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
	} else {
		log.Println("notify: CIRCUIT_BREAKER_THRESHOLD=0; circuit breaker disabled")
	}

	if cfg.RateLimitRPS > 0 {
		limiter := ratelimit.NewPerKey(cfg.RateLimitRPS, cfg.RateLimitBurst)
		disp = disp.WithLimiter(limiter)
		log.Printf("notify: rate limiting enabled (rps=%g, burst=%d)", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Wire analytics if Redis is configured
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		sink := analytics.NewRedisSink(redisClient, analytics.WithRetention(cfg.AnalyticsRetention))
		disp = disp.WithAnalytics(sink)
		log.Printf("notify: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("notify: REDIS_ADDR not set; analytics disabled")
	}

	apiHandler := api.NewHandler(reg, disp, bus)
	if redisClient != nil {
		apiHandler = apiHandler.WithHealthChecker(redisHealth{client: redisClient})
	}

	mux := http.NewServeMux()
	if cfg.MetricsEnabled {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	mux.Handle("/", apiHandler)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("notify: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("notify: http server error: %v", err)
		}
	}()

	// Separate dispatcher context so shutdown can drain after the API stops
	// accepting triggers.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()

	var dispatcherWg sync.WaitGroup
	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		disp.Run(dispatcherCtx, bus.Channel())
	}()

	// Start destination monitor if scheduled
	var mon *monitor.Monitor
	if cfg.HealthcheckSchedule != "" {
		var monOpts []monitor.Option
		if metricsSink != nil {
			monOpts = append(monOpts, monitor.WithMetrics(metricsSink))
		}
		mon = monitor.New(cfg.HealthcheckSchedule, reg, disp, monOpts...)
		if err := mon.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start monitor: %v\n", err)
			return exitRuntimeError
		}
	} else {
		log.Println("notify: HEALTHCHECK_SCHEDULE not set; destination probing disabled")
	}

	log.Printf("notify: started (http=%s)", cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("notify: received signal %v, shutting down", received)

	// Phase 1: Stop HTTP server so no new events are accepted
	log.Println("notify: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("notify: http server shutdown error: %v", err)
	}
	log.Println("notify: http server stopped")

	// Phase 2: Stop monitor (no new probes)
	if mon != nil {
		log.Println("notify: stopping monitor...")
		mon.Stop()
		log.Println("notify: monitor stopped")
	}

	// Phase 3: Stop dispatcher (will drain buffered events before returning)
	log.Println("notify: stopping dispatcher (draining events)...")
	cancelDispatcher()
	dispatcherWg.Wait()
	log.Println("notify: dispatcher stopped")

	// Phase 4: Close Redis client
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("notify: redis close error: %v", err)
		}
	}

	log.Println("notify: stopped")
	return exitSuccess
}

// logConfigWarnings flags configurations that silently weaken delivery
// guarantees.
func logConfigWarnings(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		log.Println("notify: WARNING: REDIS_ADDR not set; delivery outcomes will not be recorded for analytics")
	}
	if cfg.CircuitBreakerThreshold == 0 {
		log.Println("notify: WARNING: CIRCUIT_BREAKER_THRESHOLD=0; persistently failing destinations will consume full retry budgets")
	}
	if cfg.WebhookMaxRetries == 0 {
		log.Println("notify: WARNING: WEBHOOK_MAX_RETRIES=0; transient destination failures will not be retried")
	}
	if !cfg.MetricsEnabled {
		log.Println("notify: WARNING: METRICS_ENABLED not set; delivery health will not be observable")
	}
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("notify version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
