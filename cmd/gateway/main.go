// Command gateway runs the public-facing proxy process: key resolution,
// daily rate limiting, upstream forwarding, and write-behind usage capture
// (spec.md §2, §4.1–§4.4).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/korberlin/apigateway/internal/customer"
	"github.com/korberlin/apigateway/internal/gateway/keyresolver"
	"github.com/korberlin/apigateway/internal/gateway/proxy"
	"github.com/korberlin/apigateway/internal/gateway/ratelimit"
	"github.com/korberlin/apigateway/internal/httpapi/gatewayapi"
	"github.com/korberlin/apigateway/internal/usage"
	"github.com/korberlin/apigateway/pkg/config"
	"github.com/korberlin/apigateway/pkg/httpserver"
	"github.com/korberlin/apigateway/pkg/logger"
	"github.com/korberlin/apigateway/pkg/pg"
	"github.com/korberlin/apigateway/pkg/redis"
)

// gatewayConfig is the gateway process's environment-variable surface
// (spec.md §6: PORT, upstream default URL, billing-service URL, fast-store
// URL, durable-store URL). pg/redis connection tuning is delegated to their
// own Config structs, nested as named fields the same way the teacher
// composes per-concern Config structs — env v11 recurses into any struct
// field, named or anonymous, so no prefix tag is needed.
type gatewayConfig struct {
	PG    pg.Config
	Redis redis.Config

	Port               int           `env:"PORT" envDefault:"8080"`
	DefaultUpstreamURL string        `env:"DEFAULT_UPSTREAM_URL" envDefault:""`
	BillingServiceURL  string        `env:"BILLING_SERVICE_URL" envDefault:""`
	DrainInterval      time.Duration `env:"USAGE_DRAIN_INTERVAL" envDefault:"30s"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg gatewayConfig
	config.MustLoad(&cfg)

	format := logger.FormatJSON
	if cfg.LogFormat == "text" {
		format = logger.FormatText
	}
	log := logger.New(logger.WithFormat(format))

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("gateway: failed to connect to durable store", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("gateway: failed to connect to fast store", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	custStore := customer.NewPGStore(pool)
	resolver := keyresolver.New(rdb, custStore, log)
	limiter := ratelimit.New(rdb, time.Local)
	forwarder := proxy.New(proxy.WithDefaultUpstreamURL(cfg.DefaultUpstreamURL))
	usageStore := usage.NewPGStore(pool)
	buffer := usage.NewBuffer(rdb)

	drain := usage.NewDrain(buffer, usageStore, nil, log, cfg.DrainInterval)
	go drain.Run(ctx)

	var billingFwd *gatewayapi.BillingForwarder
	if cfg.BillingServiceURL != "" {
		billingFwd = &gatewayapi.BillingForwarder{BaseURL: cfg.BillingServiceURL, Client: &http.Client{Timeout: 10 * time.Second}}
	}

	router := gatewayapi.Router(gatewayapi.Deps{
		Resolver:  resolver,
		Limiter:   limiter,
		Forwarder: forwarder,
		Buffer:    buffer,
		Billing:   billingFwd,
		Log:       log,
	})

	srv := httpserver.New(
		httpserver.WithAddr(":"+strconv.Itoa(cfg.Port)),
		httpserver.WithLogger(log),
	)

	log.Info("gateway: starting", "port", cfg.Port)
	if err := srv.Run(ctx, router); err != nil {
		log.Error("gateway: server stopped with error", "error", err)
		os.Exit(1)
	}
}
