package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/lightsource/sessions-api/internal/config"
	"github.com/lightsource/sessions-api/internal/graph"
	"github.com/lightsource/sessions-api/internal/health"
	"github.com/lightsource/sessions-api/internal/ispyb"
	"github.com/lightsource/sessions-api/internal/middleware"
	"github.com/lightsource/sessions-api/internal/observability"
	"github.com/lightsource/sessions-api/internal/policy"
	"github.com/lightsource/sessions-api/internal/ratelimit"
	"github.com/lightsource/sessions-api/internal/secrets"
	"github.com/lightsource/sessions-api/internal/server"
)

const (
	// metricsNamespace prefixes every metric the service exports.
	metricsNamespace = "sessions"

	// startupPingTimeout bounds the fail-fast database ping at boot.
	startupPingTimeout = 5 * time.Second

	// healthCacheTTL is how long a dependency probe result is reused
	// before the dependency is asked again.
	healthCacheTTL = 10 * time.Second

	// healthzPath is the liveness route on the serving port. It stays
	// out of the request log, traces and rate limit accounting.
	healthzPath = "/healthz"
)

// application holds all service components.
type application struct {
	config        *config.Config
	server        *server.Server
	metricsServer *server.MetricsServer
	db            *sql.DB
	redisClient   *redis.Client
	limiter       ratelimit.Limiter
	policyClient  *policy.Client
	tracer        *observability.Tracer
}

// initApplication initializes all service components.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}

	redisPassword, err := resolveSecrets(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	policyMetrics := policy.NewMetrics(metricsNamespace)
	policyClient, err := initPolicyClient(cfg, logger, policyMetrics)
	if err != nil {
		return nil, fmt.Errorf("create policy client: %w", err)
	}

	repoMetrics := ispyb.NewMetrics(metricsNamespace)
	repo := ispyb.NewRepository(db,
		ispyb.WithLogger(logger),
		ispyb.WithMetrics(repoMetrics),
	)

	graphMetrics := graph.NewMetrics(metricsNamespace)
	resolver := graph.NewRootResolver(repo, policyClient,
		graph.WithLogger(logger),
		graph.WithMetrics(graphMetrics),
	)

	schema, err := graph.NewSchema(resolver)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	guard := graph.NewGuard(graph.GuardConfig{
		MaxDepth:           cfg.GraphQL.MaxDepth,
		MaxComplexity:      cfg.GraphQL.MaxComplexity,
		AllowIntrospection: cfg.GraphQL.Introspection,
	},
		graph.WithGuardLogger(logger),
		graph.WithGuardMetrics(graphMetrics),
	)

	limiterMetrics := ratelimit.NewMetrics(metricsNamespace)
	limiter, redisClient, err := initLimiter(cfg, logger, limiterMetrics, redisPassword)
	if err != nil {
		return nil, err
	}

	serverMetrics := server.NewMetrics(metricsNamespace)
	srv := buildServer(cfg, logger, schema, guard, serverMetrics, limiter)

	healthMetrics := health.NewMetrics(metricsNamespace)
	healthHandler := buildHealthHandler(cfg, logger, healthMetrics, db, redisClient)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled {
		gatherers := prometheus.Gatherers{
			prometheus.DefaultGatherer,
			serverMetrics.Registry(),
			graphMetrics.Registry(),
			repoMetrics.Registry(),
			policyMetrics.Registry(),
			healthMetrics.Registry(),
			limiterMetrics.Registry(),
		}
		metricsServer = buildMetricsServer(cfg, logger, healthHandler, gatherers)
	}

	return &application{
		config:        cfg,
		server:        srv,
		metricsServer: metricsServer,
		db:            db,
		redisClient:   redisClient,
		limiter:       limiter,
		policyClient:  policyClient,
		tracer:        tracer,
	}, nil
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	return observability.NewTracer(observability.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
}

// resolveSecrets resolves secret references in the configuration. The
// redis password has no plain config field, so it is returned instead
// of written back.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger observability.Logger) (string, error) {
	if cfg.Database.URLFrom == "" && !needsRedisPassword(cfg) {
		return "", nil
	}

	opts := []secrets.ResolverOption{secrets.WithResolverLogger(logger)}
	if needsVault(cfg) {
		provider, err := secrets.NewVaultProvider(secrets.WithVaultLogger(logger))
		if err != nil {
			return "", fmt.Errorf("create vault provider: %w", err)
		}
		opts = append(opts, secrets.WithProvider(provider))
	}

	resolver := secrets.NewResolver(opts...)
	defer func() { _ = resolver.Close() }()

	if cfg.Database.URLFrom != "" {
		url, err := resolver.Resolve(ctx, cfg.Database.URLFrom)
		if err != nil {
			return "", fmt.Errorf("resolve database url: %w", err)
		}
		cfg.Database.URL = url
	}

	var redisPassword string
	if needsRedisPassword(cfg) {
		password, err := resolver.Resolve(ctx, cfg.RateLimit.Redis.PasswordFrom)
		if err != nil {
			return "", fmt.Errorf("resolve redis password: %w", err)
		}
		redisPassword = password
	}

	return redisPassword, nil
}

func needsRedisPassword(cfg *config.Config) bool {
	return cfg.RateLimit.Enabled &&
		cfg.RateLimit.Redis != nil &&
		cfg.RateLimit.Redis.PasswordFrom != ""
}

// needsVault reports whether any configured secret reference points
// at Vault, so the Vault client is only ever built when used.
func needsVault(cfg *config.Config) bool {
	if strings.HasPrefix(cfg.Database.URLFrom, "vault://") {
		return true
	}
	return cfg.RateLimit.Redis != nil &&
		strings.HasPrefix(cfg.RateLimit.Redis.PasswordFrom, "vault://")
}

// openDatabase opens the pool and fails fast when ISPyB is
// unreachable; a service that cannot read sessions should not come up.
func openDatabase(ctx context.Context, cfg *config.Config, logger observability.Logger) (*sql.DB, error) {
	db, err := ispyb.Open(ispyb.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Duration(),
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime.Duration(),
	})
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	logger.Info("database connected",
		observability.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	return db, nil
}

// initPolicyClient builds the policy decision client, with a circuit
// breaker when one is configured.
func initPolicyClient(cfg *config.Config, logger observability.Logger, metrics *policy.Metrics) (*policy.Client, error) {
	opts := []policy.Option{
		policy.WithLogger(logger),
		policy.WithTimeout(cfg.Policy.Timeout.Duration()),
		policy.WithMetrics(metrics),
	}

	if breaker := cfg.Policy.Breaker; breaker != nil && breaker.Enabled {
		opts = append(opts, policy.WithBreaker(policy.BreakerSettings{
			MaxFailures: breaker.MaxFailures,
			Interval:    breaker.Interval.Duration(),
			OpenTimeout: breaker.OpenTimeout.Duration(),
		}))
	}

	return policy.New(cfg.Policy.Endpoint, opts...)
}

// initLimiter builds the configured limiter backend. The returned
// redis client, when present, is owned by the caller and doubles as
// the readiness probe target.
func initLimiter(cfg *config.Config, logger observability.Logger, metrics *ratelimit.Metrics, redisPassword string) (ratelimit.Limiter, *redis.Client, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil, nil
	}

	if rc := cfg.RateLimit.Redis; rc != nil {
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Address,
			Password: redisPassword,
			DB:       rc.DB,
		})

		limiter, err := ratelimit.NewRedisLimiter(client, rc.Limit, rc.Window.Duration(),
			ratelimit.WithRedisLogger(logger),
			ratelimit.WithRedisMetrics(metrics),
		)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("create redis limiter: %w", err)
		}

		logger.Info("rate limiting enabled",
			observability.String("backend", "redis"),
			observability.String("address", rc.Address),
		)
		return limiter, client, nil
	}

	limiter := ratelimit.NewLocalLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
		ratelimit.WithLocalLogger(logger),
		ratelimit.WithLocalMetrics(metrics),
	)

	logger.Info("rate limiting enabled",
		observability.String("backend", "local"),
	)
	return limiter, nil, nil
}

// buildServer assembles the GraphQL listener: middleware chain first,
// then the GraphQL handler on /.
func buildServer(cfg *config.Config, logger observability.Logger, schema *graphql.Schema, guard *graph.Guard, metrics *server.Metrics, limiter ratelimit.Limiter) *server.Server {
	serverCfg := server.DefaultConfig()
	serverCfg.Address = cfg.Server.Address
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout.Duration()
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout.Duration()
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout.Duration()
	serverCfg.MaxRequestBodySize = cfg.Server.MaxRequestBodySize

	srv := server.New(serverCfg, server.WithLogger(logger))

	srv.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    logger,
			SkipPaths: []string{healthzPath},
		}),
		middleware.TracingWithConfig(middleware.TracingConfig{
			SkipPaths: []string{healthzPath},
		}),
	)
	if limiter != nil {
		srv.Use(middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter:        limiter,
			Logger:         logger,
			IncludeHeaders: true,
			SkipPaths:      []string{healthzPath},
		}))
	}
	srv.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout.Duration()))

	// Liveness on the serving port itself; dependency probes live on
	// the metrics listener.
	srv.Engine().GET(healthzPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := server.NewHandler(schema,
		server.WithGuard(guard),
		server.WithHandlerLogger(logger),
		server.WithHandlerMetrics(metrics),
		server.WithGraphiQL(cfg.GraphQL.GraphiQL),
	)
	handler.Register(srv.Engine(), "/")

	return srv
}

// buildHealthHandler registers dependency probes. Probe results are
// cached so kubelet traffic does not hammer the dependencies.
func buildHealthHandler(cfg *config.Config, logger observability.Logger, metrics *health.Metrics, db *sql.DB, redisClient *redis.Client) *health.Handler {
	handler := health.NewHandler(
		health.WithLogger(logger),
		health.WithMetrics(metrics),
	)

	handler.AddCheck(health.NewCachedCheck(health.SQLCheck("database", db), healthCacheTTL))
	handler.AddCheck(health.NewCachedCheck(health.HTTPCheck("policy", cfg.Policy.Endpoint, nil), healthCacheTTL))
	if redisClient != nil {
		handler.AddCheck(health.NewCachedCheck(health.RedisCheck("redis", redisClient), healthCacheTTL))
	}

	return handler
}

// buildMetricsServer assembles the operational listener.
func buildMetricsServer(cfg *config.Config, logger observability.Logger, healthHandler *health.Handler, gatherers prometheus.Gatherers) *server.MetricsServer {
	metricsCfg := server.DefaultMetricsServerConfig()
	metricsCfg.Port = cfg.Metrics.Port
	metricsCfg.Path = cfg.Metrics.Path

	return server.NewMetricsServer(metricsCfg,
		server.WithMetricsLogger(logger),
		server.WithHealthHandler(healthHandler),
		server.WithGatherers(gatherers...),
	)
}
