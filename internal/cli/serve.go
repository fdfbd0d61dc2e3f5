package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/activity"
	"github.com/Ramsey-B/clover/internal/repositories/association"
	"github.com/Ramsey-B/clover/internal/repositories/profile"
	"github.com/Ramsey-B/clover/internal/repositories/review"
	"github.com/Ramsey-B/clover/pkg/claims"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/duplicates"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/profiles"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/reviews"
	"github.com/Ramsey-B/clover/pkg/routes/duplicatecheck"
	profileroutes "github.com/Ramsey-B/clover/pkg/routes/profile"
	reviewroutes "github.com/Ramsey-B/clover/pkg/routes/review"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, sync, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer sync()

		return newServer(cfg, logger).Run(cmd.Context())
	},
}

// server owns the backing connections and the echo instance
type server struct {
	cfg    *config.Config
	logger ectologger.Logger

	db        database.DB
	redis     *redis.Client
	producer  *events.Producer
	graph     *graph.Client
	health    *health.Checker
	echo      *echo.Echo
	stopTrace func(context.Context) error
}

func newServer(cfg *config.Config, logger ectologger.Logger) *server {
	return &server{
		cfg:    cfg,
		logger: logger,
		health: health.NewChecker(cfg.AppName, cfg.StoreTimeout),
	}
}

// Run brings every dependency up, serves until ctx is cancelled, then shuts
// everything down in reverse order.
func (s *server) Run(ctx context.Context) error {
	boot := startup.NewStartup(s.logger, s.cfg.StartupMaxAttempts)
	for _, dep := range s.dependencies() {
		boot.AddDependency(dep)
	}

	if err := boot.Start(ctx); err != nil {
		_ = boot.Stop(context.Background())
		return err
	}
	s.health.SetReady(true)

	<-ctx.Done()
	s.logger.Info("Shutting down")
	s.health.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return boot.Stop(stopCtx)
}

func (s *server) dependencies() []*startup.Dependency {
	deps := []*startup.Dependency{
		{
			Name:    "tracing",
			OnStart: s.startTracing,
			OnStop: func(ctx context.Context) error {
				if s.stopTrace == nil {
					return nil
				}
				return s.stopTrace(ctx)
			},
		},
		{
			Name:     "postgres",
			Requires: []string{"tracing"},
			OnStart:  s.startPostgres,
			OnStop: func(context.Context) error {
				return s.db.Close()
			},
		},
	}
	httpRequires := []string{"postgres"}

	if s.cfg.RedisEnabled {
		deps = append(deps, &startup.Dependency{
			Name:    "redis",
			OnStart: s.startRedis,
			OnStop: func(context.Context) error {
				return s.redis.Close()
			},
		})
		httpRequires = append(httpRequires, "redis")
	}

	if s.cfg.KafkaEnabled {
		deps = append(deps, &startup.Dependency{
			Name:    "kafka",
			OnStart: s.startKafka,
			OnStop: func(context.Context) error {
				return s.producer.Close()
			},
		})
		httpRequires = append(httpRequires, "kafka")
	}

	if s.cfg.GraphEnabled {
		deps = append(deps, &startup.Dependency{
			Name:    "graph",
			OnStart: s.startGraph,
			OnStop: func(ctx context.Context) error {
				return s.graph.Close(ctx)
			},
		})
		httpRequires = append(httpRequires, "graph")
	}

	return append(deps, &startup.Dependency{
		Name:     "http",
		Requires: httpRequires,
		OnStart:  s.startHTTP,
		OnStop: func(ctx context.Context) error {
			return s.echo.Shutdown(ctx)
		},
	})
}

func (s *server) startTracing(ctx context.Context) error {
	if !s.cfg.TracingEnabled {
		return nil
	}
	stop, err := tracing.Init(ctx, s.cfg.AppName, tracing.OTLPConfig{
		Endpoint: s.cfg.TracingEndpoint,
		Protocol: s.cfg.TracingProtocol,
		Insecure: true,
	})
	if err != nil {
		return err
	}
	s.stopTrace = stop
	return nil
}

func (s *server) startPostgres(ctx context.Context) error {
	if s.db == nil {
		db, err := database.Connect(ctx, s.logger, connectionConfig(s.cfg))
		if err != nil {
			return err
		}
		s.db = db
	}

	if err := database.NewMigrationService(s.logger, migrationConfig(s.cfg)).Migrate(s.db, s.cfg.DatabaseName); err != nil {
		return err
	}

	s.health.AddCheck("database", health.PingFunc(s.db.PingContext))
	return nil
}

func (s *server) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     s.cfg.RedisHost,
		Port:     s.cfg.RedisPort,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	}, s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.health.AddCheck("redis", s.redis)
	return nil
}

func (s *server) startKafka(ctx context.Context) error {
	producer := events.NewProducer(events.ProducerConfig{
		Brokers:      s.cfg.KafkaBrokers,
		Topic:        s.cfg.KafkaOutputTopic,
		BatchSize:    s.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(s.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: s.cfg.KafkaRequiredAcks,
		Compression:  s.cfg.KafkaCompression,
	}, s.logger)
	if err := producer.Ping(ctx); err != nil {
		_ = producer.Close()
		return fmt.Errorf("kafka unreachable: %w", err)
	}
	s.producer = producer
	s.health.AddCheck("kafka", producer)
	return nil
}

func (s *server) startGraph(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     s.cfg.GraphDBHost,
		Port:     s.cfg.GraphDBPort,
		Username: s.cfg.GraphDBUser,
		Password: s.cfg.GraphDBPassword,
	}, s.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return err
	}
	s.graph = client
	s.health.AddCheck("graph", health.PingFunc(client.VerifyConnectivity))
	return nil
}

func (s *server) startHTTP(ctx context.Context) error {
	e, err := s.buildEcho(ctx)
	if err != nil {
		return err
	}
	s.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.logger.Infof("Listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	return nil
}

func (s *server) buildEcho(ctx context.Context) (*echo.Echo, error) {
	cfg := s.cfg
	logger := s.logger
	timeout := cfg.StoreTimeout

	var publisher events.Publisher = events.NoopPublisher{}
	if s.producer != nil {
		publisher = s.producer
	}
	emitter := events.NewEmitter(publisher, logger)

	var linker graph.Linker = graph.NoopLinker{}
	if s.graph != nil {
		linker = graph.NewLinkService(s.graph, logger)
	}

	profileRepo := profile.NewRepository(s.db, logger, timeout)
	reviewRepo := review.NewRepository(s.db, logger, timeout)
	associationRepo := association.NewRepository(s.db, logger, timeout)
	activityRepo := activity.NewRepository(s.db, logger, timeout)

	matcher := matching.NewMatcher(matching.MatcherConfig{
		Weights:          matching.DefaultMatcherConfig().Weights,
		AddressThreshold: cfg.AddressSimilarity,
	})
	checker := duplicates.NewChecker(profileRepo, logger, duplicates.Config{
		NameThreshold:    cfg.DuplicateNameThreshold,
		AddressThreshold: cfg.AddressSimilarity,
		CandidateLimit:   cfg.MatchBatchSize,
	})

	profileSvc := profiles.NewService(logger, profileRepo, checker, emitter, linker)
	reviewSvc := reviews.NewService(logger, reviews.Config{ListLimit: cfg.MatchBatchSize},
		reviewRepo, activityRepo, associationRepo, emitter, linker, matcher)
	claimManager := claims.NewManager(logger, reviewRepo, associationRepo, activityRepo, emitter, linker, matcher)

	var idempotency reviewroutes.IdempotencyStore
	if s.redis != nil {
		idempotency = redis.NewIdempotencyStore(s.redis, cfg.IdempotencyKeyScope, cfg.IdempotencyKeyTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Context(!cfg.AuthEnabled))
	e.Use(middleware.Logger(logger))

	s.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		auth, err := middleware.Authentication(ctx, logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return nil, err
		}
		api.Use(auth)
	}
	api.Use(middleware.Viewer(profileSvc))

	duplicatecheck.NewHandler(profileSvc).Register(api.Group("/duplicates"))
	profileroutes.NewHandler(profileSvc).Register(api.Group("/profiles"))
	reviewroutes.NewHandler(logger, reviewSvc, claimManager, idempotency).Register(api.Group("/reviews"))

	return e, nil
}

func connectionConfig(cfg *config.Config) database.ConnectionConfig {
	return database.ConnectionConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}

func migrationConfig(cfg *config.Config) *database.MigrationConfig {
	version := uint(0)
	if cfg.DatabaseMigrationVersion > 0 {
		version = uint(cfg.DatabaseMigrationVersion)
	}
	return &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             version,
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	}
}
