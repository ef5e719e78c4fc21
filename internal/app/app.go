package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	_ "github.com/Nazarious-ucu/nightjet-alerts/docs"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/cache"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/checker"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/config"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/consumer"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/emailer"
	grpc2 "github.com/Nazarious-ucu/nightjet-alerts/internal/handlers/grpc"
	http2 "github.com/Nazarious-ucu/nightjet-alerts/internal/handlers/http"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/lease"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/producers"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/memory"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/redisstore"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/sqlite"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/alerts"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/availability"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/email"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/logger"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/offers"
	pkglogger "github.com/Nazarious-ucu/nightjet-alerts/pkg/logger"
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"github.com/wagslane/go-rabbitmq"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

const (
	timeoutDuration = 5 * time.Second

	cycleLeaseKey = "alerts:check-cycle"
)

type ServiceContainer struct {
	Store        alerts.AlertStore
	AlertService *alerts.Service
	Checker      *checker.Checker
	EmailService *email.Service

	Router     *gin.Engine
	Srv        *http.Server
	GrpcServer *grpc.Server
	Health     *health.Server

	Db         *sql.DB
	Redis      *redis.Client
	RabbitConn *rabbitmq.Conn
	Publisher  *rabbitmq.Publisher
	Deliveries *rabbitmq.Consumer
	fileLogger *zap.Logger

	deliveryHandler *consumer.DeliveryConsumer
}

type App struct {
	cfg config.Config
	l   zerolog.Logger
	m   *metrics.Metrics
}

func New(cfg config.Config, logger zerolog.Logger, m *metrics.Metrics) *App {
	logger = logger.With().Str("service", "alerts-service").Logger()
	return &App{cfg: cfg, l: logger, m: m}
}

// Start wires the service, serves HTTP and gRPC, runs scheduled cycles and blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	c, err := a.init(ctx)
	if err != nil {
		a.l.Error().Err(err).Msg("initialization failed")
		c.close(a.l)
		return err
	}

	grpcErr := make(chan error, 1)
	go func() {
		lc := net.ListenConfig{}
		lis, err := lc.Listen(ctx, "tcp", a.cfg.GrpcAddress())
		if err != nil {
			grpcErr <- err
			return
		}
		a.l.Info().Str("grpc_addr", a.cfg.GrpcAddress()).Msg("gRPC server running")
		if err := c.GrpcServer.Serve(lis); err != nil {
			grpcErr <- err
		}
	}()

	if err := c.Checker.Start(ctx); err != nil {
		_ = a.Stop(c)
		return err
	}

	if c.Deliveries != nil {
		go func() {
			if err := c.Deliveries.Run(c.deliveryHandler.ReceiveDelivered); err != nil {
				a.l.Error().Err(err).Msg("delivery consumer stopped")
			}
		}()
	}

	httpErr := make(chan error, 1)
	go func() {
		a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
		if err := c.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()
	grpc2.MarkServing(c.Health)

	select {
	case <-ctx.Done():
		a.l.Info().Msg("Shutdown signal received")
	case err = <-httpErr:
		a.l.Error().Err(err).Msg("HTTP server error")
	case err = <-grpcErr:
		a.l.Error().Err(err).Msg("gRPC server error")
	}

	if stopErr := a.Stop(c); stopErr != nil {
		return stopErr
	}
	return err
}

func (a *App) Stop(c *ServiceContainer) error {
	a.l.Info().Msg("Stopping application")

	c.Health.Shutdown()

	c.Checker.Stop()
	a.l.Info().Msg("Checker stopped")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := c.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	} else {
		a.l.Info().Msg("HTTP server stopped")
	}

	c.GrpcServer.GracefulStop()
	a.l.Info().Msg("gRPC server stopped")

	c.close(a.l)
	a.l.Info().Msg("Application shutdown complete")
	return nil
}

func (c *ServiceContainer) close(l zerolog.Logger) {
	if c == nil {
		return
	}
	if c.Deliveries != nil {
		c.Deliveries.Close()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.RabbitConn != nil {
		if err := c.RabbitConn.Close(); err != nil {
			l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}
	if c.Db != nil {
		if err := c.Db.Close(); err != nil {
			l.Error().Err(err).Msg("Database close error")
		} else {
			l.Info().Msg("Database closed")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			l.Error().Err(err).Msg("Redis close error")
		}
	}
	if c.fileLogger != nil {
		_ = c.fileLogger.Sync()
	}
}

func (a *App) init(ctx context.Context) (*ServiceContainer, error) {
	a.l.Info().
		Str("store", a.cfg.Store.Backend).
		Str("mailer", a.cfg.Mailer.Mode).
		Bool("redis", a.cfg.Redis.Enabled).
		Msg("Initializing application")

	c := &ServiceContainer{}

	loc, err := a.cfg.Checker.Location()
	if err != nil {
		return c, fmt.Errorf("checker timezone: %w", err)
	}

	if a.cfg.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr: a.cfg.Redis.Address(),
			DB:   a.cfg.Redis.DbType,
		})
		pingCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
		err := c.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return c, fmt.Errorf("redis ping: %w", err)
		}
		a.l.Info().Str("redis_addr", a.cfg.Redis.Address()).Msg("Redis connected")
	}

	store, err := a.newStore(ctx, c)
	if err != nil {
		return c, err
	}
	c.Store = store

	c.fileLogger, err = pkglogger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		return c, fmt.Errorf("http file logger: %w", err)
	}
	evaluator := availability.NewEvaluator(a.newOfferClient(c), loc, a.l)

	mailer, err := a.newMailer(c)
	if err != nil {
		return c, err
	}
	c.EmailService, err = email.NewService(mailer, a.cfg.TemplatesDir, a.cfg.FrontendURL)
	if err != nil {
		return c, fmt.Errorf("email templates: %w", err)
	}

	var leaser interface {
		Acquire(ctx context.Context) (func(), bool, error)
	} = lease.NewLocal()
	if c.Redis != nil {
		leaser = lease.NewRedis(c.Redis, cycleLeaseKey, a.cfg.Checker.LeaseTTL)
	}

	c.Checker = checker.New(store, evaluator, c.EmailService, leaser, checker.Options{
		StalenessWindow:       a.cfg.Checker.StalenessWindow,
		CallTimeout:           a.cfg.Checker.CallTimeout,
		Concurrency:           a.cfg.Checker.Concurrency,
		Schedule:              a.cfg.Checker.Schedule,
		CycleTimeout:          a.cfg.Checker.LeaseTTL,
		RepeatNotifications:   a.cfg.Checker.RepeatNotifications,
		DeliveryConfirmations: a.cfg.Mailer.Mode == config.MailerQueue,
	}, a.l, a.m)
	c.AlertService = alerts.NewService(store, loc)

	c.Router = a.newRouter(c)
	c.Srv = &http.Server{
		Addr: a.cfg.ServerAddress(),
		Handler: cors.New(cors.Options{
			AllowedOrigins: []string{a.cfg.FrontendURL},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(c.Router),
		ReadHeaderTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}
	c.GrpcServer, c.Health = grpc2.NewServer(a.m)

	return c, nil
}

func (a *App) newStore(ctx context.Context, c *ServiceContainer) (alerts.AlertStore, error) {
	switch a.cfg.Store.Backend {
	case config.StoreSQLite:
		db, err := CreateSqliteDb(ctx, a.cfg.DB.Dialect, a.cfg.DB.Source)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		c.Db = db
		if err := InitSqliteDb(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		if err := a.m.Register(collectors.NewDBStatsCollector(db, a.cfg.DB.Source)); err != nil {
			a.l.Warn().Err(err).Msg("db stats collector not registered")
		}
		return sqlite.NewAlertRepository(db, a.l, a.m), nil
	case config.StoreRedis:
		return redisstore.NewAlertRepository(c.Redis, a.l), nil
	default:
		a.l.Warn().Msg("using in-memory alert store, alerts are lost on restart")
		return memory.NewAlertRepository(a.l), nil
	}
}

type offerFetcher interface {
	Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error)
}

func (a *App) newOfferClient(c *ServiceContainer) offerFetcher {
	httpClient := &http.Client{
		Transport: logger.NewRoundTripper(c.fileLogger),
		Timeout:   time.Duration(a.cfg.Offers.RequestTimeout) * time.Second,
	}

	var client offerFetcher = offers.NewBreakerClient("nightjet",
		offers.BreakerConfig{
			TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
			TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
			RepeatNumber: a.cfg.Breaker.RepeatNumber,
		},
		offers.NewNightJetClient(a.cfg.Offers.BaseURL, a.cfg.Offers.Referer, httpClient, a.l),
	)

	if c.Redis != nil {
		offerCache := cache.NewMetricsDecorator[*models.Offer](
			cache.NewRedisClient[*models.Offer](c.Redis, a.l),
			a.m,
		)
		client = offers.NewCachedClient(client, offerCache, a.l,
			time.Duration(a.cfg.Redis.OfferTTL)*time.Second)
	}
	return client
}

func (a *App) newMailer(c *ServiceContainer) (email.Mailer, error) {
	switch a.cfg.Mailer.Mode {
	case config.MailerSMTP:
		return emailer.NewSMTPService(&a.cfg, a.l), nil
	case config.MailerQueue:
		conn, err := a.setupConn()
		if err != nil {
			return nil, err
		}
		c.RabbitConn = conn
		publisher, err := a.setupPublisher(conn)
		if err != nil {
			return nil, err
		}
		c.Publisher = publisher

		c.Deliveries, err = a.setupConsumer(conn, messaging.DeliveredQueueName, messaging.DeliveredRoutingKey)
		if err != nil {
			return nil, err
		}
		c.deliveryHandler = consumer.NewDeliveryConsumer(c.Store, a.l, a.m, a.cfg.Checker.CallTimeout)
		return producers.NewProducer(publisher, a.l), nil
	default:
		a.l.Warn().Msg("offline mail mode, notifications are only logged")
		return emailer.NewLogMailer(a.l), nil
	}
}

func (a *App) newRouter(c *ServiceContainer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.m.HTTPMiddleware())

	http2.NewHandler(c.AlertService, c.Checker, checker.TriggerHTTP, a.l).Register(router)

	router.GET("/metrics", gin.WrapH(a.m.Handler()))
	router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	return router
}
