package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-payment-processing/app/controller"
	"github.com/vibast-solutions/ms-go-payment-processing/app/factory"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	paymentgrpc "github.com/vibast-solutions/ms-go-payment-processing/app/grpc"
	"github.com/vibast-solutions/ms-go-payment-processing/app/lock"
	"github.com/vibast-solutions/ms-go-payment-processing/app/metrics"
	"github.com/vibast-solutions/ms-go-payment-processing/app/publisher"
	"github.com/vibast-solutions/ms-go-payment-processing/app/repository"
	"github.com/vibast-solutions/ms-go-payment-processing/app/service"
	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
	"github.com/vibast-solutions/ms-go-payment-processing/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const redisLockPrefix = "payments:lock:"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the payment processing service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService)
	grpcPaymentServer := paymentgrpc.NewServer(paymentService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(paymentController, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcPaymentServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("", requireRequestID(), internalAuthMiddleware.RequireInternalAccess(appServiceName))
	api.GET("/health", paymentController.Health)

	payments := api.Group("/payments")
	payments.POST("", paymentController.CreatePayment)
	payments.GET("", paymentController.ListPayments)
	payments.GET("/:id", paymentController.GetPayment)
	payments.GET("/by-number/:number", paymentController.GetPaymentByNumber)
	payments.GET("/:id/log-entries", paymentController.ListLogEntries)
	payments.GET("/:id/capture-events", paymentController.ListCaptureEvents)
	payments.POST("/:id/process", paymentController.ProcessPayment)
	payments.POST("/:id/authorize", paymentController.AuthorizePayment)
	payments.POST("/:id/purchase", paymentController.PurchasePayment)
	payments.POST("/:id/capture", paymentController.CapturePayment)
	payments.POST("/:id/void", paymentController.VoidPayment)
	payments.POST("/:id/cancel", paymentController.CancelPayment)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	paymentServer *paymentgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			paymentgrpc.RecoveryInterceptor(),
			paymentgrpc.RequestIDInterceptor(),
			paymentgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	paymentgrpc.RegisterServer(grpcSrv, paymentServer)

	return grpcSrv, lis
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	closers := []func(){
		func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		},
	}

	locker, closeLocker := mustCreateLocker(cfg)
	if closeLocker != nil {
		closers = append(closers, closeLocker)
	}
	pub, closePublisher := mustCreatePublisher(cfg)
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	repos := service.Repositories{
		Payments:      repository.NewPaymentRepository(db),
		Events:        repository.NewPaymentEventRepository(db),
		CaptureEvents: repository.NewCaptureEventRepository(db),
		LogEntries:    repository.NewLogEntryRepository(db),
		Methods:       repository.NewPaymentMethodRepository(db),
		Sources:       repository.NewPaymentSourceRepository(db),
		Orders:        repository.NewOrderRepository(db),
	}

	paymentService := service.NewPaymentService(repos, newGatewayRegistry(cfg), locker, pub, cfg.Processing)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return cfg, paymentService, cleanup
}

func newGatewayRegistry(cfg *config.Config) *gateway.Registry {
	resilience := gateway.ResilienceConfig{
		CallTimeout:          cfg.Processing.GatewayCallTimeout,
		BreakerMaxFailures:   cfg.Processing.BreakerMaxFailures,
		BreakerOpenTimeout:   cfg.Processing.BreakerOpenTimeout,
		ReversalRetries:      cfg.Processing.ReversalRetries,
		RetryInitialInterval: cfg.Processing.RetryInitialInterval,
	}
	logger := factory.NewModuleLogger("gateway")

	gateways := make([]gateway.Gateway, 0, 2)
	if strings.TrimSpace(cfg.Gateways.Stripe.SecretKey) != "" {
		stripe := gateway.NewStripeGateway(gateway.StripeConfig{
			SecretKey:   cfg.Gateways.Stripe.SecretKey,
			BaseURL:     cfg.Gateways.Stripe.BaseURL,
			HTTPTimeout: cfg.Gateways.Stripe.HTTPTimeout,
		})
		gateways = append(gateways, gateway.NewResilient(stripe, resilience, logger))
	}
	if cfg.Gateways.BogusEnabled {
		bogus := gateway.NewBogusGateway(cfg.Gateways.BogusProfilesSupported)
		gateways = append(gateways, gateway.NewResilient(bogus, resilience, logger))
	}

	registry := gateway.NewRegistry(gateways...)
	logrus.WithField("gateways", registry.Codes()).Info("Payment gateways registered")
	return registry
}

// mustCreateLocker uses Redis when REDIS_ADDR is set so locks hold across instances.
func mustCreateLocker(cfg *config.Config) (lock.Locker, func()) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return lock.NewLocalLocker(), nil
	}

	client, err := lock.NewRedisClient(context.Background(), lock.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}

	return lock.NewRedisLocker(client, redisLockPrefix), func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	}
}

func mustCreatePublisher(cfg *config.Config) (publisher.Publisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return publisher.NoopPublisher{}, nil
	}

	producer, err := publisher.NewSyncProducer(publisher.KafkaConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create Kafka producer")
	}

	kafkaPublisher := publisher.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	return kafkaPublisher, func() {
		if err := kafkaPublisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
}
