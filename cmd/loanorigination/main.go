package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/wyfcoding/loanorigination/internal/loan/application"
	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/docverify"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/extraction"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/messaging"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/oracle"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/persistence/mysql"
	"github.com/wyfcoding/loanorigination/internal/loan/infrastructure/storage"
	"github.com/wyfcoding/loanorigination/internal/loan/interfaces/consumer"
	loanhttp "github.com/wyfcoding/loanorigination/internal/loan/interfaces/http"
	"github.com/wyfcoding/loanorigination/pkg/cache"
	"github.com/wyfcoding/loanorigination/pkg/config"
	"github.com/wyfcoding/loanorigination/pkg/db"
	"github.com/wyfcoding/loanorigination/pkg/logger"
	"github.com/wyfcoding/loanorigination/pkg/metrics"
	"github.com/wyfcoding/loanorigination/pkg/middleware"
	"github.com/wyfcoding/loanorigination/pkg/mq"
	"github.com/wyfcoding/loanorigination/pkg/ratelimit"
)

var configPath = flag.String("config", "configs/loanorigination/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()

	// 3. 指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(context.Background(), "failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(context.Background(), "failed to start metrics server", "error", err)
		}
	}
	collector := metrics.NewDefaultMetricsCollector(m)

	// 4. 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(context.Background(), "failed to connect database", "error", err)
	}
	defer database.Close()
	if cfg.Environment == "dev" {
		if err := mysql.AutoMigrate(database.DB); err != nil {
			logger.Fatal(context.Background(), "failed to migrate database", "error", err)
		}
	}

	// 5. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(context.Background(), "failed to init redis", "error", err)
	}
	defer redisCache.Close()

	// 6. Kafka
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Partitions:     cfg.Kafka.Partitions,
		Replication:    cfg.Kafka.Replication,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(context.Background(), "failed to init kafka producer", "error", err)
	}
	defer producer.Close()
	eventConsumer, err := mq.NewConsumer(kafkaCfg, domain.TopicApplicationEvents)
	if err != nil {
		logger.Fatal(context.Background(), "failed to init kafka consumer", "error", err)
	}
	defer eventConsumer.Close()
	dlq := mq.NewDeadLetterQueue(producer, domain.TopicApplicationEvents+".dlq")

	// 7. 材料存储
	var store domain.DocumentStore
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	default:
		store, err = storage.NewLocalStore(cfg.Storage.LocalDir)
	}
	if err != nil {
		logger.Fatal(context.Background(), "failed to init document store", "error", err)
	}

	// 8. 外部判定与仓储
	offerMart, err := oracle.NewOfferMart(cfg.Loan.OfferSeedPath, redisCache)
	if err != nil {
		logger.Fatal(context.Background(), "failed to load offer mart", "error", err)
	}
	repo := mysql.NewApplicationRepository(database.DB)
	validator := docverify.NewValidator(store, cfg.Loan.StrictDocumentChecks)
	publisher := messaging.NewKafkaPublisher(producer)

	// 9. 工作流引擎
	sales := application.NewSalesEvaluator(cfg.Loan.MinTenureMonths, cfg.Loan.MaxTenureMonths)
	verification := application.NewVerificationEvaluator(
		oracle.NewGraphFraud(nil), oracle.NewCRMKYC(), offerMart, log)
	underwriting := application.NewUnderwritingEvaluator(
		oracle.NewCreditBureau(), offerMart,
		domain.NewSanctionGenerator(cfg.Loan.AnnualRatePct, cfg.Loan.SanctionValidityDays),
		application.UnderwritingConfig{
			AnnualRatePct:         cfg.Loan.AnnualRatePct,
			MinCreditScore:        cfg.Loan.MinCreditScore,
			PreApprovedMultiplier: cfg.Loan.PreApprovedMultiplier,
			EMIIncomeCapPct:       cfg.Loan.EMIIncomeCapPct,
			LargeAmountThreshold:  cfg.Loan.LargeAmountThreshold,
		}, log)
	engine := application.NewEngine(
		repo,
		extraction.NewRegexExtractor(),
		store,
		validator,
		publisher,
		sales,
		verification,
		underwriting,
		collector,
		application.EngineConfig{MaxReflections: cfg.Loan.MaxReflections},
		log,
	)

	// 10. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinCORSMiddleware())
	r.Use(middleware.RateLimitMiddleware(ratelimit.NewRedisRateLimiter(redisCache.GetClient()), cfg.RateLimit))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	loanhttp.NewHandler(engine).RegisterRoutes(r.Group("/api"))

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCRateLimitInterceptor(
				middleware.NewRateLimiter(float64(cfg.RateLimit.Burst), float64(cfg.RateLimit.QPS)),
			),
		),
	)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	decisionHandler := consumer.NewDecisionHandler(eventConsumer, dlq, log)

	// 11. 启动
	g, ctx := errgroup.WithContext(context.Background())

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		logger.Info(ctx, "gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		return decisionHandler.Run(ctx)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down servers...")
		case <-ctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
	}
}
