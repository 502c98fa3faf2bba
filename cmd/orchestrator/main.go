package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/config"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/handler"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/infra/postgresql"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/infra/postgresql/migrations"
	infraredis "github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/infra/redis"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/ledger"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/observability"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/pacing"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/provider"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/queue"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/registry"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/service"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	crmTimeout      = 10 * time.Second
	smsTimeout      = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("orchestrator exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backoffTable, err := cfg.BackoffTable()
	if err != nil {
		return err
	}
	loc, err := cfg.BusinessLocation()
	if err != nil {
		return err
	}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer rabbit.Close()

	dailyCounter, err := infraredis.NewDailyCounter(rdb)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	prospects := repository.NewGormProspectRepo(db)
	quarantine := repository.NewGormQuarantineRepo(db)
	attempts := ledger.New(dailyCounter, cfg.PostTransferMargin(), loc, logger)
	governor := pacing.NewGovernor(cfg.CallsPerSec, cfg.MinNumberSpacing())
	pending := registry.New(logger)
	locks := service.NewPhoneLocks()

	voice, err := provider.NewVoiceClient(cfg.VoiceAPIURL, cfg.VoiceAPIKey, cfg.DispatchTimeout())
	if err != nil {
		return err
	}
	crm, err := provider.NewCRMRestClient(cfg.CRMAPIURL, crmTimeout)
	if err != nil {
		return err
	}

	scheduler, err := service.NewRedialScheduler(prospects, attempts, governor, pending, voice, locks, service.SchedulerConfig{
		MaxTotalAttempts:   cfg.MaxTotalAttempts,
		MaxCallsPerDay:     cfg.MaxCallsPerDay,
		BackoffTable:       backoffTable,
		BackoffFloor:       cfg.BackoffFloor(),
		BusinessHoursStart: cfg.BusinessHoursStart,
		BusinessHoursEnd:   cfg.BusinessHoursEnd,
		Location:           loc,
		ScanInterval:       cfg.ScanInterval(),
		ScanLimit:          cfg.ScanLimit,
		BlockedRetryDelta:  cfg.BlockedRetryDelta(),
		CallbackURL:        cfg.CallbackURL,
		DispatchTimeout:    cfg.DispatchTimeout(),
	}, logger)
	if err != nil {
		return err
	}
	scheduler.SetMetrics(metrics)

	completions, err := service.NewCompletionService(prospects, attempts, pending, crm, locks, logger)
	if err != nil {
		return err
	}
	completions.SetMetrics(metrics)

	if cfg.SMSAPIURL != "" {
		sms, err := provider.NewSMSRestClient(cfg.SMSAPIURL, smsTimeout)
		if err != nil {
			return err
		}
		smsLimiter, err := infraredis.NewRedisSMSLimiter(rdb, cfg.SMSPerSec, cfg.SMSPerNumberPerDay)
		if err != nil {
			return err
		}
		followup, err := service.NewFollowupService(sms, smsLimiter, cfg.FollowupSMSText, logger)
		if err != nil {
			return err
		}
		followup.SetMetrics(metrics)
		completions.SetFollowup(followup)
	}

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.ConsumerPrefetch, logger)
	intake, err := service.NewIntakeService(prospects, quarantine, consumer, logger)
	if err != nil {
		return err
	}
	intake.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterProspectRoutes(app, intake, prospects); err != nil {
		return err
	}
	if err := handler.RegisterCallbackRoutes(app, completions); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)

	if cfg.RedialEnabled {
		g.Go(func() error {
			return scheduler.Start(groupCtx)
		})
	} else {
		logger.Warn("redial scheduling disabled by configuration")
	}

	g.Go(func() error {
		return intake.Start(groupCtx)
	})

	g.Go(func() error {
		pending.Run(groupCtx, sweepInterval, cfg.PendingMaxAge(), completions.HandleSwept)
		return nil
	})

	g.Go(func() error {
		logger.Info("http api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	logger.Info("redial orchestrator started")
	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		// Shutdown was requested; listener errors on the way down are noise.
		return nil
	}
	return err
}
