package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-processing/app/factory"
	"github.com/vibast-solutions/ms-go-payment-processing/app/service"
	"github.com/vibast-solutions/ms-go-payment-processing/config"
)

var (
	workerMode bool
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run payment recovery commands",
}

var recoverProcessingCmd = &cobra.Command{
	Use:   "processing",
	Short: "Fail payments stuck in processing after an interrupted gateway call",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"recover_processing",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RecoverProcessingInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunRecoverProcessingBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
	recoverCmd.AddCommand(recoverProcessingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	// A signal cancels the running batch between payments.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := factory.NewModuleLogger("jobs").WithField("job", name)
	if !workerMode {
		runJob(logger, func() error { return fn(paymentService, ctx) })
		return
	}

	interval := intervalResolver(cfg)
	if interval <= 0 {
		logger.WithField("interval", interval.String()).Fatal("invalid worker interval")
	}
	runWorker(ctx, logger, interval, func() error { return fn(paymentService, ctx) })
}

func runWorker(ctx context.Context, logger logrus.FieldLogger, interval time.Duration, fn func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("interval", interval.String()).Info("Worker started")
	runJob(logger, fn)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(logger, fn)
		}
	}
}

func runJob(logger logrus.FieldLogger, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logger.WithError(err).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logger.WithField("latency", latency.String()).Info("job_completed")
}
