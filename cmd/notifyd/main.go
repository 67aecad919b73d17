package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
	"github.com/102326/PyLab/internal/fanout"
	"github.com/102326/PyLab/internal/notify"
	"github.com/102326/PyLab/internal/server"
	"github.com/102326/PyLab/internal/session"
	"github.com/102326/PyLab/internal/transport"
	"github.com/102326/PyLab/pkg/logger"
	"github.com/102326/PyLab/pkg/metrics"
	"github.com/102326/PyLab/pkg/trace"
	"github.com/102326/PyLab/pkg/version"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath  string
	publishUser string
	publishBody string

	ocrStatus       string
	ocrMsg          string
	ocrRealName     string
	ocrVerifyStatus int
	ocrRole         int

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + cnst.CommandName,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cnst.CommandName, version.Get())
		},
	}

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Publish a JSON payload or an OCR result to a user's notification channel",
		Example: `  notifyd publish --user 42 --payload '{"type":"notice","msg":"hi"}'
  notifyd publish --user 42 --ocr-status success --real-name "Li Lei" --role 1
  notifyd publish --user 42 --ocr-status failed --ocr-msg "image is not readable"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publish(cmd.Context(), publishUser)
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "Real-time notification fan-out service",
		Long:  `notifyd keeps one websocket per user and relays everything published to notify:{user_id} to it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.NotifydYaml, "path to configuration file")
	publishCmd.Flags().StringVar(&publishUser, "user", "", "target user id")
	publishCmd.Flags().StringVar(&publishBody, "payload", "", "raw JSON payload")
	publishCmd.Flags().StringVar(&ocrStatus, "ocr-status", "", "publish an ocr_result event: success, failed or error")
	publishCmd.Flags().StringVar(&ocrMsg, "ocr-msg", "", "message shown for a failed or errored verification")
	publishCmd.Flags().StringVar(&ocrRealName, "real-name", "", "verified real name (success only)")
	publishCmd.Flags().IntVar(&ocrVerifyStatus, "verify-status", notify.VerifyStatusApproved, "profile verify status (success only)")
	publishCmd.Flags().IntVar(&ocrRole, "role", 0, "user role after verification (success only)")
	_ = publishCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(versionCmd, publishCmd)
}

func run(ctx context.Context) error {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Sync()
	lg.Info("starting "+cnst.AppName,
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	tr, err := transport.New(ctx, lg, &cfg.Transport)
	if err != nil {
		return fmt.Errorf("failed to initialize transport: %w", err)
	}
	defer tr.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	if lg.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	manager := fanout.NewManager(lg, session.NewRegistry(), tr, m)
	publisher := notify.NewPublisher(lg, tr, m)
	srv, err := server.NewServer(lg, cfg, manager, publisher, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		lg.Error("server stopped with error", zap.Error(err))
		return err
	}
	lg.Info("server stopped")
	return nil
}

// publish sends one payload or OCR result through the configured transport,
// the same way background workers do.
func publish(ctx context.Context, userID string) error {
	switch {
	case publishBody != "" && ocrStatus != "":
		return errors.New("--payload and --ocr-status are mutually exclusive")
	case publishBody == "" && ocrStatus == "":
		return errors.New("one of --payload or --ocr-status is required")
	}
	id, err := notify.ParseUserID(userID)
	if err != nil {
		return err
	}
	var event *notify.OCRResultEvent
	if ocrStatus != "" {
		ev, err := ocrResult(id)
		if err != nil {
			return err
		}
		event = &ev
	}

	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Sync()

	tr, err := transport.New(ctx, lg, &cfg.Transport)
	if err != nil {
		return fmt.Errorf("failed to initialize transport: %w", err)
	}
	defer tr.Close()

	publisher := notify.NewPublisher(lg, tr, nil)
	if event != nil {
		return publisher.PublishEvent(ctx, id, event)
	}
	return publisher.Publish(ctx, id, []byte(publishBody))
}

// ocrResult builds the ocr_result event of a verification worker from flags
func ocrResult(userID string) (notify.OCRResultEvent, error) {
	switch ocrStatus {
	case notify.OCRStatusSuccess:
		uid, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			return notify.OCRResultEvent{}, err
		}
		return notify.NewOCRResult(ocrStatus, &notify.OCRResultData{
			UserID:       uid,
			RealName:     ocrRealName,
			VerifyStatus: ocrVerifyStatus,
			Role:         ocrRole,
		}, ""), nil
	case notify.OCRStatusFailed, notify.OCRStatusError:
		return notify.NewOCRResult(ocrStatus, nil, ocrMsg), nil
	default:
		return notify.OCRResultEvent{}, fmt.Errorf("unknown ocr status %q", ocrStatus)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
