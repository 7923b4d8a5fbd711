// Package daemon wires the store, pipelines and transports into a running service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/fan-ledger/internal/async"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/fuzzy"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
	"github.com/joseph-ayodele/fan-ledger/internal/pipeline"
	"github.com/joseph-ayodele/fan-ledger/internal/repository"
	"github.com/joseph-ayodele/fan-ledger/internal/server"
	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

// ErrOCRDisabled is returned by Analyze when no OCR provider could be configured.
var ErrOCRDisabled = common.NewAppError(common.CodeAuthMissing, "ocr is not configured", common.ErrAuthMissing)

// App holds the long-lived components shared by the daemon and the CLI.
type App struct {
	Config    *common.Config
	Store     repository.Sheets
	Roster    repository.RosterRepository
	Matcher   *fuzzy.Matcher
	Committer *pipeline.Committer
	// Analyzer is nil when OCR credentials are missing.
	Analyzer *pipeline.Analyzer
	logger   *slog.Logger
}

// New opens the configured store and builds the pipelines on top of it.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := repository.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	roster := repository.NewRosterRepository(store, cfg.Ledger.RosterTab, logger)
	matcher := fuzzy.NewMatcher(cfg.Matching, nil)
	app := &App{
		Config:    cfg,
		Store:     store,
		Roster:    roster,
		Matcher:   matcher,
		Committer: pipeline.NewCommitter(store, matcher, cfg.Ledger, cfg.Location(), logger),
		logger:    logger,
	}

	recognizer, err := ocr.NewRecognizer(cfg.OCR, nil, logger)
	switch {
	case errors.Is(err, common.ErrAuthMissing):
		logger.Warn("daemon.ocr.disabled", "provider", cfg.OCR.Provider, "error", err)
	case err != nil:
		_ = store.Close()
		return nil, err
	default:
		pool := async.NewPool(logger,
			async.WithWorkers(cfg.OCR.Workers),
			async.WithProcessTimeout(common.Seconds(cfg.OCR.Timeout)),
		)
		app.Analyzer = pipeline.NewAnalyzer(
			ocr.NewReader(cfg.OCR, recognizer, nil, logger),
			extract.NewExtractor(cfg.Extraction, logger),
			matcher, roster, pool, logger,
		)
	}
	return app, nil
}

// Analyze runs screenshots through the analyze pipeline.
func (a *App) Analyze(ctx context.Context, sources []ocr.Source) (*staging.Session, error) {
	if a.Analyzer == nil {
		return nil, ErrOCRDisabled
	}
	return a.Analyzer.Analyze(ctx, sources)
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Serve runs the gRPC admin service and the HTTP viewer until ctx is cancelled or
// either listener fails, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	var analyzer server.SessionAnalyzer
	if a.Analyzer != nil {
		analyzer = a.Analyzer
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryLogging(a.logger)))
	ledgerService := server.NewLedgerService(analyzer, a.Committer,
		staging.NewSessions(cfg.Server.SessionLimit), a.Roster, a.logger)
	server.RegisterLedgerServer(grpcServer, ledgerService)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(server.LedgerServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	gin.SetMode(gin.ReleaseMode)
	viewer := server.NewViewer(a.Store, cfg.Ledger.SummaryTab, cfg.Ledger.TargetGrowth,
		common.Seconds(cfg.Server.SummaryTTL), a.logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           viewer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("daemon.grpc.listening", "addr", lis.Addr().String(), "ocr", a.Analyzer != nil)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		a.logger.Info("daemon.http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("daemon.shutdown", "reason", context.Cause(ctx))
	case serveErr = <-errCh:
		a.logger.Error("daemon.serve.failed", "error", serveErr)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("daemon.http.shutdown_failed", "error", err)
	}
	grpcServer.GracefulStop()
	a.logger.Info("daemon.stopped")
	return serveErr
}
