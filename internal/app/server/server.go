package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uber-go/tally"
	"google.golang.org/grpc"

	handler "github.com/devkapilbansal/watchstream/internal/app/admin/http"
	"github.com/devkapilbansal/watchstream/internal/app/healthwatch"
	"github.com/devkapilbansal/watchstream/internal/app/metrics"
	"github.com/devkapilbansal/watchstream/internal/app/transport"
	"github.com/devkapilbansal/watchstream/internal/app/watch"
	"github.com/devkapilbansal/watchstream/internal/pkg/bootstrap"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
	"github.com/devkapilbansal/watchstream/internal/pkg/stats"
	"github.com/devkapilbansal/watchstream/internal/pkg/util"
)

// Run starts the health watch against the configured target and serves
// the admin endpoints until the process is signalled to stop.
func Run(config *bootstrap.Config, logLevel string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	RunWithContext(ctx, cancel, config, logLevel)
}

func RunWithContext(ctx context.Context, cancel context.CancelFunc, config *bootstrap.Config, logLevel string) {
	logger := log.New(chooseLogLevel(logLevel, config.Logging.Level), os.Stderr)

	scope := tally.NoopScope
	if config.Metrics.StatsdAddress != "" {
		flushInterval, err := util.StringToDuration(config.Metrics.FlushInterval, time.Second)
		if err != nil {
			logger.With("error", err).Fatal(ctx, "invalid metrics flush interval")
		}
		statsScope, statsCloser, err := stats.NewScope(stats.Config{
			StatsdAddress: config.Metrics.StatsdAddress,
			RootPrefix:    config.Metrics.RootPrefix,
			FlushInterval: flushInterval,
		})
		if err != nil {
			logger.With("error", err).Fatal(ctx, "failed to initialize stats client")
		}
		defer func() { _ = statsCloser.Close() }()
		scope = statsScope
	}
	scope.SubScope(metrics.ScopeServer).Counter(metrics.ServerAlive).Inc(1)

	// The watch stream carries its own recovery loop, so the dial does
	// not need to block on the connection being up.
	conn, err := grpc.Dial(config.Target.String(), grpc.WithInsecure())
	if err != nil {
		logger.With("error", err).Fatal(ctx, "failed to set up connection to target")
	}

	backoffConfig, err := config.BackoffConfig()
	if err != nil {
		logger.With("error", err).Fatal(ctx, "invalid retry configuration")
	}
	callDeadline, err := util.StringToDuration(config.CallDeadline, 0)
	if err != nil {
		logger.With("error", err).Fatal(ctx, "invalid call deadline")
	}

	watcher := healthwatch.NewWatcher(config.Service, nil, logger, scope)
	client := watch.New(transport.NewGRPCChannel(conn), watcher, watch.Options{
		Logger:       logger,
		Scope:        scope,
		Backoff:      backoffConfig,
		CallDeadline: callDeadline,
	})

	mux := http.NewServeMux()
	handler.RegisterHandlers(mux, config, watcher, logger)
	adminServer := &http.Server{
		Addr:    config.Admin.String(),
		Handler: mux,
	}

	shutdown := func() {
		client.Orphan()
		select {
		case <-client.Done():
		case <-time.After(5 * time.Second):
			logger.Warn(ctx, "timed out waiting for watch client shutdown")
		}
		_ = conn.Close()
		_ = adminServer.Shutdown(context.Background())
	}
	registerShutdownHandler(ctx, cancel, shutdown, logger, time.Second*30)

	logger.With(
		"target", config.Target.String(),
		"admin", config.Admin.String(),
	).Info(ctx, "Initializing watch")
	if err := adminServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.With("error", err).Fatal(ctx, "admin server ListenAndServe failed")
	}
}

// chooseLogLevel gives the command line level precedence over the
// bootstrap config, falling back to info.
func chooseLogLevel(fromFlag string, fromConfig string) string {
	if fromFlag != "" {
		return fromFlag
	}
	if fromConfig != "" {
		return fromConfig
	}
	return "info"
}

func registerShutdownHandler(
	ctx context.Context,
	cancel context.CancelFunc,
	shutdown func(),
	logger log.Logger,
	waitTime time.Duration) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info(ctx, "received interrupt signal: %s", sig.String())
		err := util.DoWithTimeout(ctx, func() error {
			shutdown()
			_ = logger.Sync()
			cancel()
			return nil
		}, waitTime)
		if err != nil {
			logger.Error(ctx, "shutdown error: %s", err.Error())
		}
	}()
}
