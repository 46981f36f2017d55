// Command dietagent serves the personalized diet agent over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/config"
	"github.com/Protocol-Lattice/diet-agent/pkg/diet"
	"github.com/Protocol-Lattice/diet-agent/pkg/instructions"
	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
	"github.com/Protocol-Lattice/diet-agent/pkg/runtime"
	"github.com/Protocol-Lattice/diet-agent/pkg/server"
	"github.com/Protocol-Lattice/diet-agent/pkg/tools"
	"github.com/Protocol-Lattice/diet-agent/pkg/tracing"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dietagent: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	env, err := config.Environ(".env")
	if err != nil {
		return err
	}
	cfg, err := config.LoadServer(args, env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, level, cfg.NoColor)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := models.NewFactory(models.Credentials{
		GeminiAPIKey:    cfg.Credentials.GeminiAPIKey,
		OpenAIAPIKey:    cfg.Credentials.OpenAIAPIKey,
		AnthropicAPIKey: cfg.Credentials.AnthropicAPIKey,
		OllamaHost:      cfg.Credentials.OllamaHost,
	})
	defer factory.Close()

	searcher, err := newSearcher(ctx, cfg.Search, logger)
	if err != nil {
		return err
	}

	callbacks, shutdownTracing, err := newTracing(cfg.Tracing, stderr, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", "err", err)
		}
	}()

	rt, err := runtime.New(ctx,
		runtime.WithAppName(cfg.AppName),
		runtime.WithDSN(cfg.StateDSN),
		runtime.WithRunTimeout(cfg.RunTimeout),
		runtime.WithLogger(logger),
		runtime.WithRootAgent(func(ctx context.Context) (*agent.Agent, error) {
			tree, err := diet.Build(ctx, diet.Deps{
				Models:          factory,
				ModelIDs:        cfg.Models,
				Instructions:    instructions.Loader{Dir: cfg.InstructionDir},
				Searcher:        searcher,
				SearchCacheSize: cfg.Search.CacheSize,
				SearchCacheTTL:  cfg.Search.CacheTTL,
				Callbacks:       callbacks,
				Logger:          logger,
			})
			if err != nil {
				return nil, err
			}
			return tree.Root, nil
		}),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(rt, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "app", cfg.AppName, "tracing", cfg.Tracing)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-serverErrCh
}

func newSearcher(ctx context.Context, cfg config.Search, logger *slog.Logger) (tools.Searcher, error) {
	if cfg.EngineID == "" {
		logger.Warn("GOOGLE_CSE_ID is not set; web search will report errors to the agents")
		return tools.DisabledSearch{}, nil
	}
	searcher, err := tools.NewCustomSearch(ctx, cfg.APIKey, cfg.EngineID)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return searcher, nil
}

func newTracing(mode string, w io.Writer, logger *slog.Logger) (agent.Callbacks, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	var sinks []tracing.Sink
	shutdown := noop
	if mode == config.TracingLog || mode == config.TracingBoth {
		sinks = append(sinks, tracing.NewLogSink(logger))
	}
	if mode == config.TracingOTel || mode == config.TracingBoth {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return agent.Callbacks{}, noop, fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		sinks = append(sinks, tracing.NewOTelSink(tp.Tracer(tracing.InstrumentationName)))
		shutdown = tp.Shutdown
	}
	if len(sinks) == 0 {
		return agent.Callbacks{}, noop, nil
	}
	return tracing.Profile(tracing.Multi(sinks...)), shutdown, nil
}
