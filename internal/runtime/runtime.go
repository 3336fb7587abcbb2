package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxpipe/voxpipe/internal/audiotap"
	"github.com/voxpipe/voxpipe/internal/bus"
	"github.com/voxpipe/voxpipe/internal/config"
	"github.com/voxpipe/voxpipe/internal/engine"
	"github.com/voxpipe/voxpipe/internal/history"
	"github.com/voxpipe/voxpipe/internal/natsserver"
	"github.com/voxpipe/voxpipe/internal/server"
	"github.com/voxpipe/voxpipe/internal/voice"
)

// Runtime assembles the daemon: telemetry, optional bus, engine, voice table,
// history, the IPC server, and the HTTP health surface.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		busClient, err = bus.Connect(ctx, r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
	}
	defer busClient.Close()

	eng, err := r.buildEngine()
	if err != nil {
		return err
	}

	r.logger.Info("loading voice catalog",
		slog.String("model", r.cfg.Engine.ModelPath),
		slog.String("device", r.cfg.Engine.Device))
	presets, err := eng.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load voice catalog: %w", err)
	}
	table, err := voice.NewTable(presets)
	if err != nil {
		return fmt.Errorf("failed to build voice table: %w", err)
	}
	r.logger.Info("voice catalog ready", slog.String("voices", strings.Join(table.Keys(), ", ")))

	hist, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open request history: %w", err)
	}
	defer hist.Close()

	tap := audiotap.New(r.cfg.Capture, r.cfg.Engine.SampleRate, r.logger)

	srv := server.NewService(ctx, r.cfg, engine.NewGuard(eng), table, hist, busClient, tap, r.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start ipc server: %w", err)
	}
	defer srv.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr), slog.String("socket", r.cfg.Listen.SocketPath))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildEngine() (engine.Engine, error) {
	switch r.cfg.Engine.Mode {
	case "exec":
		eng, err := engine.NewExecEngine(r.cfg.Engine.Command, engine.Options{
			ModelPath:      r.cfg.Engine.ModelPath,
			Device:         r.cfg.Engine.Device,
			InferenceSteps: r.cfg.Engine.InferenceSteps,
			SampleRate:     r.cfg.Engine.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create exec engine: %w", err)
		}
		return eng, nil
	default:
		return engine.NewMockEngine(r.cfg.Engine.SampleRate), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
