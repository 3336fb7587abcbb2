// Package server owns the IPC endpoint: the accept loop and the
// per-connection request/response conversation.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/voxpipe/voxpipe/internal/audiotap"
	"github.com/voxpipe/voxpipe/internal/bus"
	"github.com/voxpipe/voxpipe/internal/config"
	"github.com/voxpipe/voxpipe/internal/engine"
	"github.com/voxpipe/voxpipe/internal/history"
	"github.com/voxpipe/voxpipe/internal/voice"
)

// Accept errors other than endpoint teardown pause the loop for a fixed
// interval before retrying.
const acceptRetryDelay = time.Second

type Service struct {
	listen     config.ListenConfig
	sampleRate int
	guard      *engine.Guard
	voices     *voice.Table
	history    *history.Store
	events     *bus.Client
	tap        *audiotap.Tap
	ln         net.Listener
	logger     *slog.Logger
	metrics    *serverMetrics
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	ready      bool
}

func NewService(parent context.Context, cfg config.Config, guard *engine.Guard, voices *voice.Table, hist *history.Store, events *bus.Client, tap *audiotap.Tap, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		listen:     cfg.Listen,
		sampleRate: cfg.Engine.SampleRate,
		guard:      guard,
		voices:     voices,
		history:    hist,
		events:     events,
		tap:        tap,
		logger:     log.With(slog.String("component", "ipc-server")),
		ctx:        ctx,
		cancel:     cancel,
	}
	metrics, err := newServerMetrics()
	if err != nil {
		s.logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	} else {
		s.metrics = metrics
	}
	return s
}

// Start creates the socket and launches the accept loop.
func (s *Service) Start() error {
	if err := os.Remove(s.listen.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.listen.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listen.SocketPath, err)
	}
	if s.listen.WorldAccessible {
		if err := os.Chmod(s.listen.SocketPath, 0o666); err != nil {
			s.logger.Warn("failed to relax socket mode", slog.String("error", err.Error()))
		}
	}
	s.ln = ln
	s.ready = true

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("listening",
		slog.String("socket", s.listen.SocketPath),
		slog.String("voices", strings.Join(s.voices.Keys(), ", ")))
	return nil
}

func (s *Service) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", slog.String("error", err.Error()))
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close tears down the endpoint and waits for in-flight connections.
func (s *Service) Close() {
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.listen.SocketPath)
}

func (s *Service) Healthy() bool { return s.ready }
