package server

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/internal/engine"
	"github.com/voxpipe/voxpipe/internal/history"
	"github.com/voxpipe/voxpipe/internal/protocol"
	"github.com/voxpipe/voxpipe/internal/textnorm"
	"github.com/voxpipe/voxpipe/internal/wire"
)

// Clients sometimes truncate the tail of the stream; a short silence frame
// before the end marker pushes the last real audio through their buffers.
const silencePad = 300 * time.Millisecond

const logTextLimit = 40

// handleConn runs one client conversation: read request, validate, stream
// synthesis output, finalize. The connection closes on every exit path.
func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()
	start := time.Now()

	req, err := wire.ReadRequest(conn)
	if err != nil {
		if errors.Is(err, wire.ErrZeroTextLength) {
			s.writeErrorFrame(conn, wire.CodeEmptyText, "empty text length")
			return
		}
		// Peer-disconnect class: the channel is gone or unreliable, so no
		// error frame is attempted.
		s.logger.Warn("request read failed", slog.String("error", err.Error()))
		return
	}

	s.metrics.recordRequest(s.ctx)
	s.logger.Info("request",
		slog.String("text", truncate(req.Text, logTextLimit)),
		slog.String("voice", req.VoiceID),
		slog.String("flags", fmt.Sprintf("0x%08X", req.Flags)))

	text := textnorm.Normalize(req.Text)
	if text == "" {
		s.writeErrorFrame(conn, wire.CodeEmptyText, "text is empty after normalization")
		s.finish(req.VoiceID, text, req.Flags, 0, wire.CodeEmptyText, start)
		return
	}

	voiceKey, ok := s.voices.Resolve(req.VoiceID)
	if !ok {
		msg := fmt.Sprintf("voice %q not found. available: %s", req.VoiceID, strings.Join(s.voices.Keys(), ", "))
		s.writeErrorFrame(conn, wire.CodeInvalidVoice, msg)
		s.finish(req.VoiceID, text, req.Flags, 0, wire.CodeInvalidVoice, start)
		return
	}

	s.events.Publish(protocol.SubjectRequestAccepted, protocol.RequestAccepted{
		Voice:     voiceKey,
		TextChars: len(text),
		Flags:     req.Flags,
		Timestamp: time.Now().UTC(),
	})

	stop := engine.NewStopToken()
	capture := s.tap.Begin(voiceKey)
	chunkCount := 0
	var synthErr error
	var peerErr error

	sessionErr := s.guard.Session(s.ctx, func(eng engine.Engine) error {
		chunks, errs := eng.Synthesize(s.ctx, engine.Request{Text: text, VoiceKey: voiceKey}, stop)
		for chunks != nil || errs != nil {
			select {
			case chunk, open := <-chunks:
				if !open {
					chunks = nil
					continue
				}
				if peerErr != nil {
					continue // draining after the peer went away
				}
				if err := wire.WriteAudioFrame(conn, chunk.PCM); err != nil {
					peerErr = err
					stop.Signal()
					continue
				}
				chunkCount++
				if err := capture.Write(chunk.PCM); err != nil {
					s.logger.Warn("audio capture write failed", slog.String("error", err.Error()))
				}
			case err, open := <-errs:
				if open && err != nil {
					synthErr = err
				}
				errs = nil
			}
		}
		return nil
	})

	if err := capture.Close(); err != nil {
		s.logger.Warn("audio capture close failed", slog.String("error", err.Error()))
	}

	switch {
	case sessionErr != nil:
		// Never admitted to the engine; nothing was written yet.
		s.writeErrorFrame(conn, wire.CodeUnknown, "synthesis unavailable")
		s.finish(voiceKey, text, req.Flags, 0, wire.CodeUnknown, start)
		return
	case peerErr != nil:
		s.logger.Warn("peer write failed", slog.String("error", peerErr.Error()), slog.Int("chunks", chunkCount))
		s.finish(voiceKey, text, req.Flags, chunkCount, wire.CodeUnknown, start)
		return
	case synthErr != nil && chunkCount == 0:
		s.writeErrorFrame(conn, wire.CodeModelError, synthErr.Error())
		s.finish(voiceKey, text, req.Flags, 0, wire.CodeModelError, start)
		return
	case synthErr != nil:
		// Audio frames are already on the wire; the protocol has no
		// mid-stream error channel, so the stream is truncated without an
		// end marker and the failure is only logged.
		s.logger.Warn("synthesis failed mid-stream", slog.String("error", synthErr.Error()), slog.Int("chunks", chunkCount))
		s.finish(voiceKey, text, req.Flags, chunkCount, wire.CodeModelError, start)
		return
	}

	if req.Flags&wire.FlagNoSilencePad == 0 {
		samples := int(math.Round(float64(s.sampleRate) * silencePad.Seconds()))
		if err := wire.WriteAudioFrame(conn, make([]byte, samples*2)); err != nil {
			s.logger.Warn("silence pad write failed", slog.String("error", err.Error()))
			s.finish(voiceKey, text, req.Flags, chunkCount, wire.CodeUnknown, start)
			return
		}
	}
	if err := wire.WriteEndFrame(conn); err != nil {
		s.logger.Warn("end frame write failed", slog.String("error", err.Error()))
		s.finish(voiceKey, text, req.Flags, chunkCount, wire.CodeUnknown, start)
		return
	}

	s.logger.Info("done", slog.Int("chunks", chunkCount), slog.Duration("elapsed", time.Since(start)))
	s.finish(voiceKey, text, req.Flags, chunkCount, 0, start)
}

// writeErrorFrame reports a pre-stream failure to the peer. Write errors are
// swallowed: if the error frame cannot be delivered the peer is gone anyway.
func (s *Service) writeErrorFrame(conn net.Conn, code uint32, message string) {
	s.metrics.recordErrorFrame(s.ctx, code)
	s.logger.Warn("request failed", slog.Int("code", int(code)), slog.String("message", message))
	if err := wire.WriteErrorFrame(conn, code, message); err != nil {
		s.logger.Warn("error frame write failed", slog.String("error", err.Error()))
	}
}

// finish records completion side effects shared by every exit path that got
// far enough to know the request.
func (s *Service) finish(voiceKey, text string, flags uint32, chunks int, errorCode uint32, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.recordChunks(s.ctx, chunks)
	s.metrics.recordDuration(s.ctx, elapsed.Seconds())

	if err := s.history.Append(s.ctx, history.Record{
		Voice:       voiceKey,
		TextPreview: truncate(text, logTextLimit),
		Flags:       flags,
		Chunks:      chunks,
		Duration:    elapsed,
		ErrorCode:   errorCode,
	}); err != nil {
		s.logger.Warn("history append failed", slog.String("error", err.Error()))
	}

	s.events.Publish(protocol.SubjectRequestDone, protocol.RequestDone{
		Voice:     voiceKey,
		Chunks:    chunks,
		Duration:  elapsed,
		ErrorCode: errorCode,
		Timestamp: time.Now().UTC(),
	})
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
