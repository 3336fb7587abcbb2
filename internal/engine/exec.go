package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
	"github.com/voxpipe/voxpipe/internal/voice"
)

// Options are loader parameters passed through to the model runner opaquely.
type Options struct {
	ModelPath      string
	Device         string
	InferenceSteps int
	SampleRate     int
}

type execEngine struct {
	cmd  []string
	opts Options
}

type execRequest struct {
	Op             string `json:"op"`
	Text           string `json:"text,omitempty"`
	Voice          string `json:"voice,omitempty"`
	ModelPath      string `json:"model_path,omitempty"`
	Device         string `json:"device,omitempty"`
	InferenceSteps int    `json:"inference_steps,omitempty"`
	SampleRate     int    `json:"sample_rate,omitempty"`
}

type execVoicesResponse struct {
	Voices []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"voices"`
}

type execChunkResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

// NewExecEngine wraps a model-runner subprocess. The command is spawned once
// per operation and speaks newline-delimited JSON on stdin/stdout.
func NewExecEngine(command string, opts Options) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command empty")
	}
	return &execEngine{cmd: args, opts: opts}, nil
}

func (e *execEngine) Voices(ctx context.Context) ([]voice.Preset, error) {
	payload, err := json.Marshal(execRequest{Op: "voices", ModelPath: e.opts.ModelPath, Device: e.opts.Device})
	if err != nil {
		return nil, err
	}
	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(append(payload, '\n'))
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("query voice catalog: %w", err)
	}
	var resp execVoicesResponse
	if err := json.Unmarshal(firstLine(out), &resp); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}
	presets := make([]voice.Preset, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		presets = append(presets, voice.Preset{Key: v.Key, DisplayName: v.Name})
	}
	return presets, nil
}

func (e *execEngine) Synthesize(ctx context.Context, req Request, stop StopToken) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		payload, err := json.Marshal(execRequest{
			Op:             "synthesize",
			Text:           req.Text,
			Voice:          req.VoiceKey,
			ModelPath:      e.opts.ModelPath,
			Device:         e.opts.Device,
			InferenceSteps: e.opts.InferenceSteps,
			SampleRate:     e.opts.SampleRate,
		})
		if err != nil {
			errs <- err
			return
		}

		base := e.cmd[0]
		args := append([]string{}, e.cmd[1:]...)
		cmd := exec.CommandContext(runCtx, base, args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			errs <- err
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			errs <- err
			return
		}
		if err := cmd.Start(); err != nil {
			errs <- err
			return
		}

		if _, err := stdin.Write(append(payload, '\n')); err != nil {
			errs <- err
			cmd.Wait()
			return
		}
		stdin.Close()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			if stop.Stopped() {
				cancel()
				cmd.Wait()
				return
			}
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var resp execChunkResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				errs <- err
				cmd.Wait()
				return
			}
			pcm, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
			if err != nil {
				errs <- err
				cmd.Wait()
				return
			}
			if len(pcm) > 0 {
				select {
				case chunks <- Chunk{PCM: pcm}:
				case <-runCtx.Done():
					cmd.Wait()
					return
				}
			}
			if resp.Final {
				break
			}
		}
		if err := cmd.Wait(); err != nil {
			if runCtx.Err() == nil {
				errs <- err
			}
			return
		}
		if scanErr := scanner.Err(); scanErr != nil {
			errs <- scanErr
		}
	}()
	return chunks, errs
}

func firstLine(b []byte) []byte {
	for i, c := range b {
		if c == '\n' {
			return b[:i]
		}
	}
	return b
}
