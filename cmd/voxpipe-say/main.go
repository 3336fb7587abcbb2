// voxpipe-say sends one synthesis request to a running voxpiped and writes
// the streamed audio to a WAV file. It doubles as a protocol smoke test.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/voxpipe/voxpipe/internal/wire"
)

func main() {
	var (
		socketPath string
		voiceID    string
		out        string
		sampleRate int
		noPad      bool
	)

	flag.StringVar(&socketPath, "socket", "/tmp/voxpipe.sock", "Path to the voxpiped socket")
	flag.StringVar(&voiceID, "voice", "", "Voice identifier (empty selects the default voice)")
	flag.StringVar(&out, "out", "out.wav", "Output WAV file")
	flag.IntVar(&sampleRate, "rate", 24000, "Sample rate of the daemon's engine")
	flag.BoolVar(&noPad, "no-pad", false, "Ask the daemon to skip the trailing silence pad")
	flag.Parse()

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: voxpipe-say [flags] text to speak")
		os.Exit(2)
	}

	if err := run(socketPath, voiceID, out, sampleRate, noPad, text); err != nil {
		fmt.Fprintln(os.Stderr, "voxpipe-say:", err)
		os.Exit(1)
	}
}

func run(socketPath, voiceID, out string, sampleRate int, noPad bool, text string) error {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	var flags uint32
	if noPad {
		flags |= wire.FlagNoSilencePad
	}
	if err := wire.WriteRequest(conn, wire.Request{Text: text, VoiceID: voiceID, Flags: flags}); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate}, SourceBitDepth: 16}

	frames := 0
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			f.Close()
			return fmt.Errorf("read frame: %w", err)
		}
		switch frame.Kind {
		case wire.FrameEnd:
			if err := enc.Close(); err != nil {
				f.Close()
				return fmt.Errorf("finalize wav: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d frames)\n", out, frames)
			return nil
		case wire.FrameError:
			f.Close()
			os.Remove(out)
			return fmt.Errorf("server error %d: %s", frame.Code, frame.Message)
		case wire.FrameAudio:
			samples := len(frame.PCM) / 2
			buf.Data = buf.Data[:0]
			for i := 0; i < samples; i++ {
				buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(frame.PCM[i*2:]))))
			}
			if err := enc.Write(buf); err != nil {
				f.Close()
				return fmt.Errorf("write wav: %w", err)
			}
			frames++
		}
	}
}
