package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestAudioFrameRoundTrip(t *testing.T) {
	for _, size := range []int{1, 2, 960, 65536} {
		pcm := make([]byte, size)
		for i := range pcm {
			pcm[i] = byte(i)
		}
		var buf bytes.Buffer
		if err := WriteAudioFrame(&buf, pcm); err != nil {
			t.Fatalf("write frame (%d bytes): %v", size, err)
		}
		frame, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("read frame (%d bytes): %v", size, err)
		}
		if frame.Kind != FrameAudio {
			t.Fatalf("expected audio frame, got kind %d", frame.Kind)
		}
		if !bytes.Equal(frame.PCM, pcm) {
			t.Fatalf("payload mismatch at size %d", size)
		}
	}
}

func TestEmptyChunkRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAudioFrame(&buf, nil); !errors.Is(err, ErrEmptyChunk) {
		t.Fatalf("expected ErrEmptyChunk, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("rejected frame must not write bytes, wrote %d", buf.Len())
	}
}

func TestEndFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEndFrame(&buf); err != nil {
		t.Fatalf("write end frame: %v", err)
	}
	if buf.Len() != 4 {
		t.Fatalf("end frame must be 4 bytes, got %d", buf.Len())
	}
	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read end frame: %v", err)
	}
	if frame.Kind != FrameEnd {
		t.Fatalf("expected end frame, got kind %d", frame.Kind)
	}
}

func TestErrorFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteErrorFrame(&buf, CodeInvalidVoice, "no such voice"); err != nil {
		t.Fatalf("write error frame: %v", err)
	}
	if buf.Len() != 4+4+MessageFieldLen {
		t.Fatalf("error frame must be %d bytes, got %d", 4+4+MessageFieldLen, buf.Len())
	}
	raw := buf.Bytes()
	if binary.LittleEndian.Uint32(raw[:4]) != 0xFFFFFFFF {
		t.Fatal("missing error sentinel")
	}
	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if frame.Kind != FrameError || frame.Code != CodeInvalidVoice {
		t.Fatalf("unexpected decode: kind=%d code=%d", frame.Kind, frame.Code)
	}
	if frame.Message != "no such voice" {
		t.Fatalf("unexpected message %q", frame.Message)
	}
}

func TestErrorFrameMessageTruncated(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 400)
	if err := WriteErrorFrame(&buf, CodeUnknown, long); err != nil {
		t.Fatalf("write error frame: %v", err)
	}
	if buf.Len() != 4+4+MessageFieldLen {
		t.Fatalf("truncated frame must stay %d bytes, got %d", 4+4+MessageFieldLen, buf.Len())
	}
	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if len(frame.Message) != MessageFieldLen-1 {
		t.Fatalf("expected %d byte message, got %d", MessageFieldLen-1, len(frame.Message))
	}
}

func TestReadFrameFailsClosedOnShortRead(t *testing.T) {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], 100)
	buf.Write(hdr[:])
	buf.Write([]byte("only a few bytes"))
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error on truncated audio frame")
	}
}

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Request{Text: "Hello, world", VoiceID: "en-Alice_woman", Flags: FlagNoSilencePad}
	if err := WriteRequest(&buf, in); err != nil {
		t.Fatalf("write request: %v", err)
	}
	out, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestRequestMissingFlagsDefaultsToZero(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, Request{Text: "hi", Flags: FlagNoSilencePad}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	// Drop the trailing flags field to mimic an older client.
	short := bytes.NewReader(buf.Bytes()[:buf.Len()-4])
	req, err := ReadRequest(short)
	if err != nil {
		t.Fatalf("read short request: %v", err)
	}
	if req.Flags != 0 {
		t.Fatalf("expected default flags 0, got %#x", req.Flags)
	}
	if req.Text != "hi" {
		t.Fatalf("unexpected text %q", req.Text)
	}
}

func TestRequestZeroTextLength(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 0})
	if _, err := ReadRequest(buf); !errors.Is(err, ErrZeroTextLength) {
		t.Fatalf("expected ErrZeroTextLength, got %v", err)
	}
}

func TestRequestShortTextRead(t *testing.T) {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], 64)
	buf.Write(hdr[:])
	buf.Write([]byte{1, 2, 3})
	if _, err := ReadRequest(&buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestVoiceIDPaddingTrimmed(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, Request{Text: "x", VoiceID: "alice"}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	req, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if req.VoiceID != "alice" {
		t.Fatalf("expected trimmed voice id, got %q", req.VoiceID)
	}
}
