package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame sentinels. An audio frame starts with its byte length; length 0 marks
// end of stream and 0xFFFFFFFF introduces an error frame, so neither value is
// a legal chunk length.
const (
	endMarker     uint32 = 0
	errorSentinel uint32 = 0xFFFFFFFF

	// MessageFieldLen is the fixed size of the error-frame message field.
	// The UTF-8 message is truncated to MessageFieldLen-1 bytes and
	// zero-padded to the full field.
	MessageFieldLen = 256
)

// Error codes carried by error frames. Success is never transmitted: a stream
// that ends with an end frame succeeded.
const (
	CodeEmptyText    uint32 = 1
	CodeInvalidVoice uint32 = 2
	CodeModelError   uint32 = 3
	CodeUnknown      uint32 = 99
)

// ErrEmptyChunk is returned when a zero-length chunk is offered for encoding.
var ErrEmptyChunk = errors.New("wire: refusing to encode empty audio chunk")

// FrameKind discriminates decoded frames.
type FrameKind int

const (
	FrameAudio FrameKind = iota
	FrameEnd
	FrameError
)

// Frame is one decoded unit of the response stream.
type Frame struct {
	Kind    FrameKind
	PCM     []byte
	Code    uint32
	Message string
}

// WriteAudioFrame writes one length-prefixed audio chunk. Empty chunks are
// rejected: a zero length on the wire means end of stream.
func WriteAudioFrame(w io.Writer, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyChunk
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(pcm)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// WriteEndFrame terminates a successful stream.
func WriteEndFrame(w io.Writer) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], endMarker)
	_, err := w.Write(hdr[:])
	return err
}

// WriteErrorFrame writes the error sentinel, the code, and the fixed-size
// message field.
func WriteErrorFrame(w io.Writer, code uint32, message string) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[:4], errorSentinel)
	binary.LittleEndian.PutUint32(hdr[4:], code)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	var field [MessageFieldLen]byte
	msg := []byte(message)
	if len(msg) > MessageFieldLen-1 {
		msg = msg[:MessageFieldLen-1]
	}
	copy(field[:], msg)
	_, err := w.Write(field[:])
	return err
}

// ReadFrame decodes the next frame from the stream. Any short read fails the
// decode; callers must not continue reading after an error.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	switch n := binary.LittleEndian.Uint32(hdr[:]); n {
	case endMarker:
		return Frame{Kind: FrameEnd}, nil
	case errorSentinel:
		var tail [4 + MessageFieldLen]byte
		if _, err := io.ReadFull(r, tail[:]); err != nil {
			return Frame{}, fmt.Errorf("wire: short error frame: %w", err)
		}
		code := binary.LittleEndian.Uint32(tail[:4])
		msg := tail[4:]
		end := 0
		for end < len(msg) && msg[end] != 0 {
			end++
		}
		return Frame{Kind: FrameError, Code: code, Message: string(msg[:end])}, nil
	default:
		pcm := make([]byte, n)
		if _, err := io.ReadFull(r, pcm); err != nil {
			return Frame{}, fmt.Errorf("wire: short audio frame: %w", err)
		}
		return Frame{Kind: FrameAudio, PCM: pcm}, nil
	}
}
