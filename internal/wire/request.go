package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// Request layout on the wire, all integers little-endian:
//
//	u32       text byte length
//	[]byte    UTF-16LE text
//	[32]byte  voice identifier, ASCII, NUL-padded
//	u32       flags (optional; older clients omit it)
const VoiceIDFieldLen = 32

// Request flag bits.
const (
	// FlagNoSilencePad suppresses the trailing silence frame for clients
	// that handle their own buffer flushing.
	FlagNoSilencePad uint32 = 0x00000001
)

// ErrZeroTextLength reports a request whose declared text length is zero.
var ErrZeroTextLength = errors.New("wire: zero text length")

// Request is one client request, decoded.
type Request struct {
	Text    string
	VoiceID string
	Flags   uint32
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ReadRequest decodes one request. A missing or short flags field is not an
// error; it defaults to zero so shorter requests from older clients still
// parse. Every other short read is returned to the caller, which treats it as
// a peer-disconnect class failure.
func ReadRequest(r io.Reader) (Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read text length: %w", err)
	}
	textLen := binary.LittleEndian.Uint32(hdr[:])
	if textLen == 0 {
		return Request{}, ErrZeroTextLength
	}

	raw := make([]byte, textLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Request{}, fmt.Errorf("wire: read text: %w", err)
	}
	text, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return Request{}, fmt.Errorf("wire: decode utf-16 text: %w", err)
	}

	var voiceField [VoiceIDFieldLen]byte
	if _, err := io.ReadFull(r, voiceField[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read voice id: %w", err)
	}

	req := Request{
		Text:    string(text),
		VoiceID: decodeVoiceID(voiceField[:]),
	}

	var flagsField [4]byte
	if _, err := io.ReadFull(r, flagsField[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return req, nil
		}
		return Request{}, fmt.Errorf("wire: read flags: %w", err)
	}
	req.Flags = binary.LittleEndian.Uint32(flagsField[:])
	return req, nil
}

// WriteRequest encodes a request in the layout ReadRequest expects. Used by
// the companion client and by tests.
func WriteRequest(w io.Writer, req Request) error {
	raw, err := utf16le.NewEncoder().Bytes([]byte(req.Text))
	if err != nil {
		return fmt.Errorf("wire: encode utf-16 text: %w", err)
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(raw)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}

	var voiceField [VoiceIDFieldLen]byte
	id := []byte(req.VoiceID)
	if len(id) > VoiceIDFieldLen {
		id = id[:VoiceIDFieldLen]
	}
	copy(voiceField[:], id)
	if _, err := w.Write(voiceField[:]); err != nil {
		return err
	}

	var flagsField [4]byte
	binary.LittleEndian.PutUint32(flagsField[:], req.Flags)
	_, err = w.Write(flagsField[:])
	return err
}

// decodeVoiceID trims NUL padding and drops non-ASCII bytes, matching the
// lenient identifier handling clients rely on.
func decodeVoiceID(field []byte) string {
	trimmed := bytes.TrimRight(field, "\x00")
	out := make([]byte, 0, len(trimmed))
	for _, b := range trimmed {
		if b < 0x80 {
			out = append(out, b)
		}
	}
	return string(out)
}
