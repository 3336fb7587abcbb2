// Package protocol defines the status events published on the bus for fleet
// observers. The wire protocol spoken on the IPC socket lives in
// internal/wire; nothing here is part of that byte stream.
package protocol

import "time"

// RequestAccepted is published once a request has been read and validated.
type RequestAccepted struct {
	Voice     string    `json:"voice"`
	TextChars int       `json:"text_chars"`
	Flags     uint32    `json:"flags"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestDone is published when a connection finishes, successfully or not.
// ErrorCode 0 means the stream completed with an end frame.
type RequestDone struct {
	Voice     string        `json:"voice"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration_ns"`
	ErrorCode uint32        `json:"error_code"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	SubjectRequestAccepted = "tts.request.accepted"
	SubjectRequestDone     = "tts.request.done"
)
