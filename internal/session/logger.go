package session

import "log"

// Logger is the minimal sink the coordinator, frame reader/writer and
// exchange tasks log through. The teacher logs directly through the
// standard library's log package at its connect/disconnect/error
// boundaries; this interface keeps that call-site shape while letting an
// embedding application redirect the output.
type Logger interface {
	Printf(format string, args ...any)
}

// stdLogger wraps log.Default(), matching the teacher's plain log.Printf
// call sites exactly.
type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) { log.Printf(format, args...) }

// DefaultLogger is the Logger used when the application does not supply one.
var DefaultLogger Logger = stdLogger{}
