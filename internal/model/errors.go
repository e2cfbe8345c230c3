package model

import (
	"errors"
	"fmt"
)

// Severity decides how the main loop reacts to a failure.
type Severity int

const (
	// SeveritySoftLocal is a local file failure: logged, capture abandoned this tick.
	SeveritySoftLocal Severity = iota
	// SeveritySoftRemote is an uploader failure: logged, local copy kept, never retried.
	SeveritySoftRemote
	// SeverityFatal ends the process so the supervisor restarts the device.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeveritySoftRemote:
		return "soft-remote"
	default:
		return "soft-local"
	}
}

// ErrSensorUnavailable is returned when the camera yields no frame.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Error carries a severity and operation label alongside the wrapped cause.
type Error struct {
	op       string
	severity Severity
	msg      string
	orig     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := e.msg
	if e.op != "" {
		prefix = e.op + ": " + e.msg
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", prefix, e.orig)
	}
	return prefix
}

func (e *Error) Unwrap() error { return e.orig }

func (e *Error) Severity() Severity { return e.severity }

func (e *Error) Op() string { return e.op }

// Fatal wraps err as a restart-worthy failure.
func Fatal(op, msg string, err error) *Error {
	return &Error{op: op, severity: SeverityFatal, msg: msg, orig: err}
}

// SoftLocal wraps err as a local storage failure.
func SoftLocal(op, msg string, err error) *Error {
	return &Error{op: op, severity: SeveritySoftLocal, msg: msg, orig: err}
}

// SoftRemote wraps err as an uploader failure.
func SoftRemote(op, msg string, err error) *Error {
	return &Error{op: op, severity: SeveritySoftRemote, msg: msg, orig: err}
}

// SeverityOf returns the severity of the first *Error in err's chain.
// Unclassified errors are treated as local.
func SeverityOf(err error) Severity {
	var e *Error
	if errors.As(err, &e) {
		return e.severity
	}
	return SeveritySoftLocal
}

// IsFatal reports whether err requires a restart.
func IsFatal(err error) bool {
	return err != nil && SeverityOf(err) == SeverityFatal
}
