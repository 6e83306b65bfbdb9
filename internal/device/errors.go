package device

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies device communication failures.
type FailureKind string

const (
	// Unreachable covers connection refusals and DNS failures.
	Unreachable FailureKind = "unreachable"
	// Timeout covers per-request deadline expiry.
	Timeout FailureKind = "timeout"
	// ProtocolError covers non-200 responses and unparseable bodies.
	ProtocolError FailureKind = "protocol_error"
	// ConfigurationError means no usable device address is configured.
	ConfigurationError FailureKind = "configuration_error"
)

// Failure is a device communication failure surfaced as a value; the
// client never lets a transport problem escape as anything else.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("device %s: %s: %v", f.Kind, f.Detail, f.Err)
	}
	return fmt.Sprintf("device %s: %s", f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// FailureKindOf extracts the failure kind from an error chain, or "" when
// the error did not originate in the device client.
func FailureKindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// classifyTransportError maps an http.Client error onto the taxonomy.
func classifyTransportError(err error) *Failure {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: Timeout, Detail: "request timed out", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: Timeout, Detail: "request timed out", Err: err}
	}
	return &Failure{Kind: Unreachable, Detail: "cannot reach device", Err: err}
}
