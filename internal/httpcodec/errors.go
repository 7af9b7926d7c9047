package httpcodec

import (
	"fmt"
	"net/http"
)

// Kind enumerates every way reading a message off the wire can fail. The set
// is closed: StatusCode is total over it.
type Kind int

const (
	// KindIncomplete means the peer closed the connection before a full
	// header block arrived. BytesRead distinguishes a clean close (0) from
	// a truncated message.
	KindIncomplete Kind = iota
	KindMalformed
	KindInvalidContentLength
	KindContentLengthMismatch
	KindBodyTooLarge
	KindConnection
)

// Error is the codec's only error type.
type Error struct {
	Kind      Kind
	BytesRead int
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIncomplete:
		return fmt.Sprintf("incomplete message after %d bytes", e.BytesRead)
	case KindMalformed:
		if e.Err != nil {
			return fmt.Sprintf("malformed message: %v", e.Err)
		}
		return "malformed message"
	case KindInvalidContentLength:
		return "invalid content length"
	case KindContentLengthMismatch:
		return "content length mismatch"
	case KindBodyTooLarge:
		return "body too large"
	case KindConnection:
		return fmt.Sprintf("connection error: %v", e.Err)
	default:
		return "unknown codec error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps a codec error to the HTTP status the proxy should
// originate for it. Non-codec errors map to 500, which never happens for
// errors produced by this package.
func StatusCode(err error) int {
	codecErr, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch codecErr.Kind {
	case KindIncomplete, KindMalformed, KindInvalidContentLength, KindContentLengthMismatch:
		return http.StatusBadRequest
	case KindBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsError unpacks a codec error from an error chain.
func AsError(err error) (*Error, bool) {
	codecErr, ok := err.(*Error)
	return codecErr, ok
}

// IsClientClosed reports whether err represents a clean connection close:
// the peer hung up without sending any part of a new message.
func IsClientClosed(err error) bool {
	codecErr, ok := AsError(err)
	return ok && codecErr.Kind == KindIncomplete && codecErr.BytesRead == 0
}

// IsConnectionError reports whether err is an underlying I/O failure rather
// than a framing problem.
func IsConnectionError(err error) bool {
	codecErr, ok := AsError(err)
	return ok && codecErr.Kind == KindConnection
}

func errIncomplete(bytesRead int) *Error {
	return &Error{Kind: KindIncomplete, BytesRead: bytesRead}
}

func errMalformed(err error) *Error {
	return &Error{Kind: KindMalformed, Err: err}
}

func errInvalidContentLength() *Error {
	return &Error{Kind: KindInvalidContentLength}
}

func errContentLengthMismatch() *Error {
	return &Error{Kind: KindContentLengthMismatch}
}

func errBodyTooLarge() *Error {
	return &Error{Kind: KindBodyTooLarge}
}

func errConnection(err error) *Error {
	return &Error{Kind: KindConnection, Err: err}
}
