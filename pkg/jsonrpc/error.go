package jsonrpc

import "fmt"

// RPCError is a protocol-level failure reported by the remote peer. It is
// distinct from transport failures and from local decode failures: the peer
// received the call, executed it, and answered with a structured error.
type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("JSON-RPC request failed with code %d: %s", e.Code, e.Message)
}

// Kind discriminates the three failure classes a call can produce.
// Callers match on it to decide whether to retry (transport), report to a
// human (protocol), or treat the failure as a programming error (decode).
type Kind int

const (
	// KindTransport marks failures reported by the transport itself:
	// connectivity, timeouts, non-success status codes. The inner error is
	// the transport's own error, passed through opaquely.
	KindTransport Kind = iota + 1
	// KindProtocol marks application-level errors reported by the remote
	// peer. The inner error is always a *RPCError.
	KindProtocol
	// KindDecode marks serialization failures: an argument that could not
	// be encoded, or a result payload that did not match the declared
	// return type.
	KindDecode
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDecode:
		return "decode"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the tagged failure type returned by the Client. Exactly one of
// the three kinds applies to any failed call; the inner error is constructed
// at the point of failure and propagated unchanged.
type Error struct {
	Kind Kind
	Err  error
}

// Error delegates to the inner error's own rendering.
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the inner error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a transport-supplied error.
func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// NewProtocolError wraps an error reported by the remote peer.
func NewProtocolError(rpcErr *RPCError) *Error {
	return &Error{Kind: KindProtocol, Err: rpcErr}
}

// NewDecodeError wraps a serialization failure.
func NewDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}
