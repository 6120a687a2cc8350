package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/meshline/jsonrpc/pkg/log"
)

// ClientConfig contains configuration options for a Client.
// Transport is required; everything else has a default.
type ClientConfig struct {
	// Transport delivers requests to the remote peer (required).
	Transport Transport `validate:"required"`

	// Version is the protocol version stamped on every request.
	// Defaults to V2.
	Version string `validate:"omitempty,oneof=1.0 2.0"`

	// NewID produces the ID for each outgoing request. The default is a
	// process-local atomic counter starting at 1. Callers sharing one
	// transport across several clients should supply a collision-free
	// generator such as NewRandomStringID.
	NewID func() ID

	// Logger is used for per-call debug logging. Defaults to a noop logger.
	Logger log.Logger
}

// Client binds typed method calls to the generic protocol mechanics: it
// serializes arguments positionally, builds the Request, drives it through
// the Transport, and decodes the result into the caller's declared type.
//
// Each call is independent and stateless; the Client holds no in-flight
// bookkeeping beyond the ID counter. It is safe for concurrent use if its
// Transport is.
type Client struct {
	transport Transport
	version   string
	newID     func() ID
	lg        log.Logger
	seq       atomic.Int64
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := getValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	c := &Client{
		transport: cfg.Transport,
		version:   cfg.Version,
		newID:     cfg.NewID,
		lg:        cfg.Logger,
	}
	if c.version == "" {
		c.version = V2
	}
	if c.newID == nil {
		c.newID = func() ID {
			return NewNumberID(c.seq.Add(1))
		}
	}
	if c.lg == nil {
		c.lg = log.NewNoopLogger()
	}
	c.lg = c.lg.WithName("client")

	return c, nil
}

// Call invokes the named remote method with the given arguments and decodes
// the result into the pointer result. Pass a nil result to discard the
// returned value.
//
// Every failure is reported as a *Error whose Kind discriminates the three
// classes: transport failures are passed through opaquely, peer-reported
// errors surface as *RPCError, and serialization failures on either side of
// the call are decode errors. A transport failure never attempts to parse a
// response, and an error payload is never decoded as a result.
func (c *Client) Call(ctx context.Context, method string, result any, args ...any) error {
	params, err := NewParams(args...)
	if err != nil {
		return NewDecodeError(err)
	}

	req := NewRequest(c.version, method, params).WithID(c.newID())
	if err := req.Validate(); err != nil {
		return NewDecodeError(fmt.Errorf("invalid request: %w", err))
	}

	c.lg.Debug("calling method", "method", method, "id", req.ID.String())

	res, err := c.transport.SendRequest(ctx, req)
	if err != nil {
		return NewTransportError(err)
	}

	// Correlation across concurrency is the transport's and the caller's
	// responsibility; a mismatched ID is only worth a log line here.
	if res.ID != req.ID {
		c.lg.Debug("response id does not match request id",
			"requestID", req.ID.String(), "responseID", res.ID.String())
	}

	raw, rpcErr := res.Payload.Unwrap()
	if rpcErr != nil {
		return NewProtocolError(rpcErr)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return NewDecodeError(fmt.Errorf("error decoding result for method %s: %w", method, err))
	}
	return nil
}

// Call invokes the named remote method on c and returns the result decoded
// into R. It is the generic form of Client.Call for callers that prefer a
// typed return value over a result pointer.
func Call[R any](ctx context.Context, c *Client, method string, args ...any) (R, error) {
	var result R
	if err := c.Call(ctx, method, &result, args...); err != nil {
		return result, err
	}
	return result, nil
}
