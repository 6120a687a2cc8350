package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Recognized protocol version strings. V1 is declared for peers that expect
// it in the envelope (e.g. bitcoind); this package does not implement a
// distinct 1.0 wire shape and assumes the id/params layout is shared.
const (
	V1 = "1.0"
	V2 = "2.0"
)

// Request is a single JSON-RPC call. Params are positional: their order is
// the call-argument order and is semantically significant. A Request is
// immutable after construction.
//
// Wire form:
//
//	{"id":0,"jsonrpc":"2.0","method":"subtract","params":[42,23]}
type Request struct {
	ID      ID                `json:"id"`
	JSONRPC string            `json:"jsonrpc" validate:"required,oneof=1.0 2.0"`
	Method  string            `json:"method" validate:"required"`
	Params  []json.RawMessage `json:"params"`
}

// NewRequest constructs a Request with the default ID 0. Callers that need
// correlation across concurrent calls attach their own ID with WithID.
// Empty params are valid and encode as an empty array.
func NewRequest(version, method string, params []json.RawMessage) Request {
	if params == nil {
		params = []json.RawMessage{}
	}
	return Request{
		JSONRPC: version,
		Method:  method,
		Params:  params,
	}
}

// NewRequestV2 constructs a version 2.0 Request with the default ID 0.
func NewRequestV2(method string, params ...json.RawMessage) Request {
	return NewRequest(V2, method, params)
}

// WithID returns a copy of the Request carrying the given ID.
func (r Request) WithID(id ID) Request {
	r.ID = id
	return r
}

// Validate checks the envelope invariants: a recognized protocol version
// and a non-empty method name.
func (r Request) Validate() error {
	return getValidator().Struct(r)
}

// NewParams serializes each argument to its wire representation, preserving
// declaration order.
func NewParams(args ...any) ([]json.RawMessage, error) {
	params := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("error marshaling param %d: %w", i, err)
		}
		params = append(params, raw)
	}
	return params, nil
}

// ResponsePayload is the result-or-error body of a Response. Exactly one of
// the two arms is set; the wire encoding discriminates by field presence
// ("result" vs "error"), not by an explicit tag.
type ResponsePayload struct {
	result json.RawMessage
	rpcErr *RPCError
}

// NewResultPayload returns a payload carrying a successful result.
func NewResultPayload(result json.RawMessage) ResponsePayload {
	if result == nil {
		result = json.RawMessage("null")
	}
	return ResponsePayload{result: result}
}

// NewErrorPayload returns a payload carrying a peer-reported error.
func NewErrorPayload(rpcErr RPCError) ResponsePayload {
	return ResponsePayload{rpcErr: &rpcErr}
}

// IsError reports whether the payload carries the error arm.
func (p ResponsePayload) IsError() bool {
	return p.rpcErr != nil
}

// Unwrap converts the payload into its success-or-failure form. The
// conversion is total: a result payload yields (value, nil), an error
// payload yields (nil, error).
func (p ResponsePayload) Unwrap() (json.RawMessage, *RPCError) {
	if p.rpcErr != nil {
		return nil, p.rpcErr
	}
	return p.result, nil
}

// Response is the reply to a single Request. The ID is echoed from the
// request unchanged. Responses are constructed only by decoding wire data
// or through the New*Response helpers.
type Response struct {
	ID      ID
	JSONRPC string
	Payload ResponsePayload
}

// NewResultResponse constructs a version 2.0 success Response.
func NewResultResponse(id ID, result json.RawMessage) Response {
	return Response{
		ID:      id,
		JSONRPC: V2,
		Payload: NewResultPayload(result),
	}
}

// NewErrorResponse constructs a version 2.0 error Response.
func NewErrorResponse(id ID, rpcErr RPCError) Response {
	return Response{
		ID:      id,
		JSONRPC: V2,
		Payload: NewErrorPayload(rpcErr),
	}
}

// responseWire is the wire shape of a Response. Field presence of "result"
// vs "error" discriminates the payload arms.
type responseWire struct {
	ID      *ID             `json:"id"`
	JSONRPC *string         `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// MarshalJSON encodes the Response with exactly one of "result"/"error".
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	version := r.JSONRPC
	wire := responseWire{
		ID:      &id,
		JSONRPC: &version,
	}
	if result, rpcErr := r.Payload.Unwrap(); rpcErr != nil {
		wire.Error = rpcErr
	} else {
		wire.Result = result
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a Response, enforcing the envelope invariants:
// "jsonrpc" and "id" must be present and well-shaped, and exactly one of
// "result"/"error" must be present.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire responseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}

	if wire.JSONRPC == nil {
		return fmt.Errorf("invalid response: missing jsonrpc field")
	}
	if wire.ID == nil {
		return fmt.Errorf("invalid response: missing id field")
	}

	hasResult := len(wire.Result) > 0
	hasError := wire.Error != nil
	switch {
	case hasResult && hasError:
		return fmt.Errorf("invalid response: both result and error are present")
	case !hasResult && !hasError:
		return fmt.Errorf("invalid response: neither result nor error is present")
	}

	r.ID = *wire.ID
	r.JSONRPC = *wire.JSONRPC
	if hasError {
		r.Payload = NewErrorPayload(*wire.Error)
	} else {
		r.Payload = NewResultPayload(wire.Result)
	}
	return nil
}
