package jsonrpc

import "context"

// Method is a declared remote method: a name bound to a result type.
// Declaring the method set of a remote API once, as package-level values,
// replaces per-method request-building and response-unwrapping boilerplate:
//
//	var (
//		getBlockCount = jsonrpc.NewMethod[int64]("getblockcount")
//		getBlockHash  = jsonrpc.NewMethod[string]("getblockhash")
//	)
//
//	count, err := getBlockCount.Invoke(ctx, client)
//	hash, err := getBlockHash.Invoke(ctx, client, 814203)
//
// The binding is generic over the result type; the only requirement is that
// R is decodable from the method's wire result.
type Method[R any] struct {
	// Name is the remote method name sent on the wire.
	Name string
}

// NewMethod declares a remote method returning R.
func NewMethod[R any](name string) Method[R] {
	return Method[R]{Name: name}
}

// Invoke calls the method through the given client with positional
// arguments, returning the decoded result or a *Error.
func (m Method[R]) Invoke(ctx context.Context, c *Client, args ...any) (R, error) {
	return Call[R](ctx, c, m.Name, args...)
}
