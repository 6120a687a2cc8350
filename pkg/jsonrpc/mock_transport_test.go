package jsonrpc_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/meshline/jsonrpc/pkg/jsonrpc"
)

// mockTransport answers requests from a per-method handler map and records
// every request it sees.
type mockTransport struct {
	mu       sync.Mutex
	handlers map[string]func(req jsonrpc.Request) (jsonrpc.Response, error)
	requests []jsonrpc.Request
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		handlers: make(map[string]func(req jsonrpc.Request) (jsonrpc.Response, error)),
	}
}

func (m *mockTransport) handle(method string, handler func(req jsonrpc.Request) (jsonrpc.Response, error)) {
	m.handlers[method] = handler
}

// handleResult registers a handler that echoes the request ID with the given
// result literal.
func (m *mockTransport) handleResult(method, result string) {
	m.handle(method, func(req jsonrpc.Request) (jsonrpc.Response, error) {
		return jsonrpc.NewResultResponse(req.ID, json.RawMessage(result)), nil
	})
}

func (m *mockTransport) SendRequest(_ context.Context, req jsonrpc.Request) (jsonrpc.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	handler := m.handlers[req.Method]
	m.mu.Unlock()

	if handler == nil {
		return jsonrpc.NewErrorResponse(req.ID,
			jsonrpc.RPCError{Code: -32601, Message: "Method not found"}), nil
	}
	return handler(req)
}

func (m *mockTransport) sentRequests() []jsonrpc.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]jsonrpc.Request(nil), m.requests...)
}
