package jsonrpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshline/jsonrpc/pkg/jsonrpc"
)

func TestWebsocketTransport_BasicCall(t *testing.T) {
	t.Parallel()

	server := createRPCServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)
	errorCh := connectTransport(t, ctx, transport, server.Listener.Addr().String())

	params, err := jsonrpc.NewParams(42, 23)
	require.NoError(t, err)

	req := jsonrpc.NewRequestV2("subtract", params...).WithID(jsonrpc.NewNumberID(1))
	res, err := transport.SendRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, res.ID)

	result, rpcErr := res.Payload.Unwrap()
	require.Nil(t, rpcErr)
	assert.Equal(t, "19", string(result))

	// Ensure no errors occurred
	select {
	case err := <-errorCh:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketTransport_ConnectionFailure(t *testing.T) {
	t.Parallel()

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := transport.Dial(ctx, "ws://invalid-url-that-does-not-exist:12345", func(err error) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonrpc.ErrDialingWebsocket))
	assert.False(t, transport.IsConnected())
}

func TestWebsocketTransport_NotConnected(t *testing.T) {
	t.Parallel()

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)

	_, err := transport.SendRequest(context.Background(), jsonrpc.NewRequestV2("ping"))
	assert.True(t, errors.Is(err, jsonrpc.ErrNotConnected))
}

func TestWebsocketTransport_AlreadyConnected(t *testing.T) {
	t.Parallel()

	server := createRPCServer(t, nil)
	defer server.Close()

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)
	connectTransport(t, context.Background(), transport, server.Listener.Addr().String())

	err := transport.Dial(context.Background(), "ws://"+server.Listener.Addr().String(), func(err error) {})
	assert.True(t, errors.Is(err, jsonrpc.ErrAlreadyConnected))
}

func TestWebsocketTransport_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := createRPCServer(t, nil)
	defer server.Close()

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)

	ctx, cancel := context.WithCancel(context.Background())
	errorCh := connectTransport(t, ctx, transport, server.Listener.Addr().String())
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, transport.IsConnected())

	// Ensure no errors occurred
	select {
	case err := <-errorCh:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketTransport_ConcurrentCalls(t *testing.T) {
	t.Parallel()

	server := createRPCServer(t, nil)
	defer server.Close()

	ctx := context.Background()
	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)
	errorCh := connectTransport(t, ctx, transport, server.Listener.Addr().String())

	// Responses must route back to their callers by ID even when the calls
	// overlap on one connection.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			params, err := jsonrpc.NewParams(idx)
			require.NoError(t, err)
			req := jsonrpc.NewRequestV2("echo", params...).WithID(jsonrpc.NewNumberID(int64(idx)))

			callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			res, err := transport.SendRequest(callCtx, req)
			require.NoError(t, err)
			assert.Equal(t, req.ID, res.ID)

			result, rpcErr := res.Payload.Unwrap()
			require.Nil(t, rpcErr)
			assert.JSONEq(t, string(params[0]), string(result))
		}(i)
	}
	wg.Wait()

	// Ensure no errors occurred
	select {
	case err := <-errorCh:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketTransport_RequestTimeout(t *testing.T) {
	t.Parallel()

	// Server that never answers the slow method.
	handlers := map[string]func(req jsonrpc.Request) *jsonrpc.Response{
		"slow": func(req jsonrpc.Request) *jsonrpc.Response {
			return nil
		},
	}
	server := createRPCServer(t, handlers)
	defer server.Close()

	ctx := context.Background()
	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)
	errorCh := connectTransport(t, ctx, transport, server.Listener.Addr().String())

	callCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	_, err := transport.SendRequest(callCtx, jsonrpc.NewRequestV2("slow").WithID(jsonrpc.NewNumberID(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonrpc.ErrNoResponse))

	// Ensure no errors occurred
	select {
	case err := <-errorCh:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketTransport_DuplicateID(t *testing.T) {
	t.Parallel()

	handlers := map[string]func(req jsonrpc.Request) *jsonrpc.Response{
		"slow": func(req jsonrpc.Request) *jsonrpc.Response {
			return nil
		},
	}
	server := createRPCServer(t, handlers)
	defer server.Close()

	ctx := context.Background()
	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)
	connectTransport(t, ctx, transport, server.Listener.Addr().String())

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)

		callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		_, err := transport.SendRequest(callCtx, jsonrpc.NewRequestV2("slow").WithID(jsonrpc.NewNumberID(7)))
		assert.Error(t, err)
	}()

	// Give the first call time to register its ID.
	time.Sleep(100 * time.Millisecond)

	_, err := transport.SendRequest(ctx, jsonrpc.NewRequestV2("slow").WithID(jsonrpc.NewNumberID(7)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonrpc.ErrDuplicateID))

	<-firstDone
}

func TestWebsocketTransport_ServerClosesConnection(t *testing.T) {
	t.Parallel()

	server := createRPCServer(t, nil)

	transport := jsonrpc.NewWebsocketTransport(jsonrpc.DefaultWebsocketTransportConfig)

	closedCh := make(chan error, 1)
	err := transport.Dial(context.Background(), "ws://"+server.Listener.Addr().String(), func(err error) {
		closedCh <- err
	})
	require.NoError(t, err)
	require.True(t, transport.IsConnected())

	server.CloseClientConnections()

	select {
	case err := <-closedCh:
		assert.True(t, errors.Is(err, jsonrpc.ErrReadingMessage))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for closure handler")
	}

	server.Close()
	assert.False(t, transport.IsConnected())

	_, err = transport.SendRequest(context.Background(), jsonrpc.NewRequestV2("ping"))
	assert.True(t, errors.Is(err, jsonrpc.ErrNotConnected))
}

// Helper functions

// createRPCServer starts a websocket server that decodes each incoming
// Request and answers it. The default behavior echoes the first param (or
// true when there are none); extraHandlers override per method, and a nil
// response suppresses the reply.
func createRPCServer(t *testing.T, extraHandlers map[string]func(req jsonrpc.Request) *jsonrpc.Response) *httptest.Server {
	if extraHandlers == nil {
		extraHandlers = make(map[string]func(req jsonrpc.Request) *jsonrpc.Response)
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var req jsonrpc.Request
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}

			var res *jsonrpc.Response
			if handler, exists := extraHandlers[req.Method]; exists {
				res = handler(req)
			} else {
				result := json.RawMessage("true")
				if req.Method == "subtract" {
					result = json.RawMessage("19")
				} else if len(req.Params) > 0 {
					result = req.Params[0]
				}
				reply := jsonrpc.NewResultResponse(req.ID, result)
				res = &reply
			}
			if res == nil {
				continue
			}

			resJSON, err := json.Marshal(res)
			require.NoError(t, err)
			conn.WriteMessage(websocket.TextMessage, resJSON)
		}
	}))
}

func connectTransport(t *testing.T, ctx context.Context, transport *jsonrpc.WebsocketTransport, addr string) <-chan error {
	errorCh := make(chan error, 1)

	err := transport.Dial(ctx, "ws://"+addr, func(err error) {
		if err != nil {
			errorCh <- err
		}
	})
	require.NoError(t, err)
	require.True(t, transport.IsConnected())

	return errorCh
}
