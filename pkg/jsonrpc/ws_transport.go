package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meshline/jsonrpc/pkg/log"
)

// Websocket transport sentinel errors.
var (
	ErrNotConnected     = errors.New("websocket transport is not connected")
	ErrAlreadyConnected = errors.New("websocket transport is already connected")
	ErrDialingWebsocket = errors.New("error dialing websocket server")
	ErrReadingMessage   = errors.New("error reading websocket message")
	ErrNoResponse       = errors.New("no response received")
	ErrDuplicateID      = errors.New("a request with this id is already in flight")
)

// WebsocketTransportConfig contains configuration options for the
// websocket transport.
type WebsocketTransportConfig struct {
	// HandshakeTimeout is the duration to wait for the websocket handshake
	// to complete.
	HandshakeTimeout time.Duration

	// Logger is used for connection lifecycle and routing logs. Defaults to
	// a noop logger.
	Logger log.Logger
}

// DefaultWebsocketTransportConfig provides sensible defaults.
var DefaultWebsocketTransportConfig = WebsocketTransportConfig{
	HandshakeTimeout: 5 * time.Second,
}

// WebsocketTransport implements Transport over a single websocket
// connection. Multiple calls may be in flight concurrently as long as their
// IDs are distinct: each response is routed back to its caller by the
// echoed ID.
type WebsocketTransport struct {
	cfg           WebsocketTransportConfig
	dialCtx       *wsDialCtx
	responseSinks map[ID]chan Response
	mu            sync.RWMutex // protects dialCtx and responseSinks
	writeMu       sync.Mutex   // serializes websocket write operations
	lg            log.Logger
}

// wsDialCtx holds the connection context and resources.
type wsDialCtx struct {
	ctx  context.Context
	conn *websocket.Conn
}

var _ Transport = (*WebsocketTransport)(nil)

// NewWebsocketTransport creates a websocket transport with the given
// configuration. The transport is not connected until Dial is called.
func NewWebsocketTransport(cfg WebsocketTransportConfig) *WebsocketTransport {
	lg := cfg.Logger
	if lg == nil {
		lg = log.NewNoopLogger()
	}
	return &WebsocketTransport{
		cfg:           cfg,
		responseSinks: make(map[ID]chan Response),
		lg:            lg.WithName("ws-transport"),
	}
}

// Dial establishes a websocket connection to the specified URL. It returns
// once the connection is established; reading continues in the background
// until the connection closes or the context is cancelled. handleClosure is
// invoked exactly once when the connection is closed, with an error if any.
func (t *WebsocketTransport) Dial(parentCtx context.Context, url string, handleClosure func(err error)) error {
	if t.IsConnected() {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  t.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, _, err := dialer.DialContext(parentCtx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDialingWebsocket, err)
	}

	childCtx, cancel := context.WithCancel(parentCtx)
	wg := sync.WaitGroup{}
	wg.Add(2)

	var closureErr error
	var closureErrMu sync.Mutex
	childHandleClosure := func(err error) {
		closureErrMu.Lock()
		defer closureErrMu.Unlock()

		// Capture the first error encountered.
		if err != nil && closureErr == nil {
			closureErr = err
		}

		cancel()
		wg.Done()
	}

	t.mu.Lock()
	t.dialCtx = &wsDialCtx{
		ctx:  childCtx,
		conn: conn,
	}
	t.mu.Unlock()

	go t.closeOnContextDone(childCtx, childHandleClosure)
	go t.readMessages(childCtx, childHandleClosure)

	go func() {
		wg.Wait()

		closureErrMu.Lock()
		defer closureErrMu.Unlock()

		handleClosure(closureErr)
	}()

	return nil
}

// IsConnected returns true if the transport has an active connection.
func (t *WebsocketTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.dialCtx != nil && t.dialCtx.ctx.Err() == nil
}

// closeOnContextDone waits for the connection context to be done, closes
// the connection, and releases every pending caller.
func (t *WebsocketTransport) closeOnContextDone(ctx context.Context, handleClosure func(err error)) {
	<-ctx.Done()

	t.mu.RLock()
	conn := t.dialCtx.conn
	t.mu.RUnlock()

	err := conn.Close()

	t.mu.Lock()
	for _, sink := range t.responseSinks {
		close(sink)
	}
	t.responseSinks = make(map[ID]chan Response)
	t.mu.Unlock()

	handleClosure(err)
}

// readMessages continuously reads responses from the connection and routes
// each one to the caller waiting on its ID. Responses with no matching
// in-flight request are dropped.
func (t *WebsocketTransport) readMessages(ctx context.Context, handleClosure func(err error)) {
	t.mu.RLock()
	conn := t.dialCtx.conn
	t.mu.RUnlock()

	for {
		_, messageBytes, err := conn.ReadMessage()
		if ctx.Err() != nil {
			handleClosure(nil)
			t.lg.Debug("websocket read loop exiting, context done")
			return
		} else if err != nil {
			handleClosure(fmt.Errorf("%w: %w", ErrReadingMessage, err))
			t.lg.Error("websocket read error", "error", err)
			return
		}

		var res Response
		if err := json.Unmarshal(messageBytes, &res); err != nil {
			t.lg.Warn("malformed message", "message", string(messageBytes), "error", err)
			continue
		}

		t.mu.Lock()
		responseSink, exists := t.responseSinks[res.ID]
		t.mu.Unlock()

		if !exists {
			// No pending request for this ID. Notification semantics are
			// out of scope, so the message is dropped.
			t.lg.Debug("dropping response with no pending request", "id", res.ID.String())
			continue
		}

		select {
		case <-ctx.Done():
			handleClosure(nil)
			return
		case responseSink <- res:
		default:
			// Sink already holds a response; a duplicate ID from the peer.
			t.lg.Warn("dropping duplicate response", "id", res.ID.String())
		}
	}
}

// SendRequest sends a request over the connection and waits for the
// response carrying the same ID. It is safe for concurrent use; callers
// issuing concurrent requests must use distinct IDs.
func (t *WebsocketTransport) SendRequest(ctx context.Context, req Request) (Response, error) {
	// Check the connection and register the response sink atomically.
	t.mu.Lock()
	if t.dialCtx == nil || t.dialCtx.ctx.Err() != nil {
		t.mu.Unlock()
		return Response{}, ErrNotConnected
	}
	if _, inFlight := t.responseSinks[req.ID]; inFlight {
		t.mu.Unlock()
		return Response{}, fmt.Errorf("%w: %s", ErrDuplicateID, req.ID.String())
	}
	conn := t.dialCtx.conn
	connCtx := t.dialCtx.ctx
	responseSink := make(chan Response, 1) // buffered so readMessages never blocks on delivery
	t.responseSinks[req.ID] = responseSink
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.responseSinks, req.ID)
		t.mu.Unlock()
	}()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMarshalingRequest, err)
	}

	// Websocket writes must be serialized.
	t.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, reqJSON)
	t.writeMu.Unlock()
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrSendingRequest, err)
	}

	select {
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w for request %s", ErrNoResponse, req.ID.String())
	case <-connCtx.Done():
		return Response{}, fmt.Errorf("%w for request %s", ErrNoResponse, req.ID.String())
	case res, ok := <-responseSink:
		if !ok {
			return Response{}, fmt.Errorf("%w for request %s", ErrNoResponse, req.ID.String())
		}
		return res, nil
	}
}
