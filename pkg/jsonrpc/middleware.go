package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/meshline/jsonrpc/pkg/log"
)

// Middleware decorates a Transport. Middleware must preserve the transport
// contract: one request in, one response or error out, no retries.
type Middleware func(next Transport) Transport

// Chain combines multiple middleware into one. The first middleware in the
// list is the outermost: Chain(a, b)(t) routes requests a → b → t.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Transport) Transport {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// LoggingMiddleware logs every call with its method, ID, duration and
// outcome.
func LoggingMiddleware(lg log.Logger) Middleware {
	lg = lg.WithName("transport")
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req Request) (Response, error) {
			start := time.Now()
			res, err := next.SendRequest(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				lg.Error("call failed", "method", req.Method, "id", req.ID.String(), "elapsed", elapsed, "error", err)
				return res, err
			}

			lg.Debug("call completed", "method", req.Method, "id", req.ID.String(), "elapsed", elapsed, "isError", res.Payload.IsError())
			return res, nil
		})
	}
}

// ErrRateLimited is returned when the rate limiter rejects a call, e.g.
// because the context was cancelled while waiting for a token.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware throttles outgoing calls with the given limiter.
// Waiting for a token respects the call's context.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req Request) (Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return Response{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
			return next.SendRequest(ctx, req)
		})
	}
}
