// Package wsrouter dispatches typed websocket messages to handlers.
package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	onError     ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]route)}
}

// Use appends middlewares. They wrap every handler, first added outermost.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// OnError sets the callback for handler, decode and routing errors. Such errors
// do not end ServeConn.
func (r *WSRouter) OnError(h ErrorHandler) {
	r.onError = h
}

// Handle registers handler for messageType. The payload is decoded into T.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(payload json.RawMessage) (any, error) {
			var input T
			if len(payload) == 0 || string(payload) == "null" {
				return input, nil
			}
			if err := json.Unmarshal(payload, &input); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
			return input, nil
		},
		handler: func(ctx context.Context, conn *websocket.Conn, input any) error {
			return handler(ctx, conn, input.(T))
		},
	}
}

func (r *WSRouter) wrap(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

func (r *WSRouter) fail(ctx context.Context, conn *websocket.Conn, err error) {
	if r.onError != nil {
		r.onError(ctx, conn, err)
	}
}

// ServeConn reads messages until the connection fails and returns that read error.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			// a broken connection surfaces again from the next read
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
				r.fail(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
				continue
			}
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		rt, ok := r.routes[msg.Type]
		if !ok {
			r.fail(msgCtx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			continue
		}

		input, err := rt.decode(msg.Payload)
		if err != nil {
			r.fail(msgCtx, conn, err)
			continue
		}

		if err := r.wrap(rt.handler)(msgCtx, conn, input); err != nil {
			r.fail(msgCtx, conn, err)
		}
	}
}
