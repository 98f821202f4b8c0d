// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/unitroller/lib/codec"
)

// ActionFunc handles one request. raw is the complete CBOR request
// map, "action" and "request_id" included; the handler decodes its own
// fields from it.
//
// A nil result produces {ok: true}. A non-nil result is marshaled into
// the response's data field. An error produces {ok: false} with the
// error text.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope of every reply.
type Response struct {
	OK        bool             `cbor:"ok"`
	RequestID string           `cbor:"request_id,omitempty"`
	Error     string           `cbor:"error,omitempty"`
	Data      codec.RawMessage `cbor:"data,omitempty"`
}

// requestHeader is the routing part of a request. RequestID is chosen
// by the client to correlate its logs with the node's; the server
// assigns one when it is absent.
type requestHeader struct {
	Action    string `cbor:"action"`
	RequestID string `cbor:"request_id"`
}

const (
	// readTimeout bounds how long a client may take to send its
	// request after connecting.
	readTimeout = 30 * time.Second

	// writeTimeout bounds writing the response.
	writeTimeout = 10 * time.Second

	// handlerTimeout bounds one handler. Simulating a proposal is the
	// slowest action.
	handlerTimeout = 30 * time.Second

	// maxRequestSize bounds one CBOR request. Proposals and calldata
	// are far smaller.
	maxRequestSize = 1024 * 1024

	// maxConcurrentRequests bounds in-flight handlers. Further
	// connections wait in the listen backlog.
	maxConcurrentRequests = 64
)

// SocketServer serves one CBOR request and one CBOR response per
// connection on a Unix socket. Register every action with Handle,
// then call Serve.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	serving   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once

	slots    chan struct{}
	inFlight sync.WaitGroup
}

// NewSocketServer creates a server for socketPath.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger.With("socket", socketPath),
		ready:      make(chan struct{}),
		slots:      make(chan struct{}, maxConcurrentRequests),
	}
}

// Handle registers handler for action. It panics on a duplicate
// action or once Serve has started.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if s.serving.Load() {
		panic(fmt.Sprintf("service.SocketServer: Handle(%q) after Serve", action))
	}
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Actions returns the registered action names in sorted order.
func (s *SocketServer) Actions() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ready is closed once Serve is accepting connections.
func (s *SocketServer) Ready() <-chan struct{} { return s.ready }

// Serve listens until ctx is cancelled, then stops accepting and
// waits for in-flight requests. A stale socket file is replaced, and
// the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("service.SocketServer: Serve called twice")
	}
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer os.Remove(s.socketPath)
	defer listener.Close()

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("socket server listening", "actions", s.Actions())
	s.readyOnce.Do(func() { close(s.ready) })

	s.acceptLoop(ctx, listener)
	s.inFlight.Wait()
	s.logger.Info("socket server stopped")
	return nil
}

func (s *SocketServer) listen() (net.Listener, error) {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	return listener, nil
}

func (s *SocketServer) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			<-s.slots
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.inFlight.Add(1)
		go func() {
			defer func() {
				<-s.slots
				s.inFlight.Done()
			}()
			s.serveConn(ctx, conn)
		}()
	}
}

// serveConn runs one request-response cycle.
func (s *SocketServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	raw, header, err := readRequest(conn)
	if errors.Is(err, io.EOF) {
		// Connected and sent nothing: a liveness probe.
		return
	}
	if header.RequestID == "" {
		header.RequestID = uuid.NewString()
	}
	logger := s.logger.With("action", header.Action, "request_id", header.RequestID)
	if err != nil {
		logger.Debug("rejected request", "error", err)
		s.respond(conn, logger, Response{RequestID: header.RequestID, Error: err.Error()})
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.respond(conn, logger, Response{
			RequestID: header.RequestID,
			Error:     fmt.Sprintf("unknown action %q", header.Action),
		})
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	started := time.Now()
	result, err := handler(handlerCtx, raw)
	elapsed := time.Since(started)
	if err != nil {
		logger.Debug("action failed", "error", err, "elapsed", elapsed)
		s.respond(conn, logger, Response{RequestID: header.RequestID, Error: err.Error()})
		return
	}
	logger.Debug("action completed", "elapsed", elapsed)

	response := Response{OK: true, RequestID: header.RequestID}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			logger.Error("marshaling response", "error", err)
			response = Response{
				RequestID: header.RequestID,
				Error:     fmt.Sprintf("internal: marshaling response: %v", err),
			}
		} else {
			response.Data = data
		}
	}
	s.respond(conn, logger, response)
}

// readRequest decodes one request and its routing header. CBOR is
// self-delimiting, so the value needs no framing.
func readRequest(conn net.Conn) (codec.RawMessage, requestHeader, error) {
	var header requestHeader
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, header, err
		}
		return nil, header, fmt.Errorf("invalid request: %w", err)
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		return nil, header, fmt.Errorf("invalid request: %w", err)
	}
	if header.Action == "" {
		return nil, header, errors.New("missing required field: action")
	}
	return raw, header, nil
}

// respond writes the response. Write failures are logged at debug
// level since the connection is closing either way.
func (s *SocketServer) respond(conn net.Conn, logger *slog.Logger, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		logger.Debug("writing response", "error", err)
	}
}
