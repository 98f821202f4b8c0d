// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/unitroller/lib/codec"
)

const (
	// dialTimeout covers only the connect phase.
	dialTimeout = 5 * time.Second

	// responseTimeout is the default wait for a response after the
	// request is written: the server's handler and write timeouts plus
	// slack. A context deadline shortens it.
	responseTimeout = handlerTimeout + writeTimeout + 5*time.Second

	// maxResponseSize bounds one CBOR response. Log queries over a
	// long history are the largest.
	maxResponseSize = 16 * 1024 * 1024
)

// ServiceError is returned by Call when the server answers ok=false.
// Transport and encoding failures are plain errors.
type ServiceError struct {
	Action    string
	RequestID string
	Message   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q (request %s): %s", e.Action, e.RequestID, e.Message)
}

// ServiceClient calls a service socket, one connection per call.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient creates a client for the socket at socketPath.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// SocketPath returns the socket the client dials.
func (c *ServiceClient) SocketPath() string { return c.socketPath }

// Call sends action with fields and decodes the response data into
// result. fields must not contain "action" or "request_id"; both are
// set by Call. result may be nil when the caller only needs success.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	requestID := uuid.NewString()
	request := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	request["request_id"] = requestID

	response, err := c.roundTrip(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, RequestID: requestID, Message: response.Error}
	}
	if result == nil || len(response.Data) == 0 {
		return nil
	}
	if err := codec.Unmarshal(response.Data, result); err != nil {
		return fmt.Errorf("decoding %q response: %w", action, err)
	}
	return nil
}

func (c *ServiceClient) roundTrip(ctx context.Context, request map[string]any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	// Half-close so the server reads a clean end of request.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	deadline := time.Now().Add(responseTimeout)
	if contextDeadline, ok := ctx.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	conn.SetReadDeadline(deadline)

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
