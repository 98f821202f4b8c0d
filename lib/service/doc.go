// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix socket transport used by the
// unitroller node and its command-line clients.
//
// The protocol is one CBOR request and one CBOR response per
// connection. A request is a CBOR map with an "action" field plus
// action-specific fields; the response is a [Response] envelope
// carrying ok, an error message, or CBOR data. [SocketServer]
// dispatches requests to registered [ActionFunc] handlers and shuts
// down gracefully when its context is cancelled. [ServiceClient]
// opens one connection per call and maps ok=false responses to
// [*ServiceError].
//
// Socket-level caller authentication is not implemented: filesystem
// permissions on the socket determine who can reach the node.
package service
