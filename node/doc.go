// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package node runs an execution host as a long-lived service on a
// Unix socket.
//
// A node owns one [host.Host]. [Open] builds it from configuration: a
// saved snapshot is restored when one exists, otherwise the configured
// deployment file is applied to an empty host. [Node.Serve] registers
// the socket actions and blocks until its context is cancelled, then
// persists a snapshot when configured to.
//
// Socket actions:
//
//   - status -- block height, uptime, and the proxy address
//   - call -- execute a transaction; aborts are reported in the result
//   - view -- read-only call; an abort is a request error
//   - state -- the four control slots of a proxy
//   - logs -- committed events matching a filter
//   - simulate -- run a governance proposal against a fork
//   - snapshot -- export the committed state to a file
//
// [Client] is the typed client for these actions.
package node
