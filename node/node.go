// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/unitroller/deploy"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/clock"
	"github.com/bureau-foundation/unitroller/lib/config"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/service"
	"github.com/bureau-foundation/unitroller/proxy"
)

// Options configures a Node.
type Options struct {
	Host *host.Host

	// Proxy is the proxy reported by "status" and read by "state"
	// requests that name none.
	Proxy address.Address

	// SnapshotFile is the default target of "snapshot" and of the
	// shutdown snapshot when Persist is set.
	SnapshotFile string
	Compression  host.Compression
	Persist      bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Node serves one host over a Unix socket.
type Node struct {
	host         *host.Host
	proxy        address.Address
	snapshotFile string
	compression  host.Compression
	persist      bool

	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time
}

// New wraps an existing host.
func New(options Options) *Node {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Node{
		host:         options.Host,
		proxy:        options.Proxy,
		snapshotFile: options.SnapshotFile,
		compression:  options.Compression,
		persist:      options.Persist,
		clock:        options.Clock,
		logger:       options.Logger.With("component", "node"),
		startedAt:    options.Clock.Now(),
	}
}

// Open builds a Node from configuration. The snapshot file is restored
// when it exists; otherwise the deployment file, if any, is applied to
// an empty host.
func Open(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*Node, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	compression, err := host.ParseCompression(cfg.Node.Compression)
	if err != nil {
		return nil, err
	}
	hostOptions := host.Options{Clock: clk, Logger: logger.With("component", "host")}

	h, restored, err := restore(cfg.Node.SnapshotFile, hostOptions)
	if err != nil {
		return nil, err
	}

	var unitroller address.Address
	switch {
	case restored:
		unitroller = findProxy(h)
		logger.Info("state restored",
			"snapshot", cfg.Node.SnapshotFile,
			"block", h.BlockNumber(),
			"proxy", unitroller,
		)
	case cfg.Deployment.File != "":
		h = host.New(hostOptions)
		deployment, err := deployFile(ctx, h, cfg.Deployment)
		if err != nil {
			return nil, err
		}
		unitroller = deployment.Proxy
	default:
		h = host.New(hostOptions)
		logger.Info("starting with an empty host")
	}

	return New(Options{
		Host:         h,
		Proxy:        unitroller,
		SnapshotFile: cfg.Node.SnapshotFile,
		Compression:  compression,
		Persist:      cfg.Node.Persist,
		Clock:        clk,
		Logger:       logger,
	}), nil
}

func restore(path string, options host.Options) (*host.Host, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	h, err := host.Import(file, deploy.CodeRegistry(), options)
	if err != nil {
		return nil, false, fmt.Errorf("restoring %s: %w", path, err)
	}
	return h, true, nil
}

func deployFile(ctx context.Context, h *host.Host, cfg config.DeploymentConfig) (*deploy.Deployment, error) {
	deployment, err := deploy.Load(cfg.File)
	if err != nil {
		return nil, err
	}
	result, err := deploy.Deploy(ctx, h, deployment, cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("deploying %s on %s: %w", cfg.File, cfg.Network, err)
	}
	return result, nil
}

// findProxy returns the only proxy account on h, or the zero address
// when there is none or more than one.
func findProxy(h *host.Host) address.Address {
	snapshot, err := h.Snapshot()
	if err != nil {
		return address.Zero
	}
	var found address.Address
	for _, account := range snapshot.Accounts {
		if account.Code != proxy.CodeName {
			continue
		}
		if !found.IsZero() {
			return address.Zero
		}
		found = account.Address
	}
	return found
}

// Host returns the node's host.
func (n *Node) Host() *host.Host { return n.host }

// Proxy returns the node's default proxy.
func (n *Node) Proxy() address.Address { return n.proxy }

// Register installs the node's actions on server.
func (n *Node) Register(server *service.SocketServer) {
	server.Handle("status", n.handleStatus)
	server.Handle("call", n.handleCall)
	server.Handle("view", n.handleView)
	server.Handle("state", n.handleState)
	server.Handle("logs", n.handleLogs)
	server.Handle("simulate", n.handleSimulate)
	server.Handle("snapshot", n.handleSnapshot)
}

// Serve listens on socketPath until ctx is cancelled. When the node
// persists, a snapshot is written after the server stops.
func (n *Node) Serve(ctx context.Context, socketPath string) error {
	server := service.NewSocketServer(socketPath, n.logger)
	n.Register(server)

	serveErr := server.Serve(ctx)
	if !n.persist {
		return serveErr
	}
	response, err := n.WriteSnapshot(n.snapshotFile, n.compression)
	if err != nil {
		return errors.Join(serveErr, fmt.Errorf("persisting state: %w", err))
	}
	n.logger.Info("state persisted", "path", response.Path, "block", response.Block, "digest", response.Digest)
	return serveErr
}

// WriteSnapshot exports the committed state to path. The file is
// replaced atomically.
func (n *Node) WriteSnapshot(path string, compression host.Compression) (SnapshotResponse, error) {
	if path == "" {
		return SnapshotResponse{}, errors.New("no snapshot path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return SnapshotResponse{}, err
	}
	temporary, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return SnapshotResponse{}, err
	}
	defer os.Remove(temporary.Name())

	block := n.host.BlockNumber()
	digest, err := n.host.Export(temporary, compression)
	if closeErr := temporary.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return SnapshotResponse{}, err
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return SnapshotResponse{}, err
	}
	return SnapshotResponse{Path: path, Block: block, Digest: hex.EncodeToString(digest[:])}, nil
}
