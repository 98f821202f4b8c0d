// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/unitroller/deploy"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/clock"
	"github.com/bureau-foundation/unitroller/lib/config"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/lib/service"
	"github.com/bureau-foundation/unitroller/lib/testutil"
	"github.com/bureau-foundation/unitroller/modules/marketregistry"
	"github.com/bureau-foundation/unitroller/proxy"
)

const deploymentYAML = `
deployer: deployer
networks:
  local:
    treasury: "0x00000000000000000000000000000000000000aa"
    access_control: "0x00000000000000000000000000000000000000bb"
modules:
  - name: comptroller
    code: MarketRegistry
    initializer: initialize(address,address)
    args: ["${treasury}", "${access_control}"]
`

var (
	deployer = address.FromLabel("deployer")
	vTRX     = address.MustParse("0xC5D3466aA484B040eE977073fcF337f2c00071c1")
	testTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func deployedHost(t *testing.T) (*host.Host, address.Address) {
	t.Helper()
	cfg, err := deploy.Parse([]byte(deploymentYAML))
	if err != nil {
		t.Fatalf("deploy.Parse: %v", err)
	}
	h := host.New(host.Options{Clock: clock.Fake(testTime), Logger: testLogger()})
	deployment, err := deploy.Deploy(context.Background(), h, cfg, "local")
	if err != nil {
		t.Fatalf("deploy.Deploy: %v", err)
	}
	return h, deployment.Proxy
}

// startNode serves a node over a socket until the test ends.
func startNode(t *testing.T, n *Node) *Client {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "node.sock")
	server := service.NewSocketServer(socketPath, testLogger())
	n.Register(server)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "node socket ready")
	return NewClient(socketPath)
}

func newTestNode(t *testing.T) (*Node, *Client) {
	t.Helper()
	h, unitroller := deployedHost(t)
	n := New(Options{
		Host:         h,
		Proxy:        unitroller,
		SnapshotFile: filepath.Join(t.TempDir(), "node.snapshot"),
		Compression:  host.CompressionZstd,
		Clock:        clock.Fake(testTime),
		Logger:       testLogger(),
	})
	return n, startNode(t, n)
}

func TestStatusAndState(t *testing.T) {
	n, client := newTestNode(t)
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Proxy != n.Proxy() || status.Block != n.Host().BlockNumber() {
		t.Errorf("status = %+v", status)
	}

	state, err := client.State(ctx, address.Zero)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Admin != deployer || state.Implementation.IsZero() || !state.PendingImplementation.IsZero() {
		t.Errorf("state = %+v", state)
	}
}

func TestAdminHandoffOverSocket(t *testing.T) {
	n, client := newTestNode(t)
	ctx := context.Background()
	timelock := address.FromLabel(testutil.UniqueID("timelock"))

	result, _, err := client.Administer(ctx, deployer, n.Proxy(), proxy.SignatureSetPendingAdmin, timelock)
	if err != nil || !result.OK() {
		t.Fatalf("propose admin: %v %v", result, err)
	}

	result, transaction, err := client.Administer(ctx, address.FromLabel("intruder"), n.Proxy(), proxy.SignatureAcceptAdmin)
	if err != nil {
		t.Fatalf("accept by intruder: %v", err)
	}
	if result.Code != errorreporter.Unauthorized || result.Failure == nil ||
		result.Failure.Info != errorreporter.AcceptAdminPendingAdminCheck {
		t.Errorf("intruder accept result = %v", result)
	}
	if transaction.Reverted {
		t.Error("a rejected accept must not revert")
	}

	result, _, err = client.Administer(ctx, timelock, n.Proxy(), proxy.SignatureAcceptAdmin)
	if err != nil || !result.OK() {
		t.Fatalf("accept admin: %v %v", result, err)
	}
	state, err := client.State(ctx, n.Proxy())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Admin != timelock || !state.PendingAdmin.IsZero() {
		t.Errorf("state = %+v", state)
	}
}

func TestCallRevertIsAResult(t *testing.T) {
	n, client := newTestNode(t)
	blockBefore := n.Host().BlockNumber()

	input := selector.MustPack(marketregistry.SignatureSetBorrowCaps,
		[]address.Address{vTRX}, []*big.Int{big.NewInt(1), big.NewInt(2)})
	transaction, err := client.Call(context.Background(), deployer, n.Proxy(), input)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !transaction.Reverted || transaction.RevertReason != "invalid input" {
		t.Errorf("transaction = %+v", transaction)
	}
	if len(transaction.Logs) != 0 {
		t.Errorf("reverted transaction kept %d logs", len(transaction.Logs))
	}
	if transaction.Block != blockBefore+1 {
		t.Errorf("reverted transaction in block %d, want %d", transaction.Block, blockBefore+1)
	}
}

func TestViewRevertIsAnError(t *testing.T) {
	n, client := newTestNode(t)
	ctx := context.Background()

	output, err := client.View(ctx, address.Zero, n.Proxy(), selector.MustPack(marketregistry.SignatureTreasury))
	if err != nil {
		t.Fatalf("View treasury: %v", err)
	}
	if len(output) == 0 {
		t.Error("treasury view returned nothing")
	}

	input := selector.MustPack(marketregistry.SignatureSetSupplyCaps, []address.Address{vTRX}, []*big.Int{})
	_, err = client.View(ctx, deployer, n.Proxy(), input)
	var revert *host.RevertError
	if !errors.As(err, &revert) {
		t.Fatalf("error = %v, want a *host.RevertError", err)
	}
	if reason, _ := host.RevertReason(err); reason != "invalid input" {
		t.Errorf("revert reason = %q, want %q", reason, "invalid input")
	}

	// Aborts that are not reverts stay request errors.
	_, err = client.View(ctx, deployer, n.Proxy(), selector.MustPack(marketregistry.SignatureSupportMarket, vTRX))
	var serviceErr *service.ServiceError
	if errors.As(err, &revert) || !errors.As(err, &serviceErr) {
		t.Errorf("state-modifying view: error = %v, want a ServiceError", err)
	}
}

// rawReverter is a logic module that aborts every forwarded call with
// a payload that is not a string reason.
type rawReverter struct{}

var rawRevertPayload = []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}

func (rawReverter) Execute(frame *host.Frame, input []byte) ([]byte, error) {
	id, payload, err := selector.Split(input)
	if err == nil && id == selector.FromSignature("become(address)") {
		var unitroller address.Address
		if err := selector.Unpack(payload, &unitroller); err != nil {
			return nil, err
		}
		return frame.Call(unitroller, selector.MustPack(proxy.SignatureAcceptImplementation))
	}
	return nil, &host.RevertError{Data: rawRevertPayload}
}

func TestRevertPayloadIsRelayedVerbatim(t *testing.T) {
	n, client := newTestNode(t)
	ctx := context.Background()
	owner := address.FromLabel(testutil.UniqueID("owner"))

	unitroller, err := proxy.Deploy(ctx, n.Host(), owner)
	if err != nil {
		t.Fatalf("proxy.Deploy: %v", err)
	}
	module, err := n.Host().Deploy(ctx, owner, rawReverter{}, nil)
	if err != nil {
		t.Fatalf("deploying module: %v", err)
	}
	result, _, err := proxy.NewClient(n.Host(), unitroller).ProposeNewImplementation(ctx, owner, module)
	if err != nil || !result.OK() {
		t.Fatalf("propose implementation: %v %v", result, err)
	}
	if _, err := n.Host().Transact(ctx, owner, module, selector.MustPack("become(address)", unitroller)); err != nil {
		t.Fatalf("become: %v", err)
	}

	input := selector.MustPack("anything()")

	transaction, err := client.Call(ctx, owner, unitroller, input)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !transaction.Reverted || transaction.RevertReason != "" {
		t.Errorf("transaction = %+v, want a revert without a string reason", transaction)
	}
	if diff := cmp.Diff(rawRevertPayload, transaction.RevertData); diff != "" {
		t.Errorf("call revert data (-want +got):\n%s", diff)
	}

	_, err = client.View(ctx, owner, unitroller, input)
	var revert *host.RevertError
	if !errors.As(err, &revert) {
		t.Fatalf("View error = %v, want a *host.RevertError", err)
	}
	if diff := cmp.Diff(rawRevertPayload, revert.Data); diff != "" {
		t.Errorf("view revert data (-want +got):\n%s", diff)
	}
}

func TestLogsFilter(t *testing.T) {
	n, client := newTestNode(t)

	events, err := client.Logs(context.Background(), host.LogFilter{
		Address: n.Proxy(),
		Names:   []string{proxy.EventNewImplementation, marketregistry.EventInitialized},
	})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("%d events, want NewImplementation and Initialized", len(events))
	}
	if events[0].Name != proxy.EventNewImplementation || events[1].Name != marketregistry.EventInitialized {
		t.Errorf("events = %s, %s", events[0].Name, events[1].Name)
	}
}

func TestSimulateOverSocket(t *testing.T) {
	n, client := newTestNode(t)
	blockBefore := n.Host().BlockNumber()

	proposal := `{
		// List TRX.
		"meta": {"title": "List TRX"},
		"actions": [
			{"target": "0x00000000000000000000000000000000000000fd", "signature": "_supportMarket(address)",
			 "params": ["0xC5D3466aA484B040eE977073fcF337f2c00071c1"]},
		],
		"checks": {
			"post": [{
				"name": "TRX listed",
				"target": "0x00000000000000000000000000000000000000fd",
				"signature": "markets(address)",
				"params": ["0xC5D3466aA484B040eE977073fcF337f2c00071c1"],
				"field": "is_listed",
				"returns": "bool",
				"equals": true,
			}],
		},
	}`
	response, err := client.Simulate(context.Background(), SimulateRequest{
		Proposal: []byte(proposal),
		Executor: deployer,
		Retarget: []Retarget{{From: address.MustParse("0x00000000000000000000000000000000000000fd"), To: n.Proxy()}},
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !response.Passed {
		t.Errorf("simulation failed: %+v", response)
	}
	if len(response.Actions) != 1 || response.Actions[0].Code != errorreporter.NoError.String() {
		t.Errorf("actions = %+v", response.Actions)
	}
	if n.Host().BlockNumber() != blockBefore {
		t.Error("simulation changed the node's host")
	}

	_, err = client.Simulate(context.Background(), SimulateRequest{Proposal: []byte(`{"meta": {}}`), Executor: deployer})
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Errorf("invalid proposal error = %v, want ServiceError", err)
	}
}

func TestSnapshotActionRoundtrip(t *testing.T) {
	n, client := newTestNode(t)
	path := filepath.Join(t.TempDir(), "exported.snapshot")

	response, err := client.Snapshot(context.Background(), SnapshotRequest{Path: path, Compression: "lz4"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if response.Path != path || response.Block != n.Host().BlockNumber() || len(response.Digest) != 64 {
		t.Errorf("response = %+v", response)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer file.Close()
	restored, err := host.Import(file, deploy.CodeRegistry(), host.Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored.BlockNumber() != n.Host().BlockNumber() {
		t.Errorf("restored block %d, want %d", restored.BlockNumber(), n.Host().BlockNumber())
	}
	if got := findProxy(restored); got != n.Proxy() {
		t.Errorf("findProxy = %s, want %s", got, n.Proxy())
	}

	if _, err := client.Snapshot(context.Background(), SnapshotRequest{Path: path, Compression: "brotli"}); err == nil {
		t.Error("unknown compression accepted")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	directory := t.TempDir()
	deploymentPath := filepath.Join(directory, "deploy.yaml")
	if err := os.WriteFile(deploymentPath, []byte(deploymentYAML), 0644); err != nil {
		t.Fatalf("writing deployment: %v", err)
	}
	cfg := config.Default()
	cfg.Paths.Root = directory
	cfg.Paths.State = filepath.Join(directory, "state")
	cfg.Node.SocketPath = filepath.Join(testutil.SocketDir(t), "node.sock")
	cfg.Node.SnapshotFile = filepath.Join(directory, "state", "node.snapshot")
	cfg.Deployment = config.DeploymentConfig{File: deploymentPath, Network: "local"}
	return cfg
}

func TestOpenDeploysThenRestores(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := Open(ctx, cfg, clock.Fake(testTime), testLogger())
	if err != nil {
		t.Fatalf("Open (deploy): %v", err)
	}
	if first.Proxy().IsZero() {
		t.Fatal("deployed node has no proxy")
	}
	if _, err := first.WriteSnapshot(cfg.Node.SnapshotFile, host.CompressionZstd); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	second, err := Open(ctx, cfg, clock.Fake(testTime), testLogger())
	if err != nil {
		t.Fatalf("Open (restore): %v", err)
	}
	if second.Proxy() != first.Proxy() {
		t.Errorf("restored proxy %s, want %s", second.Proxy(), first.Proxy())
	}
	if second.Host().BlockNumber() != first.Host().BlockNumber() {
		t.Errorf("restored block %d, want %d", second.Host().BlockNumber(), first.Host().BlockNumber())
	}
}

func TestOpenRejectsCorruptSnapshot(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(filepath.Dir(cfg.Node.SnapshotFile), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Node.SnapshotFile, []byte("not a snapshot"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), cfg, nil, testLogger()); err == nil {
		t.Error("Open accepted a corrupt snapshot")
	}
}

func TestServePersistsOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Node.Persist = true
	n, err := Open(context.Background(), cfg, clock.Fake(testTime), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Serve(ctx, cfg.Node.SocketPath) }()
	for {
		if _, err := os.Stat(cfg.Node.SocketPath); err == nil {
			break
		}
		if t.Context().Err() != nil {
			t.Fatal("node socket did not appear")
		}
		runtime.Gosched()
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve return"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if _, err := os.Stat(cfg.Node.SnapshotFile); err != nil {
		t.Errorf("no snapshot after shutdown: %v", err)
	}
}
