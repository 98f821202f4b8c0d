// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/clock"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

var (
	valueSlot     = SlotIndex(0)
	protectedSlot = SlotIndex(9)
)

// register is a small contract exercising every Frame capability.
type register struct{}

func (register) CodeName() string { return "Register" }

func (register) Execute(frame *Frame, input []byte) ([]byte, error) {
	id, payload, err := selector.Split(input)
	if err != nil {
		return nil, Revert("register: short input")
	}
	switch id {
	case selector.FromSignature("set(uint256)"):
		var value *big.Int
		if err := selector.Unpack(payload, &value); err != nil {
			return nil, err
		}
		if err := frame.StoreValue(valueSlot, value); err != nil {
			return nil, err
		}
		return nil, frame.Emit("Set", map[string]any{"value": value, "caller": frame.Caller()})

	case selector.FromSignature("get()"):
		value := new(big.Int)
		if _, err := frame.LoadValue(valueSlot, &value); err != nil {
			return nil, err
		}
		return codec.Marshal(value)

	case selector.FromSignature("setThenRevert(uint256)"):
		var value *big.Int
		if err := selector.Unpack(payload, &value); err != nil {
			return nil, err
		}
		if err := frame.StoreValue(valueSlot, value); err != nil {
			return nil, err
		}
		if err := frame.Emit("Set", map[string]any{"value": value}); err != nil {
			return nil, err
		}
		return nil, Revert("nope")

	case selector.FromSignature("forward(address,bytes)"):
		var target address.Address
		var inner []byte
		if err := selector.Unpack(payload, &target, &inner); err != nil {
			return nil, err
		}
		return frame.Call(target, inner)

	case selector.FromSignature("delegate(address,bytes)"):
		var target address.Address
		var inner []byte
		if err := selector.Unpack(payload, &target, &inner); err != nil {
			return nil, err
		}
		return frame.DelegateCall(target, inner, protectedSlot)

	case selector.FromSignature("writeProtected()"):
		return nil, frame.Store(protectedSlot, []byte{1})

	case selector.FromSignature("whoami()"):
		return codec.Marshal([]address.Address{frame.Caller(), frame.Self(), frame.Code()})

	case selector.FromSignature("recurse()"):
		return frame.Call(frame.Self(), input)
	}
	return nil, Revert("register: unknown selector")
}

var (
	deployer = address.FromLabel("deployer")
	user     = address.FromLabel("user")
	epoch    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestHost(t *testing.T) (*Host, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	return New(Options{Clock: fake}), fake
}

func deployRegister(t *testing.T, h *Host) address.Address {
	t.Helper()
	deployed, err := h.Deploy(context.Background(), deployer, register{}, nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	return deployed
}

func readValue(t *testing.T, h *Host, target address.Address) *big.Int {
	t.Helper()
	output, err := h.View(context.Background(), user, target, selector.MustPack("get()"))
	if err != nil {
		t.Fatalf("get(): %v", err)
	}
	var value *big.Int
	if err := codec.Unmarshal(output, &value); err != nil {
		t.Fatalf("decoding get(): %v", err)
	}
	return value
}

func TestDeployAssignsDerivedAddresses(t *testing.T) {
	h, _ := newTestHost(t)

	first := deployRegister(t, h)
	second := deployRegister(t, h)
	if first != address.Derive(deployer, 0) || second != address.Derive(deployer, 1) {
		t.Errorf("addresses %s, %s do not follow deployer nonces", first, second)
	}
	if h.Nonce(deployer) != 2 {
		t.Errorf("Nonce = %d, want 2", h.Nonce(deployer))
	}
	if h.BlockNumber() != 2 {
		t.Errorf("BlockNumber = %d, want 2", h.BlockNumber())
	}
}

func TestDeployConstructorFailureLeavesNoTrace(t *testing.T) {
	h, _ := newTestHost(t)

	_, err := h.Deploy(context.Background(), deployer, register{}, func(frame *Frame) error {
		if err := frame.Store(valueSlot, []byte{1}); err != nil {
			return err
		}
		return errors.New("constructor failed")
	})
	if err == nil {
		t.Fatal("Deploy succeeded with a failing constructor")
	}
	if _, ok := h.Code(address.Derive(deployer, 0)); ok {
		t.Error("account exists after failed construction")
	}
	if h.Nonce(deployer) != 0 {
		t.Errorf("Nonce = %d after failed construction, want 0", h.Nonce(deployer))
	}
}

func TestTransactCommitsStorageAndEvents(t *testing.T) {
	h, fake := newTestHost(t)
	target := deployRegister(t, h)
	fake.Advance(12 * time.Second)

	receipt, err := h.Transact(context.Background(), user, target, selector.MustPack("set(uint256)", big.NewInt(42)))
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if receipt.Block != 2 || !receipt.Time.Equal(epoch.Add(12*time.Second)) {
		t.Errorf("receipt block %d time %v", receipt.Block, receipt.Time)
	}
	if got := readValue(t, h, target); got.Int64() != 42 {
		t.Errorf("value = %s, want 42", got)
	}

	events := receipt.Named("Set")
	if len(events) != 1 || events[0].Address != target {
		t.Fatalf("receipt events = %+v", receipt.Logs)
	}
	var payload struct {
		Value  *big.Int        `cbor:"value"`
		Caller address.Address `cbor:"caller"`
	}
	if err := events[0].Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.Value.Int64() != 42 || payload.Caller != user {
		t.Errorf("payload = %+v", payload)
	}

	logged := h.Logs(LogFilter{Address: target, Names: []string{"Set"}})
	if diff := cmp.Diff(receipt.Logs, logged); diff != "" {
		t.Errorf("host log differs from receipt (-receipt +log):\n%s", diff)
	}
}

func TestRevertRollsBackFrame(t *testing.T) {
	h, _ := newTestHost(t)
	target := deployRegister(t, h)
	if _, err := h.Transact(context.Background(), user, target, selector.MustPack("set(uint256)", big.NewInt(7))); err != nil {
		t.Fatalf("set: %v", err)
	}

	receipt, err := h.Transact(context.Background(), user, target, selector.MustPack("setThenRevert(uint256)", big.NewInt(99)))
	if reason, ok := RevertReason(err); !ok || reason != "nope" {
		t.Fatalf("error = %v, want revert \"nope\"", err)
	}
	if receipt == nil || receipt.Succeeded() || len(receipt.Logs) != 0 {
		t.Errorf("reverted receipt = %+v", receipt)
	}
	if got := readValue(t, h, target); got.Int64() != 7 {
		t.Errorf("value after revert = %s, want 7", got)
	}
	if events := h.Logs(LogFilter{Names: []string{"Set"}}); len(events) != 1 {
		t.Errorf("%d Set events committed, want 1", len(events))
	}
}

func TestNestedRevertPayloadIsRelayedVerbatim(t *testing.T) {
	h, _ := newTestHost(t)
	outer := deployRegister(t, h)
	inner := deployRegister(t, h)

	innerInput := selector.MustPack("setThenRevert(uint256)", big.NewInt(1))
	_, err := h.Transact(context.Background(), user, outer,
		selector.MustPack("forward(address,bytes)", inner, innerInput))

	var revert *RevertError
	if !errors.As(err, &revert) {
		t.Fatalf("error = %v, want RevertError", err)
	}
	want := Revert("nope").(*RevertError)
	if !bytes.Equal(revert.Data, want.Data) {
		t.Errorf("payload = %x, want %x", revert.Data, want.Data)
	}
}

func TestDelegateCallUsesCallerStorageAndCaller(t *testing.T) {
	h, _ := newTestHost(t)
	proxyLike := deployRegister(t, h)
	logic := deployRegister(t, h)

	output, err := h.View(context.Background(), user, proxyLike,
		selector.MustPack("delegate(address,bytes)", logic, selector.MustPack("whoami()")))
	if err != nil {
		t.Fatalf("delegate whoami: %v", err)
	}
	var identities []address.Address
	if err := codec.Unmarshal(output, &identities); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	want := []address.Address{user, proxyLike, logic}
	if diff := cmp.Diff(want, identities); diff != "" {
		t.Errorf("caller/self/code (-want +got):\n%s", diff)
	}

	if _, err := h.Transact(context.Background(), user, proxyLike,
		selector.MustPack("delegate(address,bytes)", logic, selector.MustPack("set(uint256)", big.NewInt(5)))); err != nil {
		t.Fatalf("delegate set: %v", err)
	}
	if got := readValue(t, h, proxyLike); got.Int64() != 5 {
		t.Errorf("delegating account value = %s, want 5", got)
	}
	if got := readValue(t, h, logic); got.Sign() != 0 {
		t.Errorf("logic account value = %s, want 0", got)
	}
}

func TestDelegatedCodeCannotWriteProtectedSlot(t *testing.T) {
	h, _ := newTestHost(t)
	proxyLike := deployRegister(t, h)
	logic := deployRegister(t, h)

	_, err := h.Transact(context.Background(), user, proxyLike,
		selector.MustPack("delegate(address,bytes)", logic, selector.MustPack("writeProtected()")))
	if !errors.Is(err, ErrProtectedSlot) {
		t.Fatalf("error = %v, want ErrProtectedSlot", err)
	}
	if value := h.StorageAt(proxyLike, protectedSlot); value != nil {
		t.Errorf("protected slot = %x, want unset", value)
	}

	// The same write made directly is allowed.
	if _, err := h.Transact(context.Background(), user, proxyLike, selector.MustPack("writeProtected()")); err != nil {
		t.Fatalf("direct write: %v", err)
	}
}

func TestCallToAccountWithoutCode(t *testing.T) {
	h, _ := newTestHost(t)
	receipt, err := h.Transact(context.Background(), user, address.FromLabel("nobody"), []byte("anything"))
	if err != nil {
		t.Fatalf("Transact to EOA: %v", err)
	}
	if len(receipt.Return) != 0 {
		t.Errorf("Return = %x, want empty", receipt.Return)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	h, _ := newTestHost(t)
	target := deployRegister(t, h)
	before := h.BlockNumber()

	_, err := h.View(context.Background(), user, target, selector.MustPack("set(uint256)", big.NewInt(3)))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("View(set) error = %v, want ErrReadOnly", err)
	}
	if h.BlockNumber() != before {
		t.Error("View produced a block")
	}
}

func TestBatchIsAtomic(t *testing.T) {
	h, _ := newTestHost(t)
	target := deployRegister(t, h)

	abort := errors.New("abort")
	_, err := h.Batch(context.Background(), user, func(tx *Tx) error {
		if _, err := tx.Call(target, selector.MustPack("set(uint256)", big.NewInt(11))); err != nil {
			return err
		}
		if len(tx.Logs()) != 1 {
			t.Errorf("in-batch logs = %d, want 1", len(tx.Logs()))
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("Batch error = %v, want abort", err)
	}
	if got := readValue(t, h, target); got.Sign() != 0 {
		t.Errorf("value after aborted batch = %s, want 0", got)
	}

	receipt, err := h.Batch(context.Background(), user, func(tx *Tx) error {
		for _, value := range []int64{1, 2} {
			if _, err := tx.Call(target, selector.MustPack("set(uint256)", big.NewInt(value))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(receipt.Logs) != 2 {
		t.Errorf("batch receipt logs = %d, want 2", len(receipt.Logs))
	}
	if got := readValue(t, h, target); got.Int64() != 2 {
		t.Errorf("value = %s, want 2", got)
	}
}

func TestCallDepthIsBounded(t *testing.T) {
	h, _ := newTestHost(t)
	target := deployRegister(t, h)
	_, err := h.Transact(context.Background(), user, target, selector.MustPack("recurse()"))
	if !errors.Is(err, ErrCallDepth) {
		t.Errorf("error = %v, want ErrCallDepth", err)
	}
}

func TestCancelledContext(t *testing.T) {
	h, _ := newTestHost(t)
	target := deployRegister(t, h)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Transact(ctx, user, target, selector.MustPack("get()")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDeriveSlotIsDisjointFromIndexedSlots(t *testing.T) {
	derived := DeriveSlot("markets", address.FromLabel("vBNB").Bytes())
	for i := range uint64(16) {
		if derived == SlotIndex(i) {
			t.Fatalf("derived slot collides with index %d", i)
		}
	}
	if derived == DeriveSlot("markets", address.FromLabel("vETH").Bytes()) {
		t.Error("different keys derived the same slot")
	}
	// Length prefixing keeps ("ab","c") and ("a","bc") apart.
	if DeriveSlot("n", []byte("ab"), []byte("c")) == DeriveSlot("n", []byte("a"), []byte("bc")) {
		t.Error("key boundaries are ambiguous")
	}
}
