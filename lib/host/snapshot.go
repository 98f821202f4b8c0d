// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
)

// CodeRegistry maps code names to constructors for snapshot import.
type CodeRegistry map[string]func() Contract

// Snapshot is the serializable state of a Host.
type Snapshot struct {
	Block     uint64            `cbor:"block"`
	BlockTime int64             `cbor:"block_time"`
	Accounts  []AccountSnapshot `cbor:"accounts"`
	Nonces    []NonceSnapshot   `cbor:"nonces"`
	Logs      []Event           `cbor:"logs"`
}

// AccountSnapshot is one contract account, storage sorted by slot.
type AccountSnapshot struct {
	Address address.Address `cbor:"address"`
	Code    string          `cbor:"code"`
	Storage []StorageEntry  `cbor:"storage"`
}

// StorageEntry is one non-empty slot.
type StorageEntry struct {
	Slot  Slot   `cbor:"slot"`
	Value []byte `cbor:"value"`
}

// NonceSnapshot is one deployer's nonce.
type NonceSnapshot struct {
	Deployer address.Address `cbor:"deployer"`
	Nonce    uint64          `cbor:"nonce"`
}

// Snapshot captures the committed state. Every deployed contract must
// implement Named.
func (h *Host) Snapshot() (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := &Snapshot{
		Block: h.block,
		Logs:  slices.Clone(h.logs),
	}
	if !h.blockTime.IsZero() {
		result.BlockTime = h.blockTime.UnixNano()
	}

	for _, target := range sortedAddresses(h.accounts) {
		acct := h.accounts[target]
		named, ok := acct.code.(Named)
		if !ok {
			return nil, fmt.Errorf("contract at %s (%T) has no code name", target, acct.code)
		}
		entry := AccountSnapshot{Address: target, Code: named.CodeName()}
		slots := slices.SortedFunc(maps.Keys(acct.storage), func(a, b Slot) int {
			return bytes.Compare(a[:], b[:])
		})
		for _, slot := range slots {
			entry.Storage = append(entry.Storage, StorageEntry{Slot: slot, Value: bytes.Clone(acct.storage[slot])})
		}
		result.Accounts = append(result.Accounts, entry)
	}

	for _, deployer := range sortedAddresses(h.nonces) {
		result.Nonces = append(result.Nonces, NonceSnapshot{Deployer: deployer, Nonce: h.nonces[deployer]})
	}
	return result, nil
}

// Fork returns an independent Host with a copy of the committed state.
// Contract code values are shared, so contracts must keep all mutable
// state in storage.
func (h *Host) Fork() *Host {
	h.mu.Lock()
	defer h.mu.Unlock()

	fork := &Host{
		clock:     h.clock,
		logger:    h.logger.With("fork", true),
		accounts:  make(map[address.Address]*account, len(h.accounts)),
		nonces:    maps.Clone(h.nonces),
		block:     h.block,
		blockTime: h.blockTime,
		logs:      slices.Clone(h.logs),
	}
	for target, acct := range h.accounts {
		storage := make(map[Slot][]byte, len(acct.storage))
		for slot, value := range acct.storage {
			storage[slot] = bytes.Clone(value)
		}
		fork.accounts[target] = &account{code: acct.code, storage: storage}
	}
	return fork
}

// Restore builds a Host from a snapshot, instantiating code through
// registry.
func Restore(snapshot *Snapshot, registry CodeRegistry, options Options) (*Host, error) {
	h := New(options)
	h.block = snapshot.Block
	if snapshot.BlockTime != 0 {
		h.blockTime = time.Unix(0, snapshot.BlockTime).UTC()
	}
	h.logs = slices.Clone(snapshot.Logs)
	for _, entry := range snapshot.Accounts {
		constructor, ok := registry[entry.Code]
		if !ok {
			return nil, fmt.Errorf("account %s: unknown code %q", entry.Address, entry.Code)
		}
		if _, exists := h.accounts[entry.Address]; exists {
			return nil, fmt.Errorf("account %s appears twice", entry.Address)
		}
		storage := make(map[Slot][]byte, len(entry.Storage))
		for _, item := range entry.Storage {
			storage[item.Slot] = bytes.Clone(item.Value)
		}
		h.accounts[entry.Address] = &account{code: constructor(), storage: storage}
	}
	for _, entry := range snapshot.Nonces {
		h.nonces[entry.Deployer] = entry.Nonce
	}
	return h, nil
}

// Snapshot file layout:
//
//	magic      [8]byte  "UNTRSNAP"
//	version    uint8
//	compression uint8
//	digest     [32]byte BLAKE3 (keyed) of the uncompressed payload
//	size       uint64   uncompressed payload length
//	length     uint64   stored payload length
//	payload    [length]byte
const (
	snapshotVersion   = 1
	snapshotHeaderLen = 8 + 1 + 1 + 32 + 8 + 8

	// maxSnapshotSize bounds allocations when reading untrusted files.
	maxSnapshotSize = 1 << 30
)

var snapshotMagic = [8]byte{'U', 'N', 'T', 'R', 'S', 'N', 'A', 'P'}

var snapshotDomainKey = [32]byte{
	'u', 'n', 'i', 't', 'r', 'o', 'l', 'l', 'e', 'r', '.', 'h', 'o', 's', 't', '.',
	's', 'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0,
}

// ErrSnapshotCorrupt is returned by Import when the header is invalid
// or the payload digest does not match.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

// Export writes the committed state to w. Compression falls back to
// none when it would not shrink the payload. It returns the digest of
// the uncompressed payload.
func (h *Host) Export(w io.Writer, requested Compression) ([32]byte, error) {
	snapshot, err := h.Snapshot()
	if err != nil {
		return [32]byte{}, err
	}
	payload, err := codec.Marshal(snapshot)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	digest := snapshotDigest(payload)

	stored, applied, err := compress(payload, requested)
	if err != nil {
		return [32]byte{}, err
	}

	var header [snapshotHeaderLen]byte
	copy(header[0:8], snapshotMagic[:])
	header[8] = snapshotVersion
	header[9] = byte(applied)
	copy(header[10:42], digest[:])
	binary.BigEndian.PutUint64(header[42:50], uint64(len(payload)))
	binary.BigEndian.PutUint64(header[50:58], uint64(len(stored)))

	if _, err := w.Write(header[:]); err != nil {
		return [32]byte{}, fmt.Errorf("writing snapshot header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return [32]byte{}, fmt.Errorf("writing snapshot payload: %w", err)
	}
	return digest, nil
}

// Import reads a snapshot written by Export and restores it.
func Import(r io.Reader, registry CodeRegistry, options Options) (*Host, error) {
	var header [snapshotHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if !bytes.Equal(header[0:8], snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrSnapshotCorrupt)
	}
	if header[8] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSnapshotCorrupt, header[8])
	}
	applied := Compression(header[9])
	var digest [32]byte
	copy(digest[:], header[10:42])
	size := binary.BigEndian.Uint64(header[42:50])
	length := binary.BigEndian.Uint64(header[50:58])
	if size > maxSnapshotSize || length > maxSnapshotSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds limit", ErrSnapshotCorrupt, max(size, length))
	}

	stored := make([]byte, length)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}
	payload, err := decompress(stored, applied, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if snapshotDigest(payload) != digest {
		return nil, fmt.Errorf("%w: digest mismatch", ErrSnapshotCorrupt)
	}

	var snapshot Snapshot
	if err := codec.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return Restore(&snapshot, registry, options)
}

func snapshotDigest(payload []byte) [32]byte {
	hasher, err := blake3.NewKeyed(snapshotDomainKey[:])
	if err != nil {
		panic("host: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var result [32]byte
	copy(result[:], hasher.Sum(nil))
	return result
}

func sortedAddresses[V any](m map[address.Address]V) []address.Address {
	return slices.SortedFunc(maps.Keys(m), func(a, b address.Address) int {
		return bytes.Compare(a[:], b[:])
	})
}
