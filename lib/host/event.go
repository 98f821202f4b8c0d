// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
)

// Event is one emitted notification. Address is the storage context
// that emitted it: events raised by delegated module code are
// attributed to the proxy.
type Event struct {
	Address address.Address  `cbor:"address" json:"address"`
	Name    string           `cbor:"name"    json:"name"`
	Data    codec.RawMessage `cbor:"data"    json:"data"`
	Block   uint64           `cbor:"block"   json:"block"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return codec.Unmarshal(e.Data, v)
}

// LogFilter selects events from the committed log. Zero fields match
// everything.
type LogFilter struct {
	Address   address.Address
	Names     []string
	FromBlock uint64

	// ToBlock is inclusive. Zero means the latest block.
	ToBlock uint64
}

func (f LogFilter) matches(event Event) bool {
	if !f.Address.IsZero() && event.Address != f.Address {
		return false
	}
	if len(f.Names) > 0 && !slices.Contains(f.Names, event.Name) {
		return false
	}
	if event.Block < f.FromBlock {
		return false
	}
	if f.ToBlock != 0 && event.Block > f.ToBlock {
		return false
	}
	return true
}

// Receipt records a top-level transaction. A reverted transaction
// still occupies a block; its Logs are empty and Err holds the abort.
type Receipt struct {
	ID     uuid.UUID
	Block  uint64
	Time   time.Time
	From   address.Address
	To     address.Address
	Return []byte
	Logs   []Event
	Err    error
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool { return r.Err == nil }

// Named returns the events in the receipt with the given name.
func (r *Receipt) Named(name string) []Event {
	var result []Event
	for _, event := range r.Logs {
		if event.Name == name {
			result = append(result, event)
		}
	}
	return result
}
