// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bytes"
	"context"
	"time"

	"github.com/bureau-foundation/unitroller/lib/address"
)

// execution is the state of one top-level call while the host lock is
// held. Every mutation appends an undo entry; reverting to a
// checkpoint replays them in reverse.
type execution struct {
	ctx      context.Context
	host     *Host
	readOnly bool
	block    uint64
	time     time.Time

	journal []func()
	logs    []Event
}

type checkpoint struct {
	journal int
	logs    int
}

func (e *execution) checkpoint() checkpoint {
	return checkpoint{journal: len(e.journal), logs: len(e.logs)}
}

func (e *execution) revert(mark checkpoint) {
	for i := len(e.journal) - 1; i >= mark.journal; i-- {
		e.journal[i]()
	}
	e.journal = e.journal[:mark.journal]
	e.logs = e.logs[:mark.logs]
}

func (e *execution) call(caller, to address.Address, input []byte, depth int) ([]byte, error) {
	acct, ok := e.host.accounts[to]
	if !ok {
		// Externally owned account.
		return nil, nil
	}
	frame := &Frame{exec: e, caller: caller, self: to, code: to, depth: depth}
	return e.run(frame, acct.code, input)
}

func (e *execution) run(frame *Frame, code Contract, input []byte) ([]byte, error) {
	if frame.depth > maxDepth {
		return nil, ErrCallDepth
	}
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	mark := e.checkpoint()
	output, err := code.Execute(frame, input)
	if err != nil {
		e.revert(mark)
		return nil, err
	}
	return output, nil
}

func (e *execution) setStorage(owner address.Address, slot Slot, value []byte) {
	acct := e.host.accounts[owner]
	previous, existed := acct.storage[slot]
	e.journal = append(e.journal, func() {
		if existed {
			acct.storage[slot] = previous
		} else {
			delete(acct.storage, slot)
		}
	})
	if len(value) == 0 {
		delete(acct.storage, slot)
		return
	}
	acct.storage[slot] = bytes.Clone(value)
}

func (e *execution) setNonce(deployer address.Address, nonce uint64) {
	previous, existed := e.host.nonces[deployer]
	e.journal = append(e.journal, func() {
		if existed {
			e.host.nonces[deployer] = previous
		} else {
			delete(e.host.nonces, deployer)
		}
	})
	e.host.nonces[deployer] = nonce
}

func (e *execution) createAccount(target address.Address, code Contract) {
	e.journal = append(e.journal, func() {
		delete(e.host.accounts, target)
	})
	e.host.accounts[target] = &account{code: code, storage: make(map[Slot][]byte)}
}

func (e *execution) emit(event Event) {
	e.logs = append(e.logs, event)
}
