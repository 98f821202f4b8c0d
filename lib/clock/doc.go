// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads so that block timestamps on
// the execution host are deterministic in tests.
//
// Production code injects [Real]; tests inject [Fake] and move time
// forward explicitly with Advance. Nothing in the host sleeps or sets
// timers: time only labels blocks, so the interface is limited to Now.
package clock
