// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package marketregistry is a comptroller-shaped logic module: it
// lists markets and holds their collateral factors and borrow and
// supply caps. It carries no lending logic. It exists so that the
// governance and deployment tooling have a realistic module to drive
// through the proxy.
//
// The module follows both failure conventions of the system it is
// hosted in. Comptroller-style setters (_supportMarket,
// _setCollateralFactor) report check failures through
// lib/errorreporter and return a nonzero code without aborting.
// Access-controlled cap setters and initialize abort with a revert,
// as does any malformed input.
//
// All state lives in slots derived under the "marketregistry"
// namespace, so it never overlaps the proxy's control slots. The admin
// is always read from the proxy's admin slot.
package marketregistry
