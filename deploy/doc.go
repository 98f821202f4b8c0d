// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy stands up a proxy and its logic modules on a host from
// a YAML deployment file.
//
// A deployment file carries per-network address books (treasury, access
// control, and named external contracts), the accounts involved, and
// an ordered list of modules. [Deploy] deploys the proxy from the
// deployer account, then for each module: deploys it, nominates it on
// the proxy, has the module accept through its become entry point, and
// runs its initializer through the proxy. An optional admin handoff
// closes the deployment.
//
// Administrative entry points report failures as return codes rather
// than aborts. Deploy turns every nonzero code into an error so a
// rejected step is never mistaken for a completed one.
//
// [CodeRegistry] maps code names to constructors. Deployment files name
// modules by code name, and snapshot import uses the same registry to
// reattach code to restored accounts.
package deploy
