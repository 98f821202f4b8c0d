// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/modules/echo"
	"github.com/bureau-foundation/unitroller/modules/marketregistry"
	"github.com/bureau-foundation/unitroller/proxy"
)

// CodeRegistry returns the constructors of every contract this module
// ships, keyed by code name.
func CodeRegistry() host.CodeRegistry {
	return host.CodeRegistry{
		proxy.CodeName:          func() host.Contract { return proxy.Unitroller{} },
		echo.CodeName:           func() host.Contract { return echo.EchoTypes{} },
		marketregistry.CodeName: func() host.Contract { return marketregistry.Registry{} },
	}
}
