// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/modules/marketregistry"
	"github.com/bureau-foundation/unitroller/proxy"
)

var venusTimelock = address.MustParse("0x939bD8d64c0A9583A7Dcea9933f7b21697ab6396")

func viewAddress(t *testing.T, h *host.Host, target address.Address, signature string) address.Address {
	t.Helper()
	output, err := h.View(context.Background(), address.Zero, target, selector.MustPack(signature))
	if err != nil {
		t.Fatalf("%s: %v", signature, err)
	}
	var value address.Address
	if err := codec.Unmarshal(output, &value); err != nil {
		t.Fatalf("%s: decoding: %v", signature, err)
	}
	return value
}

func TestDeployVenus(t *testing.T) {
	config, err := Load("testdata/venus.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := host.New(host.Options{})

	deployment, err := Deploy(context.Background(), h, config, "bscmainnet")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if deployment.Deployer != address.FromLabel("deployer") {
		t.Errorf("deployer = %s", deployment.Deployer)
	}
	if len(deployment.Modules) != 1 || deployment.Modules[0].Code != marketregistry.CodeName {
		t.Fatalf("modules = %+v", deployment.Modules)
	}
	want := proxy.State{Admin: venusTimelock, Implementation: deployment.Modules[0].Address}
	if deployment.State != want {
		t.Errorf("state = %+v, want %+v", deployment.State, want)
	}
	if deployment.FinalizedAt != h.BlockNumber() {
		t.Errorf("finalized at %d, host at %d", deployment.FinalizedAt, h.BlockNumber())
	}

	book := config.Networks["bscmainnet"]
	if got := viewAddress(t, h, deployment.Proxy, marketregistry.SignatureTreasury); got != book.Treasury {
		t.Errorf("treasury = %s, want %s", got, book.Treasury)
	}
	if got := viewAddress(t, h, deployment.Proxy, marketregistry.SignatureAccessControl); got != book.AccessControl {
		t.Errorf("access control = %s, want %s", got, book.AccessControl)
	}
}

func TestDeployUpgradesInOrder(t *testing.T) {
	config, err := Parse([]byte(`
deployer: deployer
networks:
  local:
    treasury: "0x00000000000000000000000000000000000000aa"
    access_control: "0x00000000000000000000000000000000000000bb"
modules:
  - name: echo
    code: EchoTypesComptroller
    become: becomeBrains(address)
  - name: comptroller
    code: MarketRegistry
    initializer: initialize(address,address)
    args: ["${treasury}", "${access_control}"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h := host.New(host.Options{})

	deployment, err := Deploy(context.Background(), h, config, "local")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if len(deployment.Modules) != 2 {
		t.Fatalf("%d modules installed, want 2", len(deployment.Modules))
	}
	if deployment.State.Implementation != deployment.Modules[1].Address {
		t.Errorf("active implementation %s, want the last module %s",
			deployment.State.Implementation, deployment.Modules[1].Address)
	}
	// Without a handoff the deployer stays admin.
	if deployment.State.Admin != deployment.Deployer || !deployment.State.PendingAdmin.IsZero() {
		t.Errorf("state = %+v", deployment.State)
	}

	upgrades := h.Logs(host.LogFilter{Address: deployment.Proxy, Names: []string{proxy.EventNewImplementation}})
	if len(upgrades) != 2 {
		t.Errorf("%d NewImplementation events, want 2", len(upgrades))
	}
}

func TestDeployPendingAdminOnly(t *testing.T) {
	config, err := Load("testdata/venus.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	config.Admin = "guardian"
	config.AcceptAdmin = false

	deployment, err := Deploy(context.Background(), host.New(host.Options{}), config, "local")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if deployment.State.Admin != deployment.Deployer {
		t.Errorf("admin = %s, want deployer", deployment.State.Admin)
	}
	if deployment.State.PendingAdmin != address.FromLabel("guardian") {
		t.Errorf("pending admin = %s", deployment.State.PendingAdmin)
	}
}

func TestDeployInitializerAbort(t *testing.T) {
	config, err := Load("testdata/venus.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	config.Modules[0].Args[1] = "0x0000000000000000000000000000000000000000"

	_, err = Deploy(context.Background(), host.New(host.Options{}), config, "bscmainnet")
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "module comptroller: initialize" {
		t.Fatalf("error = %v, want initialize StepError", err)
	}
	if reason, ok := host.RevertReason(err); !ok || reason != "invalid input: zero address" {
		t.Errorf("revert reason = %q, %v", reason, ok)
	}
}

func TestDeployRejectedCodeIsAnError(t *testing.T) {
	// The second initializer returns MARKET_NOT_LISTED without
	// aborting; Deploy must still fail.
	config, err := Parse([]byte(`
deployer: deployer
networks:
  bscmainnet:
    treasury: "0xF322942f644A996A617BD29c16bd7d231d9F35E9"
    access_control: "0x4788629ABc6cFCA10F9f969efdEAa1cF70c23555"
    contracts:
      vTRX: "0xC5D3466aA484B040eE977073fcF337f2c00071c1"
modules:
  - name: comptroller
    code: MarketRegistry
    initializer: initialize(address,address)
    args: ["${treasury}", "${access_control}"]
  - name: comptroller-v2
    code: MarketRegistry
    initializer: _setCollateralFactor(address,uint256)
    args: ["${contracts.vTRX}", {units: "0.5", decimals: 18}]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	deployment, err := Deploy(context.Background(), host.New(host.Options{}), config, "bscmainnet")
	var failure *errorreporter.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want a Failure", err)
	}
	if failure.Kind != errorreporter.MarketNotListed || failure.Info != errorreporter.SetCollateralFactorNoExists {
		t.Errorf("failure = %v", failure)
	}
	if len(deployment.Modules) != 1 {
		t.Errorf("%d modules recorded, want only the completed one", len(deployment.Modules))
	}
}

func TestDeployUnknownNetwork(t *testing.T) {
	config, err := Load("testdata/venus.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Deploy(context.Background(), host.New(host.Options{}), config, "bsctestnet"); err == nil {
		t.Error("Deploy succeeded on an unknown network")
	}
}

func TestPlaceholders(t *testing.T) {
	config, err := Load("testdata/venus.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	unitroller := address.FromLabel("unitroller")
	resolver := placeholders{config: config, book: config.Networks["bscmainnet"], proxy: unitroller}

	for raw, want := range map[string]string{
		"${proxy}":             unitroller.String(),
		"${contracts.vDAI}":    "0x334b3ecb4dca3593bccc3c7ebd1a1c1d1780fbf1",
		"${accounts.timelock}": venusTimelock.String(),
		"${accounts.guardian}": address.FromLabel("guardian").String(),
		"plain text":           "plain text",
	} {
		got, err := resolver.resolve(raw)
		if err != nil {
			t.Errorf("resolve(%q): %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("resolve(%q) = %v, want %s", raw, got, want)
		}
	}

	list, err := resolver.resolve([]any{"${treasury}", "${access_control}"})
	if err != nil {
		t.Fatalf("resolve list: %v", err)
	}
	if elements := list.([]any); elements[0] != config.Networks["bscmainnet"].Treasury.String() {
		t.Errorf("list = %v", elements)
	}

	for _, raw := range []string{"${contracts.vBNB}", "${nonsense}"} {
		if _, err := resolver.resolve(raw); err == nil {
			t.Errorf("resolve(%q) succeeded", raw)
		}
	}
}

func TestParseRejects(t *testing.T) {
	const network = `
networks:
  local:
    treasury: "0x00000000000000000000000000000000000000aa"
    access_control: "0x00000000000000000000000000000000000000bb"
`
	for name, raw := range map[string]string{
		"unknown key":       "deployer: d\nmystery: 1\n" + network + "modules: [{name: m, code: MarketRegistry}]\n",
		"no deployer":       network + "modules: [{name: m, code: MarketRegistry}]\n",
		"no modules":        "deployer: d\n" + network,
		"unknown code":      "deployer: d\n" + network + "modules: [{name: m, code: CToken}]\n",
		"duplicate name":    "deployer: d\n" + network + "modules: [{name: m, code: MarketRegistry}, {name: m, code: MarketRegistry}]\n",
		"arity":             "deployer: d\n" + network + "modules: [{name: m, code: MarketRegistry, initializer: 'initialize(address,address)', args: [a]}]\n",
		"bad become":        "deployer: d\n" + network + "modules: [{name: m, code: MarketRegistry, become: 'become()'}]\n",
		"accept no admin":   "deployer: d\naccept_admin: true\n" + network + "modules: [{name: m, code: MarketRegistry}]\n",
		"bad address":       "deployer: d\nnetworks:\n  local:\n    treasury: nope\nmodules: [{name: m, code: MarketRegistry}]\n",
		"args without init": "deployer: d\n" + network + "modules: [{name: m, code: MarketRegistry, args: [x]}]\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); err == nil {
				t.Error("Parse succeeded")
			}
		})
	}
}

func TestCodeRegistryNames(t *testing.T) {
	for name, constructor := range CodeRegistry() {
		named, ok := constructor().(host.Named)
		if !ok {
			t.Errorf("%s: contract does not report a code name", name)
			continue
		}
		if named.CodeName() != name {
			t.Errorf("registered as %s, reports %s", name, named.CodeName())
		}
	}
	if !strings.Contains(knownCodes(), proxy.CodeName) {
		t.Errorf("known codes %q missing the proxy", knownCodes())
	}
}
