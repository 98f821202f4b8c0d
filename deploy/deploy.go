// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/proxy"
)

// Deployment records what Deploy created.
type Deployment struct {
	Network     string           `yaml:"network" json:"network"`
	Deployer    address.Address  `yaml:"deployer" json:"deployer"`
	Proxy       address.Address  `yaml:"proxy" json:"proxy"`
	Modules     []DeployedModule `yaml:"modules" json:"modules"`
	State       proxy.State      `yaml:"state" json:"state"`
	FinalizedAt uint64           `yaml:"finalized_at" json:"finalized_at"`
}

// DeployedModule is one installed module.
type DeployedModule struct {
	Name    string          `yaml:"name" json:"name"`
	Code    string          `yaml:"code" json:"code"`
	Address address.Address `yaml:"address" json:"address"`
}

// StepError reports the deployment step that failed. Err is either
// the abort returned by the host or the Failure of a rejected
// administrative call.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// Deploy installs config's modules behind a new proxy on h using the
// address book of network. On error the host keeps whatever steps
// completed before the failure.
func Deploy(ctx context.Context, h *host.Host, config *Config, network string) (*Deployment, error) {
	book, ok := config.Networks[network]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	deployer, err := config.Account(config.Deployer)
	if err != nil {
		return nil, fmt.Errorf("deployer: %w", err)
	}
	logger := h.Logger().With("component", "deploy", "network", network)

	unitroller, err := proxy.Deploy(ctx, h, deployer)
	if err != nil {
		return nil, &StepError{Step: "deploying proxy", Err: err}
	}
	logger.Info("proxy deployed", "address", unitroller, "deployer", deployer)

	client := proxy.NewClient(h, unitroller)
	deployment := &Deployment{Network: network, Deployer: deployer, Proxy: unitroller}
	resolver := placeholders{config: config, book: book, proxy: unitroller}
	codes := CodeRegistry()

	for _, module := range config.Modules {
		step := func(action string) string { return fmt.Sprintf("module %s: %s", module.Name, action) }

		constructor, ok := codes[module.Code]
		if !ok {
			return deployment, &StepError{Step: step("deploy"), Err: fmt.Errorf("unknown code %q", module.Code)}
		}
		implementation, err := h.Deploy(ctx, deployer, constructor(), nil)
		if err != nil {
			return deployment, &StepError{Step: step("deploy"), Err: err}
		}

		result, _, err := client.ProposeNewImplementation(ctx, deployer, implementation)
		if err := administrative(result, err); err != nil {
			return deployment, &StepError{Step: step("propose"), Err: err}
		}

		if _, err := h.Transact(ctx, deployer, implementation, selector.MustPack(module.Become, unitroller)); err != nil {
			return deployment, &StepError{Step: step("become"), Err: err}
		}

		if module.Initializer != "" {
			if err := initialize(ctx, h, deployer, unitroller, module, resolver); err != nil {
				return deployment, &StepError{Step: step("initialize"), Err: err}
			}
		}

		deployment.Modules = append(deployment.Modules, DeployedModule{
			Name:    module.Name,
			Code:    module.Code,
			Address: implementation,
		})
		logger.Info("module installed", "module", module.Name, "code", module.Code, "address", implementation)
	}

	if config.Admin != "" {
		admin, err := config.Account(config.Admin)
		if err != nil {
			return deployment, &StepError{Step: "admin", Err: err}
		}
		result, _, err := client.ProposeNewAdmin(ctx, deployer, admin)
		if err := administrative(result, err); err != nil {
			return deployment, &StepError{Step: "propose admin", Err: err}
		}
		if config.AcceptAdmin {
			result, _, err := client.AcceptAdmin(ctx, admin)
			if err := administrative(result, err); err != nil {
				return deployment, &StepError{Step: "accept admin", Err: err}
			}
		}
		logger.Info("admin handoff", "admin", admin, "accepted", config.AcceptAdmin)
	}

	state, err := client.State(ctx)
	if err != nil {
		return deployment, &StepError{Step: "reading proxy state", Err: err}
	}
	deployment.State = state
	deployment.FinalizedAt = h.BlockNumber()
	return deployment, nil
}

// administrative folds a rejected administrative call into an error.
func administrative(result errorreporter.Result, err error) error {
	if err != nil {
		return err
	}
	return result.Err()
}

func initialize(ctx context.Context, h *host.Host, from, unitroller address.Address, module Module, resolver placeholders) error {
	signature, err := selector.ParseSignature(module.Initializer)
	if err != nil {
		return err
	}
	args := make([]any, len(module.Args))
	for i, arg := range module.Args {
		if args[i], err = resolver.resolve(arg); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	coerced, err := selector.CoerceAll(signature, args)
	if err != nil {
		return err
	}
	input, err := selector.Pack(signature.String(), coerced...)
	if err != nil {
		return err
	}
	receipt, err := h.Transact(ctx, from, unitroller, input)
	if err != nil {
		return err
	}
	if strings.HasPrefix(signature.Name, "_") && len(receipt.Return) > 0 {
		result, err := proxy.DecodeResult(receipt.Return, receipt.Logs, unitroller)
		return administrative(result, err)
	}
	return nil
}

// placeholders resolves ${...} references in initializer arguments.
type placeholders struct {
	config *Config
	book   Network
	proxy  address.Address
}

func (p placeholders) resolve(value any) (any, error) {
	switch typed := value.(type) {
	case string:
		if !strings.HasPrefix(typed, "${") || !strings.HasSuffix(typed, "}") {
			return typed, nil
		}
		resolved, err := p.lookup(typed[2 : len(typed)-1])
		if err != nil {
			return nil, err
		}
		return resolved.String(), nil
	case []any:
		result := make([]any, len(typed))
		for i, element := range typed {
			resolved, err := p.resolve(element)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	}
	return value, nil
}

func (p placeholders) lookup(name string) (address.Address, error) {
	switch name {
	case "treasury":
		return p.book.Treasury, nil
	case "access_control":
		return p.book.AccessControl, nil
	case "proxy":
		return p.proxy, nil
	}
	if contract, ok := strings.CutPrefix(name, "contracts."); ok {
		resolved, ok := p.book.Contracts[contract]
		if !ok {
			return address.Zero, fmt.Errorf("no contract %q in the address book", contract)
		}
		return resolved, nil
	}
	if account, ok := strings.CutPrefix(name, "accounts."); ok {
		return p.config.Account(account)
	}
	return address.Zero, fmt.Errorf("unknown placeholder ${%s}", name)
}
