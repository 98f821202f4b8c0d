// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// DefaultBecome is the become entry point used when a module entry
// names none.
const DefaultBecome = "_become(address)"

// Config is a parsed deployment file.
type Config struct {
	// Deployer is the account name that deploys and administers
	// everything until the admin handoff.
	Deployer string `yaml:"deployer"`

	// Accounts maps account names to a hex address or a label. Names
	// not listed resolve as labels.
	Accounts map[string]string `yaml:"accounts,omitempty"`

	// Networks holds one address book per network name.
	Networks map[string]Network `yaml:"networks"`

	// Modules are installed in order; the last one stays active.
	Modules []Module `yaml:"modules"`

	// Admin, when set, names the account nominated as the proxy's
	// next admin after all modules are installed.
	Admin string `yaml:"admin,omitempty"`

	// AcceptAdmin completes the handoff by accepting from Admin.
	AcceptAdmin bool `yaml:"accept_admin,omitempty"`
}

// Network is the address book of one network.
type Network struct {
	Treasury      address.Address            `yaml:"treasury"`
	AccessControl address.Address            `yaml:"access_control"`
	Contracts     map[string]address.Address `yaml:"contracts,omitempty"`
}

// Module is one logic module to install behind the proxy.
type Module struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`

	// Become is the module's entry point that accepts the nomination
	// on the proxy. It takes the proxy address as its one argument.
	Become string `yaml:"become,omitempty"`

	// Initializer is called through the proxy after the upgrade.
	// Args may use ${treasury}, ${access_control}, ${proxy},
	// ${contracts.NAME}, and ${accounts.NAME} placeholders.
	Initializer string `yaml:"initializer,omitempty"`
	Args        []any  `yaml:"args,omitempty"`
}

// Parse decodes and validates a deployment file. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing deployment: %w", err)
	}
	for i := range config.Modules {
		if config.Modules[i].Become == "" {
			config.Modules[i].Become = DefaultBecome
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads and parses a deployment file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate checks structure that does not depend on the network
// chosen at deploy time.
func (c *Config) Validate() error {
	var errs []error
	if c.Deployer == "" {
		errs = append(errs, errors.New("deployer is required"))
	}
	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("at least one network is required"))
	}
	if len(c.Modules) == 0 {
		errs = append(errs, errors.New("at least one module is required"))
	}
	if c.AcceptAdmin && c.Admin == "" {
		errs = append(errs, errors.New("accept_admin requires admin"))
	}
	for name, value := range c.Accounts {
		if value == "" {
			errs = append(errs, fmt.Errorf("accounts.%s: empty value", name))
		}
	}

	codes := CodeRegistry()
	names := make(map[string]bool)
	for i, module := range c.Modules {
		prefix := fmt.Sprintf("modules[%d]", i)
		if module.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", prefix))
		} else if names[module.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", prefix, module.Name))
		}
		names[module.Name] = true
		if _, ok := codes[module.Code]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown code %q (known: %s)", prefix, module.Code, knownCodes()))
		}
		become := module.Become
		if become == "" {
			become = DefaultBecome
		}
		if signature, err := selector.ParseSignature(become); err != nil {
			errs = append(errs, fmt.Errorf("%s: become: %w", prefix, err))
		} else if len(signature.Params) != 1 || signature.Params[0].String() != "address" {
			errs = append(errs, fmt.Errorf("%s: become %q must take one address", prefix, become))
		}
		if module.Initializer == "" {
			if len(module.Args) > 0 {
				errs = append(errs, fmt.Errorf("%s: args without an initializer", prefix))
			}
			continue
		}
		signature, err := selector.ParseSignature(module.Initializer)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: initializer: %w", prefix, err))
			continue
		}
		if len(signature.Params) != len(module.Args) {
			errs = append(errs, fmt.Errorf("%s: %s takes %d arguments, got %d",
				prefix, signature, len(signature.Params), len(module.Args)))
		}
	}
	return errors.Join(errs...)
}

// Account resolves an account name to its address.
func (c *Config) Account(name string) (address.Address, error) {
	if name == "" {
		return address.Zero, errors.New("empty account name")
	}
	value, ok := c.Accounts[name]
	if !ok {
		return address.FromLabel(name), nil
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return address.Parse(value)
	}
	return address.FromLabel(value), nil
}

func knownCodes() string {
	var names []string
	for name := range CodeRegistry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
