// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// ProposalType is the governance track a proposal is submitted on.
type ProposalType string

const (
	ProposalRegular   ProposalType = "regular"
	ProposalFastTrack ProposalType = "fast-track"
	ProposalCritical  ProposalType = "critical"
)

// Valid reports whether t is a known track.
func (t ProposalType) Valid() bool {
	switch t {
	case ProposalRegular, ProposalFastTrack, ProposalCritical:
		return true
	}
	return false
}

// Meta is the human-readable description voters see.
type Meta struct {
	Version            string `json:"version"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	ForDescription     string `json:"for_description"`
	AgainstDescription string `json:"against_description"`
	AbstainDescription string `json:"abstain_description"`
}

// Action is one call made by the proposal.
type Action struct {
	Target    address.Address `json:"target"`
	Signature string          `json:"signature"`
	Params    []any           `json:"params"`
}

// Calldata encodes the action, coercing Params to the signature's
// parameter types.
func (a Action) Calldata() ([]byte, error) {
	return encodeCall(a.Signature, a.Params)
}

// Check is a read-only call whose result is compared against an
// expected value.
type Check struct {
	Name      string          `json:"name"`
	Target    address.Address `json:"target"`
	Signature string          `json:"signature"`
	Params    []any           `json:"params,omitempty"`

	// Field selects one key of a map-shaped return value (for example
	// "collateral_factor_mantissa" of markets(address)).
	Field string `json:"field,omitempty"`

	// Returns is the type Equals is coerced to before comparison, in
	// signature syntax ("uint256", "address", "bool", ...).
	Returns string `json:"returns"`
	Equals  any    `json:"equals"`
}

// Checks groups the pre- and post-execution checks.
type Checks struct {
	Pre  []Check `json:"pre,omitempty"`
	Post []Check `json:"post,omitempty"`
}

// Proposal is a batch of actions with its metadata and checks.
type Proposal struct {
	Meta    Meta         `json:"meta"`
	Type    ProposalType `json:"type"`
	Actions []Action     `json:"actions"`
	Checks  Checks       `json:"checks"`
}

// Parse strips JSONC comments and trailing commas from data, decodes
// the proposal, and validates it. Numbers are kept as json.Number so
// large integers survive.
func Parse(data []byte) (*Proposal, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	decoder.DisallowUnknownFields()

	var proposal Proposal
	if err := decoder.Decode(&proposal); err != nil {
		return nil, fmt.Errorf("parsing proposal: %w", err)
	}
	if proposal.Type == "" {
		proposal.Type = ProposalRegular
	}
	if err := proposal.Validate(); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ReadFile reads and parses a JSONC proposal file.
func ReadFile(path string) (*Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	proposal, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return proposal, nil
}

// Validate checks that every action and check encodes. All problems
// are reported together.
func (p *Proposal) Validate() error {
	var errs []error
	if p.Meta.Title == "" {
		errs = append(errs, errors.New("meta.title is required"))
	}
	if !p.Type.Valid() {
		errs = append(errs, fmt.Errorf("type %q is not regular, fast-track, or critical", p.Type))
	}
	if len(p.Actions) == 0 {
		errs = append(errs, errors.New("proposal has no actions"))
	}
	for i, action := range p.Actions {
		if action.Target.IsZero() {
			errs = append(errs, fmt.Errorf("actions[%d]: target is required", i))
		}
		if _, err := action.Calldata(); err != nil {
			errs = append(errs, fmt.Errorf("actions[%d]: %w", i, err))
		}
	}
	for _, phase := range []struct {
		name   string
		checks []Check
	}{{"pre", p.Checks.Pre}, {"post", p.Checks.Post}} {
		for i, check := range phase.checks {
			if _, err := check.calldata(); err != nil {
				errs = append(errs, fmt.Errorf("checks.%s[%d] %q: %w", phase.name, i, check.Name, err))
			}
			if _, err := check.expected(); err != nil {
				errs = append(errs, fmt.Errorf("checks.%s[%d] %q: %w", phase.name, i, check.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func encodeCall(rawSignature string, params []any) ([]byte, error) {
	signature, err := selector.ParseSignature(rawSignature)
	if err != nil {
		return nil, err
	}
	coerced, err := selector.CoerceAll(signature, params)
	if err != nil {
		return nil, err
	}
	return signature.Selector().Pack(coerced...)
}

// Retarget rewrites action and check targets through mapping. It is
// used to replay a proposal written against one deployment (mainnet
// addresses) on another (a local deployment or testnet).
func (p *Proposal) Retarget(mapping map[address.Address]address.Address) {
	for i := range p.Actions {
		if replacement, ok := mapping[p.Actions[i].Target]; ok {
			p.Actions[i].Target = replacement
		}
	}
	for _, checks := range [][]Check{p.Checks.Pre, p.Checks.Post} {
		for i := range checks {
			if replacement, ok := mapping[checks[i].Target]; ok {
				checks[i].Target = replacement
			}
		}
	}
}
