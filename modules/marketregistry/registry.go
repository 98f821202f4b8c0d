// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package marketregistry

import (
	"fmt"
	"math/big"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/proxy"
)

// CodeName identifies the module in snapshots and registries.
const CodeName = "MarketRegistry"

// Entry point signatures.
const (
	SignatureBecome              = "_become(address)"
	SignatureInitialize          = "initialize(address,address)"
	SignatureSupportMarket       = "_supportMarket(address)"
	SignatureSetCollateralFactor = "_setCollateralFactor(address,uint256)"
	SignatureSetBorrowCaps       = "_setMarketBorrowCaps(address[],uint256[])"
	SignatureSetSupplyCaps       = "_setMarketSupplyCaps(address[],uint256[])"
	SignatureMarkets             = "markets(address)"
	SignatureBorrowCaps          = "borrowCaps(address)"
	SignatureSupplyCaps          = "supplyCaps(address)"
	SignatureTreasury            = "treasury()"
	SignatureAccessControl       = "accessControl()"
)

// Event names.
const (
	EventInitialized         = "Initialized"
	EventMarketListed        = "MarketListed"
	EventNewCollateralFactor = "NewCollateralFactor"
	EventNewBorrowCap        = "NewBorrowCap"
	EventNewSupplyCap        = "NewSupplyCap"
)

// collateralFactorMaxMantissa is 0.9 scaled by 1e18.
var collateralFactorMaxMantissa = new(big.Int).Mul(big.NewInt(9), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))

// Market is the listing record for one market.
type Market struct {
	IsListed                 bool     `cbor:"is_listed"                  json:"is_listed"`
	CollateralFactorMantissa *big.Int `cbor:"collateral_factor_mantissa" json:"collateral_factor_mantissa"`
}

// CollateralFactorChange is the NewCollateralFactor payload.
type CollateralFactorChange struct {
	Market address.Address `cbor:"market"`
	Old    *big.Int        `cbor:"old"`
	New    *big.Int        `cbor:"new"`
}

// Listing is the MarketListed payload.
type Listing struct {
	Market address.Address `cbor:"market"`
}

// CapChange is the NewBorrowCap and NewSupplyCap payload.
type CapChange struct {
	Market address.Address `cbor:"market"`
	Cap    *big.Int        `cbor:"cap"`
}

// Initialization is the Initialized payload.
type Initialization struct {
	Treasury      address.Address `cbor:"treasury"`
	AccessControl address.Address `cbor:"access_control"`
}

var (
	slotTreasury      = host.DeriveSlot("marketregistry.treasury")
	slotAccessControl = host.DeriveSlot("marketregistry.access_control")
)

func slotMarket(market address.Address) host.Slot {
	return host.DeriveSlot("marketregistry.markets", market.Bytes())
}

func slotBorrowCap(market address.Address) host.Slot {
	return host.DeriveSlot("marketregistry.borrow_caps", market.Bytes())
}

func slotSupplyCap(market address.Address) host.Slot {
	return host.DeriveSlot("marketregistry.supply_caps", market.Bytes())
}

type entryPoint func(frame *host.Frame, payload []byte) ([]byte, error)

var entryPoints = map[selector.Selector]entryPoint{
	selector.FromSignature(SignatureBecome):              become,
	selector.FromSignature(SignatureInitialize):          initialize,
	selector.FromSignature(SignatureSupportMarket):       supportMarket,
	selector.FromSignature(SignatureSetCollateralFactor): setCollateralFactor,
	selector.FromSignature(SignatureSetBorrowCaps): func(frame *host.Frame, payload []byte) ([]byte, error) {
		return setCaps(frame, payload, slotBorrowCap, EventNewBorrowCap)
	},
	selector.FromSignature(SignatureSetSupplyCaps): func(frame *host.Frame, payload []byte) ([]byte, error) {
		return setCaps(frame, payload, slotSupplyCap, EventNewSupplyCap)
	},
	selector.FromSignature(SignatureMarkets):       readMarket,
	selector.FromSignature(SignatureBorrowCaps):    readCap(slotBorrowCap),
	selector.FromSignature(SignatureSupplyCaps):    readCap(slotSupplyCap),
	selector.FromSignature(SignatureTreasury):      readAddress(slotTreasury),
	selector.FromSignature(SignatureAccessControl): readAddress(slotAccessControl),
}

// Registry is the module contract.
type Registry struct{}

// CodeName implements host.Named.
func (Registry) CodeName() string { return CodeName }

// Execute implements host.Contract.
func (Registry) Execute(frame *host.Frame, input []byte) ([]byte, error) {
	id, payload, err := selector.Split(input)
	if err != nil {
		return nil, host.Revert("marketregistry: unknown selector")
	}
	handler, ok := entryPoints[id]
	if !ok {
		return nil, host.Revert("marketregistry: unknown selector " + id.String())
	}
	return handler(frame, payload)
}

func unpack(payload []byte, targets ...any) error {
	if err := selector.Unpack(payload, targets...); err != nil {
		return host.Revert("invalid input: " + err.Error())
	}
	return nil
}

// become is called on the module directly, by the proxy admin, to
// accept the pending implementation slot.
func become(frame *host.Frame, payload []byte) ([]byte, error) {
	var unitroller address.Address
	if err := unpack(payload, &unitroller); err != nil {
		return nil, err
	}

	output, err := frame.Call(unitroller, selector.MustPack(proxy.SignatureAdmin))
	if err != nil {
		return nil, err
	}
	var admin address.Address
	if err := codec.Unmarshal(output, &admin); err != nil {
		return nil, fmt.Errorf("decoding unitroller admin: %w", err)
	}
	if frame.Caller() != admin {
		return nil, host.Revert("only unitroller admin can change brains")
	}

	output, err = frame.Call(unitroller, selector.MustPack(proxy.SignatureAcceptImplementation))
	if err != nil {
		return nil, err
	}
	code, err := proxy.DecodeCode(output)
	if err != nil {
		return nil, err
	}
	if code != errorreporter.NoError {
		return nil, host.Revert("change not authorized")
	}
	return nil, nil
}

func isAdmin(frame *host.Frame) bool {
	return frame.Caller() == proxy.NewStore(frame).Admin()
}

func initialize(frame *host.Frame, payload []byte) ([]byte, error) {
	var initialization Initialization
	if err := unpack(payload, &initialization.Treasury, &initialization.AccessControl); err != nil {
		return nil, err
	}
	if !isAdmin(frame) {
		return nil, host.Revert("only admin can initialize")
	}
	if !frame.LoadAddress(slotTreasury).IsZero() {
		return nil, host.Revert("already initialized")
	}
	if initialization.Treasury.IsZero() || initialization.AccessControl.IsZero() {
		return nil, host.Revert("invalid input: zero address")
	}
	if err := frame.StoreAddress(slotTreasury, initialization.Treasury); err != nil {
		return nil, err
	}
	if err := frame.StoreAddress(slotAccessControl, initialization.AccessControl); err != nil {
		return nil, err
	}
	return nil, frame.Emit(EventInitialized, initialization)
}

func loadMarket(frame *host.Frame, market address.Address) (Market, error) {
	record := Market{CollateralFactorMantissa: new(big.Int)}
	if _, err := frame.LoadValue(slotMarket(market), &record); err != nil {
		return Market{}, err
	}
	if record.CollateralFactorMantissa == nil {
		record.CollateralFactorMantissa = new(big.Int)
	}
	return record, nil
}

func returnResult(result errorreporter.Result, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return proxy.EncodeCode(result.Code)
}

func supportMarket(frame *host.Frame, payload []byte) ([]byte, error) {
	var market address.Address
	if err := unpack(payload, &market); err != nil {
		return nil, err
	}
	if !isAdmin(frame) {
		return returnResult(errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.SupportMarketOwnerCheck))
	}
	record, err := loadMarket(frame, market)
	if err != nil {
		return nil, err
	}
	if record.IsListed {
		return returnResult(errorreporter.Fail(frame, errorreporter.MarketAlreadyListed, errorreporter.SupportMarketExists))
	}

	record.IsListed = true
	if err := frame.StoreValue(slotMarket(market), record); err != nil {
		return nil, err
	}
	if err := frame.Emit(EventMarketListed, Listing{Market: market}); err != nil {
		return nil, err
	}
	return proxy.EncodeCode(errorreporter.NoError)
}

func setCollateralFactor(frame *host.Frame, payload []byte) ([]byte, error) {
	var market address.Address
	var factor *big.Int
	if err := unpack(payload, &market, &factor); err != nil {
		return nil, err
	}
	if factor == nil || factor.Sign() < 0 {
		return nil, host.Revert("invalid input: collateral factor")
	}
	if !isAdmin(frame) {
		return returnResult(errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.SetCollateralFactorOwnerCheck))
	}
	record, err := loadMarket(frame, market)
	if err != nil {
		return nil, err
	}
	if !record.IsListed {
		return returnResult(errorreporter.Fail(frame, errorreporter.MarketNotListed, errorreporter.SetCollateralFactorNoExists))
	}
	if factor.Cmp(collateralFactorMaxMantissa) > 0 {
		return returnResult(errorreporter.Fail(frame, errorreporter.InvalidCollateralFactor, errorreporter.SetCollateralFactorValidation))
	}

	old := record.CollateralFactorMantissa
	record.CollateralFactorMantissa = factor
	if err := frame.StoreValue(slotMarket(market), record); err != nil {
		return nil, err
	}
	if err := frame.Emit(EventNewCollateralFactor, CollateralFactorChange{Market: market, Old: old, New: factor}); err != nil {
		return nil, err
	}
	return proxy.EncodeCode(errorreporter.NoError)
}

func setCaps(frame *host.Frame, payload []byte, slotFor func(address.Address) host.Slot, event string) ([]byte, error) {
	var markets []address.Address
	var caps []*big.Int
	if err := unpack(payload, &markets, &caps); err != nil {
		return nil, err
	}
	if !isAdmin(frame) {
		return nil, host.Revert("access denied")
	}
	if len(markets) == 0 || len(markets) != len(caps) {
		return nil, host.Revert("invalid input")
	}
	for i, market := range markets {
		if caps[i] == nil || caps[i].Sign() < 0 {
			return nil, host.Revert("invalid input: negative cap")
		}
		record, err := loadMarket(frame, market)
		if err != nil {
			return nil, err
		}
		if !record.IsListed {
			return nil, host.Revert("market not listed")
		}
		if err := frame.StoreValue(slotFor(market), caps[i]); err != nil {
			return nil, err
		}
		if err := frame.Emit(event, CapChange{Market: market, Cap: caps[i]}); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func readMarket(frame *host.Frame, payload []byte) ([]byte, error) {
	var market address.Address
	if err := unpack(payload, &market); err != nil {
		return nil, err
	}
	record, err := loadMarket(frame, market)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(record)
}

func readCap(slotFor func(address.Address) host.Slot) entryPoint {
	return func(frame *host.Frame, payload []byte) ([]byte, error) {
		var market address.Address
		if err := unpack(payload, &market); err != nil {
			return nil, err
		}
		value := new(big.Int)
		if _, err := frame.LoadValue(slotFor(market), &value); err != nil {
			return nil, err
		}
		return codec.Marshal(value)
	}
}

func readAddress(slot host.Slot) entryPoint {
	return func(frame *host.Frame, payload []byte) ([]byte, error) {
		if err := unpack(payload); err != nil {
			return nil, err
		}
		return codec.Marshal(frame.LoadAddress(slot))
	}
}
