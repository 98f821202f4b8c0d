// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package errorreporter

import (
	"fmt"
	"strings"
)

// Error classifies a reported failure. The zero value is NoError.
type Error uint8

const (
	NoError Error = iota
	Unauthorized
	ComptrollerMismatch
	InsufficientShortfall
	InsufficientLiquidity
	InvalidCloseFactor
	InvalidCollateralFactor
	InvalidLiquidationIncentive
	MarketNotEntered
	MarketNotListed
	MarketAlreadyListed
	MathError
	NonzeroBorrowBalance
	PriceError
	Rejection
	SnapshotError
	TooManyAssets
	TooMuchRepay
)

var errorNames = [...]string{
	NoError:                     "NO_ERROR",
	Unauthorized:                "UNAUTHORIZED",
	ComptrollerMismatch:         "COMPTROLLER_MISMATCH",
	InsufficientShortfall:       "INSUFFICIENT_SHORTFALL",
	InsufficientLiquidity:       "INSUFFICIENT_LIQUIDITY",
	InvalidCloseFactor:          "INVALID_CLOSE_FACTOR",
	InvalidCollateralFactor:     "INVALID_COLLATERAL_FACTOR",
	InvalidLiquidationIncentive: "INVALID_LIQUIDATION_INCENTIVE",
	MarketNotEntered:            "MARKET_NOT_ENTERED",
	MarketNotListed:             "MARKET_NOT_LISTED",
	MarketAlreadyListed:         "MARKET_ALREADY_LISTED",
	MathError:                   "MATH_ERROR",
	NonzeroBorrowBalance:        "NONZERO_BORROW_BALANCE",
	PriceError:                  "PRICE_ERROR",
	Rejection:                   "REJECTION",
	SnapshotError:               "SNAPSHOT_ERROR",
	TooManyAssets:               "TOO_MANY_ASSETS",
	TooMuchRepay:                "TOO_MUCH_REPAY",
}

// String returns the upper-snake name, or "Error(n)" for values
// outside the table.
func (e Error) String() string {
	if int(e) < len(errorNames) {
		return errorNames[e]
	}
	return fmt.Sprintf("Error(%d)", uint8(e))
}

// ParseError parses an upper-snake name.
func ParseError(name string) (Error, error) {
	for value, candidate := range errorNames {
		if strings.EqualFold(candidate, name) {
			return Error(value), nil
		}
	}
	return 0, fmt.Errorf("unknown error kind %q", name)
}

// FailureInfo names the specific check that failed.
type FailureInfo uint8

const (
	AcceptAdminPendingAdminCheck FailureInfo = iota
	AcceptPendingImplementationAddressCheck
	ExitMarketBalanceOwed
	ExitMarketRejection
	SetCloseFactorOwnerCheck
	SetCloseFactorValidation
	SetCollateralFactorOwnerCheck
	SetCollateralFactorNoExists
	SetCollateralFactorValidation
	SetCollateralFactorWithoutPrice
	SetImplementationOwnerCheck
	SetLiquidationIncentiveOwnerCheck
	SetLiquidationIncentiveValidation
	SetMaxAssetsOwnerCheck
	SetPendingAdminOwnerCheck
	SetPendingImplementationOwnerCheck
	SetPriceOracleOwnerCheck
	SupportMarketExists
	SupportMarketOwnerCheck
	SetPauseGuardianOwnerCheck
)

var failureInfoNames = [...]string{
	AcceptAdminPendingAdminCheck:            "ACCEPT_ADMIN_PENDING_ADMIN_CHECK",
	AcceptPendingImplementationAddressCheck: "ACCEPT_PENDING_IMPLEMENTATION_ADDRESS_CHECK",
	ExitMarketBalanceOwed:                   "EXIT_MARKET_BALANCE_OWED",
	ExitMarketRejection:                     "EXIT_MARKET_REJECTION",
	SetCloseFactorOwnerCheck:                "SET_CLOSE_FACTOR_OWNER_CHECK",
	SetCloseFactorValidation:                "SET_CLOSE_FACTOR_VALIDATION",
	SetCollateralFactorOwnerCheck:           "SET_COLLATERAL_FACTOR_OWNER_CHECK",
	SetCollateralFactorNoExists:             "SET_COLLATERAL_FACTOR_NO_EXISTS",
	SetCollateralFactorValidation:           "SET_COLLATERAL_FACTOR_VALIDATION",
	SetCollateralFactorWithoutPrice:         "SET_COLLATERAL_FACTOR_WITHOUT_PRICE",
	SetImplementationOwnerCheck:             "SET_IMPLEMENTATION_OWNER_CHECK",
	SetLiquidationIncentiveOwnerCheck:       "SET_LIQUIDATION_INCENTIVE_OWNER_CHECK",
	SetLiquidationIncentiveValidation:       "SET_LIQUIDATION_INCENTIVE_VALIDATION",
	SetMaxAssetsOwnerCheck:                  "SET_MAX_ASSETS_OWNER_CHECK",
	SetPendingAdminOwnerCheck:               "SET_PENDING_ADMIN_OWNER_CHECK",
	SetPendingImplementationOwnerCheck:      "SET_PENDING_IMPLEMENTATION_OWNER_CHECK",
	SetPriceOracleOwnerCheck:                "SET_PRICE_ORACLE_OWNER_CHECK",
	SupportMarketExists:                     "SUPPORT_MARKET_EXISTS",
	SupportMarketOwnerCheck:                 "SUPPORT_MARKET_OWNER_CHECK",
	SetPauseGuardianOwnerCheck:              "SET_PAUSE_GUARDIAN_OWNER_CHECK",
}

// String returns the upper-snake name, or "FailureInfo(n)" for values
// outside the table.
func (f FailureInfo) String() string {
	if int(f) < len(failureInfoNames) {
		return failureInfoNames[f]
	}
	return fmt.Sprintf("FailureInfo(%d)", uint8(f))
}

// ParseFailureInfo parses an upper-snake name.
func ParseFailureInfo(name string) (FailureInfo, error) {
	for value, candidate := range failureInfoNames {
		if strings.EqualFold(candidate, name) {
			return FailureInfo(value), nil
		}
	}
	return 0, fmt.Errorf("unknown failure info %q", name)
}
