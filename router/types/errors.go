package types

import (
	"cosmossdk.io/errors"
)

const ModuleName = "price-router"

// Configuration errors
var (
	ErrAssetAlreadyAdded           = errors.Register(ModuleName, 2, "asset already added")
	ErrAssetNotAdded               = errors.Register(ModuleName, 3, "asset not added")
	ErrAssetNotEditable            = errors.Register(ModuleName, 4, "asset edit delay has not elapsed")
	ErrAssetNotPendingEdit         = errors.Register(ModuleName, 5, "no pending edit matches the supplied parameters")
	ErrInvalidAsset                = errors.Register(ModuleName, 6, "invalid asset identifier")
	ErrMinPriceGreaterThanMaxPrice = errors.Register(ModuleName, 7, "min price must be less than max price")
	ErrInvalidMinPrice             = errors.Register(ModuleName, 8, "invalid min price")
	ErrInvalidMaxPrice             = errors.Register(ModuleName, 9, "invalid max price")
	ErrUnknownStrategy             = errors.Register(ModuleName, 10, "unknown pricing strategy")
	ErrInvalidStrategyConfig       = errors.Register(ModuleName, 11, "strategy config does not match strategy kind")
	ErrUnknownSource               = errors.Register(ModuleName, 12, "strategy source is not registered")
)

// Live pricing errors
var (
	ErrStalePrice                     = errors.Register(ModuleName, 13, "price observation is stale")
	ErrZeroOrNegativePrice            = errors.Register(ModuleName, 14, "price is zero or negative")
	ErrBelowMinPrice                  = errors.Register(ModuleName, 15, "price is below configured min price")
	ErrAboveMaxPrice                  = errors.Register(ModuleName, 16, "price is above configured max price")
	ErrBoundsExceeded                 = errors.Register(ModuleName, 17, "price is outside configured bounds")
	ErrInsufficientObservationHistory = errors.Register(ModuleName, 18, "pool cannot look back over the requested window")
	ErrSecondsAgoTooShort             = errors.Register(ModuleName, 19, "observation window is below the minimum TWAP duration")
	ErrBadAnswer                      = errors.Register(ModuleName, 20, "live price deviates too far from the expected answer")
	ErrPriceCallDepthExceeded         = errors.Register(ModuleName, 21, "extension price call depth exceeded")
)

// Valuation errors
var (
	ErrUnsupportedAsset = errors.Register(ModuleName, 22, "asset is not supported")
	ErrLengthMismatch   = errors.Register(ModuleName, 23, "assets and amounts length mismatch")
)

// Access errors
var (
	ErrOnlyPriceRouter      = errors.Register(ModuleName, 24, "callable only by the price router")
	ErrTransitionPending    = errors.Register(ModuleName, 25, "owner transition is pending")
	ErrTransitionNotPending = errors.Register(ModuleName, 26, "no owner transition is pending")
	ErrNewOwnerCannotBeZero = errors.Register(ModuleName, 27, "new owner cannot be empty")
	ErrUnauthorized         = errors.Register(ModuleName, 28, "caller is not authorized")
)
