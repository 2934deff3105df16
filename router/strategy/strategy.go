package strategy

import (
	"time"

	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
)

const (
	// MinimumTWAPDuration is the floor for time-weighted observation windows.
	// Short windows are cheap to manipulate with a single-block liquidity
	// imbalance, so configs below the floor are rejected outright.
	MinimumTWAPDuration = 5 * time.Minute

	// MaxPriceCallDepth bounds recursive constituent lookups made by
	// extensions through the resolver. Cycle avoidance is the extension
	// author's contract; the depth bound turns an authoring mistake into an
	// error instead of unbounded recursion.
	MaxPriceCallDepth = 8
)

type (
	// Resolver is the router capability handed to strategies so composite
	// strategies can re-denominate through other registered assets. Prices
	// are normalized to types.PriceDecimals.
	Resolver interface {
		GetPriceInUSD(asset string) (math.Int, error)
	}

	// Strategy validates and prices one asset according to its registry
	// entry. Setup runs at config time (addAsset/completeEdit) against the
	// live source; Price runs on every valuation call and must re-check all
	// bounds each time.
	Strategy interface {
		Setup(cfg types.AssetPriceConfig, resolver Resolver) error
		Price(cfg types.AssetPriceConfig, resolver Resolver) (types.UnitPrice, error)
	}

	// FeedSource is the read interface of a direct exchange-rate feed.
	FeedSource interface {
		// LatestAnswer returns the raw signed answer in the feed's own
		// precision.
		LatestAnswer() (math.Int, error)

		// LatestTimestamp returns when the answer was last updated.
		LatestTimestamp() (time.Time, error)

		// Decimals returns the feed's answer precision.
		Decimals() uint8
	}

	// PoolSource is the read interface of an AMM pool observation.
	PoolSource interface {
		// ObserveMeanTick returns the time-weighted mean tick over the
		// window ending now.
		ObserveMeanTick(window time.Duration) (int64, error)

		// MaxLookback reports how far back the pool's observation history
		// reaches.
		MaxLookback() (time.Duration, error)
	}

	// RateSource is the read interface of a redemption/exchange-rate
	// provider used by yield-wrapper extensions.
	RateSource interface {
		// ExchangeRate returns underlying units per one wrapper unit, and
		// the rate's precision.
		ExchangeRate() (math.Int, uint8, error)
	}

	// LPSource is the read interface of a constant-product pool backing an
	// LP token.
	LPSource interface {
		Token0() (asset string, decimals uint8)
		Token1() (asset string, decimals uint8)
		Reserves() (reserve0, reserve1 math.Int, err error)
		TotalSupply() (math.Int, error)
	}

	// Extension is an external pricing strategy for composite assets. It
	// mirrors the Strategy split into setup and price phases: SetupSource
	// validates a candidate config against the live collaborators without
	// retaining it, and PriceInUSD prices from the committed registry config
	// it is handed, so a rejected config change never reaches live pricing.
	// SetupSource must reject every caller except the router the extension
	// was wired to.
	Extension interface {
		SetupSource(cfg types.AssetPriceConfig, caller Resolver) error
		PriceInUSD(cfg types.AssetPriceConfig, resolver Resolver) (math.Int, error)
	}

	// Lookup functions resolve a source identifier from a registry entry to
	// the wired collaborator.
	LookupFeed      func(name string) (FeedSource, bool)
	LookupPool      func(name string) (PoolSource, bool)
	LookupExtension func(name string) (Extension, bool)
	LookupRate      func(name string) (RateSource, bool)
	LookupLP        func(name string) (LPSource, bool)
)
