package types

import (
	"fmt"
	"io"
	"sort"
	"time"

	"cosmossdk.io/math"
)

// PriceDecimals is the fixed precision every strategy normalizes its unit
// prices to before they reach the valuation engine.
const PriceDecimals = 8

// StrategyKind selects which pricing strategy handles an asset.
type StrategyKind string

const (
	StrategyDirectFeed   StrategyKind = "direct_feed"
	StrategyTimeWeighted StrategyKind = "time_weighted"
	StrategyExtension    StrategyKind = "extension"
)

// String casts a strategy kind to string.
func (k StrategyKind) String() string {
	return string(k)
}

// UnitPrice is a strategy's answer for one whole unit of an asset, normalized
// to PriceDecimals. InETH marks prices quoted in the router's base asset
// rather than USD; the valuation engine re-denominates those through the base
// asset's own USD price.
type UnitPrice struct {
	Price math.Int
	InETH bool
}

// StrategyConfig is the typed, per-kind configuration carried by an asset's
// registry entry. The set of implementations is closed: DirectFeedConfig,
// TimeWeightedConfig and ExtensionConfig.
type StrategyConfig interface {
	// Kind returns the strategy kind this config belongs to.
	Kind() StrategyKind

	// Validate performs the static (source-independent) checks.
	Validate() error

	// digest writes a deterministic encoding of the config, used to derive
	// edit hashes.
	digest(w io.Writer)
}

// AssetPriceConfig is the registry record for one supported asset.
type AssetPriceConfig struct {
	// Asset is the asset identifier, e.g. "USDC".
	Asset string

	// Decimals is the asset's own precision, used to rescale amounts.
	Decimals uint8

	// StrategyKind tags which strategy variant prices the asset.
	StrategyKind StrategyKind

	// Source identifies the feed, pool or extension backing the strategy.
	Source string

	// Config holds the strategy-specific configuration.
	Config StrategyConfig

	// Supported is false for zero-value records; an unsupported asset rejects
	// all valuation calls.
	Supported bool
}

// Validate performs the static checks shared by addAsset and completeEdit.
func (c AssetPriceConfig) Validate() error {
	if c.Asset == "" {
		return ErrInvalidAsset
	}

	switch c.StrategyKind {
	case StrategyDirectFeed, StrategyTimeWeighted, StrategyExtension:
	default:
		return ErrUnknownStrategy.Wrapf("%q", c.StrategyKind)
	}

	if c.Source == "" {
		return ErrInvalidStrategyConfig.Wrap("empty strategy source")
	}
	if c.Config == nil {
		return ErrInvalidStrategyConfig.Wrap("missing strategy config")
	}
	if c.Config.Kind() != c.StrategyKind {
		return ErrInvalidStrategyConfig.Wrapf(
			"config kind %q does not match strategy kind %q",
			c.Config.Kind(), c.StrategyKind,
		)
	}

	return c.Config.Validate()
}

// DirectFeedConfig configures the DirectFeed strategy: a single external
// rate source guarded by a heartbeat and hard min/max price bounds.
type DirectFeedConfig struct {
	// Heartbeat is the maximum allowed age of the feed's latest answer.
	Heartbeat time.Duration

	// MinPrice and MaxPrice bound the unit price (PriceDecimals precision).
	// Every live pricing call re-checks the current answer against them.
	MinPrice math.Int
	MaxPrice math.Int

	// InETH marks the feed as quoting in the router's base asset.
	InETH bool
}

func (c DirectFeedConfig) Kind() StrategyKind { return StrategyDirectFeed }

func (c DirectFeedConfig) Validate() error {
	if c.Heartbeat <= 0 {
		return ErrInvalidStrategyConfig.Wrap("heartbeat must be positive")
	}
	if c.MinPrice.IsNil() || c.MinPrice.IsNegative() {
		return ErrInvalidMinPrice
	}
	if c.MaxPrice.IsNil() || !c.MaxPrice.IsPositive() {
		return ErrInvalidMaxPrice
	}
	if c.MinPrice.GTE(c.MaxPrice) {
		return ErrMinPriceGreaterThanMaxPrice
	}
	return nil
}

func (c DirectFeedConfig) digest(w io.Writer) {
	fmt.Fprintf(w, "direct_feed|%d|%s|%s|%t",
		c.Heartbeat, c.MinPrice, c.MaxPrice, c.InETH)
}

// TimeWeightedConfig configures the TimeWeighted strategy: a time-weighted
// average observation of an AMM pool, re-denominated through a registered
// quote asset.
type TimeWeightedConfig struct {
	// Window is how far back the pool observation reaches.
	Window time.Duration

	// QuoteAsset is the registered asset the pool quotes the base in.
	QuoteAsset string

	// QuoteDecimals is the quote token's precision inside the pool.
	QuoteDecimals uint8

	// MinPrice and MaxPrice optionally bound the derived unit price
	// (PriceDecimals precision). Nil means unbounded on that side.
	MinPrice math.Int
	MaxPrice math.Int
}

func (c TimeWeightedConfig) Kind() StrategyKind { return StrategyTimeWeighted }

func (c TimeWeightedConfig) Validate() error {
	if c.Window <= 0 {
		return ErrInvalidStrategyConfig.Wrap("window must be positive")
	}
	if c.QuoteAsset == "" {
		return ErrInvalidStrategyConfig.Wrap("empty quote asset")
	}
	if !c.MinPrice.IsNil() && !c.MaxPrice.IsNil() && c.MinPrice.GTE(c.MaxPrice) {
		return ErrMinPriceGreaterThanMaxPrice
	}
	return nil
}

func (c TimeWeightedConfig) digest(w io.Writer) {
	fmt.Fprintf(w, "time_weighted|%d|%s|%d|%s|%s",
		c.Window, c.QuoteAsset, c.QuoteDecimals, intOrNil(c.MinPrice), intOrNil(c.MaxPrice))
}

// ExtensionConfig configures the Extension strategy. Params are opaque to the
// router; the extension interprets them during setup.
type ExtensionConfig struct {
	Params map[string]string
}

func (c ExtensionConfig) Kind() StrategyKind { return StrategyExtension }

func (c ExtensionConfig) Validate() error { return nil }

func (c ExtensionConfig) digest(w io.Writer) {
	io.WriteString(w, "extension")

	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "|%s=%s", k, c.Params[k])
	}
}

func intOrNil(i math.Int) string {
	if i.IsNil() {
		return "nil"
	}
	return i.String()
}
