package strategy

import (
	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

var _ Strategy = (*TimeWeighted)(nil)

// maxTick bounds the mean tick magnitude; 1.0001^maxTick already exceeds any
// representable asset ratio.
const maxTick = 887272

var tickBase = math.LegacyMustNewDecFromStr("1.0001")

// TimeWeighted prices an asset from a time-weighted mean tick of an AMM pool,
// re-denominated through the registered price of the pool's quote token.
type TimeWeighted struct {
	pools LookupPool
}

func NewTimeWeighted(pools LookupPool) *TimeWeighted {
	return &TimeWeighted{pools: pools}
}

func (t *TimeWeighted) Setup(cfg types.AssetPriceConfig, _ Resolver) error {
	twapCfg, ok := cfg.Config.(types.TimeWeightedConfig)
	if !ok {
		return types.ErrInvalidStrategyConfig.Wrapf("expected time weighted config for %s", cfg.Asset)
	}

	if twapCfg.Window < MinimumTWAPDuration {
		return types.ErrSecondsAgoTooShort.Wrapf(
			"window %s below minimum %s", twapCfg.Window, MinimumTWAPDuration,
		)
	}

	pool, ok := t.pools(cfg.Source)
	if !ok {
		return types.ErrUnknownSource.Wrapf("pool %q", cfg.Source)
	}

	lookback, err := pool.MaxLookback()
	if err != nil {
		return err
	}
	if lookback < twapCfg.Window {
		return types.ErrInsufficientObservationHistory.Wrapf(
			"pool %q supports %s, window %s", cfg.Source, lookback, twapCfg.Window,
		)
	}

	return nil
}

func (t *TimeWeighted) Price(cfg types.AssetPriceConfig, resolver Resolver) (types.UnitPrice, error) {
	twapCfg, ok := cfg.Config.(types.TimeWeightedConfig)
	if !ok {
		return types.UnitPrice{}, types.ErrInvalidStrategyConfig.Wrapf("expected time weighted config for %s", cfg.Asset)
	}

	pool, ok := t.pools(cfg.Source)
	if !ok {
		return types.UnitPrice{}, types.ErrUnknownSource.Wrapf("pool %q", cfg.Source)
	}

	meanTick, err := pool.ObserveMeanTick(twapCfg.Window)
	if err != nil {
		return types.UnitPrice{}, err
	}

	ratio, err := tickToRatio(meanTick, cfg.Decimals, twapCfg.QuoteDecimals)
	if err != nil {
		return types.UnitPrice{}, err
	}

	quotePrice, err := resolver.GetPriceInUSD(twapCfg.QuoteAsset)
	if err != nil {
		return types.UnitPrice{}, err
	}

	price := ratio.MulInt(quotePrice).TruncateInt()
	if !price.IsPositive() {
		return types.UnitPrice{}, types.ErrZeroOrNegativePrice.Wrapf("pool %q mean tick %d", cfg.Source, meanTick)
	}

	if !twapCfg.MinPrice.IsNil() && price.LT(twapCfg.MinPrice) {
		return types.UnitPrice{}, types.ErrBoundsExceeded.Wrapf("%s < %s", price, twapCfg.MinPrice)
	}
	if !twapCfg.MaxPrice.IsNil() && price.GT(twapCfg.MaxPrice) {
		return types.UnitPrice{}, types.ErrBoundsExceeded.Wrapf("%s > %s", price, twapCfg.MaxPrice)
	}

	return types.UnitPrice{Price: price}, nil
}

// tickToRatio converts a mean tick into the human ratio of one whole base
// unit expressed in whole quote units: 1.0001^tick * 10^(baseDec-quoteDec).
func tickToRatio(tick int64, baseDecimals, quoteDecimals uint8) (math.LegacyDec, error) {
	if tick > maxTick || tick < -maxTick {
		return math.LegacyDec{}, types.ErrBoundsExceeded.Wrapf("tick %d out of range", tick)
	}

	magnitude := tick
	if magnitude < 0 {
		magnitude = -magnitude
	}

	ratio := tickBase.Power(uint64(magnitude))
	if tick < 0 {
		ratio = math.LegacyOneDec().Quo(ratio)
	}

	if baseDecimals >= quoteDecimals {
		return ratio.MulInt(util.Pow10(baseDecimals - quoteDecimals)), nil
	}
	return ratio.QuoInt(util.Pow10(quoteDecimals - baseDecimals)), nil
}
