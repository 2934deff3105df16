package strategy

import (
	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

var _ Extension = (*WrapperExtension)(nil)

// WrapperExtension prices wrapped-yield and liquid-staking tokens: the
// underlying's registered USD price multiplied by a redemption rate read from
// a RateSource. Config params: "underlying" (registered asset) and
// "rate_source" (registered rate source name). The extension keeps no state of
// its own; every call prices from the registry config it is handed.
type WrapperExtension struct {
	router Resolver
	rates  LookupRate
}

func NewWrapperExtension(router Resolver, rates LookupRate) *WrapperExtension {
	return &WrapperExtension{router: router, rates: rates}
}

func (w *WrapperExtension) SetupSource(cfg types.AssetPriceConfig, caller Resolver) error {
	if caller == nil || caller != w.router {
		return types.ErrOnlyPriceRouter
	}

	underlying, rateSource, err := w.parse(cfg)
	if err != nil {
		return err
	}
	if _, ok := w.rates(rateSource); !ok {
		return types.ErrUnknownSource.Wrapf("rate source %q", rateSource)
	}

	// Prove the underlying is priceable before accepting the config.
	if _, err := caller.GetPriceInUSD(underlying); err != nil {
		return err
	}

	return nil
}

func (w *WrapperExtension) PriceInUSD(cfg types.AssetPriceConfig, resolver Resolver) (math.Int, error) {
	underlying, rateSourceName, err := w.parse(cfg)
	if err != nil {
		return math.Int{}, err
	}

	rateSource, ok := w.rates(rateSourceName)
	if !ok {
		return math.Int{}, types.ErrUnknownSource.Wrapf("rate source %q", rateSourceName)
	}

	underlyingPrice, err := resolver.GetPriceInUSD(underlying)
	if err != nil {
		return math.Int{}, err
	}

	rate, rateDecimals, err := rateSource.ExchangeRate()
	if err != nil {
		return math.Int{}, err
	}
	if rate.IsNil() || !rate.IsPositive() {
		return math.Int{}, types.ErrZeroOrNegativePrice.Wrapf("rate source %q returned %s", rateSourceName, rate)
	}

	return util.MulDivDown(underlyingPrice, rate, util.Pow10(rateDecimals))
}

func (w *WrapperExtension) parse(cfg types.AssetPriceConfig) (underlying, rateSource string, err error) {
	extCfg, ok := cfg.Config.(types.ExtensionConfig)
	if !ok {
		return "", "", types.ErrInvalidStrategyConfig.Wrapf("expected extension config for %s", cfg.Asset)
	}

	underlying = extCfg.Params["underlying"]
	if underlying == "" {
		return "", "", types.ErrInvalidStrategyConfig.Wrapf("wrapper extension for %s missing underlying", cfg.Asset)
	}

	return underlying, extCfg.Params["rate_source"], nil
}
