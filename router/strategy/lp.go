package strategy

import (
	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

var _ Extension = (*LPExtension)(nil)

// LPExtension prices constant-product LP tokens by valuing both reserves
// through the router and dividing by the pool's total supply. Config params:
// "pool" (registered LP source name). Both constituent tokens must already be
// registered assets. The extension keeps no state of its own; every call
// prices from the registry config it is handed.
type LPExtension struct {
	router Resolver
	pools  LookupLP
}

func NewLPExtension(router Resolver, pools LookupLP) *LPExtension {
	return &LPExtension{router: router, pools: pools}
}

func (l *LPExtension) SetupSource(cfg types.AssetPriceConfig, caller Resolver) error {
	if caller == nil || caller != l.router {
		return types.ErrOnlyPriceRouter
	}

	pool, err := l.pool(cfg)
	if err != nil {
		return err
	}

	// Prove both constituents are priceable before accepting the config.
	token0, _ := pool.Token0()
	token1, _ := pool.Token1()
	if _, err := caller.GetPriceInUSD(token0); err != nil {
		return err
	}
	if _, err := caller.GetPriceInUSD(token1); err != nil {
		return err
	}

	return nil
}

func (l *LPExtension) PriceInUSD(cfg types.AssetPriceConfig, resolver Resolver) (math.Int, error) {
	pool, err := l.pool(cfg)
	if err != nil {
		return math.Int{}, err
	}

	supply, err := pool.TotalSupply()
	if err != nil {
		return math.Int{}, err
	}
	if supply.IsNil() || !supply.IsPositive() {
		return math.Int{}, types.ErrZeroOrNegativePrice.Wrapf("lp source for %s has no supply", cfg.Asset)
	}

	reserve0, reserve1, err := pool.Reserves()
	if err != nil {
		return math.Int{}, err
	}

	token0, decimals0 := pool.Token0()
	token1, decimals1 := pool.Token1()

	value0, err := reserveValue(resolver, token0, decimals0, reserve0)
	if err != nil {
		return math.Int{}, err
	}
	value1, err := reserveValue(resolver, token1, decimals1, reserve1)
	if err != nil {
		return math.Int{}, err
	}

	return util.MulDivDown(value0.Add(value1), util.Pow10(cfg.Decimals), supply)
}

func (l *LPExtension) pool(cfg types.AssetPriceConfig) (LPSource, error) {
	extCfg, ok := cfg.Config.(types.ExtensionConfig)
	if !ok {
		return nil, types.ErrInvalidStrategyConfig.Wrapf("expected extension config for %s", cfg.Asset)
	}

	pool, ok := l.pools(extCfg.Params["pool"])
	if !ok {
		return nil, types.ErrUnknownSource.Wrapf("lp source %q", extCfg.Params["pool"])
	}

	return pool, nil
}

// reserveValue prices a raw reserve amount in USD at PriceDecimals precision.
func reserveValue(resolver Resolver, asset string, decimals uint8, reserve math.Int) (math.Int, error) {
	price, err := resolver.GetPriceInUSD(asset)
	if err != nil {
		return math.Int{}, err
	}
	return util.MulDivDown(reserve, price, util.Pow10(decimals))
}
