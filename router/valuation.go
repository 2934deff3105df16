package router

import (
	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

// GetPriceInUSD resolves an asset's unit price at types.PriceDecimals
// precision, converting through the base asset when the strategy quotes in
// ETH terms.
func (r *Router) GetPriceInUSD(asset string) (math.Int, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.priceInUSDLocked(asset, 0)
}

// GetValue prices amount of asset in terms of quote, rescaled from the
// asset's decimals to the quote's decimals.
func (r *Router) GetValue(asset string, amount math.Int, quote string) (math.Int, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.valueLocked(asset, amount, quote)
}

func (r *Router) valueLocked(asset string, amount math.Int, quote string) (math.Int, error) {
	if amount.IsNil() {
		return math.Int{}, util.ErrNilOperand
	}
	if asset == quote {
		return amount, nil
	}

	assetPrice, err := r.priceInUSDLocked(asset, 0)
	if err != nil {
		return math.Int{}, err
	}
	quotePrice, err := r.priceInUSDLocked(quote, 0)
	if err != nil {
		return math.Int{}, err
	}

	value, err := util.MulDivDown(amount, assetPrice, quotePrice)
	if err != nil {
		return math.Int{}, err
	}

	return util.ChangeDecimals(value, r.assets[asset].Decimals, r.assets[quote].Decimals)
}

// GetValues prices a batch of (asset, amount) positions in terms of quote and
// returns the total. Zero-amount positions are skipped before any pricing
// happens, so an absent position never forces its asset through a strategy.
func (r *Router) GetValues(assets []string, amounts []math.Int, quote string) (math.Int, error) {
	if len(assets) != len(amounts) {
		return math.Int{}, types.ErrLengthMismatch.Wrapf(
			"%d assets, %d amounts", len(assets), len(amounts),
		)
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	total := math.ZeroInt()
	for i, asset := range assets {
		if amounts[i].IsNil() {
			return math.Int{}, util.ErrNilOperand
		}
		if amounts[i].IsZero() {
			continue
		}

		value, err := r.valueLocked(asset, amounts[i], quote)
		if err != nil {
			return math.Int{}, err
		}
		total = total.Add(value)
	}

	return total, nil
}

// GetExchangeRate returns the value of one whole unit of base in terms of
// quote. The same-asset rate is exactly 10^baseDecimals.
func (r *Router) GetExchangeRate(base, quote string) (math.Int, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.exchangeRateLocked(base, quote)
}

func (r *Router) exchangeRateLocked(base, quote string) (math.Int, error) {
	cfg, ok := r.assets[base]
	if !ok || !cfg.Supported {
		return math.Int{}, types.ErrUnsupportedAsset.Wrap(base)
	}

	return r.valueLocked(base, util.Pow10(cfg.Decimals), quote)
}

// GetExchangeRates is the element-wise GetExchangeRate over bases.
func (r *Router) GetExchangeRates(bases []string, quote string) ([]math.Int, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	rates := make([]math.Int, len(bases))
	for i, base := range bases {
		rate, err := r.exchangeRateLocked(base, quote)
		if err != nil {
			return nil, err
		}
		rates[i] = rate
	}

	return rates, nil
}
