package strategy

import (
	"github.com/cellar-network/price-router/router/types"
)

var _ Strategy = (*ExtensionStrategy)(nil)

// ExtensionStrategy delegates pricing entirely to a registered Extension.
// Extensions may recursively resolve constituent assets through the resolver;
// keeping those lookups acyclic is the extension author's contract.
type ExtensionStrategy struct {
	extensions LookupExtension
}

func NewExtensionStrategy(extensions LookupExtension) *ExtensionStrategy {
	return &ExtensionStrategy{extensions: extensions}
}

func (e *ExtensionStrategy) Setup(cfg types.AssetPriceConfig, resolver Resolver) error {
	if _, ok := cfg.Config.(types.ExtensionConfig); !ok {
		return types.ErrInvalidStrategyConfig.Wrapf("expected extension config for %s", cfg.Asset)
	}

	ext, ok := e.extensions(cfg.Source)
	if !ok {
		return types.ErrUnknownSource.Wrapf("extension %q", cfg.Source)
	}

	return ext.SetupSource(cfg, resolver)
}

func (e *ExtensionStrategy) Price(cfg types.AssetPriceConfig, resolver Resolver) (types.UnitPrice, error) {
	ext, ok := e.extensions(cfg.Source)
	if !ok {
		return types.UnitPrice{}, types.ErrUnknownSource.Wrapf("extension %q", cfg.Source)
	}

	price, err := ext.PriceInUSD(cfg, resolver)
	if err != nil {
		return types.UnitPrice{}, err
	}
	if price.IsNil() || !price.IsPositive() {
		return types.UnitPrice{}, types.ErrZeroOrNegativePrice.Wrapf("extension %q priced %s", cfg.Source, cfg.Asset)
	}

	return types.UnitPrice{Price: price}, nil
}
