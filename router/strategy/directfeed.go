package strategy

import (
	"time"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

var _ Strategy = (*DirectFeed)(nil)

// DirectFeed prices an asset from a single external rate source, enforcing a
// heartbeat and hard min/max bounds on every call. The bounds are stored, not
// inferred, so a depegged or exploited feed fails loudly instead of pricing
// through.
type DirectFeed struct {
	feeds LookupFeed
	now   func() time.Time
}

func NewDirectFeed(feeds LookupFeed, now func() time.Time) *DirectFeed {
	return &DirectFeed{feeds: feeds, now: now}
}

func (d *DirectFeed) Setup(cfg types.AssetPriceConfig, _ Resolver) error {
	if _, ok := cfg.Config.(types.DirectFeedConfig); !ok {
		return types.ErrInvalidStrategyConfig.Wrapf("expected direct feed config for %s", cfg.Asset)
	}
	if _, ok := d.feeds(cfg.Source); !ok {
		return types.ErrUnknownSource.Wrapf("feed %q", cfg.Source)
	}
	return nil
}

func (d *DirectFeed) Price(cfg types.AssetPriceConfig, _ Resolver) (types.UnitPrice, error) {
	feedCfg, ok := cfg.Config.(types.DirectFeedConfig)
	if !ok {
		return types.UnitPrice{}, types.ErrInvalidStrategyConfig.Wrapf("expected direct feed config for %s", cfg.Asset)
	}

	feed, ok := d.feeds(cfg.Source)
	if !ok {
		return types.UnitPrice{}, types.ErrUnknownSource.Wrapf("feed %q", cfg.Source)
	}

	answer, err := feed.LatestAnswer()
	if err != nil {
		return types.UnitPrice{}, err
	}
	if answer.IsNil() || !answer.IsPositive() {
		return types.UnitPrice{}, types.ErrZeroOrNegativePrice.Wrapf("feed %q answered %s", cfg.Source, answer)
	}

	updatedAt, err := feed.LatestTimestamp()
	if err != nil {
		return types.UnitPrice{}, err
	}
	if age := d.now().Sub(updatedAt); age > feedCfg.Heartbeat {
		return types.UnitPrice{}, types.ErrStalePrice.Wrapf(
			"feed %q is %s old, heartbeat %s", cfg.Source, age, feedCfg.Heartbeat,
		)
	}

	price, err := util.ChangeDecimals(answer, feed.Decimals(), types.PriceDecimals)
	if err != nil {
		return types.UnitPrice{}, err
	}

	if price.LT(feedCfg.MinPrice) {
		return types.UnitPrice{}, types.ErrBelowMinPrice.Wrapf("%s < %s", price, feedCfg.MinPrice)
	}
	if price.GT(feedCfg.MaxPrice) {
		return types.UnitPrice{}, types.ErrAboveMaxPrice.Wrapf("%s > %s", price, feedCfg.MaxPrice)
	}

	return types.UnitPrice{Price: price, InETH: feedCfg.InETH}, nil
}
