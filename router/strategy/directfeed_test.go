package strategy_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/cellar-network/price-router/feed"
	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
)

// staticResolver resolves constituent prices from a fixed map.
type staticResolver map[string]math.Int

func (r staticResolver) GetPriceInUSD(asset string) (math.Int, error) {
	price, ok := r[asset]
	if !ok {
		return math.Int{}, types.ErrUnsupportedAsset.Wrap(asset)
	}
	return price, nil
}

func feedLookup(feeds map[string]strategy.FeedSource) strategy.LookupFeed {
	return func(name string) (strategy.FeedSource, bool) {
		src, ok := feeds[name]
		return src, ok
	}
}

func usdcConfig() types.AssetPriceConfig {
	return types.AssetPriceConfig{
		Asset:        "USDC",
		Decimals:     6,
		StrategyKind: types.StrategyDirectFeed,
		Source:       "usdc-feed",
		Config: types.DirectFeedConfig{
			Heartbeat: 24 * time.Hour,
			MinPrice:  math.NewInt(0),
			MaxPrice:  math.NewInt(200000000), // 2.00
		},
	}
}

func TestDirectFeedPrice(t *testing.T) {
	now := time.Now()
	src := feed.NewStatic(6, math.NewInt(1000000), now) // 1.00 at 6 decimals

	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{"usdc-feed": src}),
		func() time.Time { return now },
	)

	cfg := usdcConfig()
	require.NoError(t, directFeed.Setup(cfg, nil))

	unit, err := directFeed.Price(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(100000000), unit.Price)
	require.False(t, unit.InETH)
}

func TestDirectFeedUnknownSource(t *testing.T) {
	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{}),
		time.Now,
	)

	cfg := usdcConfig()
	require.ErrorIs(t, directFeed.Setup(cfg, nil), types.ErrUnknownSource)

	_, err := directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrUnknownSource)
}

func TestDirectFeedZeroOrNegativeAnswer(t *testing.T) {
	now := time.Now()
	src := feed.NewStatic(6, math.NewInt(0), now)

	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{"usdc-feed": src}),
		func() time.Time { return now },
	)

	cfg := usdcConfig()
	_, err := directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrZeroOrNegativePrice)

	src.SetAnswer(math.NewInt(-1000000), now)
	_, err = directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrZeroOrNegativePrice)
}

func TestDirectFeedStaleness(t *testing.T) {
	updatedAt := time.Now()
	now := updatedAt
	src := feed.NewStatic(6, math.NewInt(1000000), updatedAt)

	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{"usdc-feed": src}),
		func() time.Time { return now },
	)
	cfg := usdcConfig()

	// fresh answer prices fine
	_, err := directFeed.Price(cfg, nil)
	require.NoError(t, err)

	// advance past the heartbeat with no update
	now = updatedAt.Add(24*time.Hour + time.Second)
	_, err = directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrStalePrice)

	// a fresh update recovers
	src.SetAnswer(math.NewInt(1000000), now)
	_, err = directFeed.Price(cfg, nil)
	require.NoError(t, err)
}

func TestDirectFeedBounds(t *testing.T) {
	now := time.Now()
	src := feed.NewStatic(6, math.NewInt(1000000), now)

	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{"usdc-feed": src}),
		func() time.Time { return now },
	)

	cfg := usdcConfig()
	feedCfg := cfg.Config.(types.DirectFeedConfig)
	feedCfg.MinPrice = math.NewInt(90000000)  // 0.90
	feedCfg.MaxPrice = math.NewInt(110000000) // 1.10
	cfg.Config = feedCfg

	// inside the bounds
	_, err := directFeed.Price(cfg, nil)
	require.NoError(t, err)

	// depeg below min
	src.SetAnswer(math.NewInt(800000), now)
	_, err = directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrBelowMinPrice)

	// spike above max
	src.SetAnswer(math.NewInt(1200000), now)
	_, err = directFeed.Price(cfg, nil)
	require.ErrorIs(t, err, types.ErrAboveMaxPrice)
}

func TestDirectFeedInETHFlag(t *testing.T) {
	now := time.Now()
	src := feed.NewStatic(18, math.NewInt(1).MulRaw(1e18), now) // 1.0 ETH

	directFeed := strategy.NewDirectFeed(
		feedLookup(map[string]strategy.FeedSource{"steth-feed": src}),
		func() time.Time { return now },
	)

	cfg := types.AssetPriceConfig{
		Asset:        "stETH",
		Decimals:     18,
		StrategyKind: types.StrategyDirectFeed,
		Source:       "steth-feed",
		Config: types.DirectFeedConfig{
			Heartbeat: time.Hour,
			MinPrice:  math.NewInt(1),
			MaxPrice:  math.NewInt(1000000000000),
			InETH:     true,
		},
	}

	unit, err := directFeed.Price(cfg, nil)
	require.NoError(t, err)
	require.True(t, unit.InETH)
	require.Equal(t, math.NewInt(100000000), unit.Price)
}
