package router_test

import (
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cellar-network/price-router/feed"
	"github.com/cellar-network/price-router/router"
	"github.com/cellar-network/price-router/router/types"
)

const (
	testOwner     = "cellar-governance"
	testAuthority = "guardian-multisig"
)

// testClock is a settable time source shared by the router and its feeds.
type testClock struct {
	mtx sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires a router against static sources for ETH and USDC.
type fixture struct {
	clock    *testClock
	router   *router.Router
	ethFeed  *feed.Static
	usdcFeed *feed.Static
}

var (
	usdPrice = math.NewInt(100000000)    // 1.00
	ethPrice = math.NewInt(200000000000) // 2000.00
)

func usdcAssetConfig() types.AssetPriceConfig {
	return types.AssetPriceConfig{
		Asset:        "USDC",
		Decimals:     6,
		StrategyKind: types.StrategyDirectFeed,
		Source:       "usdc-feed",
		Config: types.DirectFeedConfig{
			Heartbeat: 24 * time.Hour,
			MinPrice:  math.NewInt(90000000),
			MaxPrice:  math.NewInt(110000000),
		},
	}
}

func ethAssetConfig() types.AssetPriceConfig {
	return types.AssetPriceConfig{
		Asset:        "ETH",
		Decimals:     18,
		StrategyKind: types.StrategyDirectFeed,
		Source:       "eth-feed",
		Config: types.DirectFeedConfig{
			Heartbeat: 24 * time.Hour,
			MinPrice:  math.NewInt(1),
			MaxPrice:  math.NewInt(10_000_000_00000000),
		},
	}
}

func newFixture(t *testing.T, opts ...router.Option) *fixture {
	t.Helper()

	clock := newTestClock()
	opts = append([]router.Option{router.WithClock(clock.Now)}, opts...)
	rtr := router.New(zerolog.Nop(), testOwner, testAuthority, opts...)

	ethFeed := feed.NewStatic(8, ethPrice, clock.Now())
	usdcFeed := feed.NewStatic(8, usdPrice, clock.Now())
	rtr.RegisterFeed("eth-feed", ethFeed)
	rtr.RegisterFeed("usdc-feed", usdcFeed)

	require.NoError(t, rtr.AddAsset(testOwner, ethAssetConfig(), ethPrice))
	require.NoError(t, rtr.AddAsset(testOwner, usdcAssetConfig(), usdPrice))

	return &fixture{
		clock:    clock,
		router:   rtr,
		ethFeed:  ethFeed,
		usdcFeed: usdcFeed,
	}
}

// refreshFeeds re-posts the current answers at the clock's present time so
// heartbeat checks pass after a time jump.
func (f *fixture) refreshFeeds() {
	f.ethFeed.SetAnswer(ethPrice, f.clock.Now())
	f.usdcFeed.SetAnswer(usdPrice, f.clock.Now())
}

func TestAddAsset(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.router.IsSupported("USDC"))
	require.True(t, f.router.IsSupported("ETH"))
	require.False(t, f.router.IsSupported("DOGE"))
	require.ElementsMatch(t, []string{"ETH", "USDC"}, f.router.SupportedAssets())

	cfg, err := f.router.GetConfig("USDC")
	require.NoError(t, err)
	require.Equal(t, uint8(6), cfg.Decimals)
	require.Equal(t, types.StrategyDirectFeed, cfg.StrategyKind)
	require.True(t, cfg.Supported)

	_, err = f.router.GetConfig("DOGE")
	require.ErrorIs(t, err, types.ErrAssetNotAdded)
}

func TestAddAssetRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	err := f.router.AddAsset(testOwner, usdcAssetConfig(), usdPrice)
	require.ErrorIs(t, err, types.ErrAssetAlreadyAdded)
}

func TestAddAssetRejectsNonOwner(t *testing.T) {
	f := newFixture(t)

	cfg := usdcAssetConfig()
	cfg.Asset = "DAI"
	cfg.Source = "usdc-feed"

	err := f.router.AddAsset("intruder", cfg, usdPrice)
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.False(t, f.router.IsSupported("DAI"))
}

func TestAddAssetRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t)

	cfg := usdcAssetConfig()
	cfg.Asset = "DAI"
	cfg.Config = types.DirectFeedConfig{
		Heartbeat: time.Hour,
		MinPrice:  math.NewInt(200000000),
		MaxPrice:  math.NewInt(100000000),
	}

	err := f.router.AddAsset(testOwner, cfg, usdPrice)
	require.ErrorIs(t, err, types.ErrMinPriceGreaterThanMaxPrice)
}

func TestAddAssetRejectsUnknownSource(t *testing.T) {
	f := newFixture(t)

	cfg := usdcAssetConfig()
	cfg.Asset = "DAI"
	cfg.Source = "dai-feed"

	err := f.router.AddAsset(testOwner, cfg, usdPrice)
	require.ErrorIs(t, err, types.ErrUnknownSource)
}

func TestAddAssetRejectsDeviatingAnswer(t *testing.T) {
	f := newFixture(t)

	daiFeed := feed.NewStatic(8, usdPrice, f.clock.Now())
	f.router.RegisterFeed("dai-feed", daiFeed)

	cfg := usdcAssetConfig()
	cfg.Asset = "DAI"
	cfg.Source = "dai-feed"

	// expecting 1.20 against a live 1.00 is a 16.7% deviation
	err := f.router.AddAsset(testOwner, cfg, math.NewInt(120000000))
	require.ErrorIs(t, err, types.ErrBadAnswer)
	require.False(t, f.router.IsSupported("DAI"))

	// 1.05 is within the 10% tolerance
	require.NoError(t, f.router.AddAsset(testOwner, cfg, math.NewInt(105000000)))
	require.True(t, f.router.IsSupported("DAI"))
}

func TestAddAssetRejectsNonPositiveExpectedPrice(t *testing.T) {
	f := newFixture(t)

	daiFeed := feed.NewStatic(8, usdPrice, f.clock.Now())
	f.router.RegisterFeed("dai-feed", daiFeed)

	cfg := usdcAssetConfig()
	cfg.Asset = "DAI"
	cfg.Source = "dai-feed"

	err := f.router.AddAsset(testOwner, cfg, math.ZeroInt())
	require.ErrorIs(t, err, types.ErrBadAnswer)

	err = f.router.AddAsset(testOwner, cfg, math.Int{})
	require.ErrorIs(t, err, types.ErrBadAnswer)
}

func TestAddAssetInETHConversion(t *testing.T) {
	f := newFixture(t)

	// a feed quoting 0.05 ETH per token resolves to 100.00 USD
	tokenFeed := feed.NewStatic(8, math.NewInt(5000000), f.clock.Now())
	f.router.RegisterFeed("token-feed", tokenFeed)

	cfg := types.AssetPriceConfig{
		Asset:        "TOKEN",
		Decimals:     18,
		StrategyKind: types.StrategyDirectFeed,
		Source:       "token-feed",
		Config: types.DirectFeedConfig{
			Heartbeat: 24 * time.Hour,
			MinPrice:  math.NewInt(1),
			MaxPrice:  math.NewInt(100000000),
			InETH:     true,
		},
	}

	require.NoError(t, f.router.AddAsset(testOwner, cfg, math.NewInt(10000000000)))

	price, err := f.router.GetPriceInUSD("TOKEN")
	require.NoError(t, err)
	require.Equal(t, math.NewInt(10000000000), price)
}
