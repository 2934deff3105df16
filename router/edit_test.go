package router_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/cellar-network/price-router/feed"
	"github.com/cellar-network/price-router/router"
	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
)

func tightUSDCConfig() types.DirectFeedConfig {
	return types.DirectFeedConfig{
		Heartbeat: 12 * time.Hour,
		MinPrice:  math.NewInt(95000000),
		MaxPrice:  math.NewInt(105000000),
	}
}

func TestEditLifecycle(t *testing.T) {
	f := newFixture(t)

	newCfg := tightUSDCConfig()
	hash, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg)
	require.NoError(t, err)
	require.Len(t, hash, 64)

	pending := f.router.PendingEdits()
	require.Len(t, pending, 1)
	require.Equal(t, hash, pending[0].Hash)
	require.Equal(t, "USDC", pending[0].Asset)
	require.Equal(t, f.clock.Now().Add(router.DefaultEditAssetDelay), pending[0].EditableAt)

	// committing before the delay elapses is rejected
	err = f.router.CompleteEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice)
	require.ErrorIs(t, err, types.ErrAssetNotEditable)

	// the live config is untouched while the edit is pending
	cfg, err := f.router.GetConfig("USDC")
	require.NoError(t, err)
	require.Equal(t, usdcAssetConfig().Config, cfg.Config)

	f.clock.Advance(router.DefaultEditAssetDelay)
	f.refreshFeeds()

	require.NoError(t, f.router.CompleteEdit(
		testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice,
	))

	cfg, err = f.router.GetConfig("USDC")
	require.NoError(t, err)
	require.Equal(t, newCfg, cfg.Config)
	require.Equal(t, uint8(6), cfg.Decimals)
	require.Empty(t, f.router.PendingEdits())
}

func TestCompleteEditRequiresExactParameters(t *testing.T) {
	f := newFixture(t)

	disclosed := tightUSDCConfig()
	_, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", disclosed)
	require.NoError(t, err)

	f.clock.Advance(router.DefaultEditAssetDelay)
	f.refreshFeeds()

	// a single changed parameter yields a different hash
	tweaked := disclosed
	tweaked.Heartbeat = 13 * time.Hour
	err = f.router.CompleteEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", tweaked, usdPrice)
	require.ErrorIs(t, err, types.ErrAssetNotPendingEdit)

	// the disclosed parameters still commit
	require.NoError(t, f.router.CompleteEdit(
		testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", disclosed, usdPrice,
	))
}

func TestStartEditRequiresAddedAsset(t *testing.T) {
	f := newFixture(t)

	_, err := f.router.StartEdit(testOwner, "DOGE", types.StrategyDirectFeed, "usdc-feed", tightUSDCConfig())
	require.ErrorIs(t, err, types.ErrAssetNotAdded)
}

func TestEditOwnerGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.router.StartEdit("intruder", "USDC", types.StrategyDirectFeed, "usdc-feed", tightUSDCConfig())
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.router.CompleteEdit("intruder", "USDC", types.StrategyDirectFeed, "usdc-feed", tightUSDCConfig(), usdPrice)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.router.CancelEdit("intruder", "USDC", types.StrategyDirectFeed, "usdc-feed", tightUSDCConfig())
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestCancelEdit(t *testing.T) {
	f := newFixture(t)

	newCfg := tightUSDCConfig()
	_, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg)
	require.NoError(t, err)

	require.NoError(t, f.router.CancelEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg))
	require.Empty(t, f.router.PendingEdits())

	// a cancelled edit cannot be committed, even after the delay
	f.clock.Advance(router.DefaultEditAssetDelay)
	f.refreshFeeds()
	err = f.router.CompleteEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice)
	require.ErrorIs(t, err, types.ErrAssetNotPendingEdit)

	// cancelling twice fails
	err = f.router.CancelEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg)
	require.ErrorIs(t, err, types.ErrAssetNotPendingEdit)
}

func TestCompleteEditRevalidatesLive(t *testing.T) {
	f := newFixture(t)

	newCfg := tightUSDCConfig()
	_, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg)
	require.NoError(t, err)

	f.clock.Advance(router.DefaultEditAssetDelay)
	f.ethFeed.SetAnswer(ethPrice, f.clock.Now())

	// the feed depegged below the new min bound during the delay
	f.usdcFeed.SetAnswer(math.NewInt(90000000), f.clock.Now())
	err = f.router.CompleteEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice)
	require.ErrorIs(t, err, types.ErrBelowMinPrice)

	// the old config keeps serving and the edit stays pending
	cfg, err := f.router.GetConfig("USDC")
	require.NoError(t, err)
	require.Equal(t, usdcAssetConfig().Config, cfg.Config)
	require.Len(t, f.router.PendingEdits(), 1)

	// once the feed recovers the same edit commits
	f.usdcFeed.SetAnswer(usdPrice, f.clock.Now())
	require.NoError(t, f.router.CompleteEdit(
		testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice,
	))
}

func TestFailedExtensionEditKeepsLivePricing(t *testing.T) {
	f := newFixture(t)

	f.router.RegisterRate("good-rate", feed.NewStaticRate(
		math.NewInt(1_050_000_000_000_000_000), 18, // 1.05
	))
	f.router.RegisterRate("bad-rate", feed.NewStaticRate(
		math.NewInt(9_000_000_000_000_000_000), 18, // 9.00
	))
	f.router.RegisterExtension("wrapper", strategy.NewWrapperExtension(
		f.router.Resolver(), f.router.LookupRate,
	))

	goodCfg := types.ExtensionConfig{Params: map[string]string{
		"underlying":  "ETH",
		"rate_source": "good-rate",
	}}
	expected := math.NewInt(210000000000) // 2100.00
	require.NoError(t, f.router.AddAsset(testOwner, types.AssetPriceConfig{
		Asset:        "wstETH",
		Decimals:     18,
		StrategyKind: types.StrategyExtension,
		Source:       "wrapper",
		Config:       goodCfg,
	}, expected))

	badCfg := types.ExtensionConfig{Params: map[string]string{
		"underlying":  "ETH",
		"rate_source": "bad-rate",
	}}
	_, err := f.router.StartEdit(testOwner, "wstETH", types.StrategyExtension, "wrapper", badCfg)
	require.NoError(t, err)

	f.clock.Advance(router.DefaultEditAssetDelay)
	f.refreshFeeds()

	// the bad rate prices at 18000.00 against the expected 2100.00
	err = f.router.CompleteEdit(testOwner, "wstETH", types.StrategyExtension, "wrapper", badCfg, expected)
	require.ErrorIs(t, err, types.ErrBadAnswer)

	// the rejected config left no trace anywhere: the registry still holds
	// the committed one and live pricing still follows it
	liveCfg, err := f.router.GetConfig("wstETH")
	require.NoError(t, err)
	require.Equal(t, types.StrategyConfig(goodCfg), liveCfg.Config)

	price, err := f.router.GetPriceInUSD("wstETH")
	require.NoError(t, err)
	require.Equal(t, expected, price)
}

func TestMultipleEditsCoexist(t *testing.T) {
	f := newFixture(t)

	first := tightUSDCConfig()
	second := tightUSDCConfig()
	second.Heartbeat = 6 * time.Hour

	hashFirst, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", first)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	hashSecond, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", second)
	require.NoError(t, err)
	require.NotEqual(t, hashFirst, hashSecond)

	pending := f.router.PendingEdits()
	require.Len(t, pending, 2)

	// each edit carries its own timer
	byHash := map[string]router.PendingEdit{}
	for _, p := range pending {
		byHash[p.Hash] = p
	}
	require.Equal(t,
		byHash[hashSecond].EditableAt.Sub(byHash[hashFirst].EditableAt),
		time.Hour,
	)
}

func TestEditDelayOption(t *testing.T) {
	f := newFixture(t, router.WithEditAssetDelay(time.Minute))

	newCfg := tightUSDCConfig()
	_, err := f.router.StartEdit(testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	require.NoError(t, f.router.CompleteEdit(
		testOwner, "USDC", types.StrategyDirectFeed, "usdc-feed", newCfg, usdPrice,
	))
}
