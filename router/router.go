package router

import (
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

const (
	// DefaultEditAssetDelay is the mandatory wait between startEdit and
	// completeEdit. The window exists so guardians can react to a malicious
	// or erroneous configuration change before it takes effect.
	DefaultEditAssetDelay = 7 * 24 * time.Hour

	// DefaultTransitionPeriod is the mandatory wait for an owner handoff.
	DefaultTransitionPeriod = 7 * 24 * time.Hour

	// DefaultBaseAsset is the secondary quote unit; feeds flagged InETH are
	// re-denominated through this asset's own USD price.
	DefaultBaseAsset = "ETH"
)

// allowedAnswerDeviation is how far a live price may stray from the
// human-supplied expected answer at add/edit time.
var allowedAnswerDeviation = math.LegacyMustNewDecFromStr("0.10")

// Router is the price router: the registry of supported assets and their
// pricing strategies, the valuation engine over them, and the delayed
// edit/ownership state machines gating every configuration change.
//
// Reads are unrestricted; mutations are owner-gated and serialized under a
// single write lock, mirroring the atomic per-call execution model the
// design targets.
type Router struct {
	logger zerolog.Logger
	now    func() time.Time

	mtx sync.RWMutex

	owner             string
	authority         string
	pendingOwner      string
	transitionReadyAt time.Time

	baseAsset        string
	editDelay        time.Duration
	transitionPeriod time.Duration

	assets       map[string]types.AssetPriceConfig
	pendingEdits map[string]pendingEdit

	feeds      map[string]strategy.FeedSource
	pools      map[string]strategy.PoolSource
	extensions map[string]strategy.Extension
	rates      map[string]strategy.RateSource
	lps        map[string]strategy.LPSource

	strategies map[types.StrategyKind]strategy.Strategy

	// self is the router's canonical resolver identity, handed to extensions
	// at setup so they can verify the caller.
	self strategy.Resolver
}

type pendingEdit struct {
	asset      string
	editableAt time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithEditAssetDelay overrides the edit delay.
func WithEditAssetDelay(delay time.Duration) Option {
	return func(r *Router) { r.editDelay = delay }
}

// WithTransitionPeriod overrides the owner transition period.
func WithTransitionPeriod(period time.Duration) Option {
	return func(r *Router) { r.transitionPeriod = period }
}

// WithBaseAsset overrides the secondary quote unit.
func WithBaseAsset(asset string) Option {
	return func(r *Router) { r.baseAsset = asset }
}

// New creates a router owned by owner, with authority as the transition
// authority for emergency owner handoffs.
func New(logger zerolog.Logger, owner, authority string, opts ...Option) *Router {
	r := &Router{
		logger:           logger.With().Str("module", "router").Logger(),
		now:              time.Now,
		owner:            owner,
		authority:        authority,
		baseAsset:        DefaultBaseAsset,
		editDelay:        DefaultEditAssetDelay,
		transitionPeriod: DefaultTransitionPeriod,
		assets:           make(map[string]types.AssetPriceConfig),
		pendingEdits:     make(map[string]pendingEdit),
		feeds:            make(map[string]strategy.FeedSource),
		pools:            make(map[string]strategy.PoolSource),
		extensions:       make(map[string]strategy.Extension),
		rates:            make(map[string]strategy.RateSource),
		lps:              make(map[string]strategy.LPSource),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.self = &callScope{router: r}
	r.strategies = map[types.StrategyKind]strategy.Strategy{
		types.StrategyDirectFeed:   strategy.NewDirectFeed(r.lookupFeed, func() time.Time { return r.now() }),
		types.StrategyTimeWeighted: strategy.NewTimeWeighted(r.lookupPool),
		types.StrategyExtension:    strategy.NewExtensionStrategy(r.lookupExtension),
	}

	return r
}

// Resolver returns the router's canonical resolver identity. Extensions are
// constructed against it and reject setup calls from anyone else.
func (r *Router) Resolver() strategy.Resolver {
	return r.self
}

// RegisterFeed wires a direct feed source under a name referable from asset
// configs.
func (r *Router) RegisterFeed(name string, src strategy.FeedSource) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.feeds[name] = src
}

// RegisterPool wires an AMM pool observation source.
func (r *Router) RegisterPool(name string, src strategy.PoolSource) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.pools[name] = src
}

// RegisterExtension wires an extension pricing strategy.
func (r *Router) RegisterExtension(name string, ext strategy.Extension) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.extensions[name] = ext
}

// RegisterRate wires a redemption-rate source used by wrapper extensions.
func (r *Router) RegisterRate(name string, src strategy.RateSource) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.rates[name] = src
}

// RegisterLP wires an LP reserve source used by LP extensions.
func (r *Router) RegisterLP(name string, src strategy.LPSource) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.lps[name] = src
}

func (r *Router) lookupFeed(name string) (strategy.FeedSource, bool) {
	src, ok := r.feeds[name]
	return src, ok
}

func (r *Router) lookupPool(name string) (strategy.PoolSource, bool) {
	src, ok := r.pools[name]
	return src, ok
}

func (r *Router) lookupExtension(name string) (strategy.Extension, bool) {
	ext, ok := r.extensions[name]
	return ext, ok
}

// LookupRate resolves a registered rate source; it is the lookup extensions
// are constructed with.
func (r *Router) LookupRate(name string) (strategy.RateSource, bool) {
	src, ok := r.rates[name]
	return src, ok
}

// LookupLP resolves a registered LP source.
func (r *Router) LookupLP(name string) (strategy.LPSource, bool) {
	src, ok := r.lps[name]
	return src, ok
}

// AddAsset registers a new asset and its pricing strategy. The config is
// committed immediately: the asset was previously untrusted and carries no
// value yet, so no delay applies. The live price must pass strategy
// validation and land within allowedAnswerDeviation of expectedPrice.
func (r *Router) AddAsset(caller string, cfg types.AssetPriceConfig, expectedPrice math.Int) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.ownerGateLocked(caller); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if existing, ok := r.assets[cfg.Asset]; ok && existing.Supported {
		return types.ErrAssetAlreadyAdded.Wrap(cfg.Asset)
	}

	if err := r.validateLiveLocked(cfg, expectedPrice); err != nil {
		return err
	}

	cfg.Supported = true
	r.assets[cfg.Asset] = cfg

	r.logger.Info().
		Str("asset", cfg.Asset).
		Str("strategy", cfg.StrategyKind.String()).
		Str("source", cfg.Source).
		Msg("asset added")

	return nil
}

// IsSupported reports whether the asset has a live config.
func (r *Router) IsSupported(asset string) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	cfg, ok := r.assets[asset]
	return ok && cfg.Supported
}

// GetConfig returns the asset's registry record.
func (r *Router) GetConfig(asset string) (types.AssetPriceConfig, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	cfg, ok := r.assets[asset]
	if !ok {
		return types.AssetPriceConfig{}, types.ErrAssetNotAdded.Wrap(asset)
	}
	return cfg, nil
}

// SupportedAssets returns the identifiers of all supported assets.
func (r *Router) SupportedAssets() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	assets := make([]string, 0, len(r.assets))
	for asset, cfg := range r.assets {
		if cfg.Supported {
			assets = append(assets, asset)
		}
	}
	return assets
}

// ownerGateLocked is the shared gate for every owner-only mutation. While an
// owner transition is in flight all owner-gated calls are rejected, so a
// lame-duck owner cannot slip changes in before the handoff.
func (r *Router) ownerGateLocked(caller string) error {
	if r.pendingOwner != "" {
		return types.ErrTransitionPending
	}
	if caller != r.owner {
		return types.ErrUnauthorized.Wrapf("caller %q is not the owner", caller)
	}
	return nil
}

// validateLiveLocked runs the strategy's config-time validation against the
// live source and checks the resulting price against the expected answer.
// Used verbatim by AddAsset and CompleteEdit so every mutation passes the
// same checks as creation.
func (r *Router) validateLiveLocked(cfg types.AssetPriceConfig, expectedPrice math.Int) error {
	strat, ok := r.strategies[cfg.StrategyKind]
	if !ok {
		return types.ErrUnknownStrategy.Wrapf("%q", cfg.StrategyKind)
	}

	if err := strat.Setup(cfg, r.self); err != nil {
		return err
	}

	price, err := r.unitPriceInUSDLocked(strat, cfg, 0)
	if err != nil {
		return err
	}

	if expectedPrice.IsNil() || !expectedPrice.IsPositive() {
		return types.ErrBadAnswer.Wrap("expected price must be positive")
	}

	deviation := math.LegacyNewDecFromInt(price.Sub(expectedPrice).Abs()).
		QuoInt(expectedPrice)
	if deviation.GT(allowedAnswerDeviation) {
		return types.ErrBadAnswer.Wrapf(
			"live price %s deviates %s from expected %s", price, deviation, expectedPrice,
		)
	}

	return nil
}

// unitPriceInUSDLocked prices an asset config through its strategy and
// resolves base-asset denominated answers into USD.
func (r *Router) unitPriceInUSDLocked(strat strategy.Strategy, cfg types.AssetPriceConfig, depth int) (math.Int, error) {
	unit, err := strat.Price(cfg, &callScope{router: r, depth: depth})
	if err != nil {
		return math.Int{}, err
	}

	if !unit.InETH {
		return unit.Price, nil
	}

	basePrice, err := r.priceInUSDLocked(r.baseAsset, depth+1)
	if err != nil {
		return math.Int{}, err
	}
	return util.MulDivDown(unit.Price, basePrice, util.Pow10(types.PriceDecimals))
}

// priceInUSDLocked resolves a registered asset's unit price at PriceDecimals
// precision. Callers must hold at least the read lock; recursive constituent
// lookups stay within the same lock acquisition.
func (r *Router) priceInUSDLocked(asset string, depth int) (math.Int, error) {
	if depth > strategy.MaxPriceCallDepth {
		return math.Int{}, types.ErrPriceCallDepthExceeded.Wrapf("while pricing %s", asset)
	}

	cfg, ok := r.assets[asset]
	if !ok || !cfg.Supported {
		return math.Int{}, types.ErrUnsupportedAsset.Wrap(asset)
	}

	strat, ok := r.strategies[cfg.StrategyKind]
	if !ok {
		return math.Int{}, types.ErrUnknownStrategy.Wrapf("%q", cfg.StrategyKind)
	}

	return r.unitPriceInUSDLocked(strat, cfg, depth)
}

// callScope is the resolver handed to strategies and extensions. It pipes
// recursive lookups back into the router without re-acquiring locks and
// carries the call-depth guard.
type callScope struct {
	router *Router
	depth  int
}

var _ strategy.Resolver = (*callScope)(nil)

func (s *callScope) GetPriceInUSD(asset string) (math.Int, error) {
	return s.router.priceInUSDLocked(asset, s.depth+1)
}
