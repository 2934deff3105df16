package config

import (
	"time"

	"cosmossdk.io/math"
	"github.com/go-playground/validator/v10"

	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

const (
	DenomUSD = "USD"

	defaultListenAddr = "0.0.0.0:7171"
	defaultBaseAsset  = "ETH"

	// Feed kinds
	FeedStatic    = "static"
	FeedREST      = "rest"
	FeedWebsocket = "websocket"

	// Pool kinds
	PoolStatic   = "static"
	PoolSubgraph = "subgraph"
)

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(assetValidation, Asset{})
	validate.RegisterStructValidation(feedValidation, Feed{})
}

type (
	// Config defines all necessary price-router configuration parameters.
	Config struct {
		Server           Server        `mapstructure:"server"`
		Governance       Governance    `mapstructure:"governance" validate:"required"`
		BaseAsset        string        `mapstructure:"base_asset"`
		EditAssetDelay   time.Duration `mapstructure:"edit_asset_delay"`
		TransitionPeriod time.Duration `mapstructure:"transition_period"`
		Feeds            []Feed        `mapstructure:"feeds" validate:"dive"`
		Pools            []Pool        `mapstructure:"pools" validate:"dive"`
		Assets           []Asset       `mapstructure:"assets" validate:"required,gt=0,dive"`
		Monitor          Monitor       `mapstructure:"monitor"`
	}

	// Monitor configures the guardian loop watching pending edits and
	// pricing health.
	Monitor struct {
		Enabled      bool          `mapstructure:"enabled"`
		Interval     time.Duration `mapstructure:"interval"`
		SlackToken   string        `mapstructure:"slack_token"`
		SlackChannel string        `mapstructure:"slack_channel"`
	}

	// Server defines the API server configuration.
	Server struct {
		ListenAddr     string   `mapstructure:"listen_addr"`
		WriteTimeout   string   `mapstructure:"write_timeout"`
		ReadTimeout    string   `mapstructure:"read_timeout"`
		VerboseCORS    bool     `mapstructure:"verbose_cors"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}

	// Governance names the owner and the transition authority.
	Governance struct {
		Owner     string `mapstructure:"owner" validate:"required"`
		Authority string `mapstructure:"authority" validate:"required"`
	}

	// Feed declares an external rate source to wire at startup.
	Feed struct {
		Name     string        `mapstructure:"name" validate:"required"`
		Kind     string        `mapstructure:"kind" validate:"required,oneof=static rest websocket"`
		URL      string        `mapstructure:"url"`
		Decimals uint8         `mapstructure:"decimals" validate:"required"`
		Interval time.Duration `mapstructure:"interval"`

		// Answer seeds a static feed with its initial answer.
		Answer string `mapstructure:"answer"`
	}

	// Pool declares an AMM observation source to wire at startup.
	Pool struct {
		Name     string        `mapstructure:"name" validate:"required"`
		Kind     string        `mapstructure:"kind" validate:"required,oneof=static subgraph"`
		Endpoint string        `mapstructure:"endpoint"`
		PoolID   string        `mapstructure:"pool_id"`
		MeanTick int64         `mapstructure:"mean_tick"`
		Lookback time.Duration `mapstructure:"lookback"`
	}

	// Asset declares a registry entry to add at startup, including the
	// human-supplied expected price the live answer is checked against.
	Asset struct {
		Name          string        `mapstructure:"name" validate:"required"`
		Decimals      uint8         `mapstructure:"decimals"`
		Strategy      string        `mapstructure:"strategy" validate:"required,oneof=direct_feed time_weighted extension"`
		Source        string        `mapstructure:"source" validate:"required"`
		ExpectedPrice string        `mapstructure:"expected_price" validate:"required"`
		Heartbeat     time.Duration `mapstructure:"heartbeat"`
		MinPrice      string        `mapstructure:"min_price"`
		MaxPrice      string        `mapstructure:"max_price"`
		InETH         bool          `mapstructure:"in_eth"`
		Window        time.Duration `mapstructure:"window"`
		QuoteAsset    string        `mapstructure:"quote_asset"`
		QuoteDecimals uint8         `mapstructure:"quote_decimals"`

		// Params is the opaque extension configuration.
		Params map[string]string `mapstructure:"params"`
	}
)

// assetValidation is custom validation for the Asset struct.
func assetValidation(sl validator.StructLevel) {
	asset := sl.Current().Interface().(Asset)

	switch asset.Strategy {
	case string(types.StrategyDirectFeed):
		if asset.Heartbeat <= 0 {
			sl.ReportError(asset.Heartbeat, "heartbeat", "Heartbeat", "missingHeartbeat", "")
		}
		if asset.MinPrice == "" || asset.MaxPrice == "" {
			sl.ReportError(asset.MinPrice, "min_price", "MinPrice", "missingPriceBounds", "")
		}

	case string(types.StrategyTimeWeighted):
		if asset.Window <= 0 {
			sl.ReportError(asset.Window, "window", "Window", "missingWindow", "")
		}
		if asset.QuoteAsset == "" {
			sl.ReportError(asset.QuoteAsset, "quote_asset", "QuoteAsset", "missingQuoteAsset", "")
		}
	}
}

// feedValidation is custom validation for the Feed struct.
func feedValidation(sl validator.StructLevel) {
	feed := sl.Current().Interface().(Feed)

	if feed.Kind != FeedStatic && feed.URL == "" {
		sl.ReportError(feed.URL, "url", "URL", "missingFeedURL", "")
	}
	if feed.Kind == FeedREST && feed.Interval <= 0 {
		sl.ReportError(feed.Interval, "interval", "Interval", "missingFeedInterval", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// StrategyConfig converts an asset declaration into the typed registry
// config the router expects.
func (a Asset) StrategyConfig() (types.StrategyConfig, error) {
	switch a.Strategy {
	case string(types.StrategyDirectFeed):
		minPrice, err := parsePrice(a.MinPrice)
		if err != nil {
			return nil, err
		}
		maxPrice, err := parsePrice(a.MaxPrice)
		if err != nil {
			return nil, err
		}
		return types.DirectFeedConfig{
			Heartbeat: a.Heartbeat,
			MinPrice:  minPrice,
			MaxPrice:  maxPrice,
			InETH:     a.InETH,
		}, nil

	case string(types.StrategyTimeWeighted):
		cfg := types.TimeWeightedConfig{
			Window:        a.Window,
			QuoteAsset:    a.QuoteAsset,
			QuoteDecimals: a.QuoteDecimals,
		}
		if a.MinPrice != "" {
			minPrice, err := parsePrice(a.MinPrice)
			if err != nil {
				return nil, err
			}
			cfg.MinPrice = minPrice
		}
		if a.MaxPrice != "" {
			maxPrice, err := parsePrice(a.MaxPrice)
			if err != nil {
				return nil, err
			}
			cfg.MaxPrice = maxPrice
		}
		return cfg, nil

	case string(types.StrategyExtension):
		return types.ExtensionConfig{Params: a.Params}, nil

	default:
		return nil, types.ErrUnknownStrategy.Wrapf("%q", a.Strategy)
	}
}

// InitialAnswer parses a static feed's seed answer at the feed's precision.
func (f Feed) InitialAnswer() (math.Int, error) {
	if f.Answer == "" {
		return math.ZeroInt(), nil
	}
	dec, err := math.LegacyNewDecFromStr(f.Answer)
	if err != nil {
		return math.Int{}, err
	}
	return dec.MulInt(util.Pow10(f.Decimals)).TruncateInt(), nil
}

// ExpectedAnswer parses the asset's expected price into PriceDecimals
// precision.
func (a Asset) ExpectedAnswer() (math.Int, error) {
	return parsePrice(a.ExpectedPrice)
}

// parsePrice converts a human decimal string (e.g. "1.00") into an integer
// price at types.PriceDecimals precision.
func parsePrice(s string) (math.Int, error) {
	dec, err := math.LegacyNewDecFromStr(s)
	if err != nil {
		return math.Int{}, err
	}
	return dec.MulInt(util.Pow10(types.PriceDecimals)).TruncateInt(), nil
}

// ListenAddrOrDefault returns the configured listen address or the default.
func (s Server) ListenAddrOrDefault() string {
	if s.ListenAddr == "" {
		return defaultListenAddr
	}
	return s.ListenAddr
}

// BaseAssetOrDefault returns the configured base asset or the default.
func (c Config) BaseAssetOrDefault() string {
	if c.BaseAsset == "" {
		return defaultBaseAsset
	}
	return c.BaseAsset
}
