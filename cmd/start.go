package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	v1 "github.com/cellar-network/price-router/api/v1"
	"github.com/cellar-network/price-router/config"
	"github.com/cellar-network/price-router/feed"
	"github.com/cellar-network/price-router/monitor"
	"github.com/cellar-network/price-router/router"
	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
)

const (
	defaultSrvTimeout = 15 * time.Second

	// Feeds with polling backends may not have an answer the instant the
	// process starts; asset bootstrap retries briefly before giving up.
	bootstrapAttempts = 5
	bootstrapWait     = 2 * time.Second
)

func getStartCmd() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start [config-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Starts the price router and its API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getCmdLogger(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.ParseConfig(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// listen for and trap any OS signal to gracefully shutdown and exit
			trapSignal(cancel, logger)

			rtr, err := buildRouter(ctx, logger, cfg)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)

			srv := apiServer(logger, cfg, rtr)
			g.Go(func() error {
				logger.Info().Str("listen_addr", srv.Addr).Msg("starting api server")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultSrvTimeout)
				defer shutdownCancel()
				return srv.Shutdown(shutdownCtx)
			})

			if cfg.Monitor.Enabled {
				notifier := monitor.NewSlackClient(logger, cfg.Monitor.SlackToken, cfg.Monitor.SlackChannel)
				guardian := monitor.NewGuardian(logger, rtr, notifier, cfg.Monitor.Interval)
				g.Go(func() error {
					guardian.Start(ctx)
					return nil
				})
			}

			return g.Wait()
		},
	}

	return startCmd
}

// buildRouter wires feeds, pools and extensions from the config and
// bootstraps the asset registry in declaration order, so quote assets must be
// declared before the assets priced through them.
func buildRouter(ctx context.Context, logger zerolog.Logger, cfg config.Config) (*router.Router, error) {
	opts := []router.Option{
		router.WithBaseAsset(cfg.BaseAssetOrDefault()),
	}
	if cfg.EditAssetDelay > 0 {
		opts = append(opts, router.WithEditAssetDelay(cfg.EditAssetDelay))
	}
	if cfg.TransitionPeriod > 0 {
		opts = append(opts, router.WithTransitionPeriod(cfg.TransitionPeriod))
	}

	rtr := router.New(logger, cfg.Governance.Owner, cfg.Governance.Authority, opts...)

	for _, f := range cfg.Feeds {
		switch f.Kind {
		case config.FeedStatic:
			answer, err := f.InitialAnswer()
			if err != nil {
				return nil, fmt.Errorf("failed to parse answer for feed %s: %w", f.Name, err)
			}
			rtr.RegisterFeed(f.Name, feed.NewStatic(f.Decimals, answer, time.Now()))

		case config.FeedREST:
			rtr.RegisterFeed(f.Name, feed.NewREST(ctx, logger, f.Name, f.URL, f.Decimals, f.Interval))

		case config.FeedWebsocket:
			rtr.RegisterFeed(f.Name, feed.NewWebsocket(ctx, logger, f.Name, f.URL, f.Decimals))
		}
	}

	for _, p := range cfg.Pools {
		switch p.Kind {
		case config.PoolStatic:
			rtr.RegisterPool(p.Name, feed.NewStaticPool(p.MeanTick, p.Lookback))

		case config.PoolSubgraph:
			rtr.RegisterPool(p.Name, feed.NewSubgraphPool(logger, p.Endpoint, p.PoolID))
		}
	}

	rtr.RegisterExtension("wrapper", strategy.NewWrapperExtension(rtr.Resolver(), rtr.LookupRate))
	rtr.RegisterExtension("lp", strategy.NewLPExtension(rtr.Resolver(), rtr.LookupLP))

	for _, a := range cfg.Assets {
		if err := bootstrapAsset(rtr, cfg.Governance.Owner, a); err != nil {
			return nil, fmt.Errorf("failed to add asset %s: %w", a.Name, err)
		}
	}

	return rtr, nil
}

func bootstrapAsset(rtr *router.Router, owner string, a config.Asset) error {
	strategyCfg, err := a.StrategyConfig()
	if err != nil {
		return err
	}
	expected, err := a.ExpectedAnswer()
	if err != nil {
		return err
	}

	assetCfg := types.AssetPriceConfig{
		Asset:        a.Name,
		Decimals:     a.Decimals,
		StrategyKind: types.StrategyKind(a.Strategy),
		Source:       a.Source,
		Config:       strategyCfg,
	}

	for attempt := 1; ; attempt++ {
		err = rtr.AddAsset(owner, assetCfg, expected)
		if err == nil || attempt >= bootstrapAttempts {
			return err
		}
		time.Sleep(bootstrapWait)
	}
}

func apiServer(logger zerolog.Logger, cfg config.Config, rtr *router.Router) *http.Server {
	apiRouter := mux.NewRouter()
	v1.New(logger, cfg, rtr).RegisterRoutes(apiRouter, v1.APIPathPrefix)

	writeTimeout := defaultSrvTimeout
	if d, err := time.ParseDuration(cfg.Server.WriteTimeout); err == nil && d > 0 {
		writeTimeout = d
	}
	readTimeout := defaultSrvTimeout
	if d, err := time.ParseDuration(cfg.Server.ReadTimeout); err == nil && d > 0 {
		readTimeout = d
	}

	return &http.Server{
		Addr:         cfg.Server.ListenAddrOrDefault(),
		Handler:      apiRouter,
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,
	}
}
