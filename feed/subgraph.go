package feed

import (
	"context"
	"strconv"
	"time"

	gql "github.com/hasura/go-graphql-client"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
)

var _ strategy.PoolSource = (*SubgraphPool)(nil)

type (
	// poolHourTickQuery fetches per-hour observed ticks for one pool,
	// newest first, bounded by a start timestamp.
	poolHourTickQuery struct {
		PoolHourDatas []struct {
			PeriodStartUnix float64 `graphql:"periodStartUnix"`
			Tick            string  `graphql:"tick"`
		} `graphql:"poolHourDatas(first: $first, orderBy: periodStartUnix, orderDirection: desc, where: {pool: $pool, periodStartUnix_gte: $start})"`
	}

	// poolOldestQuery fetches the pool's oldest recorded observation.
	poolOldestQuery struct {
		PoolHourDatas []struct {
			PeriodStartUnix float64 `graphql:"periodStartUnix"`
		} `graphql:"poolHourDatas(first: 1, orderBy: periodStartUnix, orderDirection: asc, where: {pool: $pool})"`
	}
)

// SubgraphPool is a PoolSource backed by a Uniswap-style subgraph. The mean
// tick over a window is the average of the hourly observed ticks inside it.
type SubgraphPool struct {
	logger zerolog.Logger
	client *gql.Client
	poolID string
}

func NewSubgraphPool(logger zerolog.Logger, endpoint, poolID string) *SubgraphPool {
	return &SubgraphPool{
		logger: logger.With().Str("pool", poolID).Logger(),
		client: gql.NewClient(endpoint, nil),
		poolID: poolID,
	}
}

func (p *SubgraphPool) ObserveMeanTick(window time.Duration) (int64, error) {
	start := time.Now().Add(-window).Unix()

	var query poolHourTickQuery
	variables := map[string]interface{}{
		"first": 168,
		"pool":  p.poolID,
		"start": int(start),
	}
	if err := p.client.Query(context.Background(), &query, variables); err != nil {
		return 0, err
	}

	if len(query.PoolHourDatas) == 0 {
		return 0, types.ErrInsufficientObservationHistory.Wrapf(
			"pool %s has no observations in the last %s", p.poolID, window,
		)
	}

	var sum int64
	for _, data := range query.PoolHourDatas {
		tick, err := strconv.ParseInt(data.Tick, 10, 64)
		if err != nil {
			return 0, err
		}
		sum += tick
	}

	return sum / int64(len(query.PoolHourDatas)), nil
}

func (p *SubgraphPool) MaxLookback() (time.Duration, error) {
	var query poolOldestQuery
	variables := map[string]interface{}{
		"pool": p.poolID,
	}
	if err := p.client.Query(context.Background(), &query, variables); err != nil {
		return 0, err
	}

	if len(query.PoolHourDatas) == 0 {
		return 0, types.ErrInsufficientObservationHistory.Wrapf("pool %s has no observations", p.poolID)
	}

	oldest := time.Unix(int64(query.PoolHourDatas[0].PeriodStartUnix), 0)
	return time.Since(oldest), nil
}
