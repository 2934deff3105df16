package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

const defaultTimeout = 10 * time.Second

var _ strategy.FeedSource = (*REST)(nil)

// restAnswer is the payload a REST feed endpoint returns.
type restAnswer struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// REST is a FeedSource that polls a JSON price endpoint on a fixed interval
// and retains the latest answer.
type REST struct {
	logger   zerolog.Logger
	name     string
	url      string
	client   *http.Client
	decimals uint8
	interval time.Duration

	mtx       sync.RWMutex
	answer    math.Int
	updatedAt time.Time
}

func NewREST(
	ctx context.Context,
	logger zerolog.Logger,
	name, url string,
	decimals uint8,
	interval time.Duration,
) *REST {
	r := &REST{
		logger:   logger.With().Str("feed", name).Logger(),
		name:     name,
		url:      url,
		client:   &http.Client{Timeout: defaultTimeout},
		decimals: decimals,
		interval: interval,
	}

	go r.startPolling(ctx)

	return r
}

func (r *REST) startPolling(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.fetch(ctx); err != nil {
			r.logger.Err(err).Msg("failed to fetch feed answer")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *REST) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed %s returned status %d", r.name, resp.StatusCode)
	}

	var answer restAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Errorf("failed to decode feed %s answer: %w", r.name, err)
	}

	price, err := math.LegacyNewDecFromStr(answer.Price)
	if err != nil {
		return fmt.Errorf("failed to parse feed %s price (%s): %w", r.name, answer.Price, err)
	}

	updatedAt := time.Now()
	if answer.Timestamp > 0 {
		updatedAt = time.Unix(answer.Timestamp, 0)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.answer = price.MulInt(util.Pow10(r.decimals)).TruncateInt()
	r.updatedAt = updatedAt

	return nil
}

func (r *REST) LatestAnswer() (math.Int, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.answer.IsNil() {
		return math.Int{}, types.ErrStalePrice.Wrapf("feed %s has no answer yet", r.name)
	}
	return r.answer, nil
}

func (r *REST) LatestTimestamp() (time.Time, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.updatedAt.IsZero() {
		return time.Time{}, types.ErrStalePrice.Wrapf("feed %s has no answer yet", r.name)
	}
	return r.updatedAt, nil
}

func (r *REST) Decimals() uint8 {
	return r.decimals
}
