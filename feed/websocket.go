package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
	"github.com/cellar-network/price-router/util"
)

const reconnectWait = 5 * time.Second

var _ strategy.FeedSource = (*Websocket)(nil)

// wsTick is a streamed price update.
type wsTick struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// Websocket is a FeedSource that maintains a streaming connection to a ticker
// endpoint, retaining the most recent update. The connection is redialed with
// a fixed wait on any read failure.
type Websocket struct {
	logger   zerolog.Logger
	name     string
	url      string
	decimals uint8

	mtx       sync.RWMutex
	answer    math.Int
	updatedAt time.Time
}

func NewWebsocket(
	ctx context.Context,
	logger zerolog.Logger,
	name, url string,
	decimals uint8,
) *Websocket {
	w := &Websocket{
		logger:   logger.With().Str("feed", name).Logger(),
		name:     name,
		url:      url,
		decimals: decimals,
	}

	go w.run(ctx)

	return w
}

func (w *Websocket) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.stream(ctx); err != nil {
			w.logger.Err(err).Msg("websocket stream interrupted")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}

func (w *Websocket) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var tick wsTick
		if err := json.Unmarshal(message, &tick); err != nil {
			w.logger.Err(err).Msg("failed to decode ticker message")
			continue
		}

		price, err := math.LegacyNewDecFromStr(tick.Price)
		if err != nil {
			w.logger.Err(err).Str("price", tick.Price).Msg("failed to parse ticker price")
			continue
		}

		updatedAt := time.Now()
		if tick.Timestamp > 0 {
			updatedAt = time.Unix(tick.Timestamp, 0)
		}

		w.mtx.Lock()
		w.answer = price.MulInt(util.Pow10(w.decimals)).TruncateInt()
		w.updatedAt = updatedAt
		w.mtx.Unlock()
	}
}

func (w *Websocket) LatestAnswer() (math.Int, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	if w.answer.IsNil() {
		return math.Int{}, types.ErrStalePrice.Wrapf("feed %s has no answer yet", w.name)
	}
	return w.answer, nil
}

func (w *Websocket) LatestTimestamp() (time.Time, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	if w.updatedAt.IsZero() {
		return time.Time{}, types.ErrStalePrice.Wrapf("feed %s has no answer yet", w.name)
	}
	return w.updatedAt, nil
}

func (w *Websocket) Decimals() uint8 {
	return w.decimals
}
