package feed

import (
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/strategy"
	"github.com/cellar-network/price-router/router/types"
)

var (
	_ strategy.FeedSource = (*Static)(nil)
	_ strategy.PoolSource = (*StaticPool)(nil)
	_ strategy.RateSource = (*StaticRate)(nil)
	_ strategy.LPSource   = (*StaticLP)(nil)
)

// Static is an in-memory FeedSource whose answer is posted manually. It backs
// tests and locally attested feeds.
type Static struct {
	mtx       sync.RWMutex
	answer    math.Int
	updatedAt time.Time
	decimals  uint8
}

func NewStatic(decimals uint8, answer math.Int, updatedAt time.Time) *Static {
	return &Static{
		answer:    answer,
		updatedAt: updatedAt,
		decimals:  decimals,
	}
}

// SetAnswer posts a fresh answer with its update time.
func (s *Static) SetAnswer(answer math.Int, updatedAt time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.answer = answer
	s.updatedAt = updatedAt
}

func (s *Static) LatestAnswer() (math.Int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.answer, nil
}

func (s *Static) LatestTimestamp() (time.Time, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.updatedAt, nil
}

func (s *Static) Decimals() uint8 {
	return s.decimals
}

// StaticPool is an in-memory PoolSource with a settable mean tick and
// observation history.
type StaticPool struct {
	mtx      sync.RWMutex
	meanTick int64
	lookback time.Duration
}

func NewStaticPool(meanTick int64, lookback time.Duration) *StaticPool {
	return &StaticPool{meanTick: meanTick, lookback: lookback}
}

func (p *StaticPool) SetMeanTick(tick int64) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.meanTick = tick
}

func (p *StaticPool) SetLookback(lookback time.Duration) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.lookback = lookback
}

func (p *StaticPool) ObserveMeanTick(window time.Duration) (int64, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if window > p.lookback {
		return 0, types.ErrInsufficientObservationHistory.Wrapf(
			"pool supports %s, window %s", p.lookback, window,
		)
	}
	return p.meanTick, nil
}

func (p *StaticPool) MaxLookback() (time.Duration, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.lookback, nil
}

// StaticRate is an in-memory RateSource with a settable redemption rate.
type StaticRate struct {
	mtx      sync.RWMutex
	rate     math.Int
	decimals uint8
}

func NewStaticRate(rate math.Int, decimals uint8) *StaticRate {
	return &StaticRate{rate: rate, decimals: decimals}
}

func (r *StaticRate) SetRate(rate math.Int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.rate = rate
}

func (r *StaticRate) ExchangeRate() (math.Int, uint8, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.rate, r.decimals, nil
}

// StaticLP is an in-memory LPSource with settable reserves and supply.
type StaticLP struct {
	mtx sync.RWMutex

	token0    string
	decimals0 uint8
	token1    string
	decimals1 uint8

	reserve0 math.Int
	reserve1 math.Int
	supply   math.Int
}

func NewStaticLP(token0 string, decimals0 uint8, token1 string, decimals1 uint8) *StaticLP {
	return &StaticLP{
		token0:    token0,
		decimals0: decimals0,
		token1:    token1,
		decimals1: decimals1,
		reserve0:  math.ZeroInt(),
		reserve1:  math.ZeroInt(),
		supply:    math.ZeroInt(),
	}
}

func (p *StaticLP) SetReserves(reserve0, reserve1 math.Int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.reserve0 = reserve0
	p.reserve1 = reserve1
}

func (p *StaticLP) SetTotalSupply(supply math.Int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.supply = supply
}

func (p *StaticLP) Token0() (string, uint8) {
	return p.token0, p.decimals0
}

func (p *StaticLP) Token1() (string, uint8) {
	return p.token1, p.decimals1
}

func (p *StaticLP) Reserves() (math.Int, math.Int, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.reserve0, p.reserve1, nil
}

func (p *StaticLP) TotalSupply() (math.Int, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.supply, nil
}
