package monitor

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/router"
)

const defaultCheckInterval = time.Minute

// Pricer is the router surface the guardian watches.
type Pricer interface {
	SupportedAssets() []string
	GetPriceInUSD(asset string) (math.Int, error)
	PendingEdits() []router.PendingEdit
}

// Notifier forwards guardian alerts to an operator channel. Every alert handed
// to it must be surfaced; de-duplication happens in the guardian.
type Notifier interface {
	Notify(alerts []Alert)
}

// Guardian is the external watcher the edit delay exists for: it surfaces
// every disclosed-but-uncommitted configuration change, and every asset that
// currently fails to price, so a bad edit can be cancelled before it takes
// effect.
type Guardian struct {
	logger   zerolog.Logger
	pricer   Pricer
	notifier Notifier
	interval time.Duration

	notified map[string]time.Time
}

func NewGuardian(logger zerolog.Logger, pricer Pricer, notifier Notifier, interval time.Duration) *Guardian {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Guardian{
		logger:   logger.With().Str("module", "monitor").Logger(),
		pricer:   pricer,
		notifier: notifier,
		interval: interval,
		notified: make(map[string]time.Time),
	}
}

// Start runs the guardian loop until the context is cancelled.
func (g *Guardian) Start(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		g.notify(g.Check())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check performs one sweep and returns the alerts it produced.
func (g *Guardian) Check() []Alert {
	now := time.Now()
	alerts := []Alert{}

	for _, edit := range g.pricer.PendingEdits() {
		alerts = append(alerts, Alert{
			AlertType: PENDING_EDIT,
			Asset:     edit.Asset,
			Message: fmt.Sprintf(
				"pending edit %s for %s becomes committable at %s",
				edit.Hash, edit.Asset, edit.EditableAt.Format(time.RFC3339),
			),
			occurredAt: now,
		})
	}

	for _, asset := range g.pricer.SupportedAssets() {
		if _, err := g.pricer.GetPriceInUSD(asset); err != nil {
			alerts = append(alerts, Alert{
				AlertType:  PRICING_FAILURE,
				Asset:      asset,
				Message:    fmt.Sprintf("failed to price %s: %v", asset, err),
				occurredAt: now,
			})
		}
	}

	return alerts
}

// notify forwards alerts not already reported. Entries whose condition no
// longer appears in the sweep are dropped, so a recovered condition that
// recurs alerts again and the map stays bounded by live conditions.
func (g *Guardian) notify(alerts []Alert) {
	current := make(map[string]struct{}, len(alerts))
	fresh := []Alert{}
	for _, alert := range alerts {
		current[alert.Key()] = struct{}{}
		if _, ok := g.notified[alert.Key()]; ok {
			continue
		}
		g.notified[alert.Key()] = alert.occurredAt
		fresh = append(fresh, alert)
	}

	for key := range g.notified {
		if _, ok := current[key]; !ok {
			delete(g.notified, key)
		}
	}

	if len(fresh) == 0 {
		return
	}
	g.notifier.Notify(fresh)
}
