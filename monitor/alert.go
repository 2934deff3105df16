package monitor

import (
	"fmt"
	"time"
)

type AlertType int

const (
	PENDING_EDIT    = iota
	PRICING_FAILURE = iota
)

// Alert is one guardian observation worth surfacing: a disclosed
// configuration change waiting out its delay, or an asset that currently
// cannot be priced.
type Alert struct {
	AlertType  AlertType
	Asset      string
	Message    string
	occurredAt time.Time
}

func (a Alert) Key() string {
	return fmt.Sprintf("%d%s%s", a.AlertType, a.Asset, a.Message)
}
