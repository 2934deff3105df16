package router

import (
	"time"

	"cosmossdk.io/math"

	"github.com/cellar-network/price-router/router/types"
)

// PendingEdit describes one disclosed-but-uncommitted configuration change.
type PendingEdit struct {
	Hash       string
	Asset      string
	EditableAt time.Time
}

// StartEdit discloses a proposed configuration change for an already-added
// asset. The returned hash binds the exact parameters; completeEdit and
// cancelEdit must reproduce them to match. The change only becomes
// committable after the edit delay elapses.
func (r *Router) StartEdit(
	caller, asset string,
	kind types.StrategyKind,
	source string,
	cfg types.StrategyConfig,
) (string, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.ownerGateLocked(caller); err != nil {
		return "", err
	}
	if _, ok := r.assets[asset]; !ok {
		return "", types.ErrAssetNotAdded.Wrap(asset)
	}

	hash := types.EditHash(asset, kind, source, cfg)
	editableAt := r.now().Add(r.editDelay)
	r.pendingEdits[hash] = pendingEdit{asset: asset, editableAt: editableAt}

	r.logger.Info().
		Str("asset", asset).
		Str("hash", hash).
		Time("editable_at", editableAt).
		Msg("asset edit started")

	return hash, nil
}

// CompleteEdit commits a previously disclosed change once its delay has
// elapsed. The new config passes exactly the same validation as addAsset
// before the live record is overwritten.
func (r *Router) CompleteEdit(
	caller, asset string,
	kind types.StrategyKind,
	source string,
	cfg types.StrategyConfig,
	expectedPrice math.Int,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.ownerGateLocked(caller); err != nil {
		return err
	}

	existing, ok := r.assets[asset]
	if !ok {
		return types.ErrAssetNotAdded.Wrap(asset)
	}

	hash := types.EditHash(asset, kind, source, cfg)
	pending, ok := r.pendingEdits[hash]
	if !ok {
		return types.ErrAssetNotPendingEdit.Wrap(asset)
	}
	if r.now().Before(pending.editableAt) {
		return types.ErrAssetNotEditable.Wrapf(
			"editable at %s", pending.editableAt,
		)
	}

	newCfg := types.AssetPriceConfig{
		Asset:        asset,
		Decimals:     existing.Decimals,
		StrategyKind: kind,
		Source:       source,
		Config:       cfg,
		Supported:    true,
	}
	if err := newCfg.Validate(); err != nil {
		return err
	}
	if err := r.validateLiveLocked(newCfg, expectedPrice); err != nil {
		return err
	}

	r.assets[asset] = newCfg
	delete(r.pendingEdits, hash)

	r.logger.Info().
		Str("asset", asset).
		Str("hash", hash).
		Str("strategy", kind.String()).
		Str("source", source).
		Msg("asset edit completed")

	return nil
}

// CancelEdit clears a pending edit without touching the live config.
func (r *Router) CancelEdit(
	caller, asset string,
	kind types.StrategyKind,
	source string,
	cfg types.StrategyConfig,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.ownerGateLocked(caller); err != nil {
		return err
	}

	hash := types.EditHash(asset, kind, source, cfg)
	if _, ok := r.pendingEdits[hash]; !ok {
		return types.ErrAssetNotPendingEdit.Wrap(asset)
	}
	delete(r.pendingEdits, hash)

	r.logger.Info().
		Str("asset", asset).
		Str("hash", hash).
		Msg("asset edit cancelled")

	return nil
}

// PendingEdits returns a snapshot of every disclosed, uncommitted edit,
// primarily for guardian monitoring.
func (r *Router) PendingEdits() []PendingEdit {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	edits := make([]PendingEdit, 0, len(r.pendingEdits))
	for hash, pending := range r.pendingEdits {
		edits = append(edits, PendingEdit{
			Hash:       hash,
			Asset:      pending.asset,
			EditableAt: pending.editableAt,
		})
	}
	return edits
}
