package router

import (
	"time"

	"github.com/cellar-network/price-router/router/types"
)

// TransitionOwner starts a delayed owner handoff. It is triggered by the
// transition authority, not the current owner; this is the emergency
// recovery path for a lost or compromised owner key.
func (r *Router) TransitionOwner(caller, newOwner string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if caller != r.authority {
		return types.ErrUnauthorized.Wrapf("caller %q is not the transition authority", caller)
	}
	if newOwner == "" {
		return types.ErrNewOwnerCannotBeZero
	}
	if r.pendingOwner != "" {
		return types.ErrTransitionPending
	}

	r.pendingOwner = newOwner
	r.transitionReadyAt = r.now().Add(r.transitionPeriod)

	r.logger.Info().
		Str("pending_owner", newOwner).
		Time("ready_at", r.transitionReadyAt).
		Msg("owner transition started")

	return nil
}

// CompleteTransition finalizes a pending handoff. Only the pending owner may
// complete it, and only after the transition period elapses.
func (r *Router) CompleteTransition(caller string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.pendingOwner == "" {
		return types.ErrTransitionNotPending
	}
	if caller != r.pendingOwner {
		return types.ErrUnauthorized.Wrapf("caller %q is not the pending owner", caller)
	}
	if r.now().Before(r.transitionReadyAt) {
		return types.ErrTransitionPending.Wrapf("ready at %s", r.transitionReadyAt)
	}

	r.owner = r.pendingOwner
	r.pendingOwner = ""
	r.transitionReadyAt = time.Time{}

	r.logger.Info().Str("owner", r.owner).Msg("owner transition completed")

	return nil
}

// CancelTransition aborts a pending handoff.
func (r *Router) CancelTransition(caller string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if caller != r.authority {
		return types.ErrUnauthorized.Wrapf("caller %q is not the transition authority", caller)
	}
	if r.pendingOwner == "" {
		return types.ErrTransitionNotPending
	}

	cancelled := r.pendingOwner
	r.pendingOwner = ""
	r.transitionReadyAt = time.Time{}

	r.logger.Info().Str("pending_owner", cancelled).Msg("owner transition cancelled")

	return nil
}

// Owner returns the current authorized owner.
func (r *Router) Owner() string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.owner
}

// PendingOwner returns the owner a pending transition would install, or the
// empty string when none is pending.
func (r *Router) PendingOwner() string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.pendingOwner
}
