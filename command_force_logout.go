package idle

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// ForceLogoutMessage asks the coordinator to terminate the session on
// behalf of an operator, e.g. a compliance officer closing an unattended
// workstation.
type ForceLogoutMessage struct {
	Reason     string `json:"reason" example:"workstation unattended" doc:"Why the session was terminated."`
	OnResponse func(resp *ForceLogoutResponse)
}

func (m ForceLogoutMessage) Type() string { return "session.force_logout" }

type ForceLogoutResponse struct {
	Success bool
}

type ForceLogoutHandler struct {
	coordinator *Coordinator
}

func NewForceLogoutHandler(coordinator *Coordinator) *ForceLogoutHandler {
	return &ForceLogoutHandler{coordinator: coordinator}
}

func (h *ForceLogoutHandler) Execute(ctx context.Context, event ForceLogoutMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during forced logout",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ForceLogoutHandler) execute(ctx context.Context, event ForceLogoutMessage) error {
	if h.coordinator == nil {
		return ErrNoCoordinator
	}

	// shares the coordinator's idempotent logout path, so a concurrent
	// expiry cannot double-fire the collaborator
	if err := h.coordinator.ForceLogout(ctx, event.Reason); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "forced logout failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ForceLogoutResponse{Success: true})
	}

	return nil
}
