package sessionlock

import (
	"errors"
	"fmt"

	"github.com/neurlang/wayland/wl"
)

// ErrNoContext is returned when a registry carries no connection context.
var ErrNoContext = errors.New("sessionlock: registry has no context")

// Bind binds the ext_session_lock_manager_v1 global called name. The
// version is clamped to what this package implements.
func Bind(r *wl.Registry, name, version uint32) (*Manager, error) {
	ctx, _ := wl.GetUserData[wl.Context](r)
	if ctx == nil {
		return nil, ErrNoContext
	}
	m := NewManager(ctx)
	if err := r.Bind(name, ManagerInterface, NegotiateVersion(version), m); err != nil {
		return nil, fmt.Errorf("bind %s: %w", ManagerInterface, err)
	}
	return m, nil
}

// NegotiateVersion returns the version to bind given what the compositor
// advertises.
func NegotiateVersion(advertised uint32) uint32 {
	if advertised == 0 || advertised > ManagerVersion {
		return ManagerVersion
	}
	return advertised
}
