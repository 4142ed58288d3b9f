// Package pull refreshes a tab's working copy from the portal. Pull is
// one-directional remote-to-local: the fetched body becomes both the content
// and the dirty-detection anchor.
package pull

import (
	"context"
	"log/slog"

	"lmc/internal/errors"
	"lmc/internal/execguard"
	"lmc/internal/identity"
	"lmc/internal/portal"
	"lmc/internal/tabs"
)

// Gateway is the slice of the portal the synchronizer consumes.
type Gateway interface {
	FetchScript(ctx context.Context, mt identity.ModuleType, moduleID int, facet identity.Facet) (string, int, error)
}

// Rewriter rewrites a tab's mirrored file after a pull.
type Rewriter interface {
	RewriteFacet(tab *tabs.Tab, newContent string, newVersion int) error
}

// Result reports the outcome of a pull.
type Result struct {
	Success bool   `json:"success"`
	Version int    `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Synchronizer pulls remote script bodies into tabs.
type Synchronizer struct {
	tabs         *tabs.Collection
	gw           Gateway
	mirror       Rewriter
	guard        *execguard.Guard
	activePortal func() string
	logger       *slog.Logger
}

// NewSynchronizer creates a pull synchronizer. mirror may be nil when no
// repository mirror is configured.
func NewSynchronizer(collection *tabs.Collection, gw Gateway, mirror Rewriter, guard *execguard.Guard, activePortal func() string, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		tabs:         collection,
		gw:           gw,
		mirror:       mirror,
		guard:        guard,
		activePortal: activePortal,
		logger:       logger,
	}
}

// Pull fetches the current remote body of the tab's script facet and
// overwrites the tab's content and original-content anchor. For file-bound
// tabs the portal-content anchor is refreshed too and the mirrored file is
// rewritten; a file rewrite failure is logged and swallowed, because the
// in-memory tab state is already authoritative. A failed fetch leaves the
// tab unchanged.
func (s *Synchronizer) Pull(ctx context.Context, tabID string) (*Result, error) {
	tab := s.tabs.Get(tabID)
	if tab == nil {
		return nil, errors.Newf(errors.TabNotFound, "tab %s not found", tabID)
	}
	if !tab.ModuleBound() {
		return nil, errors.New(errors.NotModuleBound, "tab has no module binding")
	}
	if !tab.Binding.Facet.IsScript() {
		return nil, errors.New(errors.NotModuleBound, "metadata tabs have no script body to pull")
	}
	id := tab.Binding.Identity
	if active := s.activePortal(); active != id.PortalID {
		return nil, errors.Newf(errors.PortalInactive,
			"tab belongs to portal %q but %q is active; switch portals before pulling", id.PortalID, active)
	}

	guardKey := "pull/" + tabID
	if !s.guard.TryAcquire(guardKey) {
		return nil, errors.New(errors.OperationInProgress, "a pull is already in progress for this tab")
	}
	defer s.guard.Release(guardKey)

	token := s.guard.Begin(guardKey)

	remote, version, err := s.gw.FetchScript(ctx, id.ModuleType, id.ModuleID, tab.Binding.Facet)
	if err != nil {
		msg := "pull failed"
		if perr, ok := portal.AsPortalError(err); ok {
			msg = perr.UserMessage()
		}
		return &Result{Success: false, Error: msg}, errors.Wrap(errors.RemoteError, msg, err)
	}

	// The tab may have closed while the fetch was in flight; a stale
	// completion must not be applied.
	if !s.guard.Current(guardKey, token) || s.tabs.Get(tabID) == nil {
		return &Result{Success: false, Error: "tab closed during pull"}, nil
	}

	var fileBound bool
	s.tabs.Apply([]string{tabID}, func(t *tabs.Tab) {
		t.Content = remote
		t.OriginalContent = remote
		if t.FileBound() {
			fileBound = true
			pc := remote
			t.PortalContent = &pc
		}
		if version > 0 {
			t.Version = version
		}
	})

	if fileBound && s.mirror != nil {
		if err := s.mirror.RewriteFacet(s.tabs.Get(tabID), remote, version); err != nil {
			s.logger.Warn("Failed to rewrite mirrored file after pull",
				"tab", tabID,
				"error", err,
			)
		}
	}

	s.logger.Info("Pulled remote script", "module", id.Key(), "facet", tab.Binding.Facet, "version", version)
	return &Result{Success: true, Version: version}, nil
}
