// Package commit builds minimal diff payloads from a tab's dirty state and
// submits them to the portal. A commit is atomic from the caller's
// perspective: either every baseline advances or none does.
package commit

import (
	"context"
	"log/slog"
	"sort"

	"lmc/internal/conflict"
	"lmc/internal/draft"
	"lmc/internal/errors"
	"lmc/internal/execguard"
	"lmc/internal/identity"
	"lmc/internal/portal"
	"lmc/internal/schema"
	"lmc/internal/tabs"
)

// Gateway is the slice of the portal the commit engine consumes.
type Gateway interface {
	CommitModule(ctx context.Context, mt identity.ModuleType, moduleID int, req *portal.CommitRequest) (*portal.CommitResult, error)
}

// Options modify a commit.
type Options struct {
	// Reason is an optional commit message recorded in the lineage.
	Reason string
	// Force commits even when the pre-commit conflict check reports
	// divergence. Without it a conflict blocks the commit.
	Force bool
	// SkipConflictCheck bypasses the pre-commit fetch entirely.
	SkipConflictCheck bool
}

// Result reports what a commit did.
type Result struct {
	Committed       bool             `json:"committed"`
	Conflict        *conflict.Result `json:"conflict,omitempty"`
	Version         int              `json:"version,omitempty"`
	ScriptCommitted bool             `json:"scriptCommitted"`
	FieldsCommitted []string         `json:"fieldsCommitted,omitempty"`
}

// Engine performs partial, conflict-aware commits.
type Engine struct {
	tabs     *tabs.Collection
	drafts   *draft.Store
	gw       Gateway
	detector *conflict.Detector
	guard    *execguard.Guard
	// activePortal reports the currently selected portal id. A tab owned
	// by a different portal is refused before any network call.
	activePortal func() string
	logger       *slog.Logger
}

// NewEngine creates a commit engine.
func NewEngine(collection *tabs.Collection, drafts *draft.Store, gw Gateway, detector *conflict.Detector, guard *execguard.Guard, activePortal func() string, logger *slog.Logger) *Engine {
	return &Engine{
		tabs:         collection,
		drafts:       drafts,
		gw:           gw,
		detector:     detector,
		guard:        guard,
		activePortal: activePortal,
		logger:       logger,
	}
}

// Commit pushes the tab's modified script and/or dirty metadata fields to
// the portal. On success every sibling tab's pristine baseline advances; on
// failure all local state is left byte-identical to its pre-call values.
func (e *Engine) Commit(ctx context.Context, tabID string, opts Options) (*Result, error) {
	tab := e.tabs.Get(tabID)
	if tab == nil {
		return nil, errors.Newf(errors.TabNotFound, "tab %s not found", tabID)
	}
	if !tab.ModuleBound() {
		return nil, errors.New(errors.NotModuleBound, "tab has no module binding")
	}
	id := tab.Binding.Identity
	if active := e.activePortal(); active != id.PortalID {
		return nil, errors.Newf(errors.PortalInactive,
			"tab belongs to portal %q but %q is active; switch portals before committing", id.PortalID, active)
	}

	guardKey := "commit/" + tabID
	if !e.guard.TryAcquire(guardKey) {
		return nil, errors.New(errors.OperationInProgress, "a commit is already in progress for this tab")
	}
	defer e.guard.Release(guardKey)

	scriptChanged := tab.Binding.Facet.IsScript() && tab.ScriptDirty()

	var dirty []string
	var values schema.Fields
	if d, ok := e.drafts.Get(tabID); ok {
		dirty = d.DirtyFields()
		sort.Strings(dirty)
		values = d.Current
	}

	if !scriptChanged && len(dirty) == 0 {
		return nil, errors.New(errors.NothingToCommit, "nothing to commit: neither script nor metadata changed")
	}

	result := &Result{ScriptCommitted: scriptChanged, FieldsCommitted: dirty}

	if scriptChanged && !opts.SkipConflictCheck {
		check, err := e.detector.Check(ctx, tabID)
		if err != nil {
			return nil, err
		}
		if check.HasConflict {
			result.Conflict = check
			if !opts.Force {
				return result, nil
			}
		}
	}

	payload, err := schema.BuildPayload(id.ModuleType, dirty, values)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to build commit payload", err)
	}

	req := &portal.CommitRequest{
		Metadata: payload,
		Reason:   opts.Reason,
	}
	if scriptChanged {
		script := tab.Content
		req.ScriptFacet = tab.Binding.Facet
		req.Script = &script
	}

	committed, err := e.gw.CommitModule(ctx, id.ModuleType, id.ModuleID, req)
	if err != nil {
		msg := "commit failed"
		if perr, ok := portal.AsPortalError(err); ok {
			msg = perr.UserMessage()
		}
		return nil, errors.Wrap(errors.RemoteError, msg, err)
	}

	// Baseline advance: one atomic transition over every tab sharing the
	// module and script facet, then the shared draft.
	if scriptChanged {
		content := tab.Content
		e.tabs.Apply(e.tabs.FacetSiblings(tabID), func(t *tabs.Tab) {
			t.Content = content
			t.OriginalContent = content
			if t.FileBound() {
				pc := content
				t.PortalContent = &pc
			}
			t.Version = committed.Version
		})
	}
	if len(dirty) > 0 {
		if _, err := e.drafts.AdvanceBaseline(tabID, committed.Version); err != nil {
			// The commit itself succeeded; the draft index being gone only
			// means the tab detached mid-flight.
			e.logger.Warn("Draft baseline advance skipped", "tab", tabID, "error", err)
		}
	}

	result.Committed = true
	result.Version = committed.Version
	e.logger.Info("Committed module changes",
		"module", id.Key(),
		"script", scriptChanged,
		"fields", len(dirty),
		"version", committed.Version,
	)
	return result, nil
}
