// Package conflict detects divergence between a tab's trusted baseline and
// the current remote script body. The check is advisory: nothing stops the
// remote from changing again between the check and the commit request, and
// the caller decides whether a conflict warns or blocks.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lmc/internal/errors"
	"lmc/internal/identity"
	"lmc/internal/tabs"
)

// Gateway is the slice of the portal the detector consumes.
type Gateway interface {
	FetchScript(ctx context.Context, mt identity.ModuleType, moduleID int, facet identity.Facet) (string, int, error)
}

// Result reports the outcome of a pre-commit conflict check.
type Result struct {
	HasConflict   bool   `json:"hasConflict"`
	Message       string `json:"message,omitempty"`
	PortalVersion int    `json:"portalVersion,omitempty"`
}

// Detector compares remote script content against local baselines.
type Detector struct {
	tabs   *tabs.Collection
	gw     Gateway
	logger *slog.Logger
}

// NewDetector creates a conflict detector.
func NewDetector(collection *tabs.Collection, gw Gateway, logger *slog.Logger) *Detector {
	return &Detector{tabs: collection, gw: gw, logger: logger}
}

// Check fetches the module's current remote script body and compares it,
// trimmed, against the tab's trusted baseline: PortalContent when the tab is
// file-bound, OriginalContent otherwise. On divergence the baseline is
// advanced to the fetched value, so an immediate second check does not
// re-report the same conflict (acknowledge-and-proceed semantics).
func (d *Detector) Check(ctx context.Context, tabID string) (*Result, error) {
	tab := d.tabs.Get(tabID)
	if tab == nil {
		return nil, errors.Newf(errors.TabNotFound, "tab %s not found", tabID)
	}
	if !tab.ModuleBound() {
		return nil, errors.New(errors.NotModuleBound, "tab has no module binding")
	}
	if !tab.Binding.Facet.IsScript() {
		// Metadata-only tabs have no script body to diverge.
		return &Result{}, nil
	}

	id := tab.Binding.Identity
	remote, version, err := d.gw.FetchScript(ctx, id.ModuleType, id.ModuleID, tab.Binding.Facet)
	if err != nil {
		return nil, errors.Wrap(errors.RemoteError, "conflict check failed", err)
	}

	if strings.TrimSpace(remote) == strings.TrimSpace(tab.Baseline()) {
		return &Result{}, nil
	}

	// Advance the trusted baseline so the caller's decision to proceed is
	// not re-questioned on the next attempt.
	d.tabs.Apply([]string{tabID}, func(t *tabs.Tab) {
		if t.FileBound() {
			pc := remote
			t.PortalContent = &pc
		} else {
			t.OriginalContent = remote
		}
		if version > 0 {
			t.Version = version
		}
	})

	d.logger.Warn("Remote script diverged from local baseline",
		"tab", tabID,
		"module", id.Key(),
		"portalVersion", version,
	)

	return &Result{
		HasConflict:   true,
		Message:       fmt.Sprintf("The %s script of %s changed on the portal (now at version %d) since this tab last synchronized.", tab.Binding.Facet, id.Key(), version),
		PortalVersion: version,
	}, nil
}
