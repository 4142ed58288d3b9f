// Package mirror materializes a module's scripts as local files for
// offline or version-controlled editing, and reconciles those files when
// new remote content is pulled.
package mirror

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"lmc/internal/identity"
	"lmc/internal/tabs"
)

// facetFiles maps a script facet to its mirrored file name.
var facetFiles = map[identity.Facet]string{
	identity.FacetDiscovery:  "discovery.groovy",
	identity.FacetCollection: "collection.groovy",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Target is a chosen repository directory modules are mirrored into.
type Target struct {
	Root string
}

// ResolveTarget validates a repository directory, creating it if needed.
// An empty path yields nil: the caller chose no target.
func ResolveTarget(path string) (*Target, error) {
	if path == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	return &Target{Root: abs}, nil
}

// CloneResult is the structured outcome of a clone.
type CloneResult struct {
	Success bool              `json:"success"`
	Dir     string            `json:"dir,omitempty"`
	Files   map[string]string `json:"files,omitempty"`
	Tabs    []string          `json:"tabs,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Mirror writes module scripts into repository targets and keeps mirrored
// files in step with pulls.
type Mirror struct {
	tabs   *tabs.Collection
	logger *slog.Logger
}

// New creates a mirror over the given tab collection.
func New(collection *tabs.Collection, logger *slog.Logger) *Mirror {
	return &Mirror{tabs: collection, logger: logger}
}

// Clone gathers every script facet of the tab's module across its sibling
// tabs and writes them under the target, one directory per module, with a
// manifest. On success every affected tab becomes file-bound with its
// portal-content anchor initialized; on failure no tab state is mutated.
func (m *Mirror) Clone(tabID string, target *Target, portalHost string, overwrite bool) CloneResult {
	tab := m.tabs.Get(tabID)
	if tab == nil {
		return CloneResult{Error: fmt.Sprintf("tab %s not found", tabID)}
	}
	if !tab.ModuleBound() {
		return CloneResult{Error: "tab has no module binding"}
	}
	if target == nil {
		return CloneResult{Error: "no repository target chosen"}
	}

	id := tab.Binding.Identity

	// A module's discovery and collection scripts may live in separate
	// tabs; gather one tab per script facet. With no siblings this
	// degrades to the current tab's single facet.
	facetTabs := make(map[identity.Facet]*tabs.Tab)
	var order []identity.Facet
	for _, sibling := range m.tabs.Siblings(tabID) {
		st := m.tabs.Get(sibling)
		if st == nil || !st.Binding.Facet.IsScript() {
			continue
		}
		if _, taken := facetTabs[st.Binding.Facet]; taken {
			continue
		}
		facetTabs[st.Binding.Facet] = st
		order = append(order, st.Binding.Facet)
	}
	if len(facetTabs) == 0 {
		return CloneResult{Error: "no script facets to mirror"}
	}

	dir := filepath.Join(target.Root, safeName(id.PortalID), string(id.ModuleType), moduleDirName(tab))
	if !overwrite {
		for _, facet := range order {
			path := filepath.Join(dir, facetFiles[facet])
			if _, err := os.Stat(path); err == nil {
				return CloneResult{Error: fmt.Sprintf("%s already exists; pass overwrite to replace it", path)}
			}
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return CloneResult{Error: fmt.Sprintf("failed to create module directory: %v", err)}
	}

	manifest := &Manifest{
		PortalID:   id.PortalID,
		PortalHost: portalHost,
		ModuleID:   id.ModuleID,
		ModuleType: id.ModuleType,
		ModuleName: tab.Binding.ModuleName,
		Version:    tab.Version,
		Facets:     make(map[string]string, len(facetTabs)),
	}

	files := make(map[string]string, len(facetTabs))
	for _, facet := range order {
		name := facetFiles[facet]
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(facetTabs[facet].Content), 0644); err != nil {
			return CloneResult{Error: fmt.Sprintf("failed to write %s: %v", path, err)}
		}
		files[string(facet)] = path
		manifest.Facets[string(facet)] = name
	}
	manifest.ClonedAt = time.Now().UTC()
	if err := manifest.Save(dir); err != nil {
		return CloneResult{Error: err.Error()}
	}

	// Bind the affected tabs in one transition: file binding, a display
	// name reflecting the mirrored file, and the portal-content anchor
	// future conflict detection trusts.
	var boundIDs []string
	for _, facet := range order {
		boundIDs = append(boundIDs, facetTabs[facet].ID)
	}
	m.tabs.Apply(boundIDs, func(t *tabs.Tab) {
		path := files[string(t.Binding.Facet)]
		t.File = &tabs.FileBinding{Path: path, Repository: target.Root}
		t.Name = filepath.Base(path)
		pc := t.OriginalContent
		t.PortalContent = &pc
	})

	m.logger.Info("Cloned module into repository",
		"module", id.Key(),
		"dir", dir,
		"facets", len(files),
	)
	return CloneResult{Success: true, Dir: dir, Files: files, Tabs: boundIDs}
}

// RewriteFacet rewrites a file-bound tab's mirrored file with freshly
// pulled content and records the new version in the manifest.
func (m *Mirror) RewriteFacet(tab *tabs.Tab, newContent string, newVersion int) error {
	if tab == nil || !tab.FileBound() {
		return fmt.Errorf("tab is not file-bound")
	}
	if err := os.WriteFile(tab.File.Path, []byte(newContent), 0644); err != nil {
		return fmt.Errorf("failed to rewrite mirrored file: %w", err)
	}
	dir := filepath.Dir(tab.File.Path)
	manifest, err := LoadManifest(dir)
	if err != nil {
		// The script rewrite succeeded; a missing manifest is not worth
		// failing the pull over.
		m.logger.Warn("Mirrored file rewritten but manifest not updated", "dir", dir, "error", err)
		return nil
	}
	if newVersion > 0 {
		manifest.Version = newVersion
	}
	return manifest.Save(dir)
}

func moduleDirName(tab *tabs.Tab) string {
	if tab.Binding.ModuleName != "" {
		return safeName(tab.Binding.ModuleName)
	}
	return fmt.Sprintf("module-%d", tab.Binding.Identity.ModuleID)
}

func safeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "unnamed"
	}
	return s
}
