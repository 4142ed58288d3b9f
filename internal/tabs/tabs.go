// Package tabs holds the collection of open editing surfaces. Each tab is
// one editable facet of a module; several tabs may refer to the same remote
// module, and the collection is the single owner of their state.
package tabs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"lmc/internal/identity"
)

// Binding ties a tab to one facet of one remote module.
type Binding struct {
	Identity identity.ModuleIdentity `json:"identity"`
	Facet    identity.Facet          `json:"facet"`
	// ModuleName is the module's name at bind time, used for display and
	// mirror file naming.
	ModuleName string `json:"moduleName,omitempty"`
	// LineageID names the module's version lineage on the portal, when known.
	LineageID int `json:"lineageId,omitempty"`
}

// FileBinding ties a tab to a mirrored file on disk.
type FileBinding struct {
	Path       string `json:"path"`
	Repository string `json:"repository"`
}

// Tab is one editing surface.
//
// OriginalContent is the pristine text as last synchronized with the remote
// for this tab's facet. PortalContent is set only when the tab is file-bound:
// it then tracks the last known portal-authoritative text, while
// OriginalContent/Content track the local file.
type Tab struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Content         string       `json:"content"`
	OriginalContent string       `json:"originalContent"`
	PortalContent   *string      `json:"portalContent,omitempty"`
	Binding         *Binding     `json:"binding,omitempty"`
	File            *FileBinding `json:"file,omitempty"`
	Version         int          `json:"version,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ModuleBound reports whether the tab has a full module identity.
func (t *Tab) ModuleBound() bool {
	return t.Binding != nil && t.Binding.Identity.Valid()
}

// FileBound reports whether the tab is bound to a mirrored file.
func (t *Tab) FileBound() bool {
	return t.File != nil
}

// Baseline returns the content considered last-known-synchronized for this
// tab: PortalContent when file-bound, OriginalContent otherwise.
func (t *Tab) Baseline() string {
	if t.PortalContent != nil {
		return *t.PortalContent
	}
	return t.OriginalContent
}

// ScriptDirty reports whether the tab's content has diverged from its baseline.
func (t *Tab) ScriptDirty() bool {
	return t.Content != t.Baseline()
}

// Clone returns a deep copy of the tab.
func (t *Tab) Clone() *Tab {
	out := *t
	if t.PortalContent != nil {
		pc := *t.PortalContent
		out.PortalContent = &pc
	}
	if t.Binding != nil {
		b := *t.Binding
		out.Binding = &b
	}
	if t.File != nil {
		f := *t.File
		out.File = &f
	}
	return &out
}

// Collection owns every open tab. All mutation goes through Apply so that a
// fan-out write lands as a single atomic transition, never as N separate
// ones with a window where sibling tabs disagree.
type Collection struct {
	mu    sync.Mutex
	tabs  map[string]*Tab
	order []string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{tabs: make(map[string]*Tab)}
}

// NewTab creates a tab with a fresh id and adds it to the collection.
func (c *Collection) NewTab(name string) *Tab {
	now := time.Now().UTC()
	tab := &Tab{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Add(tab)
	return tab.Clone()
}

// Add inserts a tab. An existing tab with the same id is replaced in place.
func (c *Collection) Add(tab *Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tabs[tab.ID]; !exists {
		c.order = append(c.order, tab.ID)
	}
	c.tabs[tab.ID] = tab.Clone()
}

// Remove deletes a tab. Removing an unknown id is a no-op.
func (c *Collection) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tabs[id]; !exists {
		return
	}
	delete(c.tabs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the tab, or nil when it does not exist.
func (c *Collection) Get(id string) *Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok {
		return nil
	}
	return tab.Clone()
}

// List returns copies of all tabs in open order.
func (c *Collection) List() []*Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Tab, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tabs[id].Clone())
	}
	return out
}

// Siblings returns the ids of every tab sharing the given tab's module
// identity, the given tab included. A tab with no module binding cannot
// synchronize with anything, so the single input id is returned unchanged.
// Unknown ids degrade the same way.
func (c *Collection) Siblings(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.siblingsLocked(id)
}

func (c *Collection) siblingsLocked(id string) []string {
	tab, ok := c.tabs[id]
	if !ok || !tab.ModuleBound() {
		return []string{id}
	}
	want := tab.Binding.Identity
	var out []string
	for _, candidate := range c.order {
		other := c.tabs[candidate]
		if other.ModuleBound() && other.Binding.Identity == want {
			out = append(out, candidate)
		}
	}
	return out
}

// FacetSiblings returns the ids of every tab sharing the given tab's module
// identity and facet.
func (c *Collection) FacetSiblings(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok || !tab.ModuleBound() {
		return []string{id}
	}
	var out []string
	for _, candidate := range c.siblingsLocked(id) {
		if c.tabs[candidate].Binding.Facet == tab.Binding.Facet {
			out = append(out, candidate)
		}
	}
	return out
}

// Apply mutates the given tabs under one lock acquisition. Unknown ids are
// skipped. The callback receives the live tab; UpdatedAt is advanced for
// every tab touched.
func (c *Collection) Apply(ids []string, fn func(*Tab)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		tab, ok := c.tabs[id]
		if !ok {
			continue
		}
		fn(tab)
		tab.UpdatedAt = now
	}
}
