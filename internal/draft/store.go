package draft

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lmc/internal/errors"
	"lmc/internal/identity"
	"lmc/internal/portal"
	"lmc/internal/schema"
	"lmc/internal/tabs"
)

// Gateway is the slice of the portal the draft store consumes.
type Gateway interface {
	FetchModuleDetails(ctx context.Context, mt identity.ModuleType, moduleID int) (*portal.Details, error)
}

// Store owns the draft arena and the tab-id index into it. All mutation
// happens under one mutex, so a fan-out write is one atomic transition for
// every sibling tab.
type Store struct {
	mu     sync.Mutex
	drafts map[string]*Draft  // identity key -> canonical draft
	byTab  map[string]string  // tab id -> identity key
	errs   map[string]string  // identity key -> last load error
	tabs   *tabs.Collection
	gw     Gateway
	logger *slog.Logger
}

// NewStore creates a draft store over the given tab collection.
func NewStore(collection *tabs.Collection, gw Gateway, logger *slog.Logger) *Store {
	return &Store{
		drafts: make(map[string]*Draft),
		byTab:  make(map[string]string),
		errs:   make(map[string]string),
		tabs:   collection,
		gw:     gw,
		logger: logger,
	}
}

// Get returns a copy of the draft attached to a tab.
func (s *Store) Get(tabID string) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byTab[tabID]
	if !ok {
		return nil, false
	}
	d, ok := s.drafts[key]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// LoadError returns the stored load error for a tab's identity, if any.
func (s *Store) LoadError(tabID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := s.tabsEntry(tabID)
	if tab == nil {
		return ""
	}
	return s.errs[tab.Binding.Identity.Key()]
}

func (s *Store) tabsEntry(tabID string) *tabs.Tab {
	tab := s.tabs.Get(tabID)
	if tab == nil || !tab.ModuleBound() {
		return nil
	}
	return tab
}

// LoadDetails attaches the tab to its identity's shared draft, fetching the
// field snapshot from the portal only when no draft exists yet for any tab
// of that identity. Remote errors are stored as a string error state for the
// identity as well as returned.
func (s *Store) LoadDetails(ctx context.Context, tabID string) (*Draft, error) {
	tab := s.tabs.Get(tabID)
	if tab == nil {
		return nil, errors.Newf(errors.TabNotFound, "tab %s not found", tabID)
	}
	if !tab.ModuleBound() {
		return nil, errors.New(errors.NotModuleBound, "tab has no module binding")
	}
	id := tab.Binding.Identity
	key := id.Key()

	s.mu.Lock()
	if existing, ok := s.drafts[key]; ok {
		s.byTab[tabID] = key
		out := existing.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	details, err := s.gw.FetchModuleDetails(ctx, id.ModuleType, id.ModuleID)
	if err != nil {
		msg := err.Error()
		if perr, ok := portal.AsPortalError(err); ok {
			msg = perr.UserMessage()
		}
		s.mu.Lock()
		s.errs[key] = msg
		s.mu.Unlock()
		return nil, errors.Wrap(remoteCode(err), msg, err)
	}

	snapshot := schema.Snapshot(id.ModuleType, details.Raw)
	d := &Draft{
		Original:   snapshot,
		Current:    cloneFields(snapshot),
		Dirty:      make(map[string]struct{}),
		LoadedAt:   time.Now().UTC(),
		ModuleID:   id.ModuleID,
		ModuleType: id.ModuleType,
		PortalID:   id.PortalID,
		Version:    details.Version,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errs, key)
	// Another load may have raced us across the fetch boundary; the draft
	// already in the arena wins.
	if existing, ok := s.drafts[key]; ok {
		s.byTab[tabID] = key
		return existing.Clone(), nil
	}
	s.drafts[key] = d
	for _, sibling := range s.tabs.Siblings(tabID) {
		s.byTab[sibling] = key
	}
	return d.Clone(), nil
}

func remoteCode(err error) errors.ErrorCode {
	perr, ok := portal.AsPortalError(err)
	if !ok {
		return errors.RemoteError
	}
	switch {
	case perr.IsNotFound():
		return errors.ModuleNotFound
	case perr.IsForbidden():
		return errors.AccessForbidden
	case perr.IsUnauthenticated():
		return errors.Unauthenticated
	default:
		return errors.RemoteError
	}
}

// UpdateField normalizes the value, writes it to the shared draft, and
// recomputes the dirty set. The write is visible to every sibling tab
// atomically because the draft is shared, not copied per tab.
func (s *Store) UpdateField(tabID, field string, value interface{}) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.attached(tabID)
	if err != nil {
		return nil, err
	}
	d.Current[field] = schema.Normalize(field, value)
	d.recomputeDirty()
	return d.Clone(), nil
}

// ResetDraft restores the draft values to the original snapshot and empties
// the dirty set. Calling it twice in a row is the same as calling it once.
func (s *Store) ResetDraft(tabID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.attached(tabID)
	if err != nil {
		return nil, err
	}
	d.Current = cloneFields(d.Original)
	d.Dirty = make(map[string]struct{})
	return d.Clone(), nil
}

// AdvanceBaseline makes the committed values the new original snapshot and
// clears the dirty set. The draft is not blanked; the commit becomes the
// new baseline. The new remote version is recorded.
func (s *Store) AdvanceBaseline(tabID string, version int) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.attached(tabID)
	if err != nil {
		return nil, err
	}
	d.Original = cloneFields(d.Current)
	d.Dirty = make(map[string]struct{})
	if version > 0 {
		d.Version = version
	}
	return d.Clone(), nil
}

// attached returns the shared draft a tab is attached to. Callers hold the
// store lock.
func (s *Store) attached(tabID string) (*Draft, error) {
	key, ok := s.byTab[tabID]
	if !ok {
		return nil, errors.Newf(errors.TabNotFound, "no draft loaded for tab %s", tabID)
	}
	d, ok := s.drafts[key]
	if !ok {
		return nil, errors.Newf(errors.InternalError, "draft index points at missing record %s", key)
	}
	return d, nil
}

// Detach removes a tab's index entry. The canonical draft is dropped once no
// tab references its identity anymore.
func (s *Store) Detach(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byTab[tabID]
	if !ok {
		return
	}
	delete(s.byTab, tabID)
	for _, other := range s.byTab {
		if other == key {
			return
		}
	}
	delete(s.drafts, key)
	delete(s.errs, key)
}

// PersistedDraft is the serializable form of one arena entry.
type PersistedDraft struct {
	Draft  *Draft   `json:"draft"`
	TabIDs []string `json:"tabIds"`
}

// Export returns the arena contents for workspace persistence.
func (s *Store) Export() []PersistedDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PersistedDraft, 0, len(s.drafts))
	for key, d := range s.drafts {
		entry := PersistedDraft{Draft: d.Clone()}
		for tabID, k := range s.byTab {
			if k == key {
				entry.TabIDs = append(entry.TabIDs, tabID)
			}
		}
		out = append(out, entry)
	}
	return out
}

// Restore hydrates the arena from persisted entries.
func (s *Store) Restore(entries []PersistedDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.Draft == nil {
			continue
		}
		d := entry.Draft.Clone()
		if d.Dirty == nil {
			d.Dirty = make(map[string]struct{})
		}
		key := d.Identity().Key()
		s.drafts[key] = d
		for _, tabID := range entry.TabIDs {
			s.byTab[tabID] = key
		}
	}
}
