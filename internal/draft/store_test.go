package draft

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"lmc/internal/errors"
	"lmc/internal/identity"
	"lmc/internal/logging"
	"lmc/internal/portal"
	"lmc/internal/schema"
	"lmc/internal/tabs"
)

type fakeGateway struct {
	raw     map[string]interface{}
	version int
	err     error
	fetches int
}

func (g *fakeGateway) FetchModuleDetails(ctx context.Context, mt identity.ModuleType, moduleID int) (*portal.Details, error) {
	g.fetches++
	if g.err != nil {
		return nil, g.err
	}
	return &portal.Details{Raw: g.raw, Version: g.version}, nil
}

var cpuID = identity.ModuleIdentity{ModuleID: 42, ModuleType: identity.DataSource, PortalID: "acme"}

func newFixture(t *testing.T, gw *fakeGateway) (*tabs.Collection, *Store) {
	t.Helper()
	collection := tabs.NewCollection()
	return collection, NewStore(collection, gw, logging.NewDiscardLogger())
}

func openTab(c *tabs.Collection, facet identity.Facet) string {
	tab := c.NewTab(string(facet))
	c.Apply([]string{tab.ID}, func(t *tabs.Tab) {
		t.Binding = &tabs.Binding{Identity: cpuID, Facet: facet}
	})
	return tab.ID
}

func cpuGateway() *fakeGateway {
	return &fakeGateway{
		raw: map[string]interface{}{
			"name":        "CPU",
			"description": "cpu usage",
			"schedule": map[string]interface{}{
				"collectInterval": float64(60),
			},
			"accessGroupIds": []interface{}{float64(2), float64(1)},
		},
		version: 5,
	}
}

func TestLoadDetailsFetchesOnce(t *testing.T) {
	gw := cpuGateway()
	collection, store := newFixture(t, gw)
	a := openTab(collection, identity.FacetCollection)
	b := openTab(collection, identity.FacetDiscovery)

	d, err := store.LoadDetails(context.Background(), a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Current[schema.FieldName] != "CPU" {
		t.Errorf("name = %v", d.Current[schema.FieldName])
	}
	if d.Version != 5 {
		t.Errorf("version = %d", d.Version)
	}

	// The sibling attaches to the existing draft without a second fetch.
	d2, err := store.LoadDetails(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.fetches != 1 {
		t.Errorf("fetches = %d, want 1", gw.fetches)
	}
	if !reflect.DeepEqual(d.Current, d2.Current) {
		t.Error("siblings should see the same draft")
	}
}

func TestLoadDetailsGuards(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())

	_, err := store.LoadDetails(context.Background(), "ghost")
	if !errors.HasCode(err, errors.TabNotFound) {
		t.Errorf("unknown tab error = %v", err)
	}

	unbound := collection.NewTab("scratch")
	_, err = store.LoadDetails(context.Background(), unbound.ID)
	if !errors.HasCode(err, errors.NotModuleBound) {
		t.Errorf("unbound tab error = %v", err)
	}
}

func TestLoadDetailsRemoteError(t *testing.T) {
	gw := &fakeGateway{err: &portal.PortalError{StatusCode: 404, Code: "not_found", Message: "gone"}}
	collection, store := newFixture(t, gw)
	id := openTab(collection, identity.FacetCollection)

	_, err := store.LoadDetails(context.Background(), id)
	if !errors.HasCode(err, errors.ModuleNotFound) {
		t.Errorf("error = %v", err)
	}
	if store.LoadError(id) == "" {
		t.Error("load error should be recorded for the identity")
	}
}

func TestUpdateFieldFanOut(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	b := openTab(collection, identity.FacetMetadata)

	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	d, err := store.UpdateField(a, schema.FieldCollectInterval, float64(120))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(d.DirtyFields(), []string{schema.FieldCollectInterval}) {
		t.Errorf("dirty = %v", d.DirtyFields())
	}

	// The edit is visible through the sibling without reloading.
	viaB, ok := store.Get(b)
	if !ok {
		t.Fatal("sibling should be attached")
	}
	if viaB.Current[schema.FieldCollectInterval] != 120 {
		t.Errorf("sibling sees %v", viaB.Current[schema.FieldCollectInterval])
	}
	if !viaB.IsDirty() {
		t.Error("sibling should see the dirty state")
	}
}

func TestDirtyClearsOnRevert(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	if _, err := store.UpdateField(a, schema.FieldDescription, "changed"); err != nil {
		t.Fatal(err)
	}
	d, err := store.UpdateField(a, schema.FieldDescription, "cpu usage")
	if err != nil {
		t.Fatal(err)
	}
	if d.IsDirty() {
		t.Errorf("reverting to the original value should clear the dirty mark, dirty = %v", d.DirtyFields())
	}
}

func TestDirtyUsesNormalizedComparison(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	// Same ids in a different order and representation: not dirty.
	d, err := store.UpdateField(a, schema.FieldAccessGroupIDs, "2,1")
	if err != nil {
		t.Fatal(err)
	}
	if d.IsDirty() {
		t.Errorf("equivalent access groups marked dirty: %v", d.DirtyFields())
	}

	d, err = store.UpdateField(a, schema.FieldAccessGroupIDs, "3,1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsDirty() {
		t.Error("changed access groups should be dirty")
	}
}

func TestResetDraftIsIdempotent(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpdateField(a, schema.FieldDescription, "changed"); err != nil {
		t.Fatal(err)
	}

	first, err := store.ResetDraft(a)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.ResetDraft(a)
	if err != nil {
		t.Fatal(err)
	}
	if first.IsDirty() || second.IsDirty() {
		t.Error("reset drafts should be clean")
	}
	if !reflect.DeepEqual(first.Current, second.Current) {
		t.Error("double reset should equal single reset")
	}
}

func TestAdvanceBaseline(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpdateField(a, schema.FieldDescription, "committed text"); err != nil {
		t.Fatal(err)
	}

	d, err := store.AdvanceBaseline(a, 6)
	if err != nil {
		t.Fatal(err)
	}
	if d.IsDirty() {
		t.Error("baseline advance should clear the dirty set")
	}
	if d.Original[schema.FieldDescription] != "committed text" {
		t.Errorf("original = %v", d.Original[schema.FieldDescription])
	}
	if d.Version != 6 {
		t.Errorf("version = %d", d.Version)
	}
}

func TestDetachDropsDraftWithLastTab(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	b := openTab(collection, identity.FacetDiscovery)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	store.Detach(a)
	if _, ok := store.Get(b); !ok {
		t.Fatal("draft should survive while a sibling is attached")
	}
	store.Detach(b)
	if _, ok := store.Get(b); ok {
		t.Error("draft should be dropped with the last tab")
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	collection, store := newFixture(t, cpuGateway())
	a := openTab(collection, identity.FacetCollection)
	if _, err := store.LoadDetails(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpdateField(a, schema.FieldDescription, "changed"); err != nil {
		t.Fatal(err)
	}

	exported := store.Export()
	if len(exported) != 1 {
		t.Fatalf("exported %d entries", len(exported))
	}

	restored := NewStore(collection, cpuGateway(), logging.NewDiscardLogger())
	restored.Restore(exported)

	d, ok := restored.Get(a)
	if !ok {
		t.Fatal("restored store should know the tab")
	}
	got := d.DirtyFields()
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{schema.FieldDescription}) {
		t.Errorf("dirty after restore = %v", got)
	}
	if d.Current[schema.FieldDescription] != "changed" {
		t.Errorf("current after restore = %v", d.Current[schema.FieldDescription])
	}
}
