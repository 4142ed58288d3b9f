package pull

import (
	"context"
	"fmt"
	"testing"

	"lmc/internal/errors"
	"lmc/internal/execguard"
	"lmc/internal/identity"
	"lmc/internal/logging"
	"lmc/internal/portal"
	"lmc/internal/tabs"
)

type fakeGateway struct {
	script  string
	version int
	err     error
}

func (g *fakeGateway) FetchScript(ctx context.Context, mt identity.ModuleType, moduleID int, facet identity.Facet) (string, int, error) {
	if g.err != nil {
		return "", 0, g.err
	}
	return g.script, g.version, nil
}

type fakeRewriter struct {
	calls int
	err   error
	last  string
}

func (r *fakeRewriter) RewriteFacet(tab *tabs.Tab, newContent string, newVersion int) error {
	r.calls++
	r.last = newContent
	return r.err
}

var cpuID = identity.ModuleIdentity{ModuleID: 42, ModuleType: identity.DataSource, PortalID: "acme"}

func openTab(c *tabs.Collection, facet identity.Facet, content string) string {
	tab := c.NewTab("t")
	c.Apply([]string{tab.ID}, func(t *tabs.Tab) {
		t.Content = content
		t.OriginalContent = "return 1"
		t.Version = 3
		t.Binding = &tabs.Binding{Identity: cpuID, Facet: facet}
	})
	return tab.ID
}

func newSync(c *tabs.Collection, gw Gateway, rw Rewriter) *Synchronizer {
	return NewSynchronizer(c, gw, rw, execguard.New(), func() string { return "acme" }, logging.NewDiscardLogger())
}

func TestPullOverwritesLocalEdits(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "my local edits")
	gw := &fakeGateway{script: "return 2", version: 5}
	rw := &fakeRewriter{}

	result, err := newSync(c, gw, rw).Pull(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Version != 5 {
		t.Fatalf("result = %+v", result)
	}

	tab := c.Get(id)
	if tab.Content != "return 2" || tab.OriginalContent != "return 2" {
		t.Errorf("tab = %+v", tab)
	}
	if tab.ScriptDirty() {
		t.Error("pulled tab should be clean")
	}

	// Not file-bound: the portal-content anchor stays unset and the mirror
	// is never consulted.
	if tab.PortalContent != nil {
		t.Error("PortalContent must stay nil for unbound tabs")
	}
	if rw.calls != 0 {
		t.Errorf("rewriter calls = %d", rw.calls)
	}
}

func TestPullFileBoundRefreshesAnchorsAndMirror(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "stale")
	pc := "return 1"
	c.Apply([]string{id}, func(t *tabs.Tab) {
		t.File = &tabs.FileBinding{Path: "/tmp/x.groovy", Repository: "/tmp"}
		t.PortalContent = &pc
	})
	gw := &fakeGateway{script: "return 2", version: 5}
	rw := &fakeRewriter{}

	result, err := newSync(c, gw, rw).Pull(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	tab := c.Get(id)
	if tab.PortalContent == nil || *tab.PortalContent != "return 2" {
		t.Errorf("portal content = %v", tab.PortalContent)
	}
	if rw.calls != 1 || rw.last != "return 2" {
		t.Errorf("rewriter calls = %d, last = %q", rw.calls, rw.last)
	}
}

func TestPullMirrorFailureIsSwallowed(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "stale")
	c.Apply([]string{id}, func(t *tabs.Tab) {
		t.File = &tabs.FileBinding{Path: "/tmp/x.groovy", Repository: "/tmp"}
	})
	gw := &fakeGateway{script: "return 2", version: 5}
	rw := &fakeRewriter{err: fmt.Errorf("disk full")}

	result, err := newSync(c, gw, rw).Pull(context.Background(), id)
	if err != nil {
		t.Fatalf("mirror failure must not fail the pull: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
	if c.Get(id).Content != "return 2" {
		t.Error("tab state is authoritative despite the mirror failure")
	}
}

func TestPullFetchFailureLeavesTabUntouched(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "my local edits")
	gw := &fakeGateway{err: &portal.PortalError{StatusCode: 404, Code: "not_found", Message: "gone"}}

	result, err := newSync(c, gw, nil).Pull(context.Background(), id)
	if !errors.HasCode(err, errors.RemoteError) {
		t.Fatalf("error = %v", err)
	}
	if result.Success {
		t.Errorf("result = %+v", result)
	}
	tab := c.Get(id)
	if tab.Content != "my local edits" || tab.OriginalContent != "return 1" {
		t.Errorf("tab changed on failure: %+v", tab)
	}
}

func TestPullGuards(t *testing.T) {
	c := tabs.NewCollection()
	sync := newSync(c, &fakeGateway{}, nil)

	if _, err := sync.Pull(context.Background(), "ghost"); !errors.HasCode(err, errors.TabNotFound) {
		t.Errorf("unknown tab error = %v", err)
	}

	unbound := c.NewTab("scratch")
	if _, err := sync.Pull(context.Background(), unbound.ID); !errors.HasCode(err, errors.NotModuleBound) {
		t.Errorf("unbound tab error = %v", err)
	}

	meta := openTab(c, identity.FacetMetadata, "")
	if _, err := sync.Pull(context.Background(), meta); !errors.HasCode(err, errors.NotModuleBound) {
		t.Errorf("metadata tab error = %v", err)
	}
}

func TestPullInactivePortal(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "x")
	sync := NewSynchronizer(c, &fakeGateway{}, nil, execguard.New(), func() string { return "other" }, logging.NewDiscardLogger())

	if _, err := sync.Pull(context.Background(), id); !errors.HasCode(err, errors.PortalInactive) {
		t.Errorf("error = %v", err)
	}
}

func TestPullReentrancyGuard(t *testing.T) {
	c := tabs.NewCollection()
	id := openTab(c, identity.FacetCollection, "x")
	guard := execguard.New()
	sync := NewSynchronizer(c, &fakeGateway{script: "y"}, nil, guard, func() string { return "acme" }, logging.NewDiscardLogger())

	if !guard.TryAcquire("pull/" + id) {
		t.Fatal("setup: guard should be free")
	}
	defer guard.Release("pull/" + id)

	if _, err := sync.Pull(context.Background(), id); !errors.HasCode(err, errors.OperationInProgress) {
		t.Errorf("error = %v", err)
	}
}
