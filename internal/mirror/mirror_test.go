package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lmc/internal/identity"
	"lmc/internal/logging"
	"lmc/internal/tabs"
)

var cpuID = identity.ModuleIdentity{ModuleID: 42, ModuleType: identity.DataSource, PortalID: "acme"}

func openScriptTab(c *tabs.Collection, facet identity.Facet, content string) string {
	tab := c.NewTab(string(facet))
	c.Apply([]string{tab.ID}, func(t *tabs.Tab) {
		t.Content = content
		t.OriginalContent = content
		t.Version = 3
		t.Binding = &tabs.Binding{Identity: cpuID, Facet: facet, ModuleName: "CPU Usage"}
	})
	return tab.ID
}

func TestCloneWritesAllScriptFacets(t *testing.T) {
	c := tabs.NewCollection()
	collection := openScriptTab(c, identity.FacetCollection, "return collect()")
	discovery := openScriptTab(c, identity.FacetDiscovery, "return discover()")
	m := New(c, logging.NewDiscardLogger())

	target, err := ResolveTarget(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	result := m.Clone(collection, target, "acme.example.com", false)
	if !result.Success {
		t.Fatalf("clone failed: %s", result.Error)
	}
	if len(result.Files) != 2 {
		t.Fatalf("files = %v", result.Files)
	}

	wantDir := filepath.Join(target.Root, "acme", "datasource", "CPU_Usage")
	if result.Dir != wantDir {
		t.Errorf("dir = %q, want %q", result.Dir, wantDir)
	}

	data, err := os.ReadFile(filepath.Join(result.Dir, "collection.groovy"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return collect()" {
		t.Errorf("collection file = %q", data)
	}
	data, err = os.ReadFile(filepath.Join(result.Dir, "discovery.groovy"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return discover()" {
		t.Errorf("discovery file = %q", data)
	}

	manifest, err := LoadManifest(result.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.ModuleID != 42 || manifest.ModuleType != identity.DataSource || manifest.PortalHost != "acme.example.com" {
		t.Errorf("manifest = %+v", manifest)
	}
	if len(manifest.Facets) != 2 {
		t.Errorf("manifest facets = %v", manifest.Facets)
	}

	// Both tabs became file-bound with the portal-content anchor set.
	for _, id := range []string{collection, discovery} {
		tab := c.Get(id)
		if !tab.FileBound() {
			t.Errorf("tab %s not file-bound", id)
		}
		if tab.PortalContent == nil || *tab.PortalContent != tab.OriginalContent {
			t.Errorf("tab %s anchor = %v", id, tab.PortalContent)
		}
		if !strings.HasSuffix(tab.Name, ".groovy") {
			t.Errorf("tab %s name = %q", id, tab.Name)
		}
	}
}

func TestCloneWithoutTarget(t *testing.T) {
	c := tabs.NewCollection()
	id := openScriptTab(c, identity.FacetCollection, "return 1")
	m := New(c, logging.NewDiscardLogger())

	result := m.Clone(id, nil, "", false)
	if result.Success {
		t.Fatal("clone without a target must fail")
	}
	if result.Error == "" {
		t.Error("a structured error is expected")
	}
	if c.Get(id).FileBound() {
		t.Error("no tab state may change on failure")
	}
}

func TestCloneRefusesOverwrite(t *testing.T) {
	c := tabs.NewCollection()
	id := openScriptTab(c, identity.FacetCollection, "return 1")
	m := New(c, logging.NewDiscardLogger())

	target, err := ResolveTarget(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if result := m.Clone(id, target, "", false); !result.Success {
		t.Fatalf("first clone failed: %s", result.Error)
	}

	// Unbind so the second clone starts from the same pre-clone state.
	c.Apply([]string{id}, func(t *tabs.Tab) {
		t.File = nil
		t.PortalContent = nil
	})
	if result := m.Clone(id, target, "", false); result.Success {
		t.Fatal("second clone without overwrite must fail")
	}
	if result := m.Clone(id, target, "", true); !result.Success {
		t.Fatalf("overwriting clone failed: %s", result.Error)
	}
}

func TestCloneGuards(t *testing.T) {
	c := tabs.NewCollection()
	m := New(c, logging.NewDiscardLogger())
	target, err := ResolveTarget(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if result := m.Clone("ghost", target, "", false); result.Success {
		t.Error("unknown tab must fail")
	}

	unbound := c.NewTab("scratch")
	if result := m.Clone(unbound.ID, target, "", false); result.Success {
		t.Error("unbound tab must fail")
	}

	meta := c.NewTab("metadata")
	c.Apply([]string{meta.ID}, func(t *tabs.Tab) {
		t.Binding = &tabs.Binding{Identity: cpuID, Facet: identity.FacetMetadata}
	})
	if result := m.Clone(meta.ID, target, "", false); result.Success {
		t.Error("metadata-only module must fail with nothing to mirror")
	}
}

func TestRewriteFacet(t *testing.T) {
	c := tabs.NewCollection()
	id := openScriptTab(c, identity.FacetCollection, "return 1")
	m := New(c, logging.NewDiscardLogger())
	target, err := ResolveTarget(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	result := m.Clone(id, target, "", false)
	if !result.Success {
		t.Fatalf("clone failed: %s", result.Error)
	}

	tab := c.Get(id)
	if err := m.RewriteFacet(tab, "return 2", 5); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(tab.File.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return 2" {
		t.Errorf("file = %q", data)
	}
	manifest, err := LoadManifest(filepath.Dir(tab.File.Path))
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Version != 5 {
		t.Errorf("manifest version = %d", manifest.Version)
	}
}

func TestRewriteFacetUnbound(t *testing.T) {
	m := New(tabs.NewCollection(), logging.NewDiscardLogger())
	if err := m.RewriteFacet(&tabs.Tab{}, "x", 1); err == nil {
		t.Error("rewriting an unbound tab must fail")
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "CPU", want: "CPU"},
		{name: "spaces", input: "CPU Usage", want: "CPU_Usage"},
		{name: "slashes", input: "net/if", want: "net_if"},
		{name: "empty", input: "", want: "unnamed"},
		{name: "kept punctuation", input: "snmp64.if-2", want: "snmp64.if-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeName(tt.input); got != tt.want {
				t.Errorf("safeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
