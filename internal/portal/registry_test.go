package portal

import (
	"testing"

	"lmc/internal/paths"
)

func TestRegistryRoundTrip(t *testing.T) {
	t.Setenv(paths.EnvHome, t.TempDir())

	reg, err := LoadRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Portals) != 0 || reg.Active != "" {
		t.Fatalf("fresh registry = %+v", reg)
	}

	if _, err := reg.Add("acme", "acme.example.com", "prod"); err != nil {
		t.Fatal(err)
	}
	if reg.Active != "acme" {
		t.Error("first portal should become active")
	}
	if _, err := reg.Add("globex", "globex.example.com", ""); err != nil {
		t.Fatal(err)
	}
	if reg.Active != "acme" {
		t.Error("adding more portals must not steal the active slot")
	}
	if err := reg.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Portals) != 2 || loaded.Active != "acme" {
		t.Errorf("loaded = %+v", loaded)
	}
	entry, ok := loaded.Get("globex")
	if !ok || entry.Host != "globex.example.com" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestRegistryDuplicateAdd(t *testing.T) {
	t.Setenv(paths.EnvHome, t.TempDir())
	reg := &Registry{}
	if _, err := reg.Add("acme", "a.example.com", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("acme", "b.example.com", ""); err == nil {
		t.Error("duplicate id must be rejected")
	}
}

func TestRegistryUseAndRemove(t *testing.T) {
	reg := &Registry{}
	if _, err := reg.Add("acme", "a.example.com", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("globex", "b.example.com", ""); err != nil {
		t.Fatal(err)
	}

	if err := reg.Use("globex"); err != nil {
		t.Fatal(err)
	}
	if reg.Active != "globex" {
		t.Errorf("active = %q", reg.Active)
	}
	if err := reg.Use("ghost"); err == nil {
		t.Error("using an unknown portal must fail")
	}

	if err := reg.Remove("globex"); err != nil {
		t.Fatal(err)
	}
	if reg.Active != "" {
		t.Error("removing the active portal clears the active slot")
	}
	if err := reg.Remove("ghost"); err == nil {
		t.Error("removing an unknown portal must fail")
	}
}
