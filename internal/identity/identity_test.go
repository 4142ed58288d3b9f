package identity

import "testing"

func TestParseModuleType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ModuleType
		wantErr bool
	}{
		{name: "datasource", input: "datasource", want: DataSource},
		{name: "uppercase", input: "EventSource", want: EventSource},
		{name: "surrounding whitespace", input: "  logsource ", want: LogSource},
		{name: "unknown type", input: "widget", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModuleType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFacet(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Facet
		wantErr bool
	}{
		{name: "discovery", input: "discovery", want: FacetDiscovery},
		{name: "collection uppercase", input: "Collection", want: FacetCollection},
		{name: "metadata", input: "metadata", want: FacetMetadata},
		{name: "unknown", input: "scripts", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFacet(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFacetIsScript(t *testing.T) {
	if !FacetDiscovery.IsScript() {
		t.Error("discovery should carry a script")
	}
	if !FacetCollection.IsScript() {
		t.Error("collection should carry a script")
	}
	if FacetMetadata.IsScript() {
		t.Error("metadata should not carry a script")
	}
}

func TestModuleIdentity(t *testing.T) {
	id := ModuleIdentity{ModuleID: 42, ModuleType: DataSource, PortalID: "acme"}
	if !id.Valid() {
		t.Fatal("complete identity should be valid")
	}
	if got, want := id.Key(), "acme/datasource/42"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	invalid := []ModuleIdentity{
		{ModuleType: DataSource, PortalID: "acme"},
		{ModuleID: 42, PortalID: "acme"},
		{ModuleID: 42, ModuleType: DataSource},
	}
	for _, id := range invalid {
		if id.Valid() {
			t.Errorf("identity %+v should be invalid", id)
		}
	}
}

func TestModuleIdentityEquality(t *testing.T) {
	a := ModuleIdentity{ModuleID: 7, ModuleType: EventSource, PortalID: "acme"}
	b := ModuleIdentity{ModuleID: 7, ModuleType: EventSource, PortalID: "acme"}
	c := ModuleIdentity{ModuleID: 7, ModuleType: EventSource, PortalID: "other"}
	if a != b {
		t.Error("equal tuples should compare equal")
	}
	if a == c {
		t.Error("different portals should not compare equal")
	}
}
