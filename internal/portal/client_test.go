package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lmc/internal/identity"
	"lmc/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("acme", server.URL, "test-token", logging.NewDiscardLogger())
}

func writeData(w http.ResponseWriter, data interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func TestFetchModule(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		writeData(w, map[string]interface{}{
			"id":        42,
			"name":      "CPU",
			"version":   3,
			"lineageId": 7,
			"collectorAttribute": map[string]interface{}{
				"groovyScript": "return 1",
			},
		})
	}))

	module, err := client.FetchModule(context.Background(), identity.DataSource, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/modules/datasource/42" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if module.ID != 42 || module.Name != "CPU" || module.Version != 3 || module.LineageID != 7 {
		t.Errorf("module = %+v", module)
	}
	if module.Raw["name"] != "CPU" {
		t.Error("raw snapshot should be preserved")
	}
}

func TestFetchScript(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]interface{}{
			"version": 5,
			"autoDiscoveryConfig": map[string]interface{}{
				"method": map[string]interface{}{
					"groovyScript": "return hosts",
				},
			},
		})
	}))

	script, version, err := client.FetchScript(context.Background(), identity.DataSource, 42, identity.FacetDiscovery)
	if err != nil {
		t.Fatal(err)
	}
	if script != "return hosts" || version != 5 {
		t.Errorf("script = %q, version = %d", script, version)
	}
}

func TestErrorDiscrimination(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		check  func(*PortalError) bool
	}{
		{name: "not found", status: http.StatusNotFound, code: "not_found", check: (*PortalError).IsNotFound},
		{name: "forbidden", status: http.StatusForbidden, code: "forbidden", check: (*PortalError).IsForbidden},
		{name: "unauthenticated", status: http.StatusUnauthorized, code: "unauthenticated", check: (*PortalError).IsUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{"code": tt.code, "message": "nope"},
				})
			}))

			_, err := client.FetchModule(context.Background(), identity.DataSource, 42)
			perr, ok := AsPortalError(err)
			if !ok {
				t.Fatalf("error = %v, want PortalError", err)
			}
			if perr.StatusCode != tt.status || !tt.check(perr) {
				t.Errorf("perr = %+v", perr)
			}
			if perr.UserMessage() == "nope" {
				t.Error("discriminated errors should map to a user-facing message")
			}
		})
	}
}

func TestUnknownErrorSurfacesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "validation", "message": "interval too small"},
		})
	}))

	_, err := client.FetchModule(context.Background(), identity.DataSource, 42)
	perr, ok := AsPortalError(err)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if perr.UserMessage() != "interval too small" {
		t.Errorf("user message = %q", perr.UserMessage())
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeData(w, map[string]interface{}{"id": 42, "version": 1})
	}))

	module, err := client.FetchModule(context.Background(), identity.DataSource, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if module.ID != 42 {
		t.Errorf("module = %+v", module)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "not_found", "message": "gone"},
		})
	}))

	if _, err := client.FetchModule(context.Background(), identity.DataSource, 42); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCommitModule(t *testing.T) {
	var gotReq CommitRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/modules/datasource/42/commit" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		writeData(w, map[string]interface{}{"version": 4})
	}))

	script := "return 2"
	result, err := client.CommitModule(context.Background(), identity.DataSource, 42, &CommitRequest{
		ScriptFacet: identity.FacetCollection,
		Script:      &script,
		Metadata:    map[string]interface{}{"description": "updated"},
		Reason:      "fix",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Version != 4 {
		t.Errorf("version = %d", result.Version)
	}
	if gotReq.Script == nil || *gotReq.Script != "return 2" || gotReq.Reason != "fix" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestFetchLineageVersions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/modules/datasource/lineage/7/versions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeData(w, []map[string]interface{}{
			{"version": 4, "committer": "ops", "reason": "tune"},
			{"version": 3},
		})
	}))

	versions, err := client.FetchLineageVersions(context.Background(), identity.DataSource, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0].Version != 4 || versions[0].Committer != "ops" {
		t.Errorf("versions = %+v", versions)
	}
}

func TestFetchAccessGroups(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]interface{}{
			{"id": 1, "name": "Default"},
			{"id": 3, "name": "Network"},
		})
	}))

	groups, err := client.FetchAccessGroups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[1].ID != 3 {
		t.Errorf("groups = %+v", groups)
	}
}
