package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/webmemo/schemad"
)

func TestClientSendsBearerTokenAndUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("User-Agent") != "schemad-client/1.0" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		json.NewEncoder(w).Encode([]schemad.Schema{})
	}))
	defer server.Close()

	c := New(server.URL, "secret-token")
	if _, err := c.GetSchemas(context.Background(), ListFilter{}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
}

func TestCreateSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/schemas" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req schemad.UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.SubjectID == nil || *req.SubjectID != 42 || req.SchemaKind != "Article" {
			t.Errorf("unexpected request body: %+v", req)
		}
		json.NewEncoder(w).Encode(schemad.UpsertResponse{ID: 7})
	}))
	defer server.Close()

	c := New(server.URL, "t")
	subjectID := int64(42)
	id, err := c.CreateSchema(context.Background(), schemad.UpsertRequest{
		SubjectID:   &subjectID,
		SubjectKind: "post",
		SchemaKind:  "Article",
		Payload:     `{}`,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
}

func TestGetSchemasFilterEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("subject_id") != "42" || q.Get("subject_kind") != "post" || q.Get("schema_kind") != "Article" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]schemad.Schema{{ID: 1}})
	}))
	defer server.Close()

	c := New(server.URL, "t")
	subjectID := int64(42)
	schemas, err := c.GetSchemas(context.Background(), ListFilter{
		SubjectID:   &subjectID,
		SubjectKind: "post",
		SchemaKind:  "Article",
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(schemas) != 1 || schemas[0].ID != 1 {
		t.Fatalf("unexpected response: %+v", schemas)
	}
}

func TestBulkUpsertDecodesReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/schemas/bulk" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req schemad.BulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(schemad.BulkReport{
			Succeeded: []schemad.BulkSuccess{{Index: 0, ID: 1, SubjectID: 1, SubjectKind: "post"}},
			Failed:    []schemad.BulkFailure{{Index: 1, Reason: "invalid payload", Schema: req.Schemas[1]}},
		})
	}))
	defer server.Close()

	c := New(server.URL, "t")
	one, two := int64(1), int64(2)
	report, err := c.BulkUpsert(context.Background(), []schemad.UpsertRequest{
		{SubjectID: &one, SubjectKind: "post", SchemaKind: "Article", Payload: `{}`},
		{SubjectID: &two, SubjectKind: "post", SchemaKind: "Article", Payload: `{broken`},
	})
	if err != nil {
		t.Fatalf("bulk failed: %v", err)
	}
	if len(report.Succeeded) != 1 || len(report.Failed) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Failed[0].Reason != "invalid payload" {
		t.Fatalf("unexpected reason: %s", report.Failed[0].Reason)
	}
}

func TestErrorBodySurfacedInMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "schema record not found"})
	}))
	defer server.Close()

	c := New(server.URL, "t")
	_, err := c.GetSchema(context.Background(), 999)
	if err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
	if got := err.Error(); got != "unexpected status code 404: schema record not found" {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestDeleteBySubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("subject_id") != "7" || q.Get("subject_kind") != "post" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(schemad.DeleteResponse{Deleted: 2})
	}))
	defer server.Close()

	c := New(server.URL, "t")
	deleted, err := c.DeleteBySubject(context.Background(), 7, "post")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}
}
