package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/webmemo/schemad"
	"github.com/webmemo/schemad/internal/domain"
	"github.com/webmemo/schemad/internal/testutil"
)

type captureNotifier struct {
	events []schemad.Event
}

func (n *captureNotifier) Publish(ctx context.Context, event schemad.Event) error {
	n.events = append(n.events, event)
	return nil
}

func ptrInt64(v int64) *int64 { return &v }

func upsertReq(subjectID int64, subjectKind, schemaKind, payload string) schemad.UpsertRequest {
	return schemad.UpsertRequest{
		SubjectID:   ptrInt64(subjectID),
		SubjectKind: subjectKind,
		SchemaKind:  schemaKind,
		Payload:     payload,
	}
}

func TestUpsertInsertsThenUpdatesInPlace(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)
	ctx := context.Background()

	id1, err := uc.Upsert(ctx, upsertReq(42, "post", "Article", `{"headline":"first"}`))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	id2, err := uc.Upsert(ctx, upsertReq(42, "post", "Article", `{"headline":"second"}`))
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if id1 != id2 {
		t.Fatalf("upserting the same triple returned different ids: %d vs %d", id1, id2)
	}
	if repo.Count() != 1 {
		t.Fatalf("expected 1 record after two upserts on one triple, got %d", repo.Count())
	}

	record, err := uc.Get(ctx, id1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(record.Payload) != `{"headline":"second"}` {
		t.Fatalf("payload not updated in place: %s", record.Payload)
	}
}

func TestUpsertNovelTripleAssignsFreshID(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)
	ctx := context.Background()

	id1, err := uc.Upsert(ctx, upsertReq(42, "post", "Article", `{}`))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	id2, err := uc.Upsert(ctx, upsertReq(42, "post", "BreadcrumbList", `{}`))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if id1 == id2 {
		t.Fatalf("distinct triples must not share an id")
	}
	if repo.Count() != 2 {
		t.Fatalf("expected 2 records, got %d", repo.Count())
	}
}

func TestValidationPrecedenceMissingFieldBeforeInvalidPayload(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)

	// schemaKind missing and payload malformed: the field check must win.
	req := schemad.UpsertRequest{
		SubjectID:   ptrInt64(1),
		SubjectKind: "post",
		Payload:     `{not json`,
	}

	_, err := uc.Upsert(context.Background(), req)
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("field-presence check must run before JSON validation")
	}
	if !strings.Contains(err.Error(), "schemaKind") {
		t.Fatalf("error should name the missing field: %v", err)
	}
	if repo.Count() != 0 {
		t.Fatalf("nothing may be persisted on validation failure")
	}
}

func TestUpsertMissingSubjectID(t *testing.T) {
	uc := NewSchemaUsecase(testutil.NewMemoryRepository(), nil)

	req := schemad.UpsertRequest{
		SubjectKind: "post",
		SchemaKind:  "Article",
		Payload:     `{}`,
	}
	_, err := uc.Upsert(context.Background(), req)
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if !strings.Contains(err.Error(), "subjectId") {
		t.Fatalf("error should name subjectId: %v", err)
	}
}

func TestUpsertInvalidPayload(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)

	_, err := uc.Upsert(context.Background(), upsertReq(1, "post", "Article", `{broken`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected InvalidPayloadError, got %v", err)
	}
	if repo.Count() != 0 {
		t.Fatalf("invalid payload must never be persisted")
	}
}

func TestUpsertSaveFailed(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.Err = errors.New("storage unavailable")
	uc := NewSchemaUsecase(repo, nil)

	_, err := uc.Upsert(context.Background(), upsertReq(1, "post", "Article", `{}`))
	if !errors.Is(err, domain.ErrSaveFailed) {
		t.Fatalf("expected SaveFailedError, got %v", err)
	}
}

func TestUpdateByIDNotFound(t *testing.T) {
	uc := NewSchemaUsecase(testutil.NewMemoryRepository(), nil)

	err := uc.UpdateByID(context.Background(), 999, `{}`)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateByIDKeepsTriple(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)
	ctx := context.Background()

	id, err := uc.Upsert(ctx, upsertReq(7, "post", "Article", `{"v":1}`))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := uc.UpdateByID(ctx, id, `{"v":2}`); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	record, err := uc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(record.Payload) != `{"v":2}` {
		t.Fatalf("payload not replaced: %s", record.Payload)
	}
	if record.SubjectID != 7 || record.SubjectKind != "post" || record.SchemaKind != "Article" {
		t.Fatalf("update by id must not change the uniqueness triple")
	}
}

func TestBulkUpsertIsolation(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)

	reqs := []schemad.UpsertRequest{
		upsertReq(1, "post", "Article", `{"ok":1}`),
		upsertReq(2, "post", "Article", `{broken`),
		upsertReq(3, "post", "Article", `{"ok":3}`),
		{SubjectID: ptrInt64(4), SubjectKind: "post", Payload: `{"ok":4}`}, // schemaKind missing
		upsertReq(5, "post", "Article", `{"ok":5}`),
	}

	report := uc.BulkUpsert(context.Background(), reqs)

	if len(report.Succeeded) != 3 {
		t.Fatalf("expected 3 succeeded, got %d", len(report.Succeeded))
	}
	if len(report.Failed) != 2 {
		t.Fatalf("expected 2 failed, got %d", len(report.Failed))
	}

	// Every input appears exactly once across the two buckets.
	seen := map[int]bool{}
	for _, s := range report.Succeeded {
		seen[s.Index] = true
	}
	for _, f := range report.Failed {
		if seen[f.Index] {
			t.Fatalf("index %d reported in both buckets", f.Index)
		}
		seen[f.Index] = true
	}
	for i := range reqs {
		if !seen[i] {
			t.Fatalf("input %d missing from the report", i)
		}
	}

	if report.Failed[0].Index != 1 || report.Failed[1].Index != 3 {
		t.Fatalf("report must preserve input order, got failures at %d and %d",
			report.Failed[0].Index, report.Failed[1].Index)
	}
	if !strings.Contains(report.Failed[0].Reason, "invalid payload") {
		t.Fatalf("unexpected reason for malformed record: %s", report.Failed[0].Reason)
	}
	if !strings.Contains(report.Failed[1].Reason, "schemaKind") {
		t.Fatalf("unexpected reason for missing field: %s", report.Failed[1].Reason)
	}

	if repo.Count() != 3 {
		t.Fatalf("expected only the valid records to persist, got %d", repo.Count())
	}
}

func TestDeleteBySubjectCascade(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	uc := NewSchemaUsecase(repo, nil)
	ctx := context.Background()

	mustUpsert(t, uc, upsertReq(7, "post", "Article", `{}`))
	mustUpsert(t, uc, upsertReq(7, "post", "BreadcrumbList", `{}`))
	mustUpsert(t, uc, upsertReq(8, "post", "Article", `{}`))
	mustUpsert(t, uc, upsertReq(7, "page", "WebPage", `{}`))

	deleted, err := uc.DeleteBySubject(ctx, 7, "post")
	if err != nil {
		t.Fatalf("delete by subject failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}

	remaining, err := uc.List(ctx, ListFilter{SubjectID: ptrInt64(7), SubjectKind: "post"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no records for (7, post), got %d", len(remaining))
	}

	others, err := uc.List(ctx, ListFilter{SubjectID: ptrInt64(8), SubjectKind: "post"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("records for other subjects must be unaffected, got %d", len(others))
	}
}

func TestWritesPublishEvents(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	notifier := &captureNotifier{}
	uc := NewSchemaUsecase(repo, notifier)
	ctx := context.Background()

	id := mustUpsert(t, uc, upsertReq(1, "post", "Article", `{"v":1}`))
	if err := uc.UpdateByID(ctx, id, `{"v":2}`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := uc.DeleteByID(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(notifier.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(notifier.events))
	}
	actions := []string{notifier.events[0].Action, notifier.events[1].Action, notifier.events[2].Action}
	if actions[0] != "upsert" || actions[1] != "update" || actions[2] != "delete" {
		t.Fatalf("unexpected actions: %v", actions)
	}
}

func mustUpsert(t *testing.T, uc *SchemaUsecase, req schemad.UpsertRequest) int64 {
	t.Helper()
	id, err := uc.Upsert(context.Background(), req)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	return id
}
