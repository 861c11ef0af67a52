package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/webmemo/schemad"
)

type fakeSync struct {
	batches  [][]schemad.UpsertRequest
	failOn   int // 1-based batch number to fail, 0 for never
	rejectAt map[int64]string
}

func (f *fakeSync) BulkUpsert(ctx context.Context, schemas []schemad.UpsertRequest) (schemad.BulkReport, error) {
	f.batches = append(f.batches, schemas)
	if f.failOn == len(f.batches) {
		return schemad.BulkReport{}, errors.New("connection reset")
	}

	report := schemad.BulkReport{
		Succeeded: []schemad.BulkSuccess{},
		Failed:    []schemad.BulkFailure{},
	}
	for i, s := range schemas {
		if reason, rejected := f.rejectAt[*s.SubjectID]; rejected {
			report.Failed = append(report.Failed, schemad.BulkFailure{Index: i, Reason: reason, Schema: s})
			continue
		}
		report.Succeeded = append(report.Succeeded, schemad.BulkSuccess{
			Index:       i,
			ID:          int64(i + 1),
			SubjectID:   *s.SubjectID,
			SubjectKind: s.SubjectKind,
		})
	}
	return report, nil
}

func makeCandidates(n int) []schemad.UpsertRequest {
	out := make([]schemad.UpsertRequest, 0, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		out = append(out, schemad.UpsertRequest{
			SubjectID:   &id,
			SubjectKind: "post",
			SchemaKind:  "Article",
			Payload:     `{}`,
		})
	}
	return out
}

func TestSubmitChunksIntoBatches(t *testing.T) {
	sync := &fakeSync{}
	runner := NewRunner(nil, nil, sync, 2, 0)

	summary := runner.Submit(context.Background(), makeCandidates(5))

	if summary.Batches != 3 {
		t.Fatalf("expected 3 batches for 5 candidates at size 2, got %d", summary.Batches)
	}
	if len(sync.batches) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(sync.batches))
	}
	if len(sync.batches[0]) != 2 || len(sync.batches[1]) != 2 || len(sync.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %d %d %d",
			len(sync.batches[0]), len(sync.batches[1]), len(sync.batches[2]))
	}
	if summary.Candidates != 5 || summary.Succeeded != 5 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSubmitContinuesPastFailedBatch(t *testing.T) {
	sync := &fakeSync{failOn: 2}
	runner := NewRunner(nil, nil, sync, 2, 0)

	summary := runner.Submit(context.Background(), makeCandidates(5))

	if summary.Batches != 3 {
		t.Fatalf("a failed batch must not halt the run, got %d batches", summary.Batches)
	}
	if summary.Succeeded != 3 {
		t.Fatalf("expected 3 succeeded, got %d", summary.Succeeded)
	}
	if summary.Failed != 2 {
		t.Fatalf("the whole failed batch counts as failed, got %d", summary.Failed)
	}
}

func TestSubmitCountsPerRecordRejections(t *testing.T) {
	sync := &fakeSync{rejectAt: map[int64]string{3: "invalid payload"}}
	runner := NewRunner(nil, nil, sync, 50, 0)

	summary := runner.Submit(context.Background(), makeCandidates(5))

	if summary.Batches != 1 {
		t.Fatalf("expected a single batch, got %d", summary.Batches)
	}
	if summary.Succeeded != 4 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSubmitStopsWhenContextCancelled(t *testing.T) {
	sync := &fakeSync{}
	runner := NewRunner(nil, nil, sync, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := runner.Submit(ctx, makeCandidates(3))

	// The first batch goes out before any pacing wait; cancellation stops the
	// run at the next pause.
	if summary.Batches != 1 {
		t.Fatalf("expected the run to stop after the first batch, got %d", summary.Batches)
	}
}

func TestSubmitEmptyInput(t *testing.T) {
	sync := &fakeSync{}
	runner := NewRunner(nil, nil, sync, 2, 0)

	summary := runner.Submit(context.Background(), nil)
	if summary.Batches != 0 || summary.Candidates != 0 {
		t.Fatalf("unexpected summary for empty input: %+v", summary)
	}
	if len(sync.batches) != 0 {
		t.Fatalf("no submissions expected for empty input")
	}
}
