package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/webmemo/schemad"
)

// SyncClient is the slice of the sync API the runner needs.
type SyncClient interface {
	BulkUpsert(ctx context.Context, schemas []schemad.UpsertRequest) (schemad.BulkReport, error)
}

// Runner drives one synchronization pass: extract, build, submit in
// fixed-size batches with a pacing delay between them. Failed records are
// reported, never retried within a run; re-submission is left to the next
// scheduled run.
type Runner struct {
	content   *ContentClient
	builder   *Builder
	sync      SyncClient
	batchSize int
	pacing    time.Duration
}

func NewRunner(content *ContentClient, builder *Builder, sync SyncClient, batchSize int, pacing time.Duration) *Runner {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Runner{
		content:   content,
		builder:   builder,
		sync:      sync,
		batchSize: batchSize,
		pacing:    pacing,
	}
}

type RunSummary struct {
	Candidates int
	Batches    int
	Succeeded  int
	Failed     int
}

func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	posts, err := r.content.FetchPosts(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	pages, err := r.content.FetchPages(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	users, err := r.content.FetchUsers(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	candidates := r.builder.BuildCandidates(posts, pages, users)
	summary := r.Submit(ctx, candidates)

	slog.Info(
		"synchronization run complete",
		slog.Int("candidates", summary.Candidates),
		slog.Int("batches", summary.Batches),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.String("module", "pipeline"),
	)
	return summary, nil
}

// Submit pushes candidates through the bulk endpoint. One batch is
// outstanding at a time; a failed batch or record does not halt processing
// of subsequent batches.
func (r *Runner) Submit(ctx context.Context, candidates []schemad.UpsertRequest) RunSummary {
	summary := RunSummary{Candidates: len(candidates)}

	for start := 0; start < len(candidates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		if summary.Batches > 0 && r.pacing > 0 {
			if !sleepCtx(ctx, r.pacing) {
				break
			}
		}
		summary.Batches++

		report, err := r.sync.BulkUpsert(ctx, batch)
		if err != nil {
			slog.Error(
				"batch submission failed",
				slog.Int("batch", summary.Batches),
				slog.Int("size", len(batch)),
				slog.String("error", err.Error()),
				slog.String("module", "pipeline"),
			)
			summary.Failed += len(batch)
			continue
		}

		summary.Succeeded += len(report.Succeeded)
		summary.Failed += len(report.Failed)

		// Every failure is surfaced with its reason and the offending input.
		for _, failure := range report.Failed {
			subjectID := int64(0)
			if failure.Schema.SubjectID != nil {
				subjectID = *failure.Schema.SubjectID
			}
			slog.Error(
				"schema record rejected",
				slog.Int("batch", summary.Batches),
				slog.Int("index", failure.Index),
				slog.String("reason", failure.Reason),
				slog.Int64("subjectId", subjectID),
				slog.String("subjectKind", failure.Schema.SubjectKind),
				slog.String("schemaKind", failure.Schema.SchemaKind),
				slog.String("payload", failure.Schema.Payload),
				slog.String("module", "pipeline"),
			)
		}

		slog.Info(
			"batch submitted",
			slog.Int("batch", summary.Batches),
			slog.Int("succeeded", len(report.Succeeded)),
			slog.Int("failed", len(report.Failed)),
			slog.String("module", "pipeline"),
		)
	}

	return summary
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
