package usecase

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/webmemo/schemad"
	"github.com/webmemo/schemad/internal/domain"
)

// ListFilter narrows a listing. A nil SubjectID leaves the subject
// unconstrained.
type ListFilter struct {
	SubjectID   *int64
	SubjectKind string
	SchemaKind  string
}

type SchemaUsecase struct {
	repo     SchemaRepository
	notifier SchemaNotifier
}

func NewSchemaUsecase(repo SchemaRepository, notifier SchemaNotifier) *SchemaUsecase {
	return &SchemaUsecase{repo: repo, notifier: notifier}
}

// validateUpsert checks field presence strictly before payload syntax, so a
// record missing a field reports MissingField even when the payload is also
// malformed.
func validateUpsert(req schemad.UpsertRequest) error {
	checks := []struct {
		field string
		err   error
	}{
		{"subjectId", validation.Validate(req.SubjectID, validation.NotNil)},
		{"subjectKind", validation.Validate(req.SubjectKind, validation.Required)},
		{"schemaKind", validation.Validate(req.SchemaKind, validation.Required)},
		{"payload", validation.Validate(req.Payload, validation.Required)},
	}
	for _, c := range checks {
		if c.err != nil {
			return domain.MissingFieldError{Field: c.field}
		}
	}
	return validatePayload(req.Payload)
}

func validatePayload(payload string) error {
	if payload == "" {
		return domain.MissingFieldError{Field: "payload"}
	}
	if err := validation.Validate(payload, is.JSON); err != nil {
		return domain.InvalidPayloadError{Detail: err.Error()}
	}
	return nil
}

func (uc *SchemaUsecase) Get(ctx context.Context, id int64) (domain.SchemaRecord, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *SchemaUsecase) List(ctx context.Context, filter ListFilter) ([]domain.SchemaRecord, error) {
	switch {
	case filter.SubjectID != nil:
		return uc.repo.ListBySubject(ctx, *filter.SubjectID, filter.SubjectKind)
	case filter.SchemaKind != "":
		return uc.repo.ListBySchemaKind(ctx, filter.SchemaKind)
	default:
		return uc.repo.ListAll(ctx)
	}
}

// Upsert writes a record by its uniqueness triple and returns the id of the
// row it landed on: the existing id when the triple was already present, a
// fresh one otherwise.
func (uc *SchemaUsecase) Upsert(ctx context.Context, req schemad.UpsertRequest) (int64, error) {
	if err := validateUpsert(req); err != nil {
		return 0, err
	}

	record, err := uc.repo.Upsert(ctx, *req.SubjectID, req.SubjectKind, req.SchemaKind, []byte(req.Payload))
	if err != nil {
		return 0, domain.SaveFailedError{Cause: err}
	}

	uc.notify(ctx, "upsert", record)
	return record.ID, nil
}

func (uc *SchemaUsecase) UpdateByID(ctx context.Context, id int64, payload string) error {
	if err := validatePayload(payload); err != nil {
		return err
	}

	record, err := uc.repo.UpdateByID(ctx, id, []byte(payload))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.SaveFailedError{Cause: err}
	}

	uc.notify(ctx, "update", record)
	return nil
}

func (uc *SchemaUsecase) DeleteByID(ctx context.Context, id int64) error {
	record, err := uc.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}

	uc.notify(ctx, "delete", record)
	return nil
}

// DeleteBySubject removes every record for one content object. Invoked by the
// hosting application when the object itself is deleted.
func (uc *SchemaUsecase) DeleteBySubject(ctx context.Context, subjectID int64, subjectKind string) (int64, error) {
	return uc.repo.DeleteBySubject(ctx, subjectID, subjectKind)
}

// BulkUpsert processes each record independently: one record's failure never
// aborts or rolls back the others. The report covers every input exactly once
// across the two buckets, in input order.
func (uc *SchemaUsecase) BulkUpsert(ctx context.Context, reqs []schemad.UpsertRequest) schemad.BulkReport {
	report := schemad.BulkReport{
		Succeeded: []schemad.BulkSuccess{},
		Failed:    []schemad.BulkFailure{},
	}

	for i, req := range reqs {
		id, err := uc.Upsert(ctx, req)
		if err != nil {
			report.Failed = append(report.Failed, schemad.BulkFailure{
				Index:  i,
				Reason: err.Error(),
				Schema: req,
			})
			continue
		}
		report.Succeeded = append(report.Succeeded, schemad.BulkSuccess{
			Index:       i,
			ID:          id,
			SubjectID:   *req.SubjectID,
			SubjectKind: req.SubjectKind,
		})
	}

	return report
}

func (uc *SchemaUsecase) notify(ctx context.Context, action string, record domain.SchemaRecord) {
	if uc.notifier == nil {
		return
	}
	event := schemad.Event{
		Action: action,
		Schema: schemad.Schema{
			ID:          record.ID,
			SubjectID:   record.SubjectID,
			SubjectKind: record.SubjectKind,
			SchemaKind:  record.SchemaKind,
			Payload:     record.Payload,
			UpdatedAt:   record.UpdatedAt,
		},
	}
	if err := uc.notifier.Publish(ctx, event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish schema event",
			slog.String("error", err.Error()),
			slog.String("module", "usecase"),
		)
	}
}
