package usecase

import (
	"context"

	"github.com/webmemo/schemad"
	"github.com/webmemo/schemad/internal/domain"
)

// SchemaRepository defines storage operations for schema records.
//
// Upsert must be atomic per triple: two concurrent upserts on the same
// (subjectID, subjectKind, schemaKind) must not produce duplicate rows.
type SchemaRepository interface {
	Get(ctx context.Context, id int64) (domain.SchemaRecord, error)
	ListAll(ctx context.Context) ([]domain.SchemaRecord, error)
	ListBySubject(ctx context.Context, subjectID int64, subjectKind string) ([]domain.SchemaRecord, error)
	ListBySubjectKind(ctx context.Context, subjectKind string) ([]domain.SchemaRecord, error)
	ListBySchemaKind(ctx context.Context, schemaKind string) ([]domain.SchemaRecord, error)
	Upsert(ctx context.Context, subjectID int64, subjectKind, schemaKind string, payload []byte) (domain.SchemaRecord, error)
	UpdateByID(ctx context.Context, id int64, payload []byte) (domain.SchemaRecord, error)
	DeleteByID(ctx context.Context, id int64) (domain.SchemaRecord, error)
	DeleteBySubject(ctx context.Context, subjectID int64, subjectKind string) (int64, error)
}

// SchemaNotifier publishes record-change events for the realtime feed.
type SchemaNotifier interface {
	Publish(ctx context.Context, event schemad.Event) error
}
