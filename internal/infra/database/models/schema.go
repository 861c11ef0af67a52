package models

import (
	"time"
)

// SchemaRecord is the persisted form of a schema record. The composite
// unique index on (subject_id, subject_kind, schema_kind) enforces triple
// uniqueness at the storage layer, so concurrent upserts on the same triple
// resolve through ON CONFLICT instead of racing a lookup-then-write.
type SchemaRecord struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SubjectID   int64     `json:"subjectId" gorm:"not null;uniqueIndex:idx_schema_records_triple,priority:1"`
	SubjectKind string    `json:"subjectKind" gorm:"type:text;not null;uniqueIndex:idx_schema_records_triple,priority:2;index"`
	SchemaKind  string    `json:"schemaKind" gorm:"type:text;not null;uniqueIndex:idx_schema_records_triple,priority:3;index"`
	Payload     string    `json:"payload" gorm:"type:text;not null"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"type:timestamp with time zone;not null"`
}
