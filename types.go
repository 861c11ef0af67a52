package schemad

import (
	"encoding/json"
	"time"
)

// SubjectKindGlobal marks site-wide records not tied to a single content object.
const SubjectKindGlobal = "global"

// Schema is a stored JSON-LD fragment keyed to a content object.
type Schema struct {
	ID          int64           `json:"id"`
	SubjectID   int64           `json:"subjectId"`
	SubjectKind string          `json:"subjectKind"`
	SchemaKind  string          `json:"schemaKind"`
	Payload     json.RawMessage `json:"payload"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// UpsertRequest creates or updates a record by its
// (subjectId, subjectKind, schemaKind) triple. SubjectID is a pointer so
// that a missing field can be told apart from the global sentinel 0.
// Payload carries the serialized document; it must parse as valid JSON.
type UpsertRequest struct {
	SubjectID   *int64 `json:"subjectId"`
	SubjectKind string `json:"subjectKind"`
	SchemaKind  string `json:"schemaKind"`
	Payload     string `json:"payload"`
}

// UpdateRequest replaces the payload of a record addressed by id.
type UpdateRequest struct {
	Payload string `json:"payload"`
}

type UpsertResponse struct {
	ID int64 `json:"id"`
}

type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// BulkRequest carries a batch of candidate records. Each entry is validated
// and written independently of the others.
type BulkRequest struct {
	Schemas []UpsertRequest `json:"schemas"`
}

// BulkSuccess reports one stored record. Index is the position of the input
// in the submitted batch.
type BulkSuccess struct {
	Index       int    `json:"index"`
	ID          int64  `json:"id"`
	SubjectID   int64  `json:"subjectId"`
	SubjectKind string `json:"subjectKind"`
}

// BulkFailure reports one rejected record together with the original input.
type BulkFailure struct {
	Index  int           `json:"index"`
	Reason string        `json:"reason"`
	Schema UpsertRequest `json:"schema"`
}

// BulkReport partitions a batch into stored and rejected records. Every
// submitted record appears exactly once across the two lists, in input order.
type BulkReport struct {
	Succeeded []BulkSuccess `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// Event is broadcast on the realtime feed after every successful write.
type Event struct {
	Action string `json:"action"` // upsert, update, delete
	Schema Schema `json:"schema"`
}
