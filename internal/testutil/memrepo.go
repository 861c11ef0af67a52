// Package testutil provides an in-memory schema repository so usecase and
// handler tests run without a database.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/webmemo/schemad/internal/domain"
)

// MemoryRepository implements usecase.SchemaRepository over a map, with the
// same triple-uniqueness and ordering semantics as the Postgres repository.
// Setting Err makes every write fail with it, for save-failure paths.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]domain.SchemaRecord

	Err error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		records: make(map[int64]domain.SchemaRecord),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (domain.SchemaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
	}
	return record, nil
}

func (r *MemoryRepository) ListAll(ctx context.Context) ([]domain.SchemaRecord, error) {
	return r.list(func(domain.SchemaRecord) bool { return true }), nil
}

func (r *MemoryRepository) ListBySubject(ctx context.Context, subjectID int64, subjectKind string) ([]domain.SchemaRecord, error) {
	return r.list(func(rec domain.SchemaRecord) bool {
		return rec.SubjectID == subjectID && rec.SubjectKind == subjectKind
	}), nil
}

func (r *MemoryRepository) ListBySubjectKind(ctx context.Context, subjectKind string) ([]domain.SchemaRecord, error) {
	return r.list(func(rec domain.SchemaRecord) bool {
		return rec.SubjectKind == subjectKind
	}), nil
}

func (r *MemoryRepository) ListBySchemaKind(ctx context.Context, schemaKind string) ([]domain.SchemaRecord, error) {
	return r.list(func(rec domain.SchemaRecord) bool {
		return rec.SchemaKind == schemaKind
	}), nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, subjectID int64, subjectKind, schemaKind string, payload []byte) (domain.SchemaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return domain.SchemaRecord{}, r.Err
	}

	for id, rec := range r.records {
		if rec.SubjectID == subjectID && rec.SubjectKind == subjectKind && rec.SchemaKind == schemaKind {
			rec.Payload = append([]byte(nil), payload...)
			rec.UpdatedAt = time.Now().UTC()
			r.records[id] = rec
			return rec, nil
		}
	}

	record := domain.SchemaRecord{
		ID:          r.nextID,
		SubjectID:   subjectID,
		SubjectKind: subjectKind,
		SchemaKind:  schemaKind,
		Payload:     append([]byte(nil), payload...),
		UpdatedAt:   time.Now().UTC(),
	}
	r.nextID++
	r.records[record.ID] = record
	return record, nil
}

func (r *MemoryRepository) UpdateByID(ctx context.Context, id int64, payload []byte) (domain.SchemaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return domain.SchemaRecord{}, r.Err
	}

	record, ok := r.records[id]
	if !ok {
		return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
	}
	record.Payload = append([]byte(nil), payload...)
	record.UpdatedAt = time.Now().UTC()
	r.records[id] = record
	return record, nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, id int64) (domain.SchemaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
	}
	delete(r.records, id)
	return record, nil
}

func (r *MemoryRepository) DeleteBySubject(ctx context.Context, subjectID int64, subjectKind string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, rec := range r.records {
		if rec.SubjectID == subjectID && rec.SubjectKind == subjectKind {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports the number of stored records.
func (r *MemoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *MemoryRepository) list(match func(domain.SchemaRecord) bool) []domain.SchemaRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]domain.SchemaRecord, 0, len(r.records))
	for _, rec := range r.records {
		if match(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.SubjectKind != b.SubjectKind {
			return a.SubjectKind < b.SubjectKind
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.ID < b.ID
	})
	return records
}
