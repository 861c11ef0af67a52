package usecase

import (
	"context"
	"encoding/json"

	"github.com/webmemo/schemad/internal/domain"
)

// AggregatorUsecase selects and orders the JSON-LD payloads to emit for a
// page view. It performs read-only queries and never mutates the store.
type AggregatorUsecase struct {
	repo SchemaRepository
}

func NewAggregatorUsecase(repo SchemaRepository) *AggregatorUsecase {
	return &AggregatorUsecase{repo: repo}
}

// SchemasFor returns payloads in a fixed order: first every record with the
// global subject kind in store listing order, then the records for the exact
// subject the context names, if any.
func (uc *AggregatorUsecase) SchemasFor(ctx context.Context, page domain.PageContext) ([]json.RawMessage, error) {
	records, err := uc.repo.ListBySubjectKind(ctx, domain.SubjectKindGlobal)
	if err != nil {
		return nil, err
	}

	// A global context names no singular object, and a context whose subject
	// kind is the global sentinel is already covered by the first query.
	if page.Kind != domain.PageKindGlobal && page.SubjectKind != domain.SubjectKindGlobal {
		subject, err := uc.repo.ListBySubject(ctx, page.SubjectID, page.SubjectKind)
		if err != nil {
			return nil, err
		}
		records = append(records, subject...)
	}

	payloads := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.Payload)
	}
	return payloads, nil
}
