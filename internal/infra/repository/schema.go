package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/webmemo/schemad/internal/domain"
	"github.com/webmemo/schemad/internal/infra/database/models"
)

type SchemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

func (r *SchemaRepository) Get(ctx context.Context, id int64) (domain.SchemaRecord, error) {
	var row models.SchemaRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
		}
		return domain.SchemaRecord{}, err
	}
	return toDomain(row), nil
}

// ListAll returns every record ordered by (subject_kind, subject_id, id) so
// listings are reproducible across runs.
func (r *SchemaRepository) ListAll(ctx context.Context) ([]domain.SchemaRecord, error) {
	var rows []models.SchemaRecord
	err := r.db.WithContext(ctx).
		Order("subject_kind, subject_id, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(rows), nil
}

func (r *SchemaRepository) ListBySubject(ctx context.Context, subjectID int64, subjectKind string) ([]domain.SchemaRecord, error) {
	var rows []models.SchemaRecord
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND subject_kind = ?", subjectID, subjectKind).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(rows), nil
}

func (r *SchemaRepository) ListBySubjectKind(ctx context.Context, subjectKind string) ([]domain.SchemaRecord, error) {
	var rows []models.SchemaRecord
	err := r.db.WithContext(ctx).
		Where("subject_kind = ?", subjectKind).
		Order("subject_id, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(rows), nil
}

func (r *SchemaRepository) ListBySchemaKind(ctx context.Context, schemaKind string) ([]domain.SchemaRecord, error) {
	var rows []models.SchemaRecord
	err := r.db.WithContext(ctx).
		Where("schema_kind = ?", schemaKind).
		Order("subject_kind, subject_id, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(rows), nil
}

// Upsert inserts a row for a novel triple or updates payload and updated_at
// in place for an existing one. The conflict target is the unique triple
// index, which makes the check-and-write atomic per triple.
func (r *SchemaRepository) Upsert(ctx context.Context, subjectID int64, subjectKind, schemaKind string, payload []byte) (domain.SchemaRecord, error) {
	now := time.Now().UTC()
	row := models.SchemaRecord{
		SubjectID:   subjectID,
		SubjectKind: subjectKind,
		SchemaKind:  schemaKind,
		Payload:     string(payload),
		UpdatedAt:   now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subject_id"},
			{Name: "subject_kind"},
			{Name: "schema_kind"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":    string(payload),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return domain.SchemaRecord{}, err
	}

	// The conflict path does not report the existing id back through Create;
	// read the row the write landed on.
	var stored models.SchemaRecord
	err = r.db.WithContext(ctx).
		Where("subject_id = ? AND subject_kind = ? AND schema_kind = ?", subjectID, subjectKind, schemaKind).
		Take(&stored).Error
	if err != nil {
		return domain.SchemaRecord{}, err
	}
	return toDomain(stored), nil
}

func (r *SchemaRepository) UpdateByID(ctx context.Context, id int64, payload []byte) (domain.SchemaRecord, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.SchemaRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payload":    string(payload),
			"updated_at": now,
		})
	if result.Error != nil {
		return domain.SchemaRecord{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
	}

	var stored models.SchemaRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&stored).Error; err != nil {
		return domain.SchemaRecord{}, err
	}
	return toDomain(stored), nil
}

func (r *SchemaRepository) DeleteByID(ctx context.Context, id int64) (domain.SchemaRecord, error) {
	var row models.SchemaRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SchemaRecord{}, domain.NotFoundError{Resource: "schema record"}
		}
		return domain.SchemaRecord{}, err
	}

	if err := r.db.WithContext(ctx).Delete(&models.SchemaRecord{}, "id = ?", id).Error; err != nil {
		return domain.SchemaRecord{}, err
	}
	return toDomain(row), nil
}

func (r *SchemaRepository) DeleteBySubject(ctx context.Context, subjectID int64, subjectKind string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("subject_id = ? AND subject_kind = ?", subjectID, subjectKind).
		Delete(&models.SchemaRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func toDomain(row models.SchemaRecord) domain.SchemaRecord {
	return domain.SchemaRecord{
		ID:          row.ID,
		SubjectID:   row.SubjectID,
		SubjectKind: row.SubjectKind,
		SchemaKind:  row.SchemaKind,
		Payload:     json.RawMessage(row.Payload),
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDomainSlice(rows []models.SchemaRecord) []domain.SchemaRecord {
	records := make([]domain.SchemaRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toDomain(row))
	}
	return records
}
