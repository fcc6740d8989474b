package mirror

import (
	"context"
	"errors"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRepository stores sync records through gorm. The statements it
// issues are portable, so the same repository also serves the SQLite dialect.
type PostgresRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, name string) (*mirrordomain.SyncRecord, error) {
	record := mirrordomain.NewSyncRecord(name, r.now())
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return record, nil
	}

	return r.Get(ctx, name)
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*mirrordomain.SyncRecord, error) {
	var record mirrordomain.SyncRecord
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mirrordomain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Save upserts status and metadata in one statement. The conflict update is
// guarded so a succeeded row is never overwritten.
func (r *PostgresRepository) Save(ctx context.Context, record *mirrordomain.SyncRecord) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"upstream_url",
				"mirror_url",
				"status",
				"error_message",
				"failure_cause",
				"updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Neq{
					Column: clause.Column{Table: mirrordomain.SyncRecord{}.TableName(), Name: "status"},
					Value:  mirrordomain.StatusSucceeded,
				},
			}},
		}).
		Create(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mirrordomain.ErrInvalidTransition
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter mirrordomain.ListFilter) ([]mirrordomain.SyncRecord, error) {
	query := r.db.WithContext(ctx).Model(&mirrordomain.SyncRecord{}).Order("name ASC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []mirrordomain.SyncRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
