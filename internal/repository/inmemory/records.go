package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"
)

// SyncRecordRepository keeps sync records in process memory. Records do not
// survive a restart; it backs DB_DRIVER=memory and local dry runs.
type SyncRecordRepository struct {
	mu      sync.RWMutex
	records map[string]mirrordomain.SyncRecord
}

func NewSyncRecordRepository() *SyncRecordRepository {
	return &SyncRecordRepository{
		records: make(map[string]mirrordomain.SyncRecord),
	}
}

func (r *SyncRecordRepository) GetOrCreate(_ context.Context, name string) (*mirrordomain.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[name]; ok {
		return cloneRecord(existing), nil
	}

	record := mirrordomain.NewSyncRecord(name, time.Now().UTC())
	r.records[name] = *cloneRecord(*record)
	return record, nil
}

func (r *SyncRecordRepository) Get(_ context.Context, name string) (*mirrordomain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing, ok := r.records[name]
	if !ok {
		return nil, mirrordomain.ErrRecordNotFound
	}
	return cloneRecord(existing), nil
}

func (r *SyncRecordRepository) Save(_ context.Context, record *mirrordomain.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[record.Name]; ok && existing.Synced() {
		return mirrordomain.ErrInvalidTransition
	}
	r.records[record.Name] = *cloneRecord(*record)
	return nil
}

func (r *SyncRecordRepository) List(_ context.Context, filter mirrordomain.ListFilter) ([]mirrordomain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]mirrordomain.SyncRecord, 0, len(r.records))
	for _, record := range r.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		records = append(records, *cloneRecord(record))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

func cloneRecord(record mirrordomain.SyncRecord) *mirrordomain.SyncRecord {
	copied := record
	if record.UpstreamURL != nil {
		value := *record.UpstreamURL
		copied.UpstreamURL = &value
	}
	if record.ErrorMessage != nil {
		value := *record.ErrorMessage
		copied.ErrorMessage = &value
	}
	if record.FailureCause != nil {
		value := *record.FailureCause
		copied.FailureCause = &value
	}
	return &copied
}
