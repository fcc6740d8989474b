package handler

import (
	"context"

	mirrordomain "mirror-sync-go/internal/domain/mirror"
	"mirror-sync-go/pkg/logger"
)

type RecordReader interface {
	Get(ctx context.Context, name string) (*mirrordomain.SyncRecord, error)
	List(ctx context.Context, filter mirrordomain.ListFilter) ([]mirrordomain.SyncRecord, error)
}

// ScanTrigger starts a scan in the background. It returns
// mirrordomain.ErrScanInProgress when one is already running.
type ScanTrigger interface {
	Trigger() error
	Running() bool
}

type Handlers struct {
	Records RecordReader
	Scans   ScanTrigger
	log     logger.Logger
}

func New(records RecordReader, scans ScanTrigger, log logger.Logger) *Handlers {
	return &Handlers{
		Records: records,
		Scans:   scans,
		log:     log,
	}
}
