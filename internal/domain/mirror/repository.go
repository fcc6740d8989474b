package mirror

import "context"

type Repository interface {
	// GetOrCreate returns the record for name, inserting a pending one if absent.
	GetOrCreate(ctx context.Context, name string) (*SyncRecord, error)
	Get(ctx context.Context, name string) (*SyncRecord, error)
	// Save upserts the record. Saving over a succeeded record fails with ErrInvalidTransition.
	Save(ctx context.Context, record *SyncRecord) error
	List(ctx context.Context, filter ListFilter) ([]SyncRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, message RepoMessage) error
}

// Git runs version-control operations scoped to an explicit repository directory.
type Git interface {
	Remotes(ctx context.Context, dir string) ([]Remote, error)
	RemoveRemote(ctx context.Context, dir, name string) (CommandOutput, error)
	AddRemote(ctx context.Context, dir, name, url string) (CommandOutput, error)
	PushBranches(ctx context.Context, dir, remote string) (CommandOutput, error)
	PushTags(ctx context.Context, dir, remote string) (CommandOutput, error)
}

type Observer interface {
	RepositoryProcessed(outcome Outcome, seconds float64)
	PublishFailed()
	ScanCompleted(summary ScanSummary)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, RepoMessage) error {
	return nil
}

type noopObserver struct{}

func (noopObserver) RepositoryProcessed(Outcome, float64) {}

func (noopObserver) PublishFailed() {}

func (noopObserver) ScanCompleted(ScanSummary) {}
