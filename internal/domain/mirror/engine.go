package mirror

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mirror-sync-go/pkg/logger"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"
)

type EngineConfig struct {
	RemoteName  string
	RequireTags bool
	// Workers bounds how many repositories are processed at once. 1 keeps the
	// scan strictly sequential in discovery order.
	Workers int
}

type Engine struct {
	workspace billy.Filesystem
	repo      Repository
	git       Git
	publisher Publisher
	observer  Observer
	log       logger.Logger

	resolver Resolver
	remotes  *RemoteManager
	pusher   *PushExecutor
	workers  int

	running atomic.Bool
	now     func() time.Time
}

type EngineOption func(*Engine)

func WithPublisher(publisher Publisher) EngineOption {
	return func(e *Engine) {
		if publisher != nil {
			e.publisher = publisher
		}
	}
}

func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(workspace billy.Filesystem, repo Repository, git Git, resolver Resolver, cfg EngineConfig, log logger.Logger, opts ...EngineOption) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	remotes := NewRemoteManager(git, cfg.RemoteName)
	e := &Engine{
		workspace: workspace,
		repo:      repo,
		git:       git,
		publisher: noopPublisher{},
		observer:  noopObserver{},
		log:       log,
		resolver:  resolver,
		remotes:   remotes,
		pusher:    NewPushExecutor(git, remotes.Name(), cfg.RequireTags),
		workers:   workers,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Running() bool {
	return e.running.Load()
}

// Scan processes every discovered repository once. Per-repository failures are
// recorded in the store and never abort the scan; only an unreadable workspace
// or cancellation of ctx end it early.
func (e *Engine) Scan(ctx context.Context) (ScanSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return ScanSummary{}, ErrScanInProgress
	}
	defer e.running.Store(false)

	summary := ScanSummary{StartedAt: e.now()}
	startedAt := time.Now()

	candidates, err := Discover(e.workspace)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(candidates)
	e.log.Info("scan: started", "root", e.workspace.Root(), "repositories", len(candidates), "workers", e.workers)

	var (
		mu   sync.Mutex
		seen = make(map[string]string, len(candidates))
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	for _, candidate := range candidates {
		if groupCtx.Err() != nil {
			break
		}

		if first, dup := seen[candidate.Name]; dup {
			e.log.Warn("scan: duplicate repository name skipped", "repo", candidate.Name, "path", candidate.Path, "first", first)
			mu.Lock()
			summary.add(OutcomeDuplicate)
			mu.Unlock()
			continue
		}
		seen[candidate.Name] = candidate.Path

		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}

			repoStarted := time.Now()
			outcome, publishErr := e.processRepository(groupCtx, candidate)
			e.observer.RepositoryProcessed(outcome, time.Since(repoStarted).Seconds())

			mu.Lock()
			summary.add(outcome)
			if publishErr != nil {
				summary.PublishFailures++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	summary.Duration = time.Since(startedAt)
	e.observer.ScanCompleted(summary)

	if err := ctx.Err(); err != nil {
		e.log.Warn("scan: cancelled", "succeeded", summary.Succeeded, "failed", summary.Failed)
		return summary, err
	}

	e.log.Info("scan: finished",
		"discovered", summary.Discovered,
		"skipped", summary.Skipped,
		"no_upstream", summary.NoUpstream,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"store_errors", summary.StoreErrors,
		"publish_failures", summary.PublishFailures,
		"duration", summary.Duration,
	)
	return summary, nil
}

// processRepository runs load -> resolve -> remote -> push -> persist/publish
// for one working copy. The second return value is the publish error, if any.
func (e *Engine) processRepository(ctx context.Context, candidate Candidate) (Outcome, error) {
	log := e.log.With("repo", candidate.Name, "path", candidate.Path)

	record, err := e.repo.GetOrCreate(ctx, candidate.Name)
	if err != nil {
		log.InternalError("store: load record failed", err)
		return OutcomeStoreError, nil
	}
	if record.Synced() {
		log.Debug("scan: already synced, skipping")
		return OutcomeSkipped, nil
	}

	resolution, remotes, stageErr, err := e.resolve(ctx, candidate)
	if err != nil {
		log.BusinessError("scan: no upstream remote, left pending", err)
		return OutcomeNoUpstream, nil
	}

	if stageErr == nil {
		record.SetResolution(resolution)
		log.Info("scan: resolved mirror url", "upstream", resolution.UpstreamURL, "mirror", resolution.MirrorURL)
		stageErr = e.sync(ctx, log, candidate, resolution, remotes)
	}

	if interrupted(ctx, stageErr) {
		log.Warn("scan: cancelled mid-repository, record unchanged")
		return OutcomeCancelled, nil
	}

	// a completed git pipeline is recorded and announced even if the scan is
	// being cancelled
	ctx = context.WithoutCancel(ctx)

	now := e.now()
	if stageErr != nil {
		err = record.MarkFailed(stageErr.Cause, stageErr.Message, now)
	} else {
		err = record.MarkSucceeded(now)
	}
	if err != nil {
		log.InternalError("scan: invalid status transition", err, "status", record.Status)
		return OutcomeStoreError, nil
	}

	if err := e.repo.Save(ctx, record); err != nil {
		log.InternalError("store: save record failed", err, "status", record.Status)
		return OutcomeStoreError, nil
	}

	if stageErr != nil {
		log.BusinessError("scan: mirror failed", stageErr, "cause", stageErr.Cause)
		return OutcomeFailed, nil
	}

	log.Info("scan: mirror succeeded", "mirror", record.MirrorURL)
	if err := e.publisher.Publish(ctx, record.Message()); err != nil {
		log.InternalError("publish: mirror event failed", err)
		e.observer.PublishFailed()
		return OutcomeSucceeded, err
	}
	return OutcomeSucceeded, nil
}

// resolve returns a non-nil error only when no upstream remote exists. A failure
// to list remotes is a stage error. The listed remotes are returned for reuse
// when configuring the mirror remote.
func (e *Engine) resolve(ctx context.Context, candidate Candidate) (Resolution, []Remote, *StageError, error) {
	remotes, err := e.git.Remotes(ctx, candidate.Path)
	if err != nil {
		return Resolution{}, nil, newStageError(CauseRemoteConfig, "list remotes", CommandOutput{}, err), nil
	}

	upstream, ok := e.resolver.FindUpstream(remotes, e.remotes.Name())
	if !ok {
		return Resolution{}, nil, nil, ErrNoUpstream
	}

	resolution, err := e.resolver.Resolve(upstream)
	if err != nil {
		return Resolution{}, nil, nil, err
	}
	return resolution, remotes, nil, nil
}

func (e *Engine) sync(ctx context.Context, log logger.Logger, candidate Candidate, resolution Resolution, remotes []Remote) *StageError {
	var stageErr *StageError

	if err := e.remotes.EnsureListed(ctx, candidate.Path, resolution.MirrorURL, remotes); err != nil {
		if errors.As(err, &stageErr) {
			return stageErr
		}
		return newStageError(CauseRemoteConfig, "ensure remote", CommandOutput{}, err)
	}

	outcome, err := e.pusher.Push(ctx, candidate.Path)
	log.Debug("push: branches", "stdout", outcome.Branches.Stdout, "stderr", outcome.Branches.Stderr)
	if outcome.TagsFailed() {
		log.BusinessError("push: tags failed", outcome.TagErr, "stderr", outcome.Tags.Stderr)
	}
	if err != nil {
		if errors.As(err, &stageErr) {
			return stageErr
		}
		return newStageError(CausePush, "push", outcome.Branches, err)
	}
	return nil
}

// interrupted reports whether stageErr was caused by ctx ending rather than by
// the repository itself.
func interrupted(ctx context.Context, stageErr *StageError) bool {
	if stageErr == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded)
}
