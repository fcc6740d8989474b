package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	remotes []Remote

	listErr   error
	removeErr error
	removeOut CommandOutput
	addErr    error
	addOut    CommandOutput
	branchErr error
	branchOut CommandOutput
	tagErr    error
	tagOut    CommandOutput

	branchPushes int
	tagPushes    int
}

type fakeGit struct {
	mu    sync.Mutex
	repos map[string]*fakeRepo
	calls []string

	pushDelay   time.Duration
	onPush      func(dir string)
	inFlight    int
	maxInFlight int
}

func newFakeGit() *fakeGit {
	return &fakeGit{repos: make(map[string]*fakeRepo)}
}

func (g *fakeGit) repo(dir string) *fakeRepo {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.repos[dir]
	if !ok {
		r = &fakeRepo{}
		g.repos[dir] = r
	}
	return r
}

func (g *fakeGit) Remotes(_ context.Context, dir string) ([]Remote, error) {
	r := g.repo(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "list "+dir)
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]Remote(nil), r.remotes...), nil
}

func (g *fakeGit) RemoveRemote(_ context.Context, dir, name string) (CommandOutput, error) {
	r := g.repo(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "remove "+dir+" "+name)
	if r.removeErr != nil {
		return r.removeOut, r.removeErr
	}
	for i, remote := range r.remotes {
		if remote.Name == name {
			r.remotes = append(r.remotes[:i], r.remotes[i+1:]...)
			return CommandOutput{}, nil
		}
	}
	return CommandOutput{Stderr: "error: No such remote: '" + name + "'\n"}, fmt.Errorf("remove %s: %w", name, ErrNoSuchRemote)
}

func (g *fakeGit) AddRemote(_ context.Context, dir, name, url string) (CommandOutput, error) {
	r := g.repo(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "add "+dir+" "+name+" "+url)
	if r.addErr != nil {
		return r.addOut, r.addErr
	}
	for _, remote := range r.remotes {
		if remote.Name == name {
			return CommandOutput{Stderr: "error: remote " + name + " already exists.\n"}, errors.New("exit status 3")
		}
	}
	r.remotes = append(r.remotes, Remote{Name: name, URL: url})
	return CommandOutput{}, nil
}

func (g *fakeGit) PushBranches(_ context.Context, dir, remote string) (CommandOutput, error) {
	r := g.repo(dir)

	g.mu.Lock()
	g.calls = append(g.calls, "push-branches "+dir+" "+remote)
	r.branchPushes++
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	delay, hook := g.pushDelay, g.onPush
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if hook != nil {
		hook(dir)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
	return r.branchOut, r.branchErr
}

func (g *fakeGit) PushTags(_ context.Context, dir, remote string) (CommandOutput, error) {
	r := g.repo(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "push-tags "+dir+" "+remote)
	r.tagPushes++
	return r.tagOut, r.tagErr
}

func (g *fakeGit) callCount(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	for _, call := range g.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			count++
		}
	}
	return count
}

func (g *fakeGit) remotesNamed(dir, name string) []Remote {
	r := g.repo(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Remote
	for _, remote := range r.remotes {
		if remote.Name == name {
			out = append(out, remote)
		}
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]SyncRecord
	getErr  map[string]error
	saveErr map[string]error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]SyncRecord),
		getErr:  make(map[string]error),
		saveErr: make(map[string]error),
	}
}

func (s *fakeStore) GetOrCreate(_ context.Context, name string) (*SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[name]; err != nil {
		return nil, err
	}
	if record, ok := s.records[name]; ok {
		return &record, nil
	}
	record := NewSyncRecord(name, testNow)
	s.records[name] = *record
	return record, nil
}

func (s *fakeStore) Get(_ context.Context, name string) (*SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[name]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (s *fakeStore) Save(ctx context.Context, record *SyncRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[record.Name]; err != nil {
		return err
	}
	if existing, ok := s.records[record.Name]; ok && existing.Synced() {
		return ErrInvalidTransition
	}
	s.records[record.Name] = *record
	s.saves++
	return nil
}

func (s *fakeStore) List(_ context.Context, filter ListFilter) ([]SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SyncRecord
	for _, record := range s.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) record(t *testing.T, name string) SyncRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[name]
	if !ok {
		t.Fatalf("no record for %s", name)
	}
	return record
}

func (s *fakeStore) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[name]
	return ok
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []RepoMessage
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, message RepoMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type fakeObserver struct {
	mu              sync.Mutex
	outcomes        map[Outcome]int
	publishFailures int
	scans           int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{outcomes: make(map[Outcome]int)}
}

func (o *fakeObserver) RepositoryProcessed(outcome Outcome, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *fakeObserver) PublishFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publishFailures++
}

func (o *fakeObserver) ScanCompleted(ScanSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scans++
}

// newWorkspace builds an in-memory workspace with a .git directory in every
// owner/repo path given.
func newWorkspace(t *testing.T, repos ...string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	if err := fs.MkdirAll("", 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	for _, repo := range repos {
		if err := fs.MkdirAll(fs.Join(repo, ".git"), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", repo, err)
		}
	}
	return fs
}

func repoPath(ownerRepo string) string {
	return "/" + ownerRepo
}
