package mirror

import (
	"context"
	"errors"
)

// RemoteManager keeps exactly one reserved mirror remote configured per working copy.
type RemoteManager struct {
	git  Git
	name string
}

func NewRemoteManager(git Git, name string) *RemoteManager {
	if name == "" {
		name = DefaultRemoteName
	}
	return &RemoteManager{git: git, name: name}
}

func (m *RemoteManager) Name() string {
	return m.name
}

// Ensure points the reserved remote of the working copy at dir to url. A remote
// that already pushes to url is left untouched; any other one is replaced.
func (m *RemoteManager) Ensure(ctx context.Context, dir, url string) error {
	remotes, err := m.git.Remotes(ctx, dir)
	if err != nil {
		return newStageError(CauseRemoteConfig, "list remotes", CommandOutput{}, err)
	}
	return m.EnsureListed(ctx, dir, url, remotes)
}

// EnsureListed is Ensure for a caller that has already listed the remotes of dir.
func (m *RemoteManager) EnsureListed(ctx context.Context, dir, url string, remotes []Remote) error {
	exists, upToDate := m.inspect(remotes, url)
	if upToDate {
		return nil
	}

	if exists {
		out, err := m.git.RemoveRemote(ctx, dir, m.name)
		if err != nil && !errors.Is(err, ErrNoSuchRemote) {
			return newStageError(CauseRemoteConfig, "remove remote", out, err)
		}
	}

	out, err := m.git.AddRemote(ctx, dir, m.name, url)
	if err != nil {
		return newStageError(CauseRemoteConfig, "add remote", out, err)
	}
	return nil
}

func (m *RemoteManager) inspect(remotes []Remote, url string) (exists bool, upToDate bool) {
	upToDate = true
	for _, remote := range remotes {
		if remote.Name != m.name {
			continue
		}
		exists = true
		if remote.PushTarget() != url {
			upToDate = false
		}
	}
	return exists, exists && upToDate
}
