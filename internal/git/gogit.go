package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

var (
	branchRefSpec = config.RefSpec("refs/heads/*:refs/heads/*")
	tagRefSpec    = config.RefSpec("refs/tags/*:refs/tags/*")
)

// GoGit manages remotes and pushes in-process through go-git. Remote listing
// and configuration only touch .git/config, so they honour ctx cancellation
// but take no timeout; pushes are bounded by pushTimeout.
type GoGit struct {
	pushTimeout time.Duration
	auth        transport.AuthMethod
}

// BasicAuth returns HTTP basic credentials for pushes, or nil when both
// username and password are empty.
func BasicAuth(username, password string) transport.AuthMethod {
	if username == "" && password == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: username, Password: password}
}

func NewGoGit(pushTimeout time.Duration, auth transport.AuthMethod) *GoGit {
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &GoGit{pushTimeout: pushTimeout, auth: auth}
}

func (g *GoGit) Remotes(ctx context.Context, dir string) ([]mirrordomain.Remote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo, err := open(dir)
	if err != nil {
		return nil, err
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}

	result := make([]mirrordomain.Remote, 0, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		if len(cfg.URLs) == 0 {
			continue
		}
		result = append(result, mirrordomain.Remote{Name: cfg.Name, URL: cfg.URLs[0]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (g *GoGit) RemoveRemote(ctx context.Context, dir, name string) (mirrordomain.CommandOutput, error) {
	if err := ctx.Err(); err != nil {
		return mirrordomain.CommandOutput{}, err
	}
	repo, err := open(dir)
	if err != nil {
		return mirrordomain.CommandOutput{}, err
	}

	if err := repo.DeleteRemote(name); err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return mirrordomain.CommandOutput{}, fmt.Errorf("%w: %s", mirrordomain.ErrNoSuchRemote, name)
		}
		return mirrordomain.CommandOutput{Stderr: err.Error()}, fmt.Errorf("remove remote %s: %w", name, err)
	}
	return mirrordomain.CommandOutput{}, nil
}

func (g *GoGit) AddRemote(ctx context.Context, dir, name, url string) (mirrordomain.CommandOutput, error) {
	if err := ctx.Err(); err != nil {
		return mirrordomain.CommandOutput{}, err
	}
	repo, err := open(dir)
	if err != nil {
		return mirrordomain.CommandOutput{}, err
	}

	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return mirrordomain.CommandOutput{Stderr: err.Error()}, fmt.Errorf("add remote %s: %w", name, err)
	}
	return mirrordomain.CommandOutput{}, nil
}

func (g *GoGit) PushBranches(ctx context.Context, dir, remote string) (mirrordomain.CommandOutput, error) {
	return g.push(ctx, dir, remote, branchRefSpec)
}

func (g *GoGit) PushTags(ctx context.Context, dir, remote string) (mirrordomain.CommandOutput, error) {
	return g.push(ctx, dir, remote, tagRefSpec)
}

func (g *GoGit) push(ctx context.Context, dir, remote string, refSpec config.RefSpec) (mirrordomain.CommandOutput, error) {
	repo, err := open(dir)
	if err != nil {
		return mirrordomain.CommandOutput{}, err
	}

	pushCtx, cancel := context.WithTimeout(ctx, g.pushTimeout)
	defer cancel()

	err = repo.PushContext(pushCtx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       g.auth,
	})
	switch {
	case err == nil:
		return mirrordomain.CommandOutput{}, nil
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return mirrordomain.CommandOutput{Stderr: "Everything up-to-date\n"}, nil
	case errors.Is(pushCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return mirrordomain.CommandOutput{}, fmt.Errorf("%w: push %s %s after %s", mirrordomain.ErrCommandTimeout, remote, refSpec, g.pushTimeout)
	default:
		return mirrordomain.CommandOutput{Stderr: err.Error()}, fmt.Errorf("push %s %s: %w", remote, refSpec, err)
	}
}

func open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return repo, nil
}
