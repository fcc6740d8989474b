package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultBinary        = "git"
	DefaultListTimeout   = 30 * time.Second
	DefaultRemoteTimeout = 30 * time.Second
	DefaultPushTimeout   = 10 * time.Minute
	DefaultMaxProcs      = 4
)

type Timeouts struct {
	List   time.Duration
	Remote time.Duration
	Push   time.Duration
}

type CLIConfig struct {
	Binary   string
	Timeouts Timeouts
	// MaxProcs caps concurrent git subprocesses across all repositories.
	MaxProcs int
	// Env is appended to the inherited environment of every invocation.
	Env []string
}

// CLI runs the git binary. Every invocation sets cmd.Dir to the repository
// directory; the process working directory is never changed.
type CLI struct {
	binary   string
	timeouts Timeouts
	env      []string
	procs    *semaphore.Weighted
}

func NewCLI(cfg CLIConfig) *CLI {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	timeouts := cfg.Timeouts
	if timeouts.List <= 0 {
		timeouts.List = DefaultListTimeout
	}
	if timeouts.Remote <= 0 {
		timeouts.Remote = DefaultRemoteTimeout
	}
	if timeouts.Push <= 0 {
		timeouts.Push = DefaultPushTimeout
	}
	maxProcs := cfg.MaxProcs
	if maxProcs <= 0 {
		maxProcs = DefaultMaxProcs
	}

	return &CLI{
		binary:   binary,
		timeouts: timeouts,
		env:      append([]string{"GIT_TERMINAL_PROMPT=0"}, cfg.Env...),
		procs:    semaphore.NewWeighted(int64(maxProcs)),
	}
}

func (c *CLI) Remotes(ctx context.Context, dir string) ([]mirrordomain.Remote, error) {
	out, err := c.run(ctx, dir, c.timeouts.List, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return parseRemotes(out.Stdout), nil
}

func (c *CLI) RemoveRemote(ctx context.Context, dir, name string) (mirrordomain.CommandOutput, error) {
	out, err := c.run(ctx, dir, c.timeouts.Remote, "remote", "remove", name)
	if err != nil && isNoSuchRemote(out.Stderr) {
		return out, fmt.Errorf("%w: %s: %w", mirrordomain.ErrNoSuchRemote, name, err)
	}
	return out, err
}

func (c *CLI) AddRemote(ctx context.Context, dir, name, url string) (mirrordomain.CommandOutput, error) {
	return c.run(ctx, dir, c.timeouts.Remote, "remote", "add", name, url)
}

func (c *CLI) PushBranches(ctx context.Context, dir, remote string) (mirrordomain.CommandOutput, error) {
	return c.run(ctx, dir, c.timeouts.Push, "push", "--all", remote)
}

func (c *CLI) PushTags(ctx context.Context, dir, remote string) (mirrordomain.CommandOutput, error) {
	return c.run(ctx, dir, c.timeouts.Push, "push", "--tags", remote)
}

func (c *CLI) run(ctx context.Context, dir string, timeout time.Duration, args ...string) (mirrordomain.CommandOutput, error) {
	if err := c.procs.Acquire(ctx, 1); err != nil {
		return mirrordomain.CommandOutput{}, err
	}
	defer c.procs.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(cmd.Environ(), c.env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := mirrordomain.CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return out, fmt.Errorf("%w: git %s after %s", mirrordomain.ErrCommandTimeout, strings.Join(args, " "), timeout)
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return out, &CommandError{Args: args, ExitCode: exitCode, Stderr: out.Stderr, Err: err}
}

// parseRemotes reads `git remote -v` output. Each remote appears once, in
// listing order. PushURL is kept when a pushurl differs from the fetch URL.
func parseRemotes(output string) []mirrordomain.Remote {
	var remotes []mirrordomain.Remote
	index := make(map[string]int)
	pushURLs := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		name, url := fields[0], fields[1]

		i, ok := index[name]
		if !ok {
			i = len(remotes)
			index[name] = i
			remotes = append(remotes, mirrordomain.Remote{Name: name})
		}
		if len(fields) > 2 && fields[2] == "(push)" {
			pushURLs[name] = url
			continue
		}
		remotes[i].URL = url
	}

	for i := range remotes {
		push := pushURLs[remotes[i].Name]
		switch {
		case remotes[i].URL == "":
			remotes[i].URL = push
		case push != remotes[i].URL:
			remotes[i].PushURL = push
		}
	}
	return remotes
}
