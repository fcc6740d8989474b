package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemotes(t *testing.T) {
	output := strings.Join([]string{
		"nju\thttp://localhost:8000/third-part/acme/foo (fetch)",
		"nju\thttp://localhost:8000/third-part/acme/foo (push)",
		"origin\thttps://github.com/acme/foo (fetch)",
		"origin\tgit@github.com:acme/foo.git (push)",
		"",
	}, "\n")

	remotes := parseRemotes(output)

	require.Len(t, remotes, 2)
	assert.Equal(t, mirrordomain.Remote{Name: "nju", URL: "http://localhost:8000/third-part/acme/foo"}, remotes[0])
	assert.Equal(t, mirrordomain.Remote{Name: "origin", URL: "https://github.com/acme/foo", PushURL: "git@github.com:acme/foo.git"}, remotes[1])
}

func TestParseRemotesPushOnly(t *testing.T) {
	remotes := parseRemotes("nju\thttp://gateway/acme/foo (push)\n")

	require.Len(t, remotes, 1)
	assert.Equal(t, mirrordomain.Remote{Name: "nju", URL: "http://gateway/acme/foo"}, remotes[0])
	assert.Equal(t, "http://gateway/acme/foo", remotes[0].PushTarget())
}

func TestCLIRemotesReportPushURL(t *testing.T) {
	tr := setupCLIRepo(t)
	cli := NewCLI(CLIConfig{})
	ctx := context.Background()

	_, err := cli.AddRemote(ctx, tr.dir, "nju", "http://localhost:8000/third-part/acme/foo")
	require.NoError(t, err)
	runGit(t, tr.dir, "remote", "set-url", "--push", "nju", tr.bare)

	remotes, err := cli.Remotes(ctx, tr.dir)
	require.NoError(t, err)

	var nju mirrordomain.Remote
	for _, remote := range remotes {
		if remote.Name == "nju" {
			nju = remote
		}
	}
	assert.Equal(t, "http://localhost:8000/third-part/acme/foo", nju.URL)
	assert.Equal(t, tr.bare, nju.PushTarget())
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{
		Args:     []string{"push", "--all", "nju"},
		ExitCode: 128,
		Stderr:   "fatal: authentication failed\n",
		Err:      errors.New("exit status 128"),
	}
	assert.Equal(t, "git push --all nju: exit 128: fatal: authentication failed", err.Error())
}

func TestCLIRemotesAndPush(t *testing.T) {
	tr := setupCLIRepo(t)
	cli := NewCLI(CLIConfig{})
	ctx := context.Background()

	remotes, err := cli.Remotes(ctx, tr.dir)
	require.NoError(t, err)
	require.Len(t, remotes, 1)
	assert.Equal(t, "origin", remotes[0].Name)
	assert.Equal(t, "https://github.com/acme/foo", remotes[0].URL)

	_, err = cli.RemoveRemote(ctx, tr.dir, "nju")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mirrordomain.ErrNoSuchRemote), "missing remote should map to ErrNoSuchRemote, got %v", err)

	_, err = cli.AddRemote(ctx, tr.dir, "nju", tr.bare)
	require.NoError(t, err)

	_, err = cli.PushBranches(ctx, tr.dir, "nju")
	require.NoError(t, err)
	_, err = cli.PushTags(ctx, tr.dir, "nju")
	require.NoError(t, err)

	tags := runGit(t, tr.bare, "tag", "--list")
	assert.Contains(t, tags, "v1.0.0")
	branches := runGit(t, tr.bare, "branch", "--list")
	assert.Contains(t, branches, "main")

	_, err = cli.RemoveRemote(ctx, tr.dir, "nju")
	require.NoError(t, err)
}

func TestCLIPushFailureCapturesStderr(t *testing.T) {
	tr := setupCLIRepo(t)
	cli := NewCLI(CLIConfig{})
	ctx := context.Background()

	missing := filepath.Join(t.TempDir(), "does-not-exist.git")
	_, err := cli.AddRemote(ctx, tr.dir, "nju", missing)
	require.NoError(t, err)

	out, err := cli.PushBranches(ctx, tr.dir, "nju")
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr), "expected CommandError, got %T", err)
	assert.NotZero(t, cmdErr.ExitCode)
	assert.NotEmpty(t, out.Stderr)
	assert.Equal(t, out.Stderr, cmdErr.Stderr)
}

func TestCLITimeout(t *testing.T) {
	tr := setupCLIRepo(t)
	cli := NewCLI(CLIConfig{Timeouts: Timeouts{List: time.Nanosecond}})

	_, err := cli.Remotes(context.Background(), tr.dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mirrordomain.ErrCommandTimeout), "expected timeout, got %v", err)
}

func TestCLINotARepository(t *testing.T) {
	requireGit(t)
	cli := NewCLI(CLIConfig{})

	_, err := cli.Remotes(context.Background(), t.TempDir())
	require.Error(t, err)

	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
}

type cliRepo struct {
	dir  string
	bare string
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// setupCLIRepo creates a working copy with one commit, one tag and an origin
// remote, plus an empty bare repository to push into.
func setupCLIRepo(t *testing.T) cliRepo {
	t.Helper()
	requireGit(t)

	root := t.TempDir()
	dir := filepath.Join(root, "acme", "foo")
	bare := filepath.Join(root, "mirror.git")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	runGit(t, root, "init", "--bare", bare)
	runGit(t, dir, "init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# foo\n"), 0o644))
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-m", "initial commit")
	runGit(t, dir, "tag", "v1.0.0")
	runGit(t, dir, "remote", "add", "origin", "https://github.com/acme/foo")

	return cliRepo{dir: dir, bare: bare}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	full := append([]string{"-c", "commit.gpgsign=false", "-c", "tag.gpgsign=false"}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Mirror Test",
		"GIT_AUTHOR_EMAIL=mirror@example.com",
		"GIT_COMMITTER_NAME=Mirror Test",
		"GIT_COMMITTER_EMAIL=mirror@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}
