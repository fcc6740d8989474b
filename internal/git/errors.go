package git

import (
	"fmt"
	"strings"
)

// CommandError reports a git invocation that exited unsuccessfully.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func isNoSuchRemote(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "no such remote")
}
