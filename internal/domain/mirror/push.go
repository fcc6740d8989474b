package mirror

import "context"

// PushOutcome carries the verbatim output of the branch and tag pushes.
type PushOutcome struct {
	Branches  CommandOutput
	Tags      CommandOutput
	BranchErr error
	TagErr    error
}

func (o PushOutcome) TagsFailed() bool {
	return o.TagErr != nil
}

// PushExecutor pushes every branch and every tag to the mirror remote.
// The branch push decides the outcome; a failed tag push only counts when
// requireTags is set.
type PushExecutor struct {
	git         Git
	remote      string
	requireTags bool
}

func NewPushExecutor(git Git, remote string, requireTags bool) *PushExecutor {
	if remote == "" {
		remote = DefaultRemoteName
	}
	return &PushExecutor{git: git, remote: remote, requireTags: requireTags}
}

func (p *PushExecutor) Push(ctx context.Context, dir string) (PushOutcome, error) {
	var outcome PushOutcome
	outcome.Branches, outcome.BranchErr = p.git.PushBranches(ctx, dir, p.remote)
	outcome.Tags, outcome.TagErr = p.git.PushTags(ctx, dir, p.remote)

	if outcome.BranchErr != nil {
		return outcome, newStageError(CausePush, "push branches", outcome.Branches, outcome.BranchErr)
	}
	if outcome.TagErr != nil && p.requireTags {
		return outcome, newStageError(CausePush, "push tags", outcome.Tags, outcome.TagErr)
	}
	return outcome, nil
}
