package mirror

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// Discover lists working copies laid out as <root>/<owner>/<repo>. Entries at
// any other depth, non-directories and directories without a .git entry are
// ignored. Order is lexical by owner, then repository.
func Discover(fs billy.Filesystem) ([]Candidate, error) {
	owners, err := fs.ReadDir("")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkspaceUnreadable, fs.Root(), err)
	}

	var candidates []Candidate
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}

		repos, err := fs.ReadDir(owner.Name())
		if err != nil {
			continue
		}

		for _, repo := range repos {
			if !repo.IsDir() {
				continue
			}
			if _, err := fs.Stat(fs.Join(owner.Name(), repo.Name(), ".git")); err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				Name:  repo.Name(),
				Owner: owner.Name(),
				Path:  filepath.Join(fs.Root(), owner.Name(), repo.Name()),
			})
		}
	}

	return candidates, nil
}
