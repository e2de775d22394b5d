// Package gitlog discovers git repositories on disk and extracts commit
// timestamps from them by shelling out to git.
package gitlog

import (
	"os"
	"path/filepath"
	"sort"

	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

// FindRepositories scans the given directories for git repositories (any
// directory containing a .git entry) and returns them sorted by path.
// depth limits how many subdirectory levels are descended below each
// input; zero or negative means no limit. Unreadable directories are
// logged and skipped.
func FindRepositories(paths []string, depth int) []model.Repository {
	maxDepth := depth
	if maxDepth <= 0 {
		maxDepth = -1
	}

	found := make(map[string]model.Repository)
	for _, path := range paths {
		scanDir(found, path, maxDepth)
	}
	appLog.Info("finished scanning for git repositories", "count", len(found))

	repos := make([]model.Repository, 0, len(found))
	for _, repo := range found {
		repos = append(repos, repo)
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Path < repos[j].Path
	})
	return repos
}

// scanDir records path if it is a repository and recurses into its
// subdirectories, following symlinks. depth counts down; a negative
// starting value never runs out.
func scanDir(found map[string]model.Repository, path string, depth int) {
	entries, err := os.ReadDir(path)
	if err != nil {
		appLog.Error("cannot read directory", err, "path", path)
		return
	}
	appLog.Debug("scanning", "path", path)

	for _, entry := range entries {
		if entry.Name() == ".git" {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			found[abs] = model.Repository{
				Name: filepath.Base(abs),
				Path: abs,
			}
			break
		}
	}

	if depth == 0 {
		return
	}

	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		child := filepath.Join(path, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			target, err := os.Readlink(child)
			if err != nil {
				continue
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(path, target)
			}
			child = target
		}
		info, err := os.Stat(child)
		if err != nil || !info.IsDir() {
			continue
		}
		scanDir(found, child, depth-1)
	}
}
