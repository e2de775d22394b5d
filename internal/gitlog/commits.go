package gitlog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

// Scanner reads commit timestamps out of git repositories.
type Scanner struct {
	// Author is an optional regex passed to git log --author. Empty
	// counts every commit.
	Author string
	// Pull runs git pull in each repository before reading its log.
	Pull bool
}

// CommitTimes collects the timestamps of all commits in all given
// repositories. Failures are per-repository: a repo whose git
// invocation fails is logged, contributes an error to the returned
// slice, and the rest are still scanned.
func (s *Scanner) CommitTimes(ctx context.Context, repos []model.Repository) ([]model.Event, []error) {
	events := make([]model.Event, 0)
	errs := make([]error, 0)

	for _, repo := range repos {
		if s.Pull {
			if out, err := runGit(ctx, repo.Path, "pull"); err != nil {
				appLog.Error("git pull failed", err, "repo", repo.Name, "output", string(out))
			}
		}

		args := []string{"log", "--all", "--format=format:%aI"}
		if s.Author != "" {
			args = append(args, "--author="+s.Author)
		}
		out, err := runGit(ctx, repo.Path, args...)
		if err != nil {
			errs = append(errs, fmt.Errorf("git log in %s: %w", repo.Path, err))
			appLog.Error("git log failed", err, "repo", repo.Name)
			continue
		}

		repoEvents := parseCommitTimes(out, repo.Name)
		appLog.Debug("scanned repository", "repo", repo.Name, "commits", len(repoEvents))
		events = append(events, repoEvents...)
	}

	appLog.Info("counted up commits", "commits", len(events), "repositories", len(repos))
	return events, errs
}

// parseCommitTimes parses one RFC 3339 timestamp per line, as produced
// by git log --format=format:%aI. Unparseable lines are skipped.
// Timestamps are normalized to UTC so that day bucketing does not
// depend on each commit's local offset.
func parseCommitTimes(out []byte, source string) []model.Event {
	events := make([]model.Event, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		when, err := time.Parse(time.RFC3339, string(line))
		if err != nil {
			continue
		}
		events = append(events, model.Event{
			When:   when.UTC(),
			Source: source,
		})
	}
	return events
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}
