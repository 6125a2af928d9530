package contract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoHash implements the GitClient interface.
func (c *LocalGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetLastCommitTimes implements the GitClient interface.
func (c *LocalGitClient) GetLastCommitTimes(ctx context.Context, repoPath string) (map[string]time.Time, error) {
	out, err := c.Run(ctx, repoPath, "log", "--name-only", "--no-renames", "--pretty=format:--%at")
	if err != nil {
		return nil, err
	}
	return ParseLastCommitTimes(out)
}

// ParseLastCommitTimes parses `git log --name-only --pretty=format:--%at` output.
// The log is newest first, so the first time seen for a path wins.
func ParseLastCommitTimes(out []byte) (map[string]time.Time, error) {
	times := make(map[string]time.Time)
	var current time.Time
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "--"):
			secs, err := strconv.ParseInt(strings.TrimPrefix(line, "--"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid commit time %q: %w", line, err)
			}
			current = time.Unix(secs, 0).UTC()
		case current.IsZero():
			return nil, fmt.Errorf("path %q appears before any commit header", line)
		default:
			if _, seen := times[line]; !seen {
				times[line] = current
			}
		}
	}
	return times, scanner.Err()
}
