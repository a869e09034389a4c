package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Client defines the git operations the review pipeline needs. All methods
// take a repo path so the tool can run from outside the checkout.
type Client interface {
	CurrentBranch(path string) (string, error)
	HeadSHA(path string) (string, error)
	LastCommitMessage(path string) (string, error)
	RemoteURL(path string) (string, error)
	StageAll(path string) error
	Commit(path, message string) error
	Push(path, remote, branch string) error
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) HeadSHA(path string) (string, error) {
	return gitCmd(path, "rev-parse", "HEAD")
}

// LastCommitMessage returns the subject line of the most recent commit.
func (c *RealClient) LastCommitMessage(path string) (string, error) {
	return gitCmd(path, "log", "-1", "--format=%s")
}

func (c *RealClient) RemoteURL(path string) (string, error) {
	out, err := gitCmd(path, "remote", "get-url", "origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

func (c *RealClient) StageAll(path string) error {
	_, err := gitCmd(path, "add", "-A")
	return err
}

func (c *RealClient) Commit(path, message string) error {
	_, err := gitCmd(path, "commit", "-m", message)
	return err
}

// Push pushes the current HEAD to the given branch on the remote.
func (c *RealClient) Push(path, remote, branch string) error {
	_, err := gitCmd(path, "push", remote, "HEAD:"+branch)
	return err
}

// ExtractOwnerRepo parses a GitHub remote URL and returns owner/repo.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	// Handle SSH: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.SplitN(remoteURL, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.SplitN(path, "/", 2)
		if len(segments) != 2 {
			return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS: https://github.com/owner/repo.git
	trimmed := strings.TrimSuffix(remoteURL, ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return segments[0], segments[1], nil
}
