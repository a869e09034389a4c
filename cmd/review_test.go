package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGit struct {
	remote string
	err    error
}

func (s *stubGit) CurrentBranch(string) (string, error)     { return "", nil }
func (s *stubGit) HeadSHA(string) (string, error)           { return "", nil }
func (s *stubGit) LastCommitMessage(string) (string, error) { return "", nil }
func (s *stubGit) RemoteURL(string) (string, error)         { return s.remote, s.err }
func (s *stubGit) StageAll(string) error                    { return nil }
func (s *stubGit) Commit(string, string) error              { return nil }
func (s *stubGit) Push(string, string, string) error        { return nil }

func TestResolveRepo_Flag(t *testing.T) {
	owner, repo, err := resolveRepo("tx-joshg/pr-reviewer", ".", &stubGit{})
	require.NoError(t, err)
	assert.Equal(t, "tx-joshg", owner)
	assert.Equal(t, "pr-reviewer", repo)
}

func TestResolveRepo_InvalidFlag(t *testing.T) {
	_, _, err := resolveRepo("no-slash", ".", &stubGit{})
	assert.ErrorContains(t, err, "expected owner/name")

	_, _, err = resolveRepo("/missing-owner", ".", &stubGit{})
	assert.Error(t, err)
}

func TestResolveRepo_FallsBackToRemote(t *testing.T) {
	g := &stubGit{remote: "git@github.com:acme/widgets.git"}
	owner, repo, err := resolveRepo("", "/some/checkout", g)
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestResolveRepo_NoRemote(t *testing.T) {
	_, _, err := resolveRepo("", ".", &stubGit{})
	assert.ErrorContains(t, err, "no --repo given")

	_, _, err = resolveRepo("", ".", &stubGit{err: errors.New("not a repo")})
	assert.Error(t, err)
}
