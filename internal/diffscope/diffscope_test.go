package diffscope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx-joshg/pr-reviewer/internal/models"
)

const sampleDiff = `diff --git a/internal/api/handler.go b/internal/api/handler.go
index 1111111..2222222 100644
--- a/internal/api/handler.go
+++ b/internal/api/handler.go
@@ -1,3 +1,4 @@
 package api
+// new line
diff --git a/vendor/lib/lib.go b/vendor/lib/lib.go
index 3333333..4444444 100644
--- a/vendor/lib/lib.go
+++ b/vendor/lib/lib.go
@@ -1 +1,2 @@
 package lib
+// vendored change
diff --git a/cmd/main.go b/cmd/main.go
index 5555555..6666666 100644
--- a/cmd/main.go
+++ b/cmd/main.go
@@ -1 +1,2 @@
 package main
+// another
`

var sampleFiles = []models.ChangedFile{
	{Filename: "internal/api/handler.go", Status: models.FileModified},
	{Filename: "vendor/lib/lib.go", Status: models.FileModified},
	{Filename: "cmd/main.go", Status: models.FileModified},
}

func TestFilter_NoExclusionsUnchanged(t *testing.T) {
	s := Filter(sampleFiles, sampleDiff, nil)
	assert.Equal(t, sampleFiles, s.Files)
	assert.Equal(t, sampleDiff, s.Diff)
	assert.Empty(t, s.Excluded)
	assert.False(t, s.AllExcluded())
}

func TestFilter_DropsMatchingPrefix(t *testing.T) {
	s := Filter(sampleFiles, sampleDiff, []string{"vendor/"})

	require.Len(t, s.Files, 2)
	assert.Equal(t, "internal/api/handler.go", s.Files[0].Filename)
	assert.Equal(t, "cmd/main.go", s.Files[1].Filename)
	assert.Equal(t, []string{"vendor/lib/lib.go"}, s.Excluded)

	assert.NotContains(t, s.Diff, "vendor/lib/lib.go")
	assert.NotContains(t, s.Diff, "vendored change")
	assert.Contains(t, s.Diff, "internal/api/handler.go")
	assert.Contains(t, s.Diff, "cmd/main.go")
}

func TestFilter_Completeness(t *testing.T) {
	prefixes := []string{"vendor/", "cmd/"}
	s := Filter(sampleFiles, sampleDiff, prefixes)

	for _, f := range s.Files {
		for _, p := range prefixes {
			assert.False(t, strings.HasPrefix(f.Filename, p))
		}
	}
	for _, line := range strings.Split(s.Diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			assert.NotContains(t, line, " b/vendor/")
			assert.NotContains(t, line, " b/cmd/")
		}
	}
}

func TestFilter_Idempotent(t *testing.T) {
	prefixes := []string{"vendor/"}
	once := Filter(sampleFiles, sampleDiff, prefixes)
	twice := Filter(once.Files, once.Diff, prefixes)
	assert.Equal(t, once.Files, twice.Files)
	assert.Equal(t, once.Diff, twice.Diff)
	assert.Empty(t, twice.Excluded)
}

func TestFilter_OrderPreserved(t *testing.T) {
	s := Filter(sampleFiles, sampleDiff, []string{"vendor/"})
	first := strings.Index(s.Diff, "internal/api/handler.go")
	second := strings.Index(s.Diff, "cmd/main.go")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}

func TestFilter_AllExcluded(t *testing.T) {
	s := Filter(sampleFiles, sampleDiff, []string{"internal/", "vendor/", "cmd/"})
	assert.Empty(t, s.Files)
	assert.Len(t, s.Excluded, 3)
	assert.True(t, s.AllExcluded())
}

func TestFilter_MalformedHeaderKept(t *testing.T) {
	malformed := "diff --git garbage-without-b-path\n+++ something\n@@ -1 +1 @@\n-x\n+y\n"
	s := Filter(nil, malformed, []string{"vendor/"})
	// Cannot determine the path, so the section is kept (fail open).
	assert.Equal(t, malformed, s.Diff)
	assert.False(t, s.AllExcluded())
}

func TestFilter_EmptyFileListNotAllExcluded(t *testing.T) {
	s := Filter(nil, "", []string{"vendor/"})
	assert.Empty(t, s.Files)
	assert.False(t, s.AllExcluded(), "a PR with no files at all is not the all-excluded case")
}

func TestSectionPath(t *testing.T) {
	path, ok := sectionPath("diff --git a/foo/bar.go b/foo/bar.go\nindex 123..456\n")
	require.True(t, ok)
	assert.Equal(t, "foo/bar.go", path)

	// Renames keep the b/ side.
	path, ok = sectionPath("diff --git a/old name.go b/new name.go\n")
	require.True(t, ok)
	assert.Equal(t, "new name.go", path)

	_, ok = sectionPath("not a diff header\n")
	assert.False(t, ok)
}
