// Package diffscope narrows a pull request's file list and unified diff to
// the subset covered by review, dropping anything under an excluded path
// prefix.
package diffscope

import (
	"strings"

	"github.com/tx-joshg/pr-reviewer/internal/models"
)

const diffHeader = "diff --git "

// Scope is the in-scope remainder of a pull request after exclusion
// filtering, plus the filenames that were removed.
type Scope struct {
	Files    []models.ChangedFile
	Diff     string
	Excluded []string
}

// AllExcluded reports whether filtering removed every changed file. The
// pipeline short-circuits to an auto-approval in that case instead of
// reviewing an empty diff.
func (s Scope) AllExcluded() bool {
	return len(s.Files) == 0 && len(s.Excluded) > 0
}

// Filter partitions files and diff against the exclusion prefixes,
// preserving original order. With no prefixes it returns the inputs
// unchanged; filtering is idempotent.
func Filter(files []models.ChangedFile, diff string, prefixes []string) Scope {
	if len(prefixes) == 0 {
		return Scope{Files: files, Diff: diff}
	}

	kept := make([]models.ChangedFile, 0, len(files))
	var excluded []string
	for _, f := range files {
		if matchesPrefix(f.Filename, prefixes) {
			excluded = append(excluded, f.Filename)
		} else {
			kept = append(kept, f)
		}
	}

	return Scope{
		Files:    kept,
		Diff:     filterDiff(diff, prefixes),
		Excluded: excluded,
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// filterDiff drops per-file sections whose path matches an exclusion
// prefix. Sections start at each "diff --git a/<path> b/<path>" line; a
// header whose path cannot be determined is kept rather than silently
// dropped.
func filterDiff(diff string, prefixes []string) string {
	if diff == "" {
		return diff
	}

	var out strings.Builder
	for _, section := range splitSections(diff) {
		path, ok := sectionPath(section)
		if ok && matchesPrefix(path, prefixes) {
			continue
		}
		out.WriteString(section)
	}
	return out.String()
}

// splitSections cuts the diff at each section header. Content before the
// first header (normally empty) forms its own section and is always kept.
func splitSections(diff string) []string {
	var sections []string
	start := 0
	lines := strings.SplitAfter(diff, "\n")
	offset := 0
	for _, line := range lines {
		if strings.HasPrefix(line, diffHeader) && offset > 0 {
			sections = append(sections, diff[start:offset])
			start = offset
		}
		offset += len(line)
	}
	sections = append(sections, diff[start:])
	return sections
}

// sectionPath extracts the b/ path from a section's "diff --git" header.
func sectionPath(section string) (string, bool) {
	line := section
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if !strings.HasPrefix(line, diffHeader) {
		return "", false
	}
	rest := strings.TrimPrefix(line, diffHeader)
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		return "", false
	}
	path := rest[idx+len(" b/"):]
	if path == "" {
		return "", false
	}
	return path, true
}
