// Package diff renders line diffs of discussion and comment bodies, used to
// preview the edits a dry run would make.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const DEFAULT_CONTEXT_LINES = 3

// BodyDiffer defines the interface for comparing two markdown bodies
type BodyDiffer interface {
	// Diff compares two bodies and returns a unified diff, empty when they are equal
	Diff(before, after string) (string, error)
}

// Differ handles body diffing
type Differ struct {
	contextLines int
}

// Ensure Differ implements BodyDiffer
var _ BodyDiffer = (*Differ)(nil)

// NewDiffer creates a differ showing DEFAULT_CONTEXT_LINES around each change
func NewDiffer() *Differ {
	return &Differ{contextLines: DEFAULT_CONTEXT_LINES}
}

// Diff compares two bodies and returns a unified diff labelled before/after
func (d *Differ) Diff(before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  d.contextLines,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff bodies: %w", err)
	}
	return strings.TrimSuffix(out, "\n"), nil
}

// splitLines treats an empty body as having no lines at all
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
