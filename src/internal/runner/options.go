package runner

import (
	"fmt"

	"github.com/gh-nvat/release-discussions/src/pkg/cycle"
	"github.com/gh-nvat/release-discussions/src/pkg/github"
)

type Options struct {
	// Target discussion board
	Repo     string // owner/name
	Category string // discussion category slug
	Cycle    cycle.Granularity

	// Release event source
	EventName string
	EventPath string

	// GitHub API
	Token  string
	APIURL string

	// Rendering
	TemplatesPath string // empty uses the embedded templates

	DryRun bool

	// Tracing
	EnableTracing bool
	OutputDir     string
}

// Validate checks the options needed before any remote call is made
func (o *Options) Validate() error {
	if _, _, err := github.ParseOwnerRepo(o.Repo); err != nil {
		return fmt.Errorf("repo: %w", err)
	}
	if o.Category == "" {
		return fmt.Errorf("category is required")
	}
	if o.Cycle != cycle.WEEK && o.Cycle != cycle.MONTH {
		return fmt.Errorf("cycle must be week or month, got %q", o.Cycle)
	}
	if o.EnableTracing && o.OutputDir == "" {
		return fmt.Errorf("tracing requires an output directory")
	}
	return nil
}
