package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gh-nvat/release-discussions/src/internal/runner"
	"github.com/gh-nvat/release-discussions/src/pkg/event"
	"github.com/gh-nvat/release-discussions/src/pkg/github"
	"github.com/gh-nvat/release-discussions/src/pkg/template"
	"github.com/gh-nvat/release-discussions/src/pkg/trace"
	"github.com/sethvargo/go-githubactions"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "release-discussions"

// Step outputs
const (
	OUTPUT_DISCUSSION_URL = "discussion-url"
	OUTPUT_DISCUSSION_ID  = "discussion-id"
	OUTPUT_COMMENT_URL    = "comment-url"
	OUTPUT_TOC_UPDATED    = "toc-updated"

	GITHUB_OUTPUT_ENV = "GITHUB_OUTPUT"
)

// run loads the release event, wires the store, renderer and tracer, and reconciles once
func run(ctx context.Context, opts *runner.Options) error {
	release, err := event.Load(opts.EventName, opts.EventPath)
	if err != nil {
		return err
	}
	log.WithField("release", release.Identity()).
		WithField("action", release.Action).
		WithField("repo", opts.Repo).
		Info("Handling release event")

	renderer := template.NewRenderer()
	if opts.TemplatesPath != "" {
		if err := renderer.LoadTemplates(opts.TemplatesPath); err != nil {
			return fmt.Errorf("failed to load templates: %w", err)
		}
	}

	tracer, err := trace.New(SERVICE_NAME, opts.EnableTracing, opts.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(); err != nil {
			log.WithField("error", err).Warn("Failed to write performance report")
		}
	}()

	store := github.NewClient(ctx, opts.Token, opts.APIURL)
	reconciler, err := runner.NewReconciler(opts, store, renderer, tracer)
	if err != nil {
		return err
	}

	result, err := reconciler.Reconcile(ctx, release)
	if err != nil {
		return fmt.Errorf("reconcile stopped after %s: %w", result.State, err)
	}

	setOutputs(githubactions.New(), result)
	log.WithField("state", result.State).Info("Done")
	return nil
}

// setOutputs exposes the outcome to later workflow steps. Skipped runs leave the
// discussion outputs empty. Outside a runner there is no output file, the values
// are only logged.
func setOutputs(action *githubactions.Action, result *runner.Result) {
	var discussionURL, discussionID, commentURL string
	if result.Discussion != nil {
		discussionURL, discussionID = result.Discussion.URL, result.Discussion.ID
	}
	if result.Comment != nil {
		commentURL = result.Comment.URL
	}
	outputs := []struct{ key, value string }{
		{OUTPUT_DISCUSSION_URL, discussionURL},
		{OUTPUT_DISCUSSION_ID, discussionID},
		{OUTPUT_COMMENT_URL, commentURL},
		{OUTPUT_TOC_UPDATED, strconv.FormatBool(result.TocUpdated)},
	}

	if action.Getenv(GITHUB_OUTPUT_ENV) == "" {
		fields := log.Fields{}
		for _, o := range outputs {
			fields[o.key] = o.value
		}
		log.WithFields(fields).Debug("GITHUB_OUTPUT is not set, skipping step outputs")
		return
	}
	for _, o := range outputs {
		action.SetOutput(o.key, o.value)
	}
}
