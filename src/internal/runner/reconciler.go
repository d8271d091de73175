package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gh-nvat/release-discussions/src/pkg/cycle"
	"github.com/gh-nvat/release-discussions/src/pkg/event"
	"github.com/gh-nvat/release-discussions/src/pkg/github"
	"github.com/gh-nvat/release-discussions/src/pkg/marker"
	"github.com/gh-nvat/release-discussions/src/pkg/models"
	"github.com/gh-nvat/release-discussions/src/pkg/template"
	"github.com/gh-nvat/release-discussions/src/pkg/trace"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var logger = log.WithField("package", "runner")

// ErrCategoryNotFound is returned when the configured category slug does not exist
var ErrCategoryNotFound = errors.New("discussion category not found")

type State string

const (
	STATE_INIT                State = "Init"
	STATE_SKIPPED             State = "Skipped"
	STATE_CATEGORY_RESOLVED   State = "CategoryResolved"
	STATE_CYCLE_RESOLVED      State = "CycleResolved"
	STATE_DISCUSSION_RESOLVED State = "DiscussionResolved"
	STATE_COMMENT_RESOLVED    State = "CommentResolved"
	STATE_TOC_RECONCILED      State = "TocReconciled"
	STATE_DONE                State = "Done"
)

// Result describes what an invocation ended up doing
type Result struct {
	State      State
	Cycle      models.CycleWindow
	Discussion *models.Discussion
	// Comment is the created or updated release comment, nil when deleted or skipped
	Comment    *models.Comment
	TocUpdated bool
}

// Reconciler drives a discussion board towards the state implied by one release event.
// It holds no state between invocations; every run re-discovers its entities by marker.
type Reconciler struct {
	options  *Options
	store    github.DiscussionStore
	renderer *template.Renderer
	tracer   *trace.Tracer
}

func NewReconciler(
	options *Options,
	store github.DiscussionStore,
	renderer *template.Renderer,
	tracer *trace.Tracer,
) (*Reconciler, error) {
	if options == nil || store == nil || renderer == nil {
		return nil, fmt.Errorf("options, store and renderer are required")
	}
	if options.DryRun {
		store = newDryRunStore(store)
	}
	return &Reconciler{
		options:  options,
		store:    store,
		renderer: renderer,
		tracer:   tracer,
	}, nil
}

// Reconcile runs the whole protocol for one release. Every step waits for the previous
// one; the first failing remote call aborts the run without rolling anything back.
func (r *Reconciler) Reconcile(ctx context.Context, release *models.ReleaseEvent) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile",
		attribute.String("release", release.Identity()),
		attribute.String("action", release.Action),
	)
	defer span.End()

	result := &Result{State: STATE_INIT}
	rlog := logger.WithField("release", release.Identity())

	if release.IsDraft {
		rlog.Info("Release is a draft, skipping")
		result.State = STATE_SKIPPED
		return result, nil
	}
	if release.Action != "" && !event.IsSupportedAction(release.Action) {
		rlog.WithField("action", release.Action).Info("Release action is not handled, skipping")
		result.State = STATE_SKIPPED
		return result, nil
	}

	repo, err := r.resolveCategory(ctx)
	if err != nil {
		return result, err
	}
	result.State = STATE_CATEGORY_RESOLVED

	result.Cycle = cycle.Compute(release.PublishedAt, r.options.Cycle)
	result.State = STATE_CYCLE_RESOLVED
	rlog.WithField("cycle", result.Cycle.ID).
		WithField("from", result.Cycle.From.Format("2006-01-02")).
		WithField("to", result.Cycle.To.Format("2006-01-02")).
		Info("Resolved release cycle")

	discussion, err := r.resolveDiscussion(ctx, repo, result.Cycle)
	if err != nil {
		return result, err
	}
	result.Discussion = discussion
	result.State = STATE_DISCUSSION_RESOLVED

	comments, comment, err := r.resolveComment(ctx, discussion, release)
	if err != nil {
		return result, err
	}
	result.Comment = comment
	result.State = STATE_COMMENT_RESOLVED

	updated, err := r.reconcileToc(ctx, discussion, comments)
	if err != nil {
		return result, err
	}
	result.Discussion = updated
	result.TocUpdated = updated != discussion
	result.State = STATE_TOC_RECONCILED

	result.State = STATE_DONE
	return result, nil
}

func (r *Reconciler) resolveCategory(ctx context.Context) (*models.Repository, error) {
	ctx, span := r.tracer.Start(ctx, string(STATE_CATEGORY_RESOLVED))
	defer span.End()

	owner, name, err := github.ParseOwnerRepo(r.options.Repo)
	if err != nil {
		return nil, err
	}
	repo, err := r.store.GetRepository(ctx, owner, name, r.options.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository: %w", err)
	}
	if repo.Category == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrCategoryNotFound, r.options.Category, r.options.Repo)
	}

	logger.WithField("repo", repo.FullName()).WithField("category", repo.Category.Name).Debug("Resolved discussion category")
	return repo, nil
}

// resolveDiscussion finds the discussion of the cycle or creates it. Search results
// are only accepted when they carry the exact cycle marker.
func (r *Reconciler) resolveDiscussion(ctx context.Context, repo *models.Repository, window models.CycleWindow) (*models.Discussion, error) {
	ctx, span := r.tracer.Start(ctx, string(STATE_DISCUSSION_RESOLVED), attribute.String("cycle", window.ID))
	defer span.End()

	cycleMarker := marker.CycleMarker(window.ID)
	candidates, err := r.store.SearchDiscussions(ctx, repo.FullName(), repo.Category.Name, window.From, window.To, cycleMarker)
	if err != nil {
		return nil, fmt.Errorf("failed to search discussions: %w", err)
	}
	for _, d := range candidates {
		if marker.HasCycleMarker(d.Body, window.ID) {
			logger.WithField("discussion", d.URL).Info("Found existing discussion")
			return d, nil
		}
	}
	logger.WithField("candidates", len(candidates)).Debug("No discussion carries the cycle marker")

	body, err := r.renderer.RenderDiscussion(window)
	if err != nil {
		return nil, err
	}
	d, err := r.store.CreateDiscussion(ctx, repo.ID, repo.Category.ID, template.DiscussionTitle(window), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	logger.WithField("discussion", d.URL).Info("Created discussion")
	return d, nil
}

// resolveComment applies the release to the discussion's comments and returns the
// resulting in-memory comment list along with the created or updated comment
func (r *Reconciler) resolveComment(ctx context.Context, discussion *models.Discussion, release *models.ReleaseEvent) ([]*models.Comment, *models.Comment, error) {
	ctx, span := r.tracer.Start(ctx, string(STATE_COMMENT_RESOLVED))
	defer span.End()

	full, err := r.store.GetDiscussionWithComments(ctx, discussion.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch discussion comments: %w", err)
	}
	comments := full.Comments
	span.SetAttributes(attribute.Int("comments", len(comments)))

	releaseMarker := marker.ReleaseMarker(release.Name, release.TagName)
	idx := -1
	for i, c := range comments {
		if strings.Contains(c.Body, releaseMarker) {
			idx = i
			break
		}
	}
	clog := logger.WithField("release", release.Identity())

	if release.IsDeleteAction {
		if idx < 0 {
			clog.Info("No comment found for deleted release, nothing to delete")
			return comments, nil, nil
		}
		if _, err := r.store.DeleteDiscussionComment(ctx, comments[idx].ID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete comment: %w", err)
		}
		clog.WithField("comment", comments[idx].URL).Info("Deleted comment")
		return append(comments[:idx:idx], comments[idx+1:]...), nil, nil
	}

	body, err := r.renderer.RenderComment(*release)
	if err != nil {
		return nil, nil, err
	}

	if idx >= 0 {
		updated, err := r.store.UpdateDiscussionComment(ctx, comments[idx].ID, body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update comment: %w", err)
		}
		clog.WithField("comment", updated.URL).Info("Updated comment")
		comments[idx] = updated
		return comments, updated, nil
	}

	created, err := r.store.AddDiscussionComment(ctx, discussion.ID, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create comment: %w", err)
	}
	clog.WithField("comment", created.URL).Info("Created comment")
	return append(comments, created), created, nil
}

// reconcileToc rebuilds the TOC from comments and writes the discussion body back
// when it differs beyond whitespace. It returns discussion itself when nothing was written.
func (r *Reconciler) reconcileToc(ctx context.Context, discussion *models.Discussion, comments []*models.Comment) (*models.Discussion, error) {
	ctx, span := r.tracer.Start(ctx, string(STATE_TOC_RECONCILED))
	defer span.End()

	releases := marker.ReleasesFromComments(comments)
	toc, err := r.renderer.RenderToc(releases)
	if err != nil {
		return nil, err
	}

	body := marker.ReplaceTocRegion(discussion.Body, toc)
	if marker.BodiesEqual(discussion.Body, body) {
		logger.WithField("releases", len(releases)).Info("Table of contents is up to date")
		return discussion, nil
	}

	updated, err := r.store.UpdateDiscussion(ctx, discussion.ID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update discussion: %w", err)
	}
	logger.WithField("releases", len(releases)).WithField("discussion", updated.URL).Info("Updated table of contents")
	return updated, nil
}
