package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/gh-nvat/release-discussions/src/pkg/diff"
	"github.com/gh-nvat/release-discussions/src/pkg/github"
	"github.com/gh-nvat/release-discussions/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

// dryRunStore reads through to the real store and only logs mutations. Entities it
// has read or pretended to create are kept in memory so later steps of the same run
// see consistent ids and urls, and edits are logged as a diff against what was read.
type dryRunStore struct {
	github.DiscussionStore
	differ diff.BodyDiffer

	discussions map[string]*models.Discussion
	comments    map[string]*models.Comment
	simulated   map[string]bool
	nextID      int
}

// make dryRunStore implement DiscussionStore
var _ github.DiscussionStore = (*dryRunStore)(nil)

func newDryRunStore(store github.DiscussionStore) *dryRunStore {
	return &dryRunStore{
		DiscussionStore: store,
		differ:          diff.NewDiffer(),
		discussions:     make(map[string]*models.Discussion),
		comments:        make(map[string]*models.Comment),
		simulated:       make(map[string]bool),
	}
}

func (s *dryRunStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s_dryrun_%d", prefix, s.nextID)
}

func (s *dryRunStore) SearchDiscussions(ctx context.Context, repo, category string, from, to time.Time, text string) ([]*models.Discussion, error) {
	found, err := s.DiscussionStore.SearchDiscussions(ctx, repo, category, from, to, text)
	if err != nil {
		return nil, err
	}
	for _, d := range found {
		s.discussions[d.ID] = d
	}
	return found, nil
}

func (s *dryRunStore) GetDiscussionWithComments(ctx context.Context, discussionID string) (*models.Discussion, error) {
	if s.simulated[discussionID] {
		d := s.discussions[discussionID]
		return &models.Discussion{ID: d.ID, Title: d.Title, Body: d.Body}, nil
	}
	d, err := s.DiscussionStore.GetDiscussionWithComments(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	for _, c := range d.Comments {
		s.comments[c.ID] = c
	}
	return d, nil
}

func (s *dryRunStore) CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body string) (*models.Discussion, error) {
	d := &models.Discussion{ID: s.id("D"), Title: title, Body: body}
	s.discussions[d.ID] = d
	s.simulated[d.ID] = true
	logger.WithField("title", title).WithField("body", body).Info("[dry-run] Would create discussion")
	return d, nil
}

func (s *dryRunStore) UpdateDiscussion(ctx context.Context, discussionID, body string) (*models.Discussion, error) {
	updated := &models.Discussion{ID: discussionID, Body: body}
	before := ""
	if d, ok := s.discussions[discussionID]; ok {
		updated.Title, updated.URL = d.Title, d.URL
		before = d.Body
	}
	s.preview(logger.WithField("discussion", discussionID), before, body).Info("[dry-run] Would update discussion")
	s.discussions[discussionID] = updated
	return updated, nil
}

func (s *dryRunStore) AddDiscussionComment(ctx context.Context, discussionID, body string) (*models.Comment, error) {
	logger.WithField("discussion", discussionID).WithField("body", body).Info("[dry-run] Would add comment")
	id := s.id("DC")
	return &models.Comment{ID: id, Body: body, URL: "dry-run://comment/" + id}, nil
}

func (s *dryRunStore) UpdateDiscussionComment(ctx context.Context, commentID, body string) (*models.Comment, error) {
	updated := &models.Comment{ID: commentID, Body: body}
	before := ""
	if c, ok := s.comments[commentID]; ok {
		updated.URL = c.URL
		before = c.Body
	}
	s.preview(logger.WithField("comment", commentID), before, body).Info("[dry-run] Would update comment")
	s.comments[commentID] = updated
	return updated, nil
}

func (s *dryRunStore) DeleteDiscussionComment(ctx context.Context, commentID string) (*models.Comment, error) {
	logger.WithField("comment", commentID).Info("[dry-run] Would delete comment")
	if c, ok := s.comments[commentID]; ok {
		return c, nil
	}
	return &models.Comment{ID: commentID}, nil
}

// preview attaches the diff between the last known body and the new one
func (s *dryRunStore) preview(entry *log.Entry, before, after string) *log.Entry {
	d, err := s.differ.Diff(before, after)
	if err != nil {
		return entry.WithField("body", after)
	}
	added, deleted, _ := diff.CalcLineChangesFromDiffContent(d)
	return entry.WithFields(log.Fields{
		"added":   added,
		"deleted": deleted,
		"diff":    d,
	})
}
