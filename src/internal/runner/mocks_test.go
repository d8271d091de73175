package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gh-nvat/release-discussions/src/pkg/github"
	"github.com/gh-nvat/release-discussions/src/pkg/models"
)

// mockDiscussion is a discussion as the in-memory store keeps it
type mockDiscussion struct {
	models.Discussion
	category  string
	createdAt time.Time
	comments  []*models.Comment
}

// mockStore is an in-memory DiscussionStore. Search is deliberately sloppy: it returns
// every discussion of the category created in range, like the real search may.
type mockStore struct {
	repo        *models.Repository
	discussions []*mockDiscussion
	now         time.Time // creation time of new discussions
	nextID      int

	calls  []string
	errors map[string]error // method -> error
}

var _ github.DiscussionStore = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		repo: &models.Repository{
			ID:       "R_1",
			Owner:    "octo",
			Name:     "hello",
			Category: &models.Category{ID: "DIC_1", Name: "Announcements", Slug: "announcements"},
		},
		errors: make(map[string]error),
	}
}

func (s *mockStore) record(method string) error {
	s.calls = append(s.calls, method)
	return s.errors[method]
}

func (s *mockStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *mockStore) find(discussionID string) (*mockDiscussion, error) {
	for _, d := range s.discussions {
		if d.ID == discussionID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("discussion %s: %w", discussionID, github.ErrNotFound)
}

func (s *mockStore) findComment(commentID string) (*mockDiscussion, int, error) {
	for _, d := range s.discussions {
		for i, c := range d.comments {
			if c.ID == commentID {
				return d, i, nil
			}
		}
	}
	return nil, -1, fmt.Errorf("comment %s: %w", commentID, github.ErrNotFound)
}

// mutations counts calls that change remote state
func (s *mockStore) mutations() int {
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, "Create") || strings.HasPrefix(c, "Update") ||
			strings.HasPrefix(c, "Add") || strings.HasPrefix(c, "Delete") {
			n++
		}
	}
	return n
}

func (s *mockStore) count(method string) int {
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (s *mockStore) GetRepository(ctx context.Context, owner, name, categorySlug string) (*models.Repository, error) {
	if err := s.record("GetRepository"); err != nil {
		return nil, err
	}
	repo := *s.repo
	if repo.Category != nil && repo.Category.Slug != categorySlug {
		repo.Category = nil
	}
	return &repo, nil
}

func (s *mockStore) SearchDiscussions(ctx context.Context, repo, category string, from, to time.Time, text string) ([]*models.Discussion, error) {
	if err := s.record("SearchDiscussions"); err != nil {
		return nil, err
	}
	var found []*models.Discussion
	for _, d := range s.discussions {
		if d.category != category || d.createdAt.Before(from) || !d.createdAt.Before(to) {
			continue
		}
		copied := d.Discussion
		found = append(found, &copied)
	}
	return found, nil
}

func (s *mockStore) GetDiscussionWithComments(ctx context.Context, discussionID string) (*models.Discussion, error) {
	if err := s.record("GetDiscussionWithComments"); err != nil {
		return nil, err
	}
	d, err := s.find(discussionID)
	if err != nil {
		return nil, err
	}
	copied := d.Discussion
	for _, c := range d.comments {
		cc := *c
		copied.Comments = append(copied.Comments, &cc)
	}
	return &copied, nil
}

func (s *mockStore) CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body string) (*models.Discussion, error) {
	if err := s.record("CreateDiscussion"); err != nil {
		return nil, err
	}
	id := s.id()
	d := &mockDiscussion{
		Discussion: models.Discussion{
			ID:    fmt.Sprintf("D_%d", id),
			Title: title,
			Body:  body,
			URL:   fmt.Sprintf("https://github.com/octo/hello/discussions/%d", id),
		},
		category:  s.repo.Category.Name,
		createdAt: s.now,
	}
	s.discussions = append(s.discussions, d)
	copied := d.Discussion
	return &copied, nil
}

func (s *mockStore) UpdateDiscussion(ctx context.Context, discussionID, body string) (*models.Discussion, error) {
	if err := s.record("UpdateDiscussion"); err != nil {
		return nil, err
	}
	d, err := s.find(discussionID)
	if err != nil {
		return nil, err
	}
	d.Body = body
	copied := d.Discussion
	return &copied, nil
}

func (s *mockStore) AddDiscussionComment(ctx context.Context, discussionID, body string) (*models.Comment, error) {
	if err := s.record("AddDiscussionComment"); err != nil {
		return nil, err
	}
	d, err := s.find(discussionID)
	if err != nil {
		return nil, err
	}
	id := s.id()
	c := &models.Comment{
		ID:   fmt.Sprintf("DC_%d", id),
		Body: body,
		URL:  fmt.Sprintf("%s#discussioncomment-%d", d.URL, id),
	}
	d.comments = append(d.comments, c)
	copied := *c
	return &copied, nil
}

func (s *mockStore) UpdateDiscussionComment(ctx context.Context, commentID, body string) (*models.Comment, error) {
	if err := s.record("UpdateDiscussionComment"); err != nil {
		return nil, err
	}
	d, i, err := s.findComment(commentID)
	if err != nil {
		return nil, err
	}
	d.comments[i].Body = body
	copied := *d.comments[i]
	return &copied, nil
}

func (s *mockStore) DeleteDiscussionComment(ctx context.Context, commentID string) (*models.Comment, error) {
	if err := s.record("DeleteDiscussionComment"); err != nil {
		return nil, err
	}
	d, i, err := s.findComment(commentID)
	if err != nil {
		return nil, err
	}
	deleted := d.comments[i]
	d.comments = append(d.comments[:i], d.comments[i+1:]...)
	return deleted, nil
}
