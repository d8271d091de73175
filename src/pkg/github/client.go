package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gh-nvat/release-discussions/src/pkg/models"
	"github.com/shurcooL/githubv4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var logger = log.WithField("package", "github")

const (
	DEFAULT_GRAPHQL_URL = "https://api.github.com/graphql"

	// GitHub caps connection pages at 100 nodes
	PAGE_SIZE = 100
)

// ErrNotFound is returned when a response lacks the entity the call expected
var ErrNotFound = errors.New("not found")

// DiscussionStore defines the discussion and comment operations the reconciler needs
type DiscussionStore interface {
	// GetRepository resolves a repository and its discussion category by slug.
	// Category is nil when the slug does not exist.
	GetRepository(ctx context.Context, owner, name, categorySlug string) (*models.Repository, error)
	// SearchDiscussions searches discussions of a category created in [from, to) whose
	// body mentions text. The search is approximate, callers must filter the results.
	SearchDiscussions(ctx context.Context, repo, category string, from, to time.Time, text string) ([]*models.Discussion, error)
	// GetDiscussionWithComments fetches a discussion and all of its comments
	GetDiscussionWithComments(ctx context.Context, discussionID string) (*models.Discussion, error)
	// CreateDiscussion creates a discussion in a category
	CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body string) (*models.Discussion, error)
	// UpdateDiscussion replaces the body of a discussion
	UpdateDiscussion(ctx context.Context, discussionID, body string) (*models.Discussion, error)
	// AddDiscussionComment adds a top level comment to a discussion
	AddDiscussionComment(ctx context.Context, discussionID, body string) (*models.Comment, error)
	// UpdateDiscussionComment replaces the body of a comment
	UpdateDiscussionComment(ctx context.Context, commentID, body string) (*models.Comment, error)
	// DeleteDiscussionComment deletes a comment
	DeleteDiscussionComment(ctx context.Context, commentID string) (*models.Comment, error)
}

// Client talks to the GitHub GraphQL API
type Client struct {
	client *githubv4.Client
}

// Ensure Client implements DiscussionStore
var _ DiscussionStore = (*Client)(nil)

// Token returns the credential from GH_TOKEN, falling back to GITHUB_TOKEN
func Token() (string, error) {
	token := os.Getenv("GH_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return "", fmt.Errorf("GitHub token not found. Set GH_TOKEN or GITHUB_TOKEN environment variable")
	}
	return token, nil
}

// NewClient creates a GraphQL client authenticated with token. An empty apiURL
// targets github.com.
func NewClient(ctx context.Context, token, apiURL string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClientWithHTTPClient(oauth2.NewClient(ctx, ts), apiURL)
}

// NewClientWithHTTPClient creates a client on top of an already authenticated HTTP client
func NewClientWithHTTPClient(httpClient *http.Client, apiURL string) *Client {
	if apiURL == "" || apiURL == DEFAULT_GRAPHQL_URL {
		return &Client{client: githubv4.NewClient(httpClient)}
	}
	return &Client{client: githubv4.NewEnterpriseClient(apiURL, httpClient)}
}

type discussionFields struct {
	ID    string
	Title string
	Body  string
	URL   string
}

func (d discussionFields) toModel() *models.Discussion {
	return &models.Discussion{ID: d.ID, Title: d.Title, Body: d.Body, URL: d.URL}
}

type commentFields struct {
	ID   string
	Body string
	URL  string
}

func (c commentFields) toModel() *models.Comment {
	return &models.Comment{ID: c.ID, Body: c.Body, URL: c.URL}
}

// GetRepository resolves a repository and its discussion category by slug
func (c *Client) GetRepository(ctx context.Context, owner, name, categorySlug string) (*models.Repository, error) {
	var q struct {
		Repository *struct {
			ID                 string
			DiscussionCategory *struct {
				ID   string
				Name string
				Slug string
			} `graphql:"discussionCategory(slug: $slug)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
		"slug":  githubv4.String(categorySlug),
	}
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}
	if q.Repository == nil {
		return nil, fmt.Errorf("repository %s/%s: %w", owner, name, ErrNotFound)
	}

	repo := &models.Repository{ID: q.Repository.ID, Owner: owner, Name: name}
	if cat := q.Repository.DiscussionCategory; cat != nil {
		repo.Category = &models.Category{ID: cat.ID, Name: cat.Name, Slug: cat.Slug}
	}
	return repo, nil
}

// SearchDiscussions searches discussions with the GitHub search syntax. Only the first
// page is read: the created range and the marker keep matches down to a handful.
func (c *Client) SearchDiscussions(ctx context.Context, repo, category string, from, to time.Time, text string) ([]*models.Discussion, error) {
	var q struct {
		Search struct {
			IssueCount int
			Nodes      []struct {
				Discussion discussionFields `graphql:"... on Discussion"`
			}
		} `graphql:"search(query: $query, type: DISCUSSION, first: $first)"`
	}
	query := SearchQuery(repo, category, from, to, text)
	vars := map[string]interface{}{
		"query": githubv4.String(query),
		"first": githubv4.Int(PAGE_SIZE),
	}
	logger.WithField("query", query).Debug("Searching discussions")
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("failed to search discussions: %w", err)
	}
	if q.Search.IssueCount > PAGE_SIZE {
		logger.WithField("query", query).
			WithField("matches", q.Search.IssueCount).
			Debug("Search matched more discussions than one page holds, only the first page is read")
	}

	var discussions []*models.Discussion
	for _, n := range q.Search.Nodes {
		if n.Discussion.ID == "" {
			continue
		}
		discussions = append(discussions, n.Discussion.toModel())
	}
	return discussions, nil
}

// SearchQuery builds the search string for discussions of a category created in [from, to)
func SearchQuery(repo, category string, from, to time.Time, text string) string {
	const day = "2006-01-02"
	return fmt.Sprintf(`repo:%s category:"%s" created:>=%s created:<%s in:body "%s"`,
		repo, category, from.UTC().Format(day), to.UTC().Format(day), strings.ReplaceAll(text, `"`, `\"`))
}

// GetDiscussionWithComments fetches a discussion and pages through all of its comments
func (c *Client) GetDiscussionWithComments(ctx context.Context, discussionID string) (*models.Discussion, error) {
	var q struct {
		Node struct {
			Discussion struct {
				ID       string
				Title    string
				Body     string
				URL      string
				Comments struct {
					Nodes    []commentFields
					PageInfo struct {
						EndCursor   githubv4.String
						HasNextPage bool
					}
				} `graphql:"comments(first: $first, after: $cursor)"`
			} `graphql:"... on Discussion"`
		} `graphql:"node(id: $id)"`
	}
	vars := map[string]interface{}{
		"id":     githubv4.ID(discussionID),
		"first":  githubv4.Int(PAGE_SIZE),
		"cursor": (*githubv4.String)(nil),
	}

	var discussion *models.Discussion
	for page := 1; ; page++ {
		if err := c.client.Query(ctx, &q, vars); err != nil {
			return nil, fmt.Errorf("failed to get discussion comments: %w", err)
		}
		d := q.Node.Discussion
		if d.ID == "" {
			return nil, fmt.Errorf("discussion %s: %w", discussionID, ErrNotFound)
		}
		if discussion == nil {
			discussion = &models.Discussion{ID: d.ID, Title: d.Title, Body: d.Body, URL: d.URL}
		}
		for _, n := range d.Comments.Nodes {
			discussion.Comments = append(discussion.Comments, n.toModel())
		}
		logger.WithField("page", page).WithField("comments", len(discussion.Comments)).Debug("Fetched comments page")

		if !d.Comments.PageInfo.HasNextPage {
			break
		}
		vars["cursor"] = githubv4.NewString(d.Comments.PageInfo.EndCursor)
		// the decoder appends into slices, start each page from an empty result
		q.Node.Discussion.Comments.Nodes = nil
	}
	return discussion, nil
}

// CreateDiscussion creates a discussion in a category
func (c *Client) CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body string) (*models.Discussion, error) {
	var m struct {
		CreateDiscussion struct {
			Discussion *discussionFields
		} `graphql:"createDiscussion(input: $input)"`
	}
	input := githubv4.CreateDiscussionInput{
		RepositoryID: githubv4.ID(repositoryID),
		CategoryID:   githubv4.ID(categoryID),
		Title:        githubv4.String(title),
		Body:         githubv4.String(body),
	}
	if err := c.client.Mutate(ctx, &m, input, nil); err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	if m.CreateDiscussion.Discussion == nil {
		return nil, fmt.Errorf("created discussion: %w", ErrNotFound)
	}
	return m.CreateDiscussion.Discussion.toModel(), nil
}

// UpdateDiscussion replaces the body of a discussion
func (c *Client) UpdateDiscussion(ctx context.Context, discussionID, body string) (*models.Discussion, error) {
	var m struct {
		UpdateDiscussion struct {
			Discussion *discussionFields
		} `graphql:"updateDiscussion(input: $input)"`
	}
	input := githubv4.UpdateDiscussionInput{
		DiscussionID: githubv4.ID(discussionID),
		Body:         githubv4.NewString(githubv4.String(body)),
	}
	if err := c.client.Mutate(ctx, &m, input, nil); err != nil {
		return nil, fmt.Errorf("failed to update discussion: %w", err)
	}
	if m.UpdateDiscussion.Discussion == nil {
		return nil, fmt.Errorf("updated discussion %s: %w", discussionID, ErrNotFound)
	}
	return m.UpdateDiscussion.Discussion.toModel(), nil
}

// AddDiscussionComment adds a top level comment to a discussion
func (c *Client) AddDiscussionComment(ctx context.Context, discussionID, body string) (*models.Comment, error) {
	var m struct {
		AddDiscussionComment struct {
			Comment *commentFields
		} `graphql:"addDiscussionComment(input: $input)"`
	}
	input := githubv4.AddDiscussionCommentInput{
		DiscussionID: githubv4.ID(discussionID),
		Body:         githubv4.String(body),
	}
	if err := c.client.Mutate(ctx, &m, input, nil); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if m.AddDiscussionComment.Comment == nil {
		return nil, fmt.Errorf("added comment: %w", ErrNotFound)
	}
	return m.AddDiscussionComment.Comment.toModel(), nil
}

// UpdateDiscussionComment replaces the body of a comment
func (c *Client) UpdateDiscussionComment(ctx context.Context, commentID, body string) (*models.Comment, error) {
	var m struct {
		UpdateDiscussionComment struct {
			Comment *commentFields
		} `graphql:"updateDiscussionComment(input: $input)"`
	}
	input := githubv4.UpdateDiscussionCommentInput{
		CommentID: githubv4.ID(commentID),
		Body:      githubv4.String(body),
	}
	if err := c.client.Mutate(ctx, &m, input, nil); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if m.UpdateDiscussionComment.Comment == nil {
		return nil, fmt.Errorf("updated comment %s: %w", commentID, ErrNotFound)
	}
	return m.UpdateDiscussionComment.Comment.toModel(), nil
}

// DeleteDiscussionComment deletes a comment
func (c *Client) DeleteDiscussionComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var m struct {
		DeleteDiscussionComment struct {
			Comment *commentFields
		} `graphql:"deleteDiscussionComment(input: $input)"`
	}
	input := githubv4.DeleteDiscussionCommentInput{
		ID: githubv4.ID(commentID),
	}
	if err := c.client.Mutate(ctx, &m, input, nil); err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	if m.DeleteDiscussionComment.Comment == nil {
		return nil, fmt.Errorf("deleted comment %s: %w", commentID, ErrNotFound)
	}
	return m.DeleteDiscussionComment.Comment.toModel(), nil
}
