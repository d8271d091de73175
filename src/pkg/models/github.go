package models

import "time"

// CycleWindow is the calendar bucket a release falls into. To is exclusive.
type CycleWindow struct {
	ID          string
	DisplayName string
	From        time.Time
	To          time.Time
}

// Repository represents the target repository with its resolved discussion category
type Repository struct {
	ID       string
	Owner    string
	Name     string
	Category *Category
}

// FullName returns owner/name
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Category represents a discussion category
type Category struct {
	ID   string
	Name string
	Slug string
}

// Discussion represents a GitHub discussion
type Discussion struct {
	ID    string
	Title string
	Body  string
	URL   string

	// Comments is only populated by GetDiscussionWithComments
	Comments []*Comment
}

// Comment represents a discussion comment
type Comment struct {
	ID   string
	Body string
	URL  string
}
