package models

import "time"

// Release actions delivered by the release webhook
const (
	ACTION_CREATED     = "created"
	ACTION_PUBLISHED   = "published"
	ACTION_RELEASED    = "released"
	ACTION_PRERELEASED = "prereleased"
	ACTION_EDITED      = "edited"
	ACTION_DELETED     = "deleted"
)

// ReleaseEvent is the release data a single invocation works on
type ReleaseEvent struct {
	Action        string
	Name          string
	TagName       string
	Body          string
	HTMLURL       string
	IsDraft       bool
	IsPrivateRepo bool
	PublishedAt   time.Time

	// IsDeleteAction is set for deleted releases
	IsDeleteAction bool
}

// Identity returns the cycle scoped identity of the release: name@tag
func (r ReleaseEvent) Identity() string {
	return r.Name + "@" + r.TagName
}

// ReleaseItem is one entry of the table of contents, parsed back from a comment
type ReleaseItem struct {
	Name    string
	Version string
	URL     string
}
