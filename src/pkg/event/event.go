// Package event reads the release webhook payload that triggered the workflow.
package event

import (
	"fmt"
	"os"
	"time"

	"github.com/gh-nvat/release-discussions/src/pkg/models"
	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "event")

const RELEASE_EVENT = "release"

// Load reads and parses the event payload stored at path
func Load(eventName, path string) (*models.ReleaseEvent, error) {
	if path == "" {
		return nil, fmt.Errorf("event payload path is empty, is GITHUB_EVENT_PATH set?")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}
	return Parse(eventName, payload)
}

// Parse converts a release webhook payload into a ReleaseEvent
func Parse(eventName string, payload []byte) (*models.ReleaseEvent, error) {
	if eventName != RELEASE_EVENT {
		return nil, fmt.Errorf("unsupported event %q, expected %q", eventName, RELEASE_EVENT)
	}

	parsed, err := github.ParseWebHook(eventName, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}
	ev, ok := parsed.(*github.ReleaseEvent)
	if !ok || ev.Release == nil {
		return nil, fmt.Errorf("event payload has no release")
	}

	rel := ev.GetRelease()
	release := &models.ReleaseEvent{
		Action:         ev.GetAction(),
		Name:           rel.GetName(),
		TagName:        rel.GetTagName(),
		Body:           rel.GetBody(),
		HTMLURL:        rel.GetHTMLURL(),
		IsDraft:        rel.GetDraft(),
		IsPrivateRepo:  ev.GetRepo().GetPrivate(),
		PublishedAt:    publishedAt(rel),
		IsDeleteAction: IsDeleteAction(ev.GetAction()),
	}

	// an untitled release is announced under the repository name
	if release.Name == "" {
		release.Name = ev.GetRepo().GetName()
		logger.WithField("name", release.Name).Debug("Release has no name, using repository name")
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release has no tag name")
	}

	logger.WithFields(log.Fields{
		"action":      release.Action,
		"release":     release.Identity(),
		"draft":       release.IsDraft,
		"publishedAt": release.PublishedAt,
	}).Debug("Parsed release event")
	return release, nil
}

// IsDeleteAction reports whether the action removes the release announcement
func IsDeleteAction(action string) bool {
	return action == models.ACTION_DELETED
}

// IsSupportedAction reports whether the action is handled at all. unpublished is not:
// the release comes back as a draft without published_at, so neither the draft rule
// nor the cycle of its comment could be honored.
func IsSupportedAction(action string) bool {
	switch action {
	case models.ACTION_CREATED, models.ACTION_PUBLISHED, models.ACTION_RELEASED,
		models.ACTION_PRERELEASED, models.ACTION_EDITED,
		models.ACTION_DELETED:
		return true
	}
	return false
}

// publishedAt falls back to the creation time for releases that were never published
func publishedAt(rel *github.RepositoryRelease) time.Time {
	if rel.PublishedAt != nil {
		return rel.PublishedAt.Time
	}
	if rel.CreatedAt != nil {
		return rel.CreatedAt.Time
	}
	return time.Now()
}
