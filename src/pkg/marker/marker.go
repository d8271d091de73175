// Package marker embeds and extracts the hidden HTML comments that tie
// discussions and comments back to cycles and releases, and maintains the
// table of contents region of a discussion body.
//
// The marker text is a persisted format: discussions created by earlier runs
// are re-discovered by it, so it must not change.
package marker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/gh-nvat/release-discussions/src/pkg/models"
)

const (
	TOC_START = "<!-- START-RELEASE-TOC -->"
	TOC_END   = "<!-- END-RELEASE-TOC -->"
)

var (
	releaseMarkerPattern = regexp.MustCompile(`<!--\s*release-item:(.+?)@(.+?)\s*-->`)
	tocRegionPattern     = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(TOC_START) + `.*?` + regexp.QuoteMeta(TOC_END))
)

// CycleMarker returns the marker identifying the discussion of a cycle
func CycleMarker(cycleID string) string {
	return fmt.Sprintf("<!-- release-cycle:%s -->", cycleID)
}

// HasCycleMarker reports whether body carries the exact marker of cycleID
func HasCycleMarker(body, cycleID string) bool {
	return strings.Contains(body, CycleMarker(cycleID))
}

// ReleaseMarker returns the marker identifying the comment of name@version
func ReleaseMarker(name, version string) string {
	return fmt.Sprintf("<!-- release-item:%s@%s -->", name, version)
}

// ParseReleaseMarker extracts name and version from the first release marker in body.
// ok is false when body is not a release comment.
func ParseReleaseMarker(body string) (name, version string, ok bool) {
	m := releaseMarkerPattern.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// EmptyTocRegion is the sentinel pair with nothing in between
func EmptyTocRegion() string {
	return TOC_START + "\n" + TOC_END
}

// ReplaceTocRegion replaces the interior of the first TOC region in body with toc.
// A body without a TOC region is returned unchanged.
func ReplaceTocRegion(body, toc string) string {
	loc := tocRegionPattern.FindStringIndex(body)
	if loc == nil {
		return body
	}
	return body[:loc[0]] + TOC_START + "\n" + toc + "\n" + TOC_END + body[loc[1]:]
}

// BodiesEqual compares two bodies ignoring every whitespace character
func BodiesEqual(a, b string) bool {
	return stripSpace(a) == stripSpace(b)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ReleasesFromComments parses every release comment in order, skipping comments
// that carry no release marker
func ReleasesFromComments(comments []*models.Comment) []models.ReleaseItem {
	var releases []models.ReleaseItem
	for _, c := range comments {
		name, version, ok := ParseReleaseMarker(c.Body)
		if !ok {
			continue
		}
		releases = append(releases, models.ReleaseItem{
			Name:    name,
			Version: version,
			URL:     c.URL,
		})
	}
	return releases
}

// SortReleases orders releases by name, keeping the original order of same named entries
func SortReleases(releases []models.ReleaseItem) []models.ReleaseItem {
	sorted := make([]models.ReleaseItem, len(releases))
	copy(sorted, releases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
