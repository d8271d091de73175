package template

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gh-nvat/release-discussions/src/pkg/marker"
	"github.com/gh-nvat/release-discussions/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "template")

const (
	TOC_TEMPLATE_FILE        = "toc.md.tmpl"
	COMMENT_TEMPLATE_FILE    = "comment.md.tmpl"
	DISCUSSION_TEMPLATE_FILE = "discussion.md.tmpl"
)

const defaultTocTemplate = "**Releases**\n" +
	"{{range .Releases}}\n- [**{{.Name}}**: {{.Version}}]({{.URL}}){{end}}"

const defaultCommentTemplate = "### {{.Title}}\n\n{{.Body}}"

// The default discussion intro is empty: the body is only the cycle marker and the TOC region
const defaultDiscussionTemplate = ""

// TocData is passed to the TOC template
type TocData struct {
	Releases []models.ReleaseItem
}

// CommentData is passed to the release comment template
type CommentData struct {
	Title   string
	Release models.ReleaseEvent
	Body    string
}

// DiscussionData is passed to the discussion intro template
type DiscussionData struct {
	Cycle models.CycleWindow
}

// Renderer handles template rendering
type Renderer struct {
	funcMap   template.FuncMap
	templates map[string]string
}

// NewRenderer creates a renderer using the embedded default templates
func NewRenderer() *Renderer {
	return &Renderer{
		funcMap: template.FuncMap{
			"gt":   func(a, b int) bool { return a > b },
			"trim": strings.TrimSpace,
		},
		templates: map[string]string{
			TOC_TEMPLATE_FILE:        defaultTocTemplate,
			COMMENT_TEMPLATE_FILE:    defaultCommentTemplate,
			DISCUSSION_TEMPLATE_FILE: defaultDiscussionTemplate,
		},
	}
}

// LoadTemplates overrides the defaults with the templates found in templateDir.
// Files that do not exist keep their default. Every loaded template is parsed up front.
func (r *Renderer) LoadTemplates(templateDir string) error {
	if _, err := os.Stat(templateDir); err != nil {
		return fmt.Errorf("templates directory not found: %w", err)
	}

	for name := range r.templates {
		path := filepath.Join(templateDir, name)
		content, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			logger.WithField("template", name).Debug("Template not overridden, using default")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s template: %w", name, err)
		}
		if _, err := template.New(name).Funcs(r.funcMap).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.templates[name] = string(content)
		logger.WithField("path", path).Info("Loaded custom template")
	}
	return nil
}

// RenderString renders a template string with the provided data
func (r *Renderer) RenderString(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("template").Funcs(r.funcMap).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// RenderToc renders the TOC block. Releases are grouped by name in ascending
// order; entries with the same name keep the order they were given in.
func (r *Renderer) RenderToc(releases []models.ReleaseItem) (string, error) {
	out, err := r.RenderString(r.templates[TOC_TEMPLATE_FILE], TocData{
		Releases: marker.SortReleases(releases),
	})
	if err != nil {
		return "", fmt.Errorf("toc: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RenderComment renders the full body of a release comment. The release marker
// always leads the body so the comment can be found again.
func (r *Renderer) RenderComment(release models.ReleaseEvent) (string, error) {
	out, err := r.RenderString(r.templates[COMMENT_TEMPLATE_FILE], CommentData{
		Title:   CommentTitle(release),
		Release: release,
		Body:    release.Body,
	})
	if err != nil {
		return "", fmt.Errorf("comment: %w", err)
	}
	return marker.ReleaseMarker(release.Name, release.TagName) + "\n\n" + out, nil
}

// RenderDiscussion renders the initial body of a cycle discussion: the cycle
// marker, the optional intro and an empty TOC region
func (r *Renderer) RenderDiscussion(cycle models.CycleWindow) (string, error) {
	intro, err := r.RenderString(r.templates[DISCUSSION_TEMPLATE_FILE], DiscussionData{Cycle: cycle})
	if err != nil {
		return "", fmt.Errorf("discussion: %w", err)
	}

	body := marker.CycleMarker(cycle.ID) + "\n\n"
	if intro = strings.TrimSpace(intro); intro != "" {
		body += intro + "\n\n"
	}
	return body + marker.EmptyTocRegion(), nil
}

// DiscussionTitle returns the title of the discussion for a cycle
func DiscussionTitle(cycle models.CycleWindow) string {
	return "Releases - " + cycle.DisplayName
}

// CommentTitle links the release identity to its page, unless the repository is private
func CommentTitle(release models.ReleaseEvent) string {
	if release.IsPrivateRepo {
		return release.Identity()
	}
	return fmt.Sprintf("[%s](%s)", release.Identity(), release.HTMLURL)
}
