package marker

import (
	"testing"

	"github.com/gh-nvat/release-discussions/src/pkg/models"
)

func TestCycleMarker(t *testing.T) {
	got := CycleMarker("2024W11")
	if want := "<!-- release-cycle:2024W11 -->"; got != want {
		t.Errorf("CycleMarker() = %q, want %q", got, want)
	}
}

func TestHasCycleMarker(t *testing.T) {
	tests := []struct {
		name string
		body string
		id   string
		want bool
	}{
		{"exact marker", "<!-- release-cycle:2024W11 -->\n\nbody", "2024W11", true},
		{"prefix of another id", "<!-- release-cycle:2024W1 -->", "2024W11", false},
		{"id that only appears as text", "release-cycle 2024W11", "2024W11", false},
		{"longer id does not match shorter", "<!-- release-cycle:2024W11 -->", "2024W1", false},
		{"empty body", "", "2024W11", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCycleMarker(tt.body, tt.id); got != tt.want {
				t.Errorf("HasCycleMarker(%q, %q) = %v, want %v", tt.body, tt.id, got, tt.want)
			}
		})
	}
}

func TestReleaseMarker_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"mypkg", "v1.2.0"},
		{"@scope/pkg", "1.0.0"},
		{"my pkg", "2024.03.14-rc.1"},
		{"a", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"@"+tt.version, func(t *testing.T) {
			body := ReleaseMarker(tt.name, tt.version) + "\n\n### heading\n\nnotes"
			name, version, ok := ParseReleaseMarker(body)
			if !ok {
				t.Fatalf("ParseReleaseMarker(%q) found no marker", body)
			}
			if name != tt.name || version != tt.version {
				t.Errorf("ParseReleaseMarker() = %q, %q, want %q, %q", name, version, tt.name, tt.version)
			}
		})
	}
}

func TestParseReleaseMarker(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantName    string
		wantVersion string
		wantOk      bool
	}{
		{
			name:        "canonical",
			body:        "<!-- release-item:mypkg@v1.2.0 -->",
			wantName:    "mypkg",
			wantVersion: "v1.2.0",
			wantOk:      true,
		},
		{
			name:        "surrounding whitespace is trimmed",
			body:        "text <!--release-item: mypkg @ v1.2.0   --> text",
			wantName:    "mypkg",
			wantVersion: "v1.2.0",
			wantOk:      true,
		},
		{
			name:        "first marker wins",
			body:        "<!-- release-item:a@1 -->\n<!-- release-item:b@2 -->",
			wantName:    "a",
			wantVersion: "1",
			wantOk:      true,
		},
		{
			name:   "plain comment",
			body:   "Great release, thanks!",
			wantOk: false,
		},
		{
			name:   "cycle marker is not a release marker",
			body:   "<!-- release-cycle:2024W11 -->",
			wantOk: false,
		},
		{
			name:   "missing version separator",
			body:   "<!-- release-item:mypkg -->",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, version, ok := ParseReleaseMarker(tt.body)
			if ok != tt.wantOk {
				t.Fatalf("ParseReleaseMarker() ok = %v, want %v", ok, tt.wantOk)
			}
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("ParseReleaseMarker() = %q, %q, want %q, %q", name, version, tt.wantName, tt.wantVersion)
			}
		})
	}
}

func TestReplaceTocRegion(t *testing.T) {
	tests := []struct {
		name string
		body string
		toc  string
		want string
	}{
		{
			name: "empty region",
			body: "<!-- release-cycle:2024W11 -->\n\n<!-- START-RELEASE-TOC -->\n<!-- END-RELEASE-TOC -->",
			toc:  "**Releases**",
			want: "<!-- release-cycle:2024W11 -->\n\n<!-- START-RELEASE-TOC -->\n**Releases**\n<!-- END-RELEASE-TOC -->",
		},
		{
			name: "existing content is replaced and the outside kept",
			body: "intro\n<!-- START-RELEASE-TOC -->\nold\nlines\n<!-- END-RELEASE-TOC -->\noutro",
			toc:  "new",
			want: "intro\n<!-- START-RELEASE-TOC -->\nnew\n<!-- END-RELEASE-TOC -->\noutro",
		},
		{
			name: "only the first region is replaced",
			body: "<!-- START-RELEASE-TOC -->a<!-- END-RELEASE-TOC --> <!-- START-RELEASE-TOC -->b<!-- END-RELEASE-TOC -->",
			toc:  "x",
			want: "<!-- START-RELEASE-TOC -->\nx\n<!-- END-RELEASE-TOC --> <!-- START-RELEASE-TOC -->b<!-- END-RELEASE-TOC -->",
		},
		{
			name: "no region leaves the body alone",
			body: "just a body",
			toc:  "x",
			want: "just a body",
		},
		{
			name: "start without end",
			body: "<!-- START-RELEASE-TOC -->\nold",
			toc:  "x",
			want: "<!-- START-RELEASE-TOC -->\nold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplaceTocRegion(tt.body, tt.toc); got != tt.want {
				t.Errorf("ReplaceTocRegion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceTocRegion_Idempotent(t *testing.T) {
	body := "<!-- release-cycle:2024W11 -->\n\n" + EmptyTocRegion() + "\n\nfooter"
	toc := "**Releases**\n\n- [**mypkg**: v1.2.0](https://example.com/c/1)"

	once := ReplaceTocRegion(body, toc)
	twice := ReplaceTocRegion(once, toc)
	if once != twice {
		t.Errorf("second application changed the body:\n%q\n%q", once, twice)
	}
}

func TestBodiesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "a b", "a b", true},
		{"whitespace only difference", "a\n\nb\t c", "ab c\r\n", true},
		{"content difference", "a b", "a c", false},
		{"both empty", "", "  \n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BodiesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("BodiesEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestReleasesFromComments(t *testing.T) {
	comments := []*models.Comment{
		{ID: "1", Body: ReleaseMarker("B-release", "v1") + "\n\nbody", URL: "u1"},
		{ID: "2", Body: "a human comment", URL: "u2"},
		{ID: "3", Body: ReleaseMarker("A-release", "v1"), URL: "u3"},
	}

	got := ReleasesFromComments(comments)
	want := []models.ReleaseItem{
		{Name: "B-release", Version: "v1", URL: "u1"},
		{Name: "A-release", Version: "v1", URL: "u3"},
	}
	if len(got) != len(want) {
		t.Fatalf("ReleasesFromComments() returned %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSortReleases(t *testing.T) {
	in := []models.ReleaseItem{
		{Name: "B-release", Version: "v1"},
		{Name: "A-release", Version: "v1"},
		{Name: "A-release-v2", Version: "v1"},
		{Name: "A-release", Version: "v0"},
	}

	got := SortReleases(in)
	want := []string{"A-release@v1", "A-release@v0", "A-release-v2@v1", "B-release@v1"}
	for i, w := range want {
		if id := got[i].Name + "@" + got[i].Version; id != w {
			t.Errorf("position %d = %s, want %s", i, id, w)
		}
	}
	if in[0].Name != "B-release" {
		t.Error("SortReleases() modified its input")
	}
}
