package markup

import (
	"strings"
	"testing"
)

func TestParsePlainTextPassesThrough(t *testing.T) {
	doc := Parse("You wake up in a cold cell.")
	if doc.Text != "You wake up in a cold cell." {
		t.Errorf("Text = %q", doc.Text)
	}
	if len(doc.Links) != 0 {
		t.Errorf("Expected no links, got %d", len(doc.Links))
	}
}

func TestParseLineBreaks(t *testing.T) {
	doc := Parse("First line<br>Second line<br/>Third")
	want := "First line\nSecond line\nThird"
	if doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
}

func TestParseBlockElements(t *testing.T) {
	doc := Parse("<p>One</p><p>Two</p><div>Three</div>")
	lines := strings.Split(doc.Text, "\n")
	var got []string
	for _, l := range lines {
		if l != "" {
			got = append(got, l)
		}
	}
	if len(got) != 3 || got[0] != "One" || got[2] != "Three" {
		t.Errorf("block lines = %q", lines)
	}
}

func TestParseExecLink(t *testing.T) {
	doc := Parse(`Go <a href="exec:GOTO 'north'">through the gate</a> now`)
	if len(doc.Links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(doc.Links))
	}
	l := doc.Links[0]
	if l.Text != "through the gate" {
		t.Errorf("link text = %q", l.Text)
	}
	if l.Code != "GOTO 'north'" {
		t.Errorf("link code = %q", l.Code)
	}
	if l.URL != "" {
		t.Errorf("exec link has URL %q", l.URL)
	}
	if !strings.Contains(doc.Text, "through the gate[1]") {
		t.Errorf("link not numbered in text: %q", doc.Text)
	}
}

func TestParseExecSchemeCaseInsensitive(t *testing.T) {
	doc := Parse(`<a href="EXEC: money = money + 1">grab</a>`)
	if len(doc.Links) != 1 || doc.Links[0].Code != "money = money + 1" {
		t.Fatalf("links = %+v", doc.Links)
	}
}

func TestParseExternalLink(t *testing.T) {
	doc := Parse(`<a href="https://example.com/guide">walkthrough</a>`)
	if len(doc.Links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(doc.Links))
	}
	if doc.Links[0].URL != "https://example.com/guide" || doc.Links[0].Code != "" {
		t.Errorf("link = %+v", doc.Links[0])
	}
}

func TestParseImagePlaceholder(t *testing.T) {
	doc := Parse(`Behold: <img src="pics\дверь.png">`)
	if !strings.Contains(doc.Text, "[дверь.png]") {
		t.Errorf("Text = %q, want an image placeholder", doc.Text)
	}
}

func TestParseDecodesEntities(t *testing.T) {
	doc := Parse("Fish &amp; chips &lt;hot&gt;")
	if doc.Text != "Fish & chips <hot>" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestParseSkipsScriptAndStyle(t *testing.T) {
	doc := Parse(`<style>body{color:red}</style>Visible<script>alert(1)</script>`)
	if doc.Text != "Visible" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestParseCollapsesBlankRuns(t *testing.T) {
	doc := Parse("A<br><br><br><br>B")
	want := "A\n\nB"
	if doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
}

func TestStripTags(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"no tags at all", "no tags at all"},
		{"<b>bold</b> move", "bold move"},
		{"a<br>b<img src='x.png'>c", "abc"},
		{"tail<b", "tail<b"},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripTags(c.in); got != c.want {
			t.Errorf("StripTags(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
