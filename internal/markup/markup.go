// Package markup converts the HTML subset quest games emit into text
// a terminal can show. Games written for desktop players decorate
// their descriptions with tags, inline images and exec: hyperlinks
// that run game code when clicked; Parse flattens the markup into
// plain text and collects the links so the UI can offer them as
// numbered choices.
package markup

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Link is one hyperlink found in a document. Exec links carry the
// game code to run in Code; ordinary links carry their target in URL.
type Link struct {
	Text string
	Code string
	URL  string
}

// Document is the terminal-ready form of a game description.
type Document struct {
	Text  string
	Links []Link
}

// Parse flattens HTML into a Document. Block elements and <br> become
// line breaks, images become bracketed placeholders, and every link's
// visible text is followed by its number in the Links list. Input
// that does not parse degrades to tag stripping.
func Parse(src string) Document {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Document{Text: StripTags(src)}
	}
	var w walker
	w.node(root)
	return Document{Text: collapse(w.b.String()), Links: w.links}
}

type walker struct {
	b     strings.Builder
	links []Link
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func (w *walker) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.b.WriteString(strings.ReplaceAll(n.Data, "\r\n", "\n"))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head":
			return
		case "br":
			w.b.WriteByte('\n')
			return
		case "img":
			if src := attr(n, "src"); src != "" {
				fmt.Fprintf(&w.b, "[%s]", path.Base(strings.ReplaceAll(src, `\`, "/")))
			}
			return
		case "a":
			w.anchor(n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		w.b.WriteByte('\n')
	}
}

// anchor renders the link text, records the link and appends its
// number so the player can pick it from the link list.
func (w *walker) anchor(n *html.Node) {
	var inner walker
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inner.node(c)
	}
	text := strings.TrimSpace(inner.b.String())
	link := Link{Text: text}
	href := attr(n, "href")
	if code, ok := execHref(href); ok {
		link.Code = code
	} else {
		link.URL = href
	}
	w.links = append(w.links, link)
	w.b.WriteString(text)
	w.b.WriteString("[" + strconv.Itoa(len(w.links)) + "]")
}

// execHref extracts game code from an exec: scheme href. Games write
// the scheme in any case and with Windows-style backslashes in the
// code part.
func execHref(href string) (string, bool) {
	const scheme = "exec:"
	if len(href) < len(scheme) || !strings.EqualFold(href[:len(scheme)], scheme) {
		return "", false
	}
	return strings.TrimSpace(href[len(scheme):]), true
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapse trims trailing whitespace per line and squeezes runs of
// blank lines down to one.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// StripTags removes markup without interpreting it, for contexts that
// only need the raw text. An unterminated tag is kept as text.
func StripTags(s string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		rest := s[i:]
		j := strings.IndexByte(rest, '>')
		if j < 0 {
			b.WriteString(rest)
			break
		}
		s = rest[j+1:]
	}
	return b.String()
}
