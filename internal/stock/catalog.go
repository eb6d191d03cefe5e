// Package stock fetches the remote game catalog and installs games
// from it into the local library.
//
// The catalog is an HTML page listing downloadable games as links to
// archives or bare game files. Entry metadata beyond the title can be
// supplied through data-author and data-version attributes on the
// link.
package stock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
)

const userAgent = "tui-quest/1.0"

// maxArchiveBytes caps a single catalog download.
const maxArchiveBytes = 256 << 20

// Entry is one downloadable game in the catalog.
type Entry struct {
	ID      string
	Title   string
	Author  string
	Version string
	FileURL string
}

// Client talks to a remote game catalog.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Catalog fetches and parses the remote catalog page.
// Entries are deduplicated by ID and ordered by title.
func (c *Client) Catalog(ctx context.Context) ([]Entry, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("stock: invalid catalog URL %s: %w", c.baseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stock: cannot create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stock: cannot fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stock: catalog request failed: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stock: cannot parse catalog page: %w", err)
	}

	seen := make(map[string]bool)
	var entries []Entry

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		abs := base.ResolveReference(ref)
		name := path.Base(abs.Path)
		if !isGameDownload(name) {
			return
		}

		stem := strings.TrimSuffix(name, path.Ext(name))
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = stem
		}

		e := Entry{
			ID:      Slug(stem),
			Title:   title,
			FileURL: abs.String(),
		}
		if v, ok := sel.Attr("data-author"); ok {
			e.Author = strings.TrimSpace(v)
		}
		if v, ok := sel.Attr("data-version"); ok {
			e.Version = strings.TrimSpace(v)
		}

		if seen[e.ID] {
			return
		}
		seen[e.ID] = true
		entries = append(entries, e)
	})

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
	})

	c.logger.Debug("fetched game catalog", "url", c.baseURL, "entries", len(entries))
	return entries, nil
}

// Download fetches one catalog file into memory.
func (c *Client) Download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stock: cannot create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stock: cannot download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stock: download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("stock: cannot read download: %w", err)
	}
	if len(data) > maxArchiveBytes {
		return nil, fmt.Errorf("stock: download exceeds %d bytes", maxArchiveBytes)
	}

	return data, nil
}

// isGameDownload reports whether a file name looks like a game
// archive or a bare game file.
func isGameDownload(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip", ".aqsp", ".qsp", ".gam", ".story":
		return true
	}
	return false
}

// isArchive reports whether a file name is a zip container.
// The aqsp format is a zip archive with a fixed extension.
func isArchive(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip", ".aqsp":
		return true
	}
	return false
}

// Slug derives a stable library ID from a title or file stem.
// Letters and digits are kept, everything else collapses to a dash.
func Slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "game"
	}
	return b.String()
}
