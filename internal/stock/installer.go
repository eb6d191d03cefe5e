package stock

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// maxExtractedBytes caps the unpacked size of one archive.
const maxExtractedBytes = 512 << 20

// Installed describes a game after installation.
type Installed struct {
	Entry Entry
	Dir   string
	File  string
}

// Installer downloads catalog entries and unpacks them into the
// games directory, one subdirectory per game ID.
type Installer struct {
	client     *Client
	gamesDir   string
	extensions []string
	logger     *log.Logger
}

// NewInstaller creates an installer. The extensions list names the
// game file extensions to look for after unpacking, in preference
// order.
func NewInstaller(client *Client, gamesDir string, extensions []string, logger *log.Logger) *Installer {
	return &Installer{
		client:     client,
		gamesDir:   gamesDir,
		extensions: extensions,
		logger:     logger,
	}
}

// Install downloads an entry and unpacks it into the games directory.
func (i *Installer) Install(ctx context.Context, e Entry) (*Installed, error) {
	if e.ID == "" || e.FileURL == "" {
		return nil, fmt.Errorf("stock: entry has no ID or file URL")
	}

	data, err := i.client.Download(ctx, e.FileURL)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(i.gamesDir, e.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("stock: cannot create game directory %s: %w", dir, err)
	}

	name := downloadName(e.FileURL)
	if isArchive(name) {
		if err := extractZip(data, dir); err != nil {
			return nil, err
		}
	} else {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("stock: cannot write game file: %w", err)
		}
	}

	file, err := FindGameFile(dir, i.extensions)
	if err != nil {
		return nil, err
	}

	i.logger.Info("installed game", "id", e.ID, "title", e.Title, "file", file)
	return &Installed{Entry: e, Dir: dir, File: file}, nil
}

// downloadName extracts the file name from a download URL.
func downloadName(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil {
		return path.Base(u.Path)
	}
	return path.Base(fileURL)
}

// extractZip unpacks an in-memory zip archive into dir.
// Entries that would escape the directory are rejected.
func extractZip(data []byte, dir string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("stock: cannot read archive: %w", err)
	}

	var written int64
	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("stock: archive entry %q escapes the game directory", f.Name)
		}

		target := filepath.Join(dir, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("stock: cannot create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("stock: cannot create directory %s: %w", filepath.Dir(target), err)
		}

		n, err := extractFile(f, target, maxExtractedBytes-written)
		if err != nil {
			return err
		}
		written += n
	}

	return nil
}

func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if remaining <= 0 {
		return 0, fmt.Errorf("stock: archive exceeds %d bytes unpacked", int64(maxExtractedBytes))
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("stock: cannot open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("stock: cannot create file %s: %w", target, err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, remaining+1))
	if err != nil {
		return n, fmt.Errorf("stock: cannot extract %s: %w", f.Name, err)
	}
	if n > remaining {
		return n, fmt.Errorf("stock: archive exceeds %d bytes unpacked", int64(maxExtractedBytes))
	}

	return n, nil
}

// FindGameFile locates the main game file under dir.
// Shallower files win, then extension preference order, then name.
func FindGameFile(dir string, exts []string) (string, error) {
	rank := make(map[string]int, len(exts))
	for i, e := range exts {
		rank[strings.ToLower(e)] = i
	}

	best := ""
	bestDepth := 0
	bestRank := 0

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		r, ok := rank[strings.ToLower(filepath.Ext(p))]
		if !ok {
			return nil
		}
		depth := strings.Count(p[len(dir):], string(filepath.Separator))
		better := best == "" ||
			depth < bestDepth ||
			(depth == bestDepth && r < bestRank) ||
			(depth == bestDepth && r == bestRank && p < best)
		if better {
			best, bestDepth, bestRank = p, depth, r
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("stock: cannot scan %s: %w", dir, err)
	}
	if best == "" {
		return "", fmt.Errorf("stock: no game file found in %s", dir)
	}

	return best, nil
}
