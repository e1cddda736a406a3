// Package store writes downloaded posts to the backup directory, one JSON
// file per post.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/WessleyAI/bloggerbackup/cmd/bloggerbackup/blogger"
)

// Saved describes a post written to disk.
type Saved struct {
	File      string `json:"file"`
	Title     string `json:"title"`
	Published string `json:"published"`
	URL       string `json:"url"`
}

// Store writes posts under Dir. Existing files with the same name are
// overwritten.
type Store struct {
	Dir string
	log logrus.FieldLogger
}

// New creates a Store rooted at dir. dir must already exist.
func New(dir string, log logrus.FieldLogger) *Store {
	return &Store{Dir: dir, log: log}
}

// Filename derives the file name of a post from its publish date and title.
// Any rune that is not a letter or a number becomes '_'.
func Filename(published, title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return '_'
	}, published+title) + ".json"
}

// Save writes p to its file, truncating any previous content.
func (s *Store) Save(_ context.Context, p blogger.Post) (Saved, error) {
	s.log.Debugf("Storing post: %s", p.Title)

	data, err := encode(p)
	if err != nil {
		return Saved{}, fmt.Errorf("encode post %q: %w", p.Title, err)
	}

	path := filepath.Join(s.Dir, Filename(p.Published, p.Title))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Saved{}, fmt.Errorf("write post: %w", err)
	}
	return Saved{File: path, Title: p.Title, Published: p.Published, URL: p.URL}, nil
}

// encode returns the bytes received from the API unchanged. Posts without
// them are encoded with HTML left unescaped, matching what the API sends.
func encode(p blogger.Post) ([]byte, error) {
	if raw := p.Raw(); len(raw) > 0 {
		return raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
