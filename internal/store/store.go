// Package store persists extracted author records and the per-book index
// under the home directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/msalhab/tarajim/internal/extract"
	"github.com/msalhab/tarajim/internal/home"
)

// Store writes record files and maintains the index for one book.
type Store struct {
	home   *home.Dir
	bookID string
}

// New returns a store rooted at the given book's directory, creating it if
// needed.
func New(h *home.Dir, bookID string) (*Store, error) {
	if err := h.EnsureBookDir(bookID); err != nil {
		return nil, err
	}
	return &Store{home: h, bookID: bookID}, nil
}

// BookDir returns the directory holding this book's records and index.
func (s *Store) BookDir() string {
	return s.home.BookDir(s.bookID)
}

// RecordFileName builds the record file name for an entry: a zero-padded
// ordinal followed by the sanitized author name.
func RecordFileName(authorIndex int, name string) string {
	return fmt.Sprintf("%03d_%s.json", authorIndex, sanitizeName(name))
}

// WriteRecord persists one record and returns the file name it was written
// under. Writes go through a temp file so a crash never leaves a truncated
// record behind.
func (s *Store) WriteRecord(authorIndex int, rec *extract.AuthorRecord) (string, error) {
	data, err := extract.MarshalRecord(rec)
	if err != nil {
		return "", err
	}

	fileName := RecordFileName(authorIndex, rec.Name)
	path := filepath.Join(s.BookDir(), fileName)
	if err := atomicWrite(path, data); err != nil {
		return "", fmt.Errorf("writing record %s: %w", fileName, err)
	}
	return fileName, nil
}

// ReadRecord loads a previously written record file by name.
func (s *Store) ReadRecord(fileName string) (*extract.AuthorRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.BookDir(), fileName))
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", fileName, err)
	}
	return extract.UnmarshalRecord(data)
}

// sanitizeName makes an author name safe for use in a file name. Arabic
// letters are kept as-is; path separators, control characters, and other
// filesystem-hostile runes become underscores.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	// Keep names to a sane length; record files are looked up via the index,
	// not by reconstructing the name.
	const maxRunes = 80
	if runes := []rune(out); len(runes) > maxRunes {
		out = string(runes[:maxRunes])
	}
	return strings.Trim(out, "._")
}

// atomicWrite writes data to path via a temp file in the same directory.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
