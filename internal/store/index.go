package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/msalhab/tarajim/internal/extract"
)

// IndexEntry records one successfully extracted author in a book's index.
type IndexEntry struct {
	AuthorIndex int       `json:"author_index"`
	File        string    `json:"file"`
	Name        string    `json:"name"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Index is the per-book manifest mapping entry ordinals to record files.
// Entries are kept sorted by AuthorIndex.
type Index struct {
	BookID      string       `json:"book_id"`
	Pattern     string       `json:"pattern,omitempty"`
	Entries     []IndexEntry `json:"entries"`
	LastUpdated time.Time    `json:"last_updated"`
}

// LoadIndex reads a book's index from disk. A missing file yields an empty
// index, not an error, so a fresh run and a resumed run go through the same
// path.
func (s *Store) LoadIndex() (*Index, error) {
	path := s.home.IndexPath(s.bookID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Index{BookID: s.bookID, Entries: []IndexEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", path, err)
	}
	if idx.BookID == "" {
		idx.BookID = s.bookID
	}
	if idx.Entries == nil {
		idx.Entries = []IndexEntry{}
	}
	return &idx, nil
}

// SaveIndex writes the index atomically, keeping entries ordered by ordinal.
func (s *Store) SaveIndex(idx *Index) error {
	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].AuthorIndex < idx.Entries[j].AuthorIndex
	})
	idx.LastUpdated = time.Now().UTC()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := atomicWrite(s.home.IndexPath(s.bookID), buf.Bytes()); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Has reports whether the index already holds an entry for the given ordinal.
func (idx *Index) Has(authorIndex int) bool {
	for _, e := range idx.Entries {
		if e.AuthorIndex == authorIndex {
			return true
		}
	}
	return false
}

// Add inserts or replaces the entry for an ordinal.
func (idx *Index) Add(entry IndexEntry) {
	for i, e := range idx.Entries {
		if e.AuthorIndex == entry.AuthorIndex {
			idx.Entries[i] = entry
			return
		}
	}
	idx.Entries = append(idx.Entries, entry)
}

// Search returns entries whose name contains the query as a substring.
func (idx *Index) Search(query string) []IndexEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return idx.Entries
	}
	var out []IndexEntry
	for _, e := range idx.Entries {
		if strings.Contains(e.Name, query) {
			out = append(out, e)
		}
	}
	return out
}

// ExportAll loads every indexed record and returns them as one consolidated
// JSON array, in ordinal order.
func (s *Store) ExportAll() ([]byte, error) {
	idx, err := s.LoadIndex()
	if err != nil {
		return nil, err
	}

	records := make([]*extract.AuthorRecord, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		rec, err := s.ReadRecord(e.File)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return buf.Bytes(), nil
}

// ListBooks returns the IDs of every book with an output folder under home.
func ListBooks(booksPath string) ([]string, error) {
	entries, err := os.ReadDir(booksPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
