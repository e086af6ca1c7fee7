package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the tarajim home directory.
	DefaultDirName = ".tarajim"

	// BooksDirName is the subdirectory holding per-book output folders.
	BooksDirName = "books"

	// UploadsDirName is the subdirectory for PDFs received over the HTTP API.
	UploadsDirName = "uploads"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// IndexFileName is the per-book index manifest file name.
	IndexFileName = "index.json"
)

// Dir represents the tarajim home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.tarajim).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// BooksPath returns the path to the books directory.
func (d *Dir) BooksPath() string {
	return filepath.Join(d.path, BooksDirName)
}

// UploadsPath returns the path to the uploads directory.
func (d *Dir) UploadsPath() string {
	return filepath.Join(d.path, UploadsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// BookDir returns the output folder for a single book.
func (d *Dir) BookDir(bookID string) string {
	return filepath.Join(d.BooksPath(), bookID)
}

// IndexPath returns the path to a book's index manifest.
func (d *Dir) IndexPath(bookID string) string {
	return filepath.Join(d.BookDir(bookID), IndexFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.BooksPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create books directory: %w", err)
	}
	if err := os.MkdirAll(d.UploadsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return nil
}

// EnsureBookDir creates the output folder for a book.
func (d *Dir) EnsureBookDir(bookID string) error {
	return os.MkdirAll(d.BookDir(bookID), 0o755)
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
