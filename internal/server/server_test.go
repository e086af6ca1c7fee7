package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msalhab/tarajim/internal/config"
	"github.com/msalhab/tarajim/internal/extract"
	"github.com/msalhab/tarajim/internal/home"
	"github.com/msalhab/tarajim/internal/pipeline"
	"github.com/msalhab/tarajim/internal/prompts"
	"github.com/msalhab/tarajim/internal/prompts/biography"
	"github.com/msalhab/tarajim/internal/providers"
	"github.com/msalhab/tarajim/internal/store"
)

func testServer(t *testing.T, cfg *config.Config) (*Server, *home.Dir) {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.DiscardHandler)
	mock := providers.NewMockClient()
	runner := pipeline.NewRunner(mock, h, logger)

	resolver := prompts.NewResolver()
	biography.RegisterPrompts(resolver)

	return NewServer(runner, h, cfg, resolver, logger), h
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t, nil)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.APIKey = "sekrit"
	s, _ := testServer(t, cfg)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, want 200", w.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	t.Run("missing book_id", func(t *testing.T) {
		body, contentType := multipartUpload(t, "", "kitab.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/api/books", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("path separator in book_id", func(t *testing.T) {
		body, contentType := multipartUpload(t, "../evil", "kitab.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/api/books", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("non-pdf upload", func(t *testing.T) {
		body, contentType := multipartUpload(t, "kitab", "notes.txt", []byte("hello"))
		req := httptest.NewRequest(http.MethodPost, "/api/books", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	s, h := testServer(t, nil)
	s.maxUploadBytes = 64

	payload := bytes.Repeat([]byte("%PDF-1.4 filler "), 16) // 256 bytes
	body, contentType := multipartUpload(t, "kitab", "kitab.pdf", payload)
	req := httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", w.Code, w.Body.String())
	}
	// A rejected upload must not leave a truncated PDF behind.
	if _, err := os.Stat(filepath.Join(h.UploadsPath(), "kitab.pdf")); !os.IsNotExist(err) {
		t.Errorf("truncated upload left on disk (stat err = %v)", err)
	}
}

func TestUploadStartsRun(t *testing.T) {
	s, _ := testServer(t, nil)

	// Not a parseable PDF, so the background run fails, but the endpoint
	// must accept the upload and the run must reach a terminal state.
	body, contentType := multipartUpload(t, "kitab", "kitab.pdf", []byte("%PDF-1.4 garbage"))
	req := httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID   string `json:"run_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID == "" {
		t.Fatal("response missing run_id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, resp.PollURL, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("poll status = %d", w.Code)
		}
		var run Run
		if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
			t.Fatal(err)
		}
		if run.State != RunStateRunning {
			if run.State != RunStateFailed {
				t.Errorf("state = %q, want failed for a garbage PDF", run.State)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("run never reached a terminal state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunNotFound(t *testing.T) {
	s, _ := testServer(t, nil)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRecordsEndpoints(t *testing.T) {
	s, h := testServer(t, nil)

	st, err := store.New(h, "kitab")
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := st.LoadIndex()
	for i, name := range []string{"الذهبي", "ابن خلكان"} {
		rec := &extract.AuthorRecord{Name: name, KnownWorks: []string{}}
		file, err := st.WriteRecord(i+1, rec)
		if err != nil {
			t.Fatal(err)
		}
		idx.Add(store.IndexEntry{AuthorIndex: i + 1, File: file, Name: name})
	}
	if err := st.SaveIndex(idx); err != nil {
		t.Fatal(err)
	}

	t.Run("list books", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "kitab") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("list records", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/kitab/records", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Count   int                `json:"count"`
			Entries []store.IndexEntry `json:"entries"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Count != 2 {
			t.Errorf("count = %d, want 2", resp.Count)
		}
	})

	t.Run("search records", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/kitab/records?q="+url.QueryEscape("الذهبي"), nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Count != 1 {
			t.Errorf("count = %d, want 1", resp.Count)
		}
	})

	t.Run("get record", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/kitab/records/1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var rec extract.AuthorRecord
		if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
			t.Fatal(err)
		}
		if rec.Name != "الذهبي" {
			t.Errorf("name = %q", rec.Name)
		}
	})

	t.Run("record not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/kitab/records/99", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("export", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/kitab/export", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var records []extract.AuthorRecord
		if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Errorf("records = %d, want 2", len(records))
		}
	})
}

func TestListPrompts(t *testing.T) {
	s, _ := testServer(t, nil)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prompts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), biography.KeySystem) {
		t.Errorf("prompt list missing %s: %s", biography.KeySystem, w.Body.String())
	}
}

func multipartUpload(t *testing.T, bookID, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if bookID != "" {
		if err := mw.WriteField("book_id", bookID); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}
