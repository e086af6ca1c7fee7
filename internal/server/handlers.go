package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/msalhab/tarajim/internal/pipeline"
	"github.com/msalhab/tarajim/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleUpload accepts a PDF and starts an extraction run in the background.
// The response carries the run ID to poll.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	bookID := r.FormValue("book_id")
	if bookID == "" {
		jsonError(w, "book_id is required", http.StatusBadRequest)
		return
	}
	if strings.ContainsAny(bookID, "/\\") {
		jsonError(w, "book_id must not contain path separators", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	if err := s.home.EnsureExists(); err != nil {
		jsonError(w, "failed to prepare storage: "+err.Error(), http.StatusInternalServerError)
		return
	}

	dst := filepath.Join(s.home.UploadsPath(), bookID+".pdf")
	out, err := os.Create(dst)
	if err != nil {
		jsonError(w, "failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}
	n, err := io.Copy(out, io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		out.Close()
		os.Remove(dst)
		jsonError(w, "failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n > s.maxUploadBytes {
		out.Close()
		os.Remove(dst)
		jsonError(w, fmt.Sprintf("file exceeds maximum upload size (%d bytes)", s.maxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if err := out.Close(); err != nil {
		jsonError(w, "failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	pattern := r.FormValue("pattern")
	if pattern == "" {
		pattern = s.cfg.PatternFor(bookID)
	}

	run := &Run{
		ID:     uuid.New().String(),
		BookID: bookID,
		State:  RunStateRunning,
	}
	s.runs.put(run)

	go func() {
		report, err := s.runner.Run(context.Background(), pipeline.Options{
			BookID:  bookID,
			PDFPath: dst,
			Pattern: pattern,
		})
		if err != nil {
			s.log.Error("background run failed", "run_id", run.ID, "book_id", bookID, "error", err)
		}
		s.runs.complete(run.ID, report, err)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"book_id":  bookID,
		"state":    run.State,
		"poll_url": fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, ok := s.runs.get(runID)
	if !ok {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	ids, err := store.ListBooks(s.home.BooksPath())
	if err != nil {
		jsonError(w, "failed to list books: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": ids})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	st, err := store.New(s.home, bookID)
	if err != nil {
		jsonError(w, "failed to open book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	idx, err := st.LoadIndex()
	if err != nil {
		jsonError(w, "failed to read index: "+err.Error(), http.StatusInternalServerError)
		return
	}

	entries := idx.Search(r.URL.Query().Get("q"))
	if entries == nil {
		entries = idx.Entries[:0]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"book_id": bookID,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	authorIndex, err := strconv.Atoi(chi.URLParam(r, "authorIndex"))
	if err != nil {
		jsonError(w, "author index must be a number", http.StatusBadRequest)
		return
	}

	st, err := store.New(s.home, bookID)
	if err != nil {
		jsonError(w, "failed to open book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	idx, err := st.LoadIndex()
	if err != nil {
		jsonError(w, "failed to read index: "+err.Error(), http.StatusInternalServerError)
		return
	}

	for _, e := range idx.Entries {
		if e.AuthorIndex != authorIndex {
			continue
		}
		rec, err := st.ReadRecord(e.File)
		if err != nil {
			jsonError(w, "failed to read record: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	jsonError(w, "record not found", http.StatusNotFound)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	st, err := store.New(s.home, bookID)
	if err != nil {
		jsonError(w, "failed to open book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := st.ExportAll()
	if err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bookID+".json"))
	w.Write(data)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prompts": s.resolver.List()})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
