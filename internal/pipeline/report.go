package pipeline

import "time"

// Failure describes one chunk that could not be extracted.
type Failure struct {
	AuthorIndex int    `json:"author_index"`
	Label       string `json:"label"`
	Reason      string `json:"reason"`
}

// Report summarizes one extraction run. Skipped counts chunks that already
// had an index entry from an earlier run.
type Report struct {
	RunID       string        `json:"run_id"`
	BookID      string        `json:"book_id"`
	Pattern     string        `json:"pattern"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	TotalChunks int           `json:"total_chunks"`
	Succeeded   int           `json:"succeeded"`
	Skipped     int           `json:"skipped"`
	Failed      []Failure     `json:"failed"`
}

// Complete reports whether every chunk ended up with a record, counting
// chunks carried over from earlier runs.
func (r *Report) Complete() bool {
	return r.Succeeded+r.Skipped == r.TotalChunks
}
