package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AuthorRecord is the structured form of one biographical entry. Name is the
// only field guaranteed to be present; date and string fields are nil when
// the source entry does not mention them.
type AuthorRecord struct {
	Name                 string   `json:"name"`
	BirthDate            *string  `json:"birth_date"`
	DeathDate            *string  `json:"death_date"`
	Profession           *string  `json:"profession"`
	Birthplace           *string  `json:"birthplace,omitempty"`
	Era                  *string  `json:"era,omitempty"`
	KnownWorks           []string `json:"known_works"`
	Aliases              []string `json:"aliases,omitempty"`
	Teachers             []string `json:"teachers,omitempty"`
	Students             []string `json:"students,omitempty"`
	ScholarlyEvaluations []string `json:"scholarly_evaluations,omitempty"`
}

// Result pairs a record with provenance about the extraction call that
// produced it.
type Result struct {
	Record        *AuthorRecord
	Provider      string
	Model         string
	Attempts      int
	Repaired      bool
	ExecutionTime time.Duration
}

// MarshalRecord renders a record as indented JSON with Arabic text kept
// readable. The default encoder escapes non-ASCII-safe characters like & and
// <, which mangles nothing here, but HTML escaping of Arabic-adjacent
// punctuation makes the files unpleasant to inspect.
func MarshalRecord(rec *AuthorRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encoding record for %q: %w", rec.Name, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalRecord parses a record file back into an AuthorRecord.
func UnmarshalRecord(data []byte) (*AuthorRecord, error) {
	var rec AuthorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}
