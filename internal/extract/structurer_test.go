package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/msalhab/tarajim/internal/providers"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const validRecordJSON = `{
  "name": "الذهبي",
  "birth_date": "673هـ",
  "death_date": "748هـ",
  "profession": "مؤرخ ومحدث",
  "known_works": ["سير أعلام النبلاء", "تاريخ الإسلام"]
}`

func TestExtractValidRecord(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = validRecordJSON

	s := NewStructurer(mock, discardLogger())

	res, err := s.Extract(context.Background(), "673 - الذهبي\nشمس الدين محمد بن أحمد...")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Record.Name != "الذهبي" {
		t.Errorf("Name = %q, want %q", res.Record.Name, "الذهبي")
	}
	if res.Record.BirthDate == nil || *res.Record.BirthDate != "673هـ" {
		t.Errorf("BirthDate = %v, want 673هـ", res.Record.BirthDate)
	}
	if len(res.Record.KnownWorks) != 2 {
		t.Errorf("KnownWorks = %v, want 2 entries", res.Record.KnownWorks)
	}
	if res.Repaired {
		t.Error("Repaired = true for a clean first response")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}

func TestExtractNullFields(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = `{"name": "ابن خلكان", "birth_date": null, "death_date": "681هـ", "profession": null, "known_works": []}`

	s := NewStructurer(mock, discardLogger())

	res, err := s.Extract(context.Background(), "12 - ابن خلكان")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Record.BirthDate != nil {
		t.Errorf("BirthDate = %v, want nil", *res.Record.BirthDate)
	}
	if res.Record.KnownWorks == nil || len(res.Record.KnownWorks) != 0 {
		t.Errorf("KnownWorks = %v, want empty non-nil slice", res.Record.KnownWorks)
	}
}

func TestExtractFencedOutput(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "```json\n" + validRecordJSON + "\n```"

	s := NewStructurer(mock, discardLogger())

	res, err := s.Extract(context.Background(), "673 - الذهبي")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Record.Name != "الذهبي" {
		t.Errorf("Name = %q, want الذهبي", res.Record.Name)
	}
	if res.Repaired {
		t.Error("fence stripping should not require a repair round")
	}
}

func TestExtractRepairsMalformedOutput(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script = []string{
		"Sure! Here is some prose without any JSON at all.",
		validRecordJSON,
	}

	s := NewStructurer(mock, discardLogger())

	res, err := s.Extract(context.Background(), "673 - الذهبي")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.Repaired {
		t.Error("Repaired = false, want true after a repair round")
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestExtractMalformedAfterRepair(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "still not valid JSON"

	s := NewStructurer(mock, discardLogger())

	_, err := s.Extract(context.Background(), "673 - الذهبي")
	if !errors.Is(err, ErrMalformedExtraction) {
		t.Fatalf("Extract() error = %v, want ErrMalformedExtraction", err)
	}
	// First call plus exactly one repair, never more.
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestExtractEmptyNameRejected(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = `{"name": "   ", "birth_date": null, "death_date": null, "profession": null, "known_works": []}`

	s := NewStructurer(mock, discardLogger())

	_, err := s.Extract(context.Background(), "5 - مجهول")
	if !errors.Is(err, ErrMalformedExtraction) {
		t.Fatalf("Extract() error = %v, want ErrMalformedExtraction", err)
	}
}

func TestExtractRetriesUnavailable(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	mock.Unavailable = true
	mock.Retries = 3
	mock.RetryDelay = time.Millisecond

	s := NewStructurer(mock, discardLogger())

	_, err := s.Extract(context.Background(), "673 - الذهبي")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("Extract() error = %v, want ErrServiceUnavailable", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3 attempts", mock.RequestCount())
	}
}

func TestExtractPermanentErrorNotRetried(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	mock.Retries = 3
	mock.RetryDelay = time.Millisecond

	s := NewStructurer(mock, discardLogger())

	_, err := s.Extract(context.Background(), "673 - الذهبي")
	if err == nil {
		t.Fatal("Extract() error = nil, want failure")
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("permanent error misclassified as unavailable: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (no retries)", mock.RequestCount())
	}
}

func TestExtractContextCancellation(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 200 * time.Millisecond
	mock.ResponseText = validRecordJSON

	s := NewStructurer(mock, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Extract(ctx, "673 - الذهبي")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Extract() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestMarshalRecordReadableArabic(t *testing.T) {
	death := "748هـ"
	rec := &AuthorRecord{
		Name:       "الذهبي",
		DeathDate:  &death,
		KnownWorks: []string{"سير أعلام النبلاء"},
	}

	out, err := MarshalRecord(rec)
	if err != nil {
		t.Fatalf("MarshalRecord() error = %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "الذهبي") {
		t.Errorf("output does not contain raw Arabic text:\n%s", s)
	}
	if strings.Contains(s, `\u`) {
		t.Errorf("output contains escaped unicode:\n%s", s)
	}
	if !strings.Contains(s, "\n  \"name\"") {
		t.Errorf("output is not indented:\n%s", s)
	}
}
