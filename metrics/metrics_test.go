package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/google/uuid"
)

func testInput() Input {
	role := core.FieldDescriptor{Path: []string{"role"}, DisplayName: "Role", Groupable: true}
	host := core.FieldDescriptor{Path: []string{"host"}, DisplayName: "host", Groupable: true}
	uid := core.FieldDescriptor{Path: []string{"uid"}, DisplayName: "uid", Groupable: true}
	src := "before.json"
	began := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return Input{
		Start: &core.Dataset{
			Owner: uuid.New(), Name: "Before", Source: &src,
			Records:        make([]record.Value, 5),
			Configuration:  core.Configuration{Fields: []core.FieldDescriptor{uid, role, host}},
			KeyCount:       5,
			UniqueKeyCount: 4,
		},
		End: &core.Dataset{
			Owner: uuid.New(), Name: "After",
			Records:        make([]record.Value, 4),
			KeyCount:       4,
			UniqueKeyCount: 4,
		},
		Result: &core.DiffResult{Differences: []core.DiffEntry{
			{Key: "1", Fields: []core.FieldDiff{{Field: role}, {Field: host}}},
			{Key: "2", Fields: []core.FieldDiff{{Field: host}}},
		}},
		Membership: core.Membership{Added: []string{"9"}, Removed: []string{"4"}},
		KeyFields:  []core.FieldDescriptor{uid},
		StartTime:  began,
		EndTime:    began.Add(2 * time.Second),
	}
}

// TestSummarize checks the counts derived from a comparison.
func TestSummarize(t *testing.T) {
	s := Summarize(testInput())

	if s.Added != 1 || s.Removed != 1 || s.Changed != 2 {
		t.Fatalf("unexpected counts: added=%d removed=%d changed=%d", s.Added, s.Removed, s.Changed)
	}
	if s.Unchanged != 1 {
		t.Errorf("Expected 1 unchanged identity, got %d", s.Unchanged)
	}
	if len(s.FieldChanges) != 2 || s.FieldChanges[0].Field != "host" || s.FieldChanges[0].Changed != 2 {
		t.Errorf("Expected host to lead the field changes, got %+v", s.FieldChanges)
	}
	if s.Start.DuplicateCount != 1 || !s.Ambiguous() {
		t.Errorf("Expected start duplicates to be reported, got %+v", s.Start)
	}
	if s.Start.Source != "before.json" || s.Start.Fields != 3 || s.Start.Records != 5 {
		t.Errorf("unexpected start metadata: %+v", s.Start)
	}
	if s.Duration != 2*time.Second {
		t.Errorf("Expected duration 2s, got %s", s.Duration)
	}
	if s.Identical() {
		t.Error("Expected summary not to be identical")
	}
}

// TestSummarizeIdentical covers a comparison without differences.
func TestSummarizeIdentical(t *testing.T) {
	s := Summarize(Input{
		Start:  &core.Dataset{KeyCount: 2, UniqueKeyCount: 2},
		End:    &core.Dataset{KeyCount: 2, UniqueKeyCount: 2},
		Result: &core.DiffResult{Differences: []core.DiffEntry{}},
	})
	if !s.Identical() {
		t.Fatalf("Expected identical summary, got %+v", s)
	}
	if s.Unchanged != 2 {
		t.Errorf("Expected 2 unchanged, got %d", s.Unchanged)
	}
	if s.FieldChanges == nil {
		t.Error("Expected empty, non-nil field changes")
	}
}

// TestJSONSummaryStore ensures summaries are written to a file and to a writer.
func TestJSONSummaryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	store := &JSONSummaryStore{FilePath: path}
	summary := Summarize(testInput())

	if err := store.Save(summary); err != nil {
		t.Fatalf("Failed to save summary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	var decoded ComparisonSummary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if decoded.Changed != 2 || decoded.Start.Name != "Before" {
		t.Errorf("unexpected decoded summary: %+v", decoded)
	}

	var buf bytes.Buffer
	if err := (&JSONSummaryStore{Out: &buf}).Save(summary); err != nil {
		t.Fatalf("Failed to write summary: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"changed": 2`)) {
		t.Errorf("Expected changed count in output, got %s", buf.String())
	}
}

// TestSaveWithContextCanceled ensures a canceled context prevents writing.
func TestSaveWithContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "summary.json")
	store := &JSONSummaryStore{FilePath: path}
	if err := store.SaveWithContext(ctx, ComparisonSummary{}); err == nil {
		t.Fatal("Expected error from canceled context")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be written")
	}
}
