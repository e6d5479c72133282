// Package metrics condenses a comparison into counts suitable for reports.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/TFMV/vantage/pkg/core"
)

// -----------------------------
// Summary Types
// -----------------------------

// DatasetMetadata describes one side of a comparison.
type DatasetMetadata struct {
	Owner          core.Owner `json:"owner"`
	Name           string     `json:"name"`
	ShortName      string     `json:"short_name"`
	Source         string     `json:"source,omitempty"`
	Records        int        `json:"records"`
	Fields         int        `json:"fields"`
	UniqueKeys     int        `json:"unique_keys"`
	DuplicateCount int        `json:"duplicate_count"`
}

// FieldChange counts the identities whose value of one field changed.
type FieldChange struct {
	Field       string `json:"field"`
	DisplayName string `json:"display_name"`
	Changed     int    `json:"changed"`
}

// ComparisonSummary aggregates the outcome of comparing two datasets.
type ComparisonSummary struct {
	Start         DatasetMetadata `json:"start"`
	End           DatasetMetadata `json:"end"`
	KeyFields     []string        `json:"key_fields"`
	IgnoredFields []string        `json:"ignored_fields"`

	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`

	FieldChanges []FieldChange `json:"field_changes"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// Identical reports whether the comparison found no difference at all.
func (s ComparisonSummary) Identical() bool {
	return s.Added == 0 && s.Removed == 0 && s.Changed == 0
}

// Ambiguous reports whether either side has colliding identities.
func (s ComparisonSummary) Ambiguous() bool {
	return s.Start.DuplicateCount > 0 || s.End.DuplicateCount > 0
}

// Input collects everything Summarize needs.
type Input struct {
	Start, End    *core.Dataset
	Result        *core.DiffResult
	Membership    core.Membership
	KeyFields     []core.FieldDescriptor
	IgnoredFields []core.FieldDescriptor
	StartTime     time.Time
	EndTime       time.Time
}

// Summarize computes a ComparisonSummary. Unchanged counts the identities
// present on both sides without a reported difference.
func Summarize(in Input) ComparisonSummary {
	s := ComparisonSummary{
		Start:         describe(in.Start),
		End:           describe(in.End),
		KeyFields:     fieldIDs(in.KeyFields),
		IgnoredFields: fieldIDs(in.IgnoredFields),
		Added:         len(in.Membership.Added),
		Removed:       len(in.Membership.Removed),
		FieldChanges:  []FieldChange{},
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Duration:      in.EndTime.Sub(in.StartTime),
	}

	if in.Result != nil {
		s.Changed = len(in.Result.Differences)
		counts := make(map[string]*FieldChange)
		for _, entry := range in.Result.Differences {
			for _, fd := range entry.Fields {
				id := fd.Field.ID()
				fc, ok := counts[id]
				if !ok {
					fc = &FieldChange{Field: id, DisplayName: fd.Field.DisplayName}
					counts[id] = fc
				}
				fc.Changed++
			}
		}
		for _, fc := range counts {
			s.FieldChanges = append(s.FieldChanges, *fc)
		}
		sort.Slice(s.FieldChanges, func(i, j int) bool {
			a, b := s.FieldChanges[i], s.FieldChanges[j]
			if a.Changed != b.Changed {
				return a.Changed > b.Changed
			}
			return a.Field < b.Field
		})
	}

	shared := s.Start.UniqueKeys - s.Removed
	if shared > s.Changed {
		s.Unchanged = shared - s.Changed
	}
	return s
}

func describe(ds *core.Dataset) DatasetMetadata {
	if ds == nil {
		return DatasetMetadata{}
	}
	md := DatasetMetadata{
		Owner:          ds.Owner,
		Name:           ds.Name,
		ShortName:      ds.ShortName,
		Records:        len(ds.Records),
		Fields:         len(ds.Configuration.Fields),
		UniqueKeys:     ds.UniqueKeyCount,
		DuplicateCount: ds.DuplicateCount(),
	}
	if ds.Source != nil {
		md.Source = *ds.Source
	}
	return md
}

func fieldIDs(fields []core.FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID()
	}
	return out
}

// -----------------------------
// Summary Storage
// -----------------------------

// SummaryStore abstracts summary storage.
type SummaryStore interface {
	Save(summary ComparisonSummary) error
	SaveWithContext(ctx context.Context, summary ComparisonSummary) error
}

// JSONSummaryStore stores summaries as indented JSON in FilePath, or on Out
// when no path is set.
type JSONSummaryStore struct {
	FilePath string
	Out      io.Writer
}

// Save writes the summary.
func (j *JSONSummaryStore) Save(summary ComparisonSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if j.FilePath != "" {
		return os.WriteFile(j.FilePath, data, 0o644)
	}
	out := j.Out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// SaveWithContext writes the summary unless ctx is done.
func (j *JSONSummaryStore) SaveWithContext(ctx context.Context, summary ComparisonSummary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(summary)
	}
}
