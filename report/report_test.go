package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TFMV/vantage/metrics"
)

func createTestSummary() metrics.ComparisonSummary {
	began := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return metrics.ComparisonSummary{
		Start:     metrics.DatasetMetadata{Name: "Before <v1>", Records: 10, Fields: 3, DuplicateCount: 1},
		End:       metrics.DatasetMetadata{Name: "After", Records: 11, Fields: 4},
		KeyFields: []string{"uid", "site"},
		Added:     2,
		Removed:   1,
		Changed:   3,
		Unchanged: 6,
		FieldChanges: []metrics.FieldChange{
			{Field: "role.role", DisplayName: "Role", Changed: 3},
		},
		StartTime: began,
		EndTime:   began.Add(time.Second),
		Duration:  time.Second,
	}
}

func TestJSONReportGenerator_GenerateComparisonReport(t *testing.T) {
	generator := &JSONReportGenerator{}

	data, err := generator.GenerateComparisonReport(createTestSummary())
	if err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}

	var decoded metrics.ComparisonSummary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Generated invalid JSON: %v", err)
	}
	if decoded.Changed != 3 || decoded.End.Name != "After" {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestJSONReportGenerator_SaveAndLoad(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "report.json")
	generator := &JSONReportGenerator{}

	if err := generator.SaveReportToFile(createTestSummary(), filePath); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	loaded, err := ReportFromFilePath(filePath)
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if loaded.Added != 2 || len(loaded.FieldChanges) != 1 {
		t.Errorf("unexpected loaded report: %+v", loaded)
	}
}

func TestJSONReportGenerator_GenerateAlertNotification(t *testing.T) {
	generator := &JSONReportGenerator{}
	data, err := generator.GenerateAlertNotification(createTestSummary())
	if err != nil {
		t.Fatalf("Failed to generate alert: %v", err)
	}

	var alert map[string]any
	if err := json.Unmarshal(data, &alert); err != nil {
		t.Fatalf("Generated invalid JSON: %v", err)
	}
	if alert["alert"] != "Differences Detected" {
		t.Errorf("Expected differences alert, got %v", alert["alert"])
	}
	if alert["ambiguous"] != true {
		t.Errorf("Expected ambiguous flag, got %v", alert["ambiguous"])
	}
}

func TestHTMLReportGenerator_GenerateComparisonReport(t *testing.T) {
	generator := &HTMLReportGenerator{}
	data, err := generator.GenerateComparisonReport(createTestSummary())
	if err != nil {
		t.Fatalf("Failed to generate HTML report: %v", err)
	}

	html := string(data)
	expected := []string{
		"<title>Comparison Report</title>",
		"Before &lt;v1&gt;",
		"uid, site",
		"role.role",
		"Key fields are ambiguous",
	}
	for _, want := range expected {
		if !strings.Contains(html, want) {
			t.Errorf("HTML report missing %q", want)
		}
	}
}

func TestHTMLReportGenerator_EmptyFieldChanges(t *testing.T) {
	summary := createTestSummary()
	summary.FieldChanges = nil
	summary.KeyFields = nil
	summary.Start.DuplicateCount = 0

	data, err := (&HTMLReportGenerator{}).GenerateComparisonReport(summary)
	if err != nil {
		t.Fatalf("Failed to generate HTML report: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "No field changed") || !strings.Contains(html, "whole record") {
		t.Error("Expected empty placeholders in HTML report")
	}
	if strings.Contains(html, "ambiguous") {
		t.Error("Did not expect ambiguity warning")
	}
}

func TestSaveReports(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	htmlPath := filepath.Join(dir, "report.html")

	if err := SaveReports(createTestSummary(), jsonPath, htmlPath); err != nil {
		t.Fatalf("Failed to save reports: %v", err)
	}
	for _, path := range []string{jsonPath, htmlPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}
}

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator("html"); err != nil {
		t.Errorf("Expected html generator, got %v", err)
	}
	if _, err := NewGenerator("pdf"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
