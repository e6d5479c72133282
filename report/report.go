// Package report renders comparison summaries as JSON or HTML documents.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/TFMV/vantage/metrics"
)

// -----------------------------
// Report Generator Interfaces
// -----------------------------

// ReportGenerator defines the methods for generating reports.
type ReportGenerator interface {
	GenerateComparisonReport(summary metrics.ComparisonSummary) ([]byte, error)
	GenerateAlertNotification(summary metrics.ComparisonSummary) ([]byte, error)
	SaveReportToFile(summary metrics.ComparisonSummary, filePath string) error
}

// NewGenerator returns the generator for format, "json" or "html".
func NewGenerator(format string) (ReportGenerator, error) {
	switch format {
	case "", "json":
		return &JSONReportGenerator{}, nil
	case "html":
		return &HTMLReportGenerator{}, nil
	}
	return nil, fmt.Errorf("unsupported report format: %s", format)
}

// -----------------------------
// JSON Report Generator
// -----------------------------

// JSONReportGenerator generates JSON reports.
type JSONReportGenerator struct{}

// GenerateComparisonReport serializes the summary to JSON.
func (j *JSONReportGenerator) GenerateComparisonReport(summary metrics.ComparisonSummary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// GenerateAlertNotification generates an alert message in JSON format.
func (j *JSONReportGenerator) GenerateAlertNotification(summary metrics.ComparisonSummary) ([]byte, error) {
	alert := map[string]any{
		"alert":     alertTitle(summary),
		"start":     summary.Start.Name,
		"end":       summary.End.Name,
		"added":     summary.Added,
		"removed":   summary.Removed,
		"changed":   summary.Changed,
		"ambiguous": summary.Ambiguous(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return json.MarshalIndent(alert, "", "  ")
}

// SaveReportToFile saves the JSON report to a file.
func (j *JSONReportGenerator) SaveReportToFile(summary metrics.ComparisonSummary, filePath string) error {
	data, err := j.GenerateComparisonReport(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o644)
}

// -----------------------------
// HTML Report Generator
// -----------------------------

// HTMLReportGenerator generates HTML reports.
type HTMLReportGenerator struct{}

// HTML template for the report.
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Comparison Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        .added { color: green; }
        .removed { color: red; }
        .changed { color: darkorange; }
        .warning { color: red; font-weight: bold; }
    </style>
</head>
<body>
    <h1>Comparison Report</h1>
    <p><strong>Start:</strong> {{.Start.Name}} ({{.Start.Records}} records, {{.Start.Fields}} fields)</p>
    <p><strong>End:</strong> {{.End.Name}} ({{.End.Records}} records, {{.End.Fields}} fields)</p>
    <p><strong>Key fields:</strong> {{range $i, $f := .KeyFields}}{{if $i}}, {{end}}{{$f}}{{else}}whole record{{end}}</p>
    <p><strong>Ignored fields:</strong> {{range $i, $f := .IgnoredFields}}{{if $i}}, {{end}}{{$f}}{{else}}none{{end}}</p>
    {{if .Ambiguous}}<p class="warning">Key fields are ambiguous: {{.Start.DuplicateCount}} duplicate(s) in start, {{.End.DuplicateCount}} in end.</p>{{end}}

    <h2>Identities</h2>
    <table>
        <tr>
            <th>Added</th>
            <th>Removed</th>
            <th>Changed</th>
            <th>Unchanged</th>
        </tr>
        <tr>
            <td class="added">{{.Added}}</td>
            <td class="removed">{{.Removed}}</td>
            <td class="changed">{{.Changed}}</td>
            <td>{{.Unchanged}}</td>
        </tr>
    </table>

    <h2>Changed Fields</h2>
    <table>
        <tr>
            <th>Field</th>
            <th>Display Name</th>
            <th>Changed</th>
        </tr>
        {{range .FieldChanges}}
        <tr>
            <td>{{.Field}}</td>
            <td>{{.DisplayName}}</td>
            <td>{{.Changed}}</td>
        </tr>
        {{else}}
        <tr><td colspan="3">No field changed</td></tr>
        {{end}}
    </table>

    <footer>
        <p>Compared in {{.Duration}}, generated on {{.EndTime}}</p>
    </footer>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// GenerateComparisonReport renders the summary as an HTML page.
func (h *HTMLReportGenerator) GenerateComparisonReport(summary metrics.ComparisonSummary) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, summary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateAlertNotification generates an HTML alert.
func (h *HTMLReportGenerator) GenerateAlertNotification(summary metrics.ComparisonSummary) ([]byte, error) {
	alertHTML := fmt.Sprintf(
		`<html><body><h3>%s</h3><p>%s: %d added, %d removed, %d changed.</p></body></html>`,
		template.HTMLEscapeString(alertTitle(summary)),
		template.HTMLEscapeString(summary.Start.Name+" -> "+summary.End.Name),
		summary.Added, summary.Removed, summary.Changed,
	)
	return []byte(alertHTML), nil
}

// SaveReportToFile saves the HTML report to a file.
func (h *HTMLReportGenerator) SaveReportToFile(summary metrics.ComparisonSummary, filePath string) error {
	data, err := h.GenerateComparisonReport(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o644)
}

// SaveReports saves both JSON and HTML reports.
func SaveReports(summary metrics.ComparisonSummary, jsonPath, htmlPath string) error {
	jsonGen := JSONReportGenerator{}
	htmlGen := HTMLReportGenerator{}

	if err := jsonGen.SaveReportToFile(summary, jsonPath); err != nil {
		return err
	}
	return htmlGen.SaveReportToFile(summary, htmlPath)
}

// ReportFromFilePath loads a JSON report back into a summary.
func ReportFromFilePath(filePath string) (metrics.ComparisonSummary, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return metrics.ComparisonSummary{}, err
	}
	var summary metrics.ComparisonSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return metrics.ComparisonSummary{}, err
	}
	return summary, nil
}

func alertTitle(summary metrics.ComparisonSummary) string {
	if summary.Identical() {
		return "Datasets Identical"
	}
	return "Differences Detected"
}
