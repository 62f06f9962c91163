package reporting

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/qagentic/qagentic-go/types"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

const (
	htmlFilename   = "report.html"
	reportTemplate = "report.html.tmpl"
)

// HTMLSink renders a self-contained HTML report of the run. The whole
// document is produced at EndRun from the run aggregate.
type HTMLSink struct {
	outputDir string
	tmpl      *template.Template
}

// NewHTMLSink creates an HTMLSink rooted at outputDir, parsing the embedded
// report template.
func NewHTMLSink(outputDir string) (*HTMLSink, error) {
	tmpl, err := template.New(reportTemplate).Funcs(template.FuncMap{
		"formatDuration": formatDuration,
		"formatMS":       func(ms float64) string { return formatDuration(time.Duration(ms) * time.Millisecond) },
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04:05 MST")
		},
		"statusClass": func(status types.Status) string { return string(status) },
	}).ParseFS(templateFS, "templates/"+reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	return &HTMLSink{
		outputDir: outputDir,
		tmpl:      tmpl,
	}, nil
}

func (s *HTMLSink) Name() string { return "html" }

// StartRun ensures the output directory exists.
func (s *HTMLSink) StartRun(run *types.TestRunResult) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.outputDir, err)
	}
	return nil
}

// ReportTest is a no-op; the document is built from the run aggregate.
func (s *HTMLSink) ReportTest(test *types.TestResult) error {
	return nil
}

// EndRun renders report.html.
func (s *HTMLSink) EndRun(run *types.TestRunResult) error {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, run); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}

	htmlFile := filepath.Join(s.outputDir, htmlFilename)
	if err := os.WriteFile(htmlFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlFile, err)
	}

	return nil
}
