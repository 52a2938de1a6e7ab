package rendering

import (
	"embed"
	"strings"
	"text/template"
	"time"

	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ExcerptLength is how many characters of each advice text the batch summary keeps.
const ExcerptLength = 500

// Report holds everything written to an advice or market analysis file.
type Report struct {
	Subject     string
	RiskProfile types.RiskProfile
	RunID       string
	GeneratedAt time.Time
	Body        string
	Sources     []string
}

// RiskName is the display name of the report's risk profile.
func (r Report) RiskName() string { return r.RiskProfile.DisplayName() }

// ReportFromResult builds a Report from a finished analysis.
func ReportFromResult(res types.AdviceResult) Report {
	return Report{
		Subject:     res.Subject,
		RiskProfile: types.RiskProfile(res.RiskProfile),
		RunID:       res.RunID,
		GeneratedAt: res.GeneratedAt,
		Body:        res.Text,
		Sources:     res.SourceURLs,
	}
}

// BatchStatus is the outcome of one subject in a batch run.
type BatchStatus string

// Batch outcomes
const (
	StatusSucceeded BatchStatus = "成功"
	StatusFailed    BatchStatus = "失败"
)

// BatchEntry is one subject's line in the batch summary.
type BatchEntry struct {
	Subject string
	Status  BatchStatus
	Excerpt string
	File    string
	Error   string
}

// BatchSummary is the digest written after a batch run.
type BatchSummary struct {
	GeneratedAt time.Time
	RiskProfile types.RiskProfile
	Entries     []BatchEntry
}

// RiskName is the display name of the batch's risk profile.
func (b BatchSummary) RiskName() string { return b.RiskProfile.DisplayName() }

// Succeeded counts successful entries.
func (b BatchSummary) Succeeded() int {
	n := 0
	for _, e := range b.Entries {
		if e.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed counts failed entries.
func (b BatchSummary) Failed() int { return len(b.Entries) - b.Succeeded() }

// RenderReport renders an advice or market analysis file.
func RenderReport(r Report) (string, error) {
	return execute("advice.tmpl", r)
}

// RenderBatchSummary renders the batch digest.
func RenderBatchSummary(s BatchSummary) (string, error) {
	return execute("batch_summary.tmpl", s)
}

// Excerpt cuts text to ExcerptLength characters, marking the cut with "...".
func Excerpt(text string) string {
	out, _ := llm.TruncateRunes(strings.TrimSpace(text), ExcerptLength, "...")
	return out
}

var funcs = template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"rule":     func() string { return strings.Repeat("=", 60) },
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}

func execute(name string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", &TemplateError{Template: name, Message: "failed to parse template", Cause: err}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", &TemplateError{Template: name, Message: "failed to execute template", Cause: err}
	}
	return sb.String(), nil
}
