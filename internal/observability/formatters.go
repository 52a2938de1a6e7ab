// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonathan/stock-research-agent/internal/classify"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/types"
)

const (
	// boxWidth is the default display width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	stepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// fit cuts s to at most width display cells, marking the cut with "...".
// Display width counts CJK characters as two cells.
func fit(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	var sb strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width-3 {
			break
		}
		sb.WriteRune(r)
		w += rw
	}
	return sb.String() + "..."
}

// pad right-pads s with spaces to width display cells.
func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(titleStyle.Render(fit(title, inner)), inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(fit(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress outputs one pipeline stage transition.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(step, message string) {
	fmt.Fprintf(p.out, "%s %s\n", stepStyle.Render("["+step+"]"), message)
}

// PrintWarning outputs a highlighted single-line warning.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintWarning(message string) {
	fmt.Fprintln(p.out, warnStyle.Render("⚠ "+message))
}

// PrintSearchHits outputs the aggregated search hits.
func (p *Printer) PrintSearchHits(hits []types.SearchHit) {
	if len(hits) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Unique URLs: %d\n\n", len(hits)))

	count := min(len(hits), maxItemsToShow)
	for i := 0; i < count; i++ {
		hit := hits[i]
		if hit.Title != "" {
			sb.WriteString(fmt.Sprintf("• %s\n  %s\n", hit.Title, hit.URL))
		} else {
			sb.WriteString(fmt.Sprintf("• %s\n", hit.URL))
		}
	}
	if len(hits) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(hits)-maxItemsToShow))
	}

	p.printBox("SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoredHits outputs the hits that passed relevance filtering with their scores.
func (p *Printer) PrintScoredHits(scored []ranking.ScoredHit) {
	if len(scored) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Passed filter: %d\n\n", len(scored)))

	for i, s := range scored {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		sb.WriteString(fmt.Sprintf("#%d  [%d] %s\n", i+1, s.Score, title))
		if s.Reason != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", s.Reason))
		}
	}

	p.printBox("RELEVANCE SCORES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDocuments outputs the fetched documents with their classification.
func (p *Printer) PrintDocuments(docs []types.FetchedDocument) {
	if len(docs) == 0 {
		return
	}

	counts := map[classify.Label]int{}
	var sb strings.Builder
	for i, doc := range docs {
		label := classify.Classify(doc.URL, doc.Title, doc.Content)
		counts[label]++
		if i < maxItemsToShow {
			sb.WriteString(fmt.Sprintf("• [%s] %s (%d 字)\n", label.DisplayName(), doc.Title, len([]rune(doc.Content))))
		}
	}
	if len(docs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(docs)-maxItemsToShow))
	}
	sb.WriteString(fmt.Sprintf("\n%s: %d  %s: %d  %s: %d",
		classify.Generic.DisplayName(), counts[classify.Generic],
		classify.BrokerReport.DisplayName(), counts[classify.BrokerReport],
		classify.PolicyDocument.DisplayName(), counts[classify.PolicyDocument]))

	p.printBox(fmt.Sprintf("FETCHED DOCUMENTS (%d)", len(docs)), sb.String())
}

// PrintExtraction outputs extraction coverage.
func (p *Printer) PrintExtraction(infos []types.ExtractedInfo) {
	if len(infos) == 0 {
		return
	}

	ok := 0
	var failed []string
	for _, info := range infos {
		if info.OK() {
			ok++
			continue
		}
		failed = append(failed, fmt.Sprintf("✗ %s: %s", info.URL, info.Error))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Extracted: %d / %d", ok, len(infos)))
	if len(failed) > 0 {
		sb.WriteString("\n\n")
		count := min(len(failed), maxItemsToShow)
		sb.WriteString(strings.Join(failed[:count], "\n"))
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n... and %d more", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("EXTRACTION", sb.String())
}

// PrintAdvice outputs the final advice with its provenance.
func (p *Printer) PrintAdvice(res *types.AdviceResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	if res.Subject != "" {
		sb.WriteString(fmt.Sprintf("Subject:  %s\n", res.Subject))
	}
	sb.WriteString(fmt.Sprintf("Risk:     %s\n", types.RiskProfile(res.RiskProfile).DisplayName()))
	sb.WriteString(fmt.Sprintf("Sources:  %d\n", len(res.SourceURLs)))
	if res.OutputFile != "" {
		sb.WriteString(fmt.Sprintf("File:     %s\n", res.OutputFile))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(res.Text))

	p.printBox("ANALYSIS RESULT", sb.String())
}
