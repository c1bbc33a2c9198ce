package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ctrdecrypt/internal/pipeline"
	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/workflow"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 4)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

func renderBanner() string {
	return bannerStyle.Render("CIA/3DS Decryptor " + version)
}

// renderSummary formats the end-of-run tally.
func renderSummary(summary workflow.Summary, logPath string) string {
	c := summary.Counters
	var lines []string
	switch {
	case c.Total == 0:
		lines = append(lines, warningStyle.Render("No CIA or 3DS files found!"))
	case c.Outcome() == tally.OutcomeNone:
		lines = append(lines, errorStyle.Render("No files were decrypted!"))
	case c.Outcome() == tally.OutcomeComplete:
		lines = append(lines,
			successStyle.Render("Decrypting finished!"),
			"",
			"Summary:",
			fmt.Sprintf("  - %d 3DS file(s) decrypted", c.Count3DS),
			fmt.Sprintf("  - %d CIA file(s) decrypted", c.CountCIA),
		)
	default:
		lines = append(lines,
			warningStyle.Render("Some files were not decrypted!"),
			"",
			"Summary:",
			fmt.Sprintf("  - %d from %d 3DS failures", c.DSErr, c.Count3DS),
			fmt.Sprintf("  - %d from %d CIA failures", c.CIAErr, c.CountCIA),
			fmt.Sprintf("  - %d CCI conversion failures", c.CCIErr),
		)
	}
	if strings.TrimSpace(logPath) != "" {
		lines = append(lines, "", dimStyle.Render(fmt.Sprintf("Review '%s' for details.", logPath)))
	}
	return summaryStyle.Render(strings.Join(lines, "\n"))
}

func renderFailures(failed []pipeline.Result) string {
	rows := make([][]string, 0, len(failed))
	for _, res := range failed {
		label := res.Record.TitleID
		if label != "" {
			label = res.Record.Label()
		}
		rows = append(rows, []string{filepath.Base(res.Input), string(res.Batch), string(res.State), label})
	}
	return renderTable(tableSpec{
		Title:   "Failed files",
		Headers: []string{"File", "Batch", "State", "Title"},
		Rows:    rows,
	})
}
