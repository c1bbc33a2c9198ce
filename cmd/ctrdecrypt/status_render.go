package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"ctrdecrypt/internal/deps"
	"ctrdecrypt/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// toolLines renders one status line per external tool, followed by a hint
// naming the missing ones.
func toolLines(tools []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(tools)+1)
	var missing []string
	for _, tool := range tools {
		if tool.Available {
			lines = append(lines, renderStatusLine(tool.Name, statusOK, "Ready ("+tool.Command+")", colorize))
			continue
		}
		detail := strings.TrimSpace(tool.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if tool.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(tool.Name, kind, detail, colorize))
		missing = append(missing, tool.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing tools", statusWarn,
			strings.Join(missing, ", ")+" (place them in tools_dir or on PATH)", colorize))
	}
	return lines
}

func checkLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func preflightLines(report preflight.Report, colorize bool) []string {
	lines := renderSectionHeader("Tools", colorize)
	lines = append(lines, toolLines(report.Tools, colorize)...)
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Environment", colorize)...)
	lines = append(lines, checkLines(report.Checks, colorize)...)
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
