package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gitlab.prplanit.com/precisionplanit/slipway/src/publish"
)

// RenderReport writes a human-readable publish report.
// revision, when non-empty, appears in the section header row.
func RenderReport(w io.Writer, report *publish.Report, revision string, color bool) {
	sec := NewSection(w, fmt.Sprintf("%s — %s", report.Name, report.Connector), report.EndedAt.Sub(report.StartedAt), color)
	defer sec.Close()

	if revision != "" {
		sec.Row("revision: %s", revision)
		sec.Separator()
	}

	for _, res := range report.Results {
		sec.Row("%s %s %s", statusIcon(res.Status, color), res.Title, colorize(formatElapsed(res.Duration), colorGray, color))
		if res.Status == publish.StatusFailure && res.Stderr != "" {
			for _, line := range strings.Split(strings.TrimSpace(res.Stderr), "\n") {
				sec.Row("    %s", colorize(line, colorRed, color))
			}
		}
	}

	sec.Separator()
	sec.Row("overall: %s", statusLabel(report.Status(), color))
}

// RenderReportJSON writes the report as a single JSON document.
func RenderReportJSON(w io.Writer, report *publish.Report) error {
	type stepJSON struct {
		Title      string `json:"title"`
		Status     string `json:"status"`
		Stdout     string `json:"stdout,omitempty"`
		Stderr     string `json:"stderr,omitempty"`
		DurationMS int64  `json:"duration_ms"`
	}

	doc := struct {
		Name      string     `json:"name"`
		Connector string     `json:"connector"`
		Status    string     `json:"status"`
		Steps     []stepJSON `json:"steps"`
	}{
		Name:      report.Name,
		Connector: report.Connector,
		Status:    string(report.Status()),
	}
	for _, res := range report.Results {
		doc.Steps = append(doc.Steps, stepJSON{
			Title:      res.Title,
			Status:     string(res.Status),
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
			DurationMS: res.Duration.Milliseconds(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// statusIcon returns a short glyph for a step status.
func statusIcon(s publish.StepStatus, color bool) string {
	switch s {
	case publish.StatusSuccess:
		return colorize("✔", colorGreen, color)
	case publish.StatusSkipped:
		return colorize("↷", colorYellow, color)
	case publish.StatusFailure:
		return colorize("✖", colorRed, color)
	default:
		return "?"
	}
}

// statusLabel returns an uppercase status word.
func statusLabel(s publish.StepStatus, color bool) string {
	label := strings.ToUpper(string(s))
	switch s {
	case publish.StatusFailure:
		return colorize(label, colorRed, color)
	case publish.StatusSkipped:
		return colorize(label, colorYellow, color)
	default:
		return colorize(label, colorGreen, color)
	}
}

func colorize(text, c string, color bool) string {
	if !color {
		return text
	}
	return c + text + colorReset
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal()
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
