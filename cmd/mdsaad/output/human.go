// human.go — Human-readable output formatter.
// Produces terminal output; errors are a single red line with a
// remediation hint, unless colors are disabled.
package output

import (
	"fmt"
	"strings"
)

const (
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// HumanFormatter produces human-readable output.
type HumanFormatter struct {
	NoColor bool
}

func (h *HumanFormatter) red(s string) string {
	if h.NoColor {
		return s
	}
	return ansiRed + s + ansiReset
}

func (h *HumanFormatter) dim(s string) string {
	if h.NoColor {
		return s
	}
	return ansiDim + s + ansiReset
}

// Format writes a human-readable representation of the result.
func (h *HumanFormatter) Format(w Writer, result *Result) error {
	var sb strings.Builder

	if !result.Success {
		line := result.Error
		if result.Hint != "" {
			line += " — " + result.Hint
		}
		sb.WriteString(h.red(line))
		sb.WriteString("\n")
		if result.Table != nil {
			writeTable(&sb, result.Table)
		}
		_, err := w.Write([]byte(sb.String()))
		return err
	}

	if result.TextContent != "" {
		sb.WriteString(result.TextContent)
		if !strings.HasSuffix(result.TextContent, "\n") {
			sb.WriteString("\n")
		}
	}

	if result.Table != nil {
		writeTable(&sb, result.Table)
	}

	if result.TextContent == "" && result.Table == nil {
		for k, v := range result.Data {
			sb.WriteString(fmt.Sprintf("%s: %v\n", k, v))
		}
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

// writeTable renders an aligned plain-text table.
func writeTable(sb *strings.Builder, t *Table) {
	widths := make([]int, len(t.Headers))
	for i, hd := range t.Headers {
		widths[i] = len(hd)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(widths)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			}
		}
		sb.WriteString("\n")
	}
	writeRow(t.Headers)
	sep := make([]string, len(t.Headers))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range t.Rows {
		writeRow(row)
	}
}
