package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = 2

// Table renders rows as left-aligned columns under a header row.
// Cells may already be styled; widths are measured without escape sequences.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var sb strings.Builder
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = HeaderStyle.Render(h)
	}
	writeRow(&sb, styled, widths)

	total := 0
	for _, w := range widths {
		total += w + columnGap
	}
	sb.WriteString(MutedStyle.Render(strings.Repeat("─", max(total-columnGap, 0))))
	sb.WriteString("\n")

	for _, row := range rows {
		writeRow(&sb, row, widths)
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		sb.WriteString(cell)
		if i < len(widths)-1 {
			sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+columnGap))
		}
	}
	sb.WriteString("\n")
}
