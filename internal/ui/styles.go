// Package ui holds the terminal styles of the CLI listings.
package ui

import (
	"euvdalert/internal/severity"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	HeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var severityColors = map[severity.Level]lipgloss.Color{
	severity.Critical: lipgloss.Color("196"),
	severity.High:     lipgloss.Color("208"),
	severity.Medium:   lipgloss.Color("226"),
	severity.Low:      lipgloss.Color("34"),
	severity.Unknown:  lipgloss.Color("244"),
}

// SeverityStyle returns the color used for a severity level.
func SeverityStyle(l severity.Level) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(severityColors[l]).Bold(l == severity.Critical)
}
