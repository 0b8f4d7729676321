package tui

import (
	"cineflow/console/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

// StatusStyle colors a run or task status the same way in the TUI and the CLI tables.
func StatusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusCompleted:
		return okStyle
	case model.StatusFailed, model.StatusDownloadFailed:
		return errorStyle
	case model.StatusRunning:
		return runningStyle
	}
	return mutedStyle
}
