package render

import "github.com/charmbracelet/lipgloss"

// statusColor maps a failure.Info status string (as produced by
// types.FailureStatus.String()) to a table-cell color, used by
// renderTable to highlight node health at a glance.
var statusColor = map[string]lipgloss.Style{
	"ok":       lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")), // green
	"fade":     lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")), // amber
	"protocol": lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")), // amber
	"connect":  lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")), // red
	"monitor":  lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")), // red
}

// colorizeStatus applies statusColor to a "status" column value. Returns
// val unchanged if noColor is set or val isn't a recognized status.
func colorizeStatus(val string, noColor bool) string {
	if noColor {
		return val
	}
	style, ok := statusColor[val]
	if !ok {
		return val
	}
	return style.Render(val)
}
