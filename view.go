package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// textWidth is how many columns of title, artist or album fit in the box
func textWidth(cfg Config) int {
	return cfg.UI.MaxWidth - 9
}

func (m model) View() string {
	cfg := config.Get()

	// Calculate current interpolated position for smooth progress bar
	currentPos := m.getCurrentPosition()
	currentTime := formatTime(int64(currentPos))
	var progress float64
	if m.duration > 0 {
		progress = currentPos / float64(m.duration)
	}

	color := lipgloss.Color(m.color)
	highlight := lipgloss.NewStyle().Foreground(color)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15")) // ANSI white

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var content strings.Builder
	content.WriteString(highlight.Render("󰓃 Now Playing") + "\n\n")

	switch {
	case m.lastError != nil:
		content.WriteString(errorStyle.Render("Error: " + m.lastError.Error()))
	case m.track.Title == "":
		content.WriteString(mutedStyle.Render("Nothing playing") + "\n\n")
		if len(m.players) == 0 {
			content.WriteString(dimStyle.Render("No players registered"))
		} else {
			content.WriteString(dimStyle.Render("Start playing music to begin"))
		}
	default:
		addLine := func(label, value string) {
			if value != "" {
				content.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(label), value))
			}
		}

		maxLen := textWidth(cfg)
		addLine("󰎈 ", scrollText(m.track.Title, maxLen, m.scrollOffset))
		addLine("󰠃 ", scrollText(m.track.Artist, maxLen, m.scrollOffset))
		addLine("󰀥 ", scrollText(m.track.Album, maxLen, m.scrollOffset))
		addLine(statusIcon(m.track.Status), strings.ToLower(m.track.Status))
		content.WriteString(dimStyle.Render(modeLabel(m.track.Shuffle, m.track.Repeat)) + "\n")

		if progress > 0 {
			// Leave room for the timestamps
			barWidth := cfg.UI.MaxWidth - 17
			filled := int(float64(barWidth) * progress)
			if filled > barWidth {
				filled = barWidth
			}
			content.WriteString(fmt.Sprintf(
				"\n%s %s/%s",
				highlight.Render(strings.Repeat("█", filled))+white.Render(strings.Repeat("─", barWidth-filled)),
				highlight.Render(currentTime),
				highlight.Render(m.track.TotalTime),
			))
		}
	}

	if len(m.players) > 1 || m.notice != "" || m.clients != nil || m.ducked {
		content.WriteString("\n")
	}
	if len(m.players) > 1 {
		for _, p := range m.players {
			marker := "  "
			if p.InFocus {
				marker = highlight.Render("▸ ")
			}
			line := fmt.Sprintf("%s %s", p.ID, strings.ToLower(p.State))
			if !p.Authorized {
				line += " (unauthorized)"
			}
			content.WriteString("\n" + marker + dimStyle.Render(line))
		}
	}
	if m.ducked {
		content.WriteString("\n" + mutedStyle.Render("focus: background"))
	}
	if m.clients != nil {
		content.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("bridge: %d connected", m.clients())))
	}
	if m.notice != "" {
		content.WriteString("\n" + errorStyle.Render(m.notice))
	}

	contentStr := borderStyle.
		Width(cfg.UI.MaxWidth).
		Render(content.String())

	// Build help text - either full help or hint to press ?
	var helpText string
	if m.showHelp {
		helpText = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(lipgloss.JoinHorizontal(
				lipgloss.Center,
				"Play/Pause: "+highlight.Render("p"),
				"  Next: "+highlight.Render("n"),
				"  Previous: "+highlight.Render("b"),
				"  Seek: "+highlight.Render("←/→"),
				"  Shuffle: "+highlight.Render("s"),
				"  Loop: "+highlight.Render("l"),
				"  Duck: "+highlight.Render("d"),
				"  Quit: "+highlight.Render("q"),
				"  Hide: "+highlight.Render("?"),
			))
	} else {
		helpText = mutedStyle.Render("Press ? for help")
	}

	fullUI := lipgloss.JoinVertical(lipgloss.Center, contentStr, "\n"+helpText)

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		fullUI,
	)
}
