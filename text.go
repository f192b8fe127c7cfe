package main

import (
	"fmt"

	"extmedia/internal/emp"
)

// scrollSeparator pads the end of scrolling text so the loop reads smoothly
const scrollSeparator = "  •  "

// formatTime converts seconds to MM:SS format
func formatTime(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// scrollText returns a scrolling window of text with smooth looping
func scrollText(text string, max int, offset int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	fullText := append(runes, []rune(scrollSeparator)...)
	textLen := len(fullText)
	offset = offset % textLen

	var result []rune
	for i := 0; i < max; i++ {
		result = append(result, fullText[(offset+i)%textLen])
	}
	return string(result)
}

// statusIcon picks the glyph shown next to a player state
func statusIcon(state string) string {
	switch emp.ParseActivity(state) {
	case emp.ActivityPaused:
		return "󰏤 "
	case emp.ActivityStopped, emp.ActivityFinished:
		return "󰓛 "
	case emp.ActivityIdle:
		return "󰒲 "
	default:
		return "󰐊 "
	}
}

// modeLabel summarizes the shuffle and repeat state in one short line
func modeLabel(shuffle, repeat string) string {
	label := "shuffle off"
	if shuffle == "SHUFFLED" {
		label = "shuffle on"
	}
	switch emp.RepeatMode(repeat) {
	case emp.RepeatAll:
		return label + " · repeat all"
	case emp.RepeatOne:
		return label + " · repeat one"
	default:
		return label + " · repeat off"
	}
}
