package model

import (
	"fmt"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize formats a byte count using binary (1024-based) units,
// e.g. 1024 -> "1 KB", 1048576 -> "1 MB". Nil means the size was never
// recorded and formats as "Unknown".
func HumanSize(sizeBytes *int64) string {
	if sizeBytes == nil {
		return "Unknown"
	}
	size := float64(*sizeBytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", size), "0"), ".")
	return s + " " + sizeUnits[unit]
}

// HumanDuration formats a duration in seconds compactly, dropping leading
// zero components: "45s", "2m 30s", "2h 15m 30s".
func HumanDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
