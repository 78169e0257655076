package util

import (
	"fmt"
	"time"
)

// SecondsToHuman returns human readable time format.
func SecondsToHuman(seconds uint64) string {
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	seconds %= 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%02ds", seconds)
	}
}

// Uptime returns the elapsed time since start in human readable format.
func Uptime(start time.Time) string {
	return SecondsToHuman(uint64(time.Since(start).Seconds()))
}
