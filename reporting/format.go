package reporting

import (
	"fmt"
	"strconv"
	"time"
)

// formatDuration renders a duration as seconds with one decimal place.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatSeconds renders milliseconds as a plain decimal seconds value, the
// shape JUnit consumers expect in time attributes.
func formatSeconds(ms float64) string {
	return strconv.FormatFloat(ms/1000, 'f', -1, 64)
}
