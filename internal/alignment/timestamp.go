package alignment

import (
	"fmt"
	"time"
)

// FormatTimestamp renders d as H:MM:SS with a six digit fraction when the
// value has sub-second precision, for example 1:02:03.250000.
func FormatTimestamp(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Microsecond)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	micros := d / time.Microsecond
	if micros == 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%d:%02d:%02d.%06d", sign, hours, minutes, seconds, micros)
}
