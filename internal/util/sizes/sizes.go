// Package sizes formats byte counts for display.
package sizes

import (
	"fmt"
	"math"
	"strconv"
)

var units = []string{"B", "KB", "MB", "GB"}

// Human renders a byte count with binary (1024) scaling, capped at GB.
// Values of ten or more in their unit, and anything at the byte scale, show
// no decimals; smaller values show a single decimal with a trailing ".0"
// trimmed.
//
//	Human(0)       == "0 B"
//	Human(1536)    == "1.5 KB"
//	Human(1 << 20) == "1 MB"
func Human(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	i := 0
	v := float64(bytes)
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 || v >= 10 {
		return fmt.Sprintf("%.0f %s", v, units[i])
	}
	v = math.Round(v*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}
