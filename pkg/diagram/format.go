package diagram

import (
	"fmt"
	"strconv"

	"github.com/tablemap/tablemap/pkg/schema"
)

// FormatBytes renders a byte size in binary units, trimming to at most one
// decimal place.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	s := strconv.FormatFloat(value, 'f', 1, 64)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		s = s[:len(s)-2]
	}
	return s + " " + string("KMGTPE"[exp]) + "iB"
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// StatsText builds the statistics footer of an entity box, e.g.
// "~1,200 rows (64 KiB)". Estimated counts carry a tilde prefix. Returns ""
// when no statistic is known.
func StatsText(stats schema.Statistics) string {
	var rows, size string
	if stats.HasRows {
		rows = FormatCount(stats.RowCount) + " rows"
		if stats.RowCount == 1 {
			rows = "1 row"
		}
		if stats.Estimated {
			rows = "~" + rows
		}
	}
	if stats.HasBytes {
		size = FormatBytes(stats.ByteSize)
	}
	switch {
	case rows != "" && size != "":
		return fmt.Sprintf("%s (%s)", rows, size)
	case rows != "":
		return rows
	case size != "":
		return size
	}
	return ""
}
