package engine

import (
	"strconv"
	"strings"
)

// Aggregations over sparse columns come back as "None" for groups with no
// data; treat it like an empty cell.
const noneSentinel = "None"

// ToFloat parses cell as a float64, returning def when the trimmed cell is
// empty, the "None" sentinel, or unparsable. Never fails.
func ToFloat(cell string, def float64) float64 {
	v := strings.TrimSpace(cell)
	if v == "" || v == noneSentinel {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// ToInt parses cell as an integer, returning def when the trimmed cell is
// empty, the "None" sentinel, or unparsable. Fractional values truncate
// toward zero. Never fails.
func ToInt(cell string, def int) int {
	v := strings.TrimSpace(cell)
	if v == "" || v == noneSentinel {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return int(f)
}
