// Package bytefmt renders byte counts with binary (1024-based) units for
// display. Used/remaining/limit figures all go through the same formatter so
// summed and differenced values stay visually consistent.
package bytefmt

import (
	"math"
	"strconv"
)

var units = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// Format renders n using the largest binary unit in which the value is at
// least 1, with at most two fractional digits and no trailing zeros.
// Deterministic: the same input always yields the same string.
func Format(n int64) string {
	if n < 0 {
		n = 0
	}

	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(units)-1 {
		v /= 1024
		unit++
	}

	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[unit]
}
