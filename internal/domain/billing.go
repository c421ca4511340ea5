package domain

import "time"

// Charge returns the amount owed for a stay. Any stay shorter than an hour is
// billed as one hour; longer stays are billed for the exact elapsed fraction.
func Charge(entry, exit time.Time, hourlyCost float64) float64 {
	hours := exit.Sub(entry).Hours()
	if hours < 1 {
		hours = 1
	}
	return hours * hourlyCost
}
