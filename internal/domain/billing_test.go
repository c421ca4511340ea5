package domain_test

import (
	"math"
	"testing"
	"time"

	"parking/internal/domain"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestCharge(t *testing.T) {
	entry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		stay       time.Duration
		hourlyCost float64
		want       float64
	}{
		{"thirty minutes billed as one hour", 30 * time.Minute, 10, 10},
		{"ninety minutes billed exactly", 90 * time.Minute, 10, 15},
		{"exactly one hour", time.Hour, 10, 10},
		{"zero duration", 0, 10, 10},
		{"free lot", 3 * time.Hour, 0, 0},
		{"fractional rate", 2 * time.Hour, 2.5, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.Charge(entry, entry.Add(tc.stay), tc.hourlyCost)
			if !almostEqual(got, tc.want, 1e-9) {
				t.Errorf("Charge(%v, %v) = %v; want %v", tc.stay, tc.hourlyCost, got, tc.want)
			}
		})
	}
}
