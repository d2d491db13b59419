package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroup_NbNights(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		paris = time.FixedZone("CET", 3600)
	}

	testCases := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"utc", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), 3},
		{"same day", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 0},
		{"reversed", time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 0},
		// Переход на летнее время: смещение меняется с +01:00 на +02:00
		{"dst offsets", time.Date(2026, 3, 28, 0, 0, 0, 0, time.FixedZone("", 3600)), time.Date(2026, 3, 31, 0, 0, 0, 0, time.FixedZone("", 7200)), 3},
		{"dst location", time.Date(2026, 3, 28, 0, 0, 0, 0, paris), time.Date(2026, 3, 31, 0, 0, 0, 0, paris), 3},
		{"autumn dst", time.Date(2026, 10, 24, 0, 0, 0, 0, paris), time.Date(2026, 10, 26, 0, 0, 0, 0, paris), 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := &Group{DateFrom: tc.from, DateTo: tc.to}
			assert.Equal(t, tc.want, g.NbNights())

			b := &Booking{DateFrom: tc.from, DateTo: tc.to}
			assert.Equal(t, tc.want, b.NbNights())
		})
	}
}
