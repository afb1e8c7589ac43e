package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func iv(start, end TimeOfDay) Interval { return Interval{Start: start, End: end} }

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", iv(540, 600), iv(540, 600), true},
		{"partial overlap", iv(540, 600), iv(570, 630), true},
		{"contained", iv(540, 720), iv(570, 600), true},
		{"touching endpoints do not overlap", iv(540, 600), iv(600, 660), false},
		{"disjoint", iv(540, 600), iv(720, 780), false},
		{"one minute of overlap", iv(540, 601), iv(600, 660), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			// overlap is symmetric
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a))
		})
	}
}

func TestFindOverlaps(t *testing.T) {
	existing := []AvailabilityWindow{
		{StartTime: 540, EndTime: 600},  // 09:00-10:00
		{StartTime: 600, EndTime: 660},  // 10:00-11:00
		{StartTime: 720, EndTime: 780},  // 12:00-13:00
	}

	got := FindOverlaps(existing, iv(570, 630)) // 09:30-10:30
	assert.Len(t, got, 2)
	assert.Equal(t, TimeOfDay(540), got[0].StartTime)
	assert.Equal(t, TimeOfDay(600), got[1].StartTime)

	assert.Empty(t, FindOverlaps(existing, iv(660, 720))) // 11:00-12:00 gap
	assert.Empty(t, FindOverlaps(nil, iv(540, 600)))
}
