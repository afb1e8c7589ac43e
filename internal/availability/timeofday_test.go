package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"17:30", 1050, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:00am", 0, true},
		{"", 0, true},
		{"09:60", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05", TimeOfDay(545).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "23:59", TimeOfDay(1439).String())
}

func TestAddMinutesWraps(t *testing.T) {
	tests := []struct {
		name    string
		start   TimeOfDay
		minutes int
		want    TimeOfDay
	}{
		{"simple", 540, 30, 570},
		{"wrap past midnight", 1430, 30, 20},
		{"full day is identity", 540, 1440, 540},
		{"negative wraps backward", 10, -30, 1420},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.start.AddMinutes(tt.minutes))
		})
	}
}

func TestSubtractMinutes(t *testing.T) {
	assert.Equal(t, TimeOfDay(510), TimeOfDay(540).SubtractMinutes(30))
	assert.Equal(t, TimeOfDay(1410), TimeOfDay(0).SubtractMinutes(30))
}

func TestMinutesBetween(t *testing.T) {
	assert.Equal(t, 480, MinutesBetween(540, 1020))
	assert.Equal(t, 0, MinutesBetween(540, 540))
	// end before start means the range crosses midnight
	assert.Equal(t, 120, MinutesBetween(1380, 60))
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   TimeOfDay
		end     TimeOfDay
		wantErr error
	}{
		{"valid working day", 540, 1020, nil},
		{"end equals start", 540, 540, ErrInvalidRange},
		{"end before start", 1020, 540, ErrInvalidRange},
		{"too short", 540, 550, ErrRangeTooShort},
		{"too long", 0, 1439, ErrRangeTooLong},
		{"exactly max", 540, 540 + 12*60, nil},
		{"exactly min", 540, 555, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end, 15, 12)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCombineLocal(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	date := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	got := CombineLocal(date, 540, ny)
	assert.Equal(t, "2024-02-15T09:00:00-05:00", got.Format(time.RFC3339))

	// DST transition day: 09:00 local resolves to the EDT offset.
	springForward := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	got = CombineLocal(springForward, 540, ny)
	assert.Equal(t, "2024-03-10T09:00:00-04:00", got.Format(time.RFC3339))
}

func TestParseDateAndDateOnly(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)

	ny, _ := time.LoadLocation("America/New_York")
	instant := time.Date(2024, 2, 15, 22, 45, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), DateOnly(instant))
}
