package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlotTimes(t *testing.T) {
	t.Run("full working day without breaks", func(t *testing.T) {
		slots := GenerateSlotTimes(540, 1020, 30, 0) // 09:00-17:00
		require.Len(t, slots, 16)
		assert.Equal(t, iv(540, 570), slots[0])
		assert.Equal(t, iv(990, 1020), slots[15])
	})

	t.Run("breaks between slots", func(t *testing.T) {
		slots := GenerateSlotTimes(540, 660, 30, 15) // 09:00-11:00, 30min slots, 15min breaks
		require.Len(t, slots, 3)
		assert.Equal(t, iv(540, 570), slots[0])
		assert.Equal(t, iv(585, 615), slots[1])
		assert.Equal(t, iv(630, 660), slots[2])
	})

	t.Run("trailing partial slot is discarded", func(t *testing.T) {
		slots := GenerateSlotTimes(540, 585, 30, 0) // 45 minutes of space
		require.Len(t, slots, 1)
		assert.Equal(t, iv(540, 570), slots[0])
	})

	t.Run("slot longer than window yields nothing", func(t *testing.T) {
		assert.Empty(t, GenerateSlotTimes(540, 560, 30, 0))
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Empty(t, GenerateSlotTimes(540, 540, 30, 0))
		assert.Empty(t, GenerateSlotTimes(600, 540, 30, 0))
		assert.Empty(t, GenerateSlotTimes(540, 600, 0, 0))
	})

	t.Run("slots never overlap", func(t *testing.T) {
		slots := GenerateSlotTimes(480, 1050, 45, 10)
		for i := 1; i < len(slots); i++ {
			assert.False(t, Overlaps(slots[i-1], slots[i]),
				"slot %d overlaps slot %d", i-1, i)
			assert.GreaterOrEqual(t, int(slots[i].Start), int(slots[i-1].End))
		}
	})
}

func TestBuildSlots(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	w := &AvailabilityWindow{
		ID:              uuid.New(),
		ProviderID:      uuid.New(),
		Date:            time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		StartTime:       540,
		EndTime:         660,
		SlotDuration:    30,
		BreakDuration:   0,
		AppointmentType: TypeConsultation,
	}

	slots := BuildSlots(w, ny)
	require.Len(t, slots, 4)

	first := slots[0]
	assert.Equal(t, w.ID, first.AvailabilityID)
	assert.Equal(t, w.ProviderID, first.ProviderID)
	assert.Equal(t, SlotAvailable, first.Status)
	assert.Equal(t, TypeConsultation, first.AppointmentType)
	assert.Equal(t, "2024-02-15T09:00:00-05:00", first.SlotStart.Format(time.RFC3339))
	assert.Equal(t, "2024-02-15T09:30:00-05:00", first.SlotEnd.Format(time.RFC3339))
	assert.Equal(t, "2024-02-15T11:00:00-05:00", slots[3].SlotEnd.Format(time.RFC3339))

	// every generated slot gets its own id
	seen := map[uuid.UUID]bool{}
	for _, s := range slots {
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}
