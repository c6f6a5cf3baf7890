package rotation

import (
	"testing"

	"market-rotator/src/models"

	"github.com/stretchr/testify/assert"
)

func TestActiveDayPartSimpleWindow(t *testing.T) {
	parts := []models.MDayPartConfig{
		{Name: "morning", StartHour: 6, EndHour: 12},
		{Name: "afternoon", StartHour: 12, EndHour: 18},
	}

	part, ok := activeDayPart(parts, 6)
	assert.True(t, ok)
	assert.Equal(t, "morning", part.Name)

	// End hour is exclusive
	part, ok = activeDayPart(parts, 12)
	assert.True(t, ok)
	assert.Equal(t, "afternoon", part.Name)

	_, ok = activeDayPart(parts, 20)
	assert.False(t, ok)
}

func TestActiveDayPartOvernightWrap(t *testing.T) {
	parts := []models.MDayPartConfig{
		{Name: "overnight", StartHour: 22, EndHour: 6},
	}

	for _, hour := range []int{22, 23, 0, 3, 5} {
		part, ok := activeDayPart(parts, hour)
		assert.True(t, ok, "hour %d should be inside the overnight window", hour)
		assert.Equal(t, "overnight", part.Name)
	}
	for _, hour := range []int{6, 12, 21} {
		_, ok := activeDayPart(parts, hour)
		assert.False(t, ok, "hour %d should be outside the overnight window", hour)
	}
}

func TestActiveDayPartDegenerateWindow(t *testing.T) {
	parts := []models.MDayPartConfig{
		{Name: "empty", StartHour: 9, EndHour: 9},
	}
	_, ok := activeDayPart(parts, 9)
	assert.False(t, ok)
}
