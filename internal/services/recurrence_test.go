package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"todo-chatbot/backend/internal/models"
)

func TestNextOccurrenceDaily(t *testing.T) {
	base := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	next, ok := NextOccurrence(base, models.FrequencyDaily)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC), next)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	base := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	next, ok := NextOccurrence(base, models.FrequencyWeekly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 22, 9, 30, 0, 0, time.UTC), next)
}

func TestNextOccurrenceMonthly(t *testing.T) {
	base := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	next, ok := NextOccurrence(base, models.FrequencyMonthly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC), next)
}

// 1/31の1ヶ月後は2/28(うるう年なら2/29)に丸められること。
func TestNextOccurrenceMonthlyClampsToMonthEnd(t *testing.T) {
	jan31 := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	next, ok := NextOccurrence(jan31, models.FrequencyMonthly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC), next)

	leapJan31 := time.Date(2028, 1, 31, 8, 0, 0, 0, time.UTC)
	next, ok = NextOccurrence(leapJan31, models.FrequencyMonthly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2028, 2, 29, 8, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceMonthlyMay31(t *testing.T) {
	may31 := time.Date(2026, 5, 31, 18, 0, 0, 0, time.UTC)
	next, ok := NextOccurrence(may31, models.FrequencyMonthly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 30, 18, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceOnce(t *testing.T) {
	base := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	_, ok := NextOccurrence(base, models.FrequencyOnce)
	assert.False(t, ok)

	_, ok = NextOccurrence(base, "")
	assert.False(t, ok)
}
