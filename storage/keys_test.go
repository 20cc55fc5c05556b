package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKeySameLocalDay(t *testing.T) {
	morning := time.Date(2025, 3, 14, 0, 1, 0, 0, time.Local)
	night := time.Date(2025, 3, 14, 23, 59, 0, 0, time.Local)
	assert.Equal(t, DateKey(morning), DateKey(night))
	assert.Equal(t, "2025-03-14", DateKey(morning))
}

func TestParseDateKeyRoundTrip(t *testing.T) {
	d, err := ParseDateKey("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", DateKey(d))

	_, err = ParseDateKey("14/03/2025")
	assert.Error(t, err)
}

func TestKeyShapes(t *testing.T) {
	date := time.Date(2025, 3, 14, 18, 30, 0, 0, time.Local)

	assert.Equal(t, "john_weight_history", UserKey("john", KindWeightLog))
	assert.Equal(t, "john_daily_calories_eaten_2025-03-14", DayKey("john", KindDailyTotal, date))
	assert.Equal(t, "john_daily_food_2025-03-14_Breakfast", MealKey("john", date, "Breakfast"))
	assert.Equal(t, "users", UsersKey())
}

func TestKeysDisjointAcrossUsers(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)
	assert.NotEqual(t, MealKey("john", date, "Lunch"), MealKey("jane", date, "Lunch"))
	assert.NotEqual(t, MealKey("john", date, "Lunch"), MealKey("john", date, "Dinner"))
}
