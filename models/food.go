package models

import "time"

// Meal slots partition a day's food log.
const (
	SlotBreakfast = "Breakfast"
	SlotLunch     = "Lunch"
	SlotDinner    = "Dinner"
)

// MealSlots lists the slots in day order.
var MealSlots = []string{SlotBreakfast, SlotLunch, SlotDinner}

func ValidMealSlot(s string) bool {
	return s == SlotBreakfast || s == SlotLunch || s == SlotDinner
}

// FoodEntry is one logged food item. Entries are immutable once written and
// belong to the day-bucket they were written into, which is keyed by the
// calendar date being logged, not necessarily "today".
type FoodEntry struct {
	FoodName  string    `json:"foodName"`
	Calories  int       `json:"calories"`
	Timestamp time.Time `json:"timestamp"`
	MealSlot  string    `json:"mealSlot"`
}

// DailyTotals is the derived calorie summary for one day.
type DailyTotals struct {
	Eaten       int `json:"eaten"`
	Goal        int `json:"goal"`
	Left        int `json:"left"`
	ProgressPct int `json:"progressPct"`
}
