package storage

import (
	"fmt"
	"time"
)

// Entity kinds used in storage keys.
const (
	KindAccount    = "account"
	KindProfile    = "profile"
	KindDailyFood  = "daily_food"
	KindDailyTotal = "daily_calories_eaten"
	KindWeightLog  = "weight_history"
	KindDailyNotes = "daily_notes"
	KindReminders  = "reminder_settings"
	KindCapability = "capabilities"
	KindDevices    = "devices"

	usersRegistryKey = "users"
	dateLayout       = "2006-01-02"
)

// DateKey formats an instant as its local calendar day. Two instants on the
// same local day always produce the same key.
func DateKey(t time.Time) string {
	return t.Local().Format(dateLayout)
}

// ParseDateKey parses a YYYY-MM-DD day key in local time.
func ParseDateKey(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.Local)
}

// UserKey builds the key for a per-user, non-dated entity,
// e.g. "john_weight_history".
func UserKey(userID, kind string) string {
	return fmt.Sprintf("%s_%s", userID, kind)
}

// DayKey builds the key for a per-user, per-date entity,
// e.g. "john_daily_notes_2025-03-14".
func DayKey(userID, kind string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s", userID, kind, DateKey(date))
}

// MealKey builds the key for one day-bucket,
// e.g. "john_daily_food_2025-03-14_Breakfast".
func MealKey(userID string, date time.Time, slot string) string {
	return fmt.Sprintf("%s_%s_%s_%s", userID, KindDailyFood, DateKey(date), slot)
}

// UsersKey is the registry of known usernames.
func UsersKey() string { return usersRegistryKey }
