package models

// Reminder channels.
const (
	ChannelMeal     = "meal"
	ChannelWater    = "water"
	ChannelProgress = "progress"
	ChannelGoal     = "goal"
)

// Channels lists every reminder channel.
var Channels = []string{ChannelMeal, ChannelWater, ChannelProgress, ChannelGoal}

func ValidChannel(c string) bool {
	switch c {
	case ChannelMeal, ChannelWater, ChannelProgress, ChannelGoal:
		return true
	}
	return false
}

// SlotTime is a wall-clock reminder time for one meal slot.
type SlotTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ReminderSettings is the persisted reminder configuration for one user.
// The meal channel carries three independent slot times; water and progress
// are interval reminders; the goal channel is event-driven and only carries
// the enabled flag.
type ReminderSettings struct {
	MealEnabled     bool `json:"mealEnabled"`
	WaterEnabled    bool `json:"waterEnabled"`
	ProgressEnabled bool `json:"progressEnabled"`
	GoalEnabled     bool `json:"goalEnabled"`

	Breakfast SlotTime `json:"breakfast"`
	Lunch     SlotTime `json:"lunch"`
	Dinner    SlotTime `json:"dinner"`

	WaterIntervalHours int `json:"waterIntervalHours"`
}

// DefaultReminderSettings mirrors the app defaults: everything off,
// breakfast 08:00, lunch 12:30, dinner 19:00, water every 2 hours.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Breakfast:          SlotTime{Hour: 8, Minute: 0},
		Lunch:              SlotTime{Hour: 12, Minute: 30},
		Dinner:             SlotTime{Hour: 19, Minute: 0},
		WaterIntervalHours: 2,
	}
}

// SlotTimeFor returns the configured time for a meal slot.
func (s ReminderSettings) SlotTimeFor(slot string) SlotTime {
	switch slot {
	case SlotLunch:
		return s.Lunch
	case SlotDinner:
		return s.Dinner
	default:
		return s.Breakfast
	}
}

// Enabled reports whether the given channel is switched on.
func (s ReminderSettings) Enabled(channel string) bool {
	switch channel {
	case ChannelMeal:
		return s.MealEnabled
	case ChannelWater:
		return s.WaterEnabled
	case ChannelProgress:
		return s.ProgressEnabled
	case ChannelGoal:
		return s.GoalEnabled
	}
	return false
}

// SetEnabled flips the enabled flag for a channel.
func (s *ReminderSettings) SetEnabled(channel string, on bool) {
	switch channel {
	case ChannelMeal:
		s.MealEnabled = on
	case ChannelWater:
		s.WaterEnabled = on
	case ChannelProgress:
		s.ProgressEnabled = on
	case ChannelGoal:
		s.GoalEnabled = on
	}
}
