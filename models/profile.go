package models

// Sex values accepted in a profile.
const (
	SexMale   = "Male"
	SexFemale = "Female"
)

// Activity levels, matching the onboarding options.
const (
	ActivitySedentary = "Sedentary"
	ActivityLight     = "Lightly active"
	ActivityModerate  = "Moderately active"
	ActivityVery      = "Very active"
	ActivityExtra     = "Extra active"
)

// Profile holds a user's body stats and the calorie target derived from
// them. CalorieGoal is written by the goal calculator and treated as opaque
// everywhere else. StartingWeightKg is set once on first save and never
// overwritten afterwards.
type Profile struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"heightCm"`
	WeightKg      float64 `json:"weightKg"`
	WeightGoalKg  float64 `json:"weightGoalKg"`
	Sex           string  `json:"sex"`
	ActivityLevel string  `json:"activityLevel"`

	CalorieGoal      int     `json:"calorieGoal"`
	StartingWeightKg float64 `json:"startingWeightKg,omitempty"`

	// How the current CalorieGoal was derived, kept so the form can be
	// re-populated on edit.
	TimeframeWeeks int     `json:"timeframeWeeks,omitempty"`
	WeeklyRateKg   float64 `json:"weeklyRateKg,omitempty"`
	HasWeeklyRate  bool    `json:"hasWeeklyRate,omitempty"`
}
