package services

import (
	"fmt"
	"math"
	"strings"

	"chowtrack/models"
)

// One kilogram of body weight is roughly 7700 kcal. A constant of the
// domain, not a tunable.
const kcalPerKg = 7700.0

// Weight deltas at or below this are treated as maintenance.
const maintenanceToleranceKg = 0.1

// GoalInput is everything the calorie target depends on. Exactly one of
// the weekly rate and the timeframe is required when the goal differs from
// the current weight; when both are given the weekly rate wins.
type GoalInput struct {
	WeightKg      float64
	HeightCm      float64
	Age           int
	Sex           string
	ActivityLevel string

	WeightGoalKg   float64
	WeeklyRateKg   float64
	HasWeeklyRate  bool
	TimeframeWeeks int
}

// GoalResult carries the computed target together with the safety verdict.
// A dangerous target is never auto-corrected; the caller decides whether to
// confirm or adjust.
type GoalResult struct {
	BMR       float64 `json:"bmr"`
	TDEE      float64 `json:"tdee"`
	Target    int     `json:"target"`
	Dangerous bool    `json:"dangerous"`
	Advisory  string  `json:"advisory,omitempty"`
}

// GoalService computes daily calorie targets. Stateless.
type GoalService struct{}

func NewGoalService() *GoalService { return &GoalService{} }

// ComputeBMR implements Mifflin-St Jeor. Any sex other than male gets the
// female constant, matching the two-option profile form.
func (g *GoalService) ComputeBMR(weightKg, heightCm float64, age int, sex string) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == models.SexMale {
		return bmr + 5
	}
	return bmr - 161
}

// ActivityFactor maps an activity level to its TDEE multiplier. Unrecognized
// input falls back to sedentary rather than erroring.
func (g *GoalService) ActivityFactor(level string) float64 {
	switch {
	case strings.HasPrefix(level, models.ActivitySedentary):
		return 1.2
	case strings.HasPrefix(level, models.ActivityLight):
		return 1.375
	case strings.HasPrefix(level, models.ActivityModerate):
		return 1.55
	case strings.HasPrefix(level, models.ActivityVery):
		return 1.725
	case strings.HasPrefix(level, models.ActivityExtra):
		return 1.9
	default:
		return 1.2
	}
}

// ComputeTDEE is BMR scaled by the activity factor.
func (g *GoalService) ComputeTDEE(weightKg, heightCm float64, age int, sex, level string) float64 {
	return g.ComputeBMR(weightKg, heightCm, age, sex) * g.ActivityFactor(level)
}

// ComputeTarget resolves the daily calorie target:
//
//  1. goal within 0.1 kg of current weight: maintenance (TDEE), no matter
//     what rate or timeframe was supplied;
//  2. an explicit weekly rate: TDEE + rate*7700/7;
//  3. a positive timeframe: TDEE + delta*7700/(weeks*7);
//  4. neither: validation error.
//
// A weekly rate pointing against the goal direction is a validation error,
// never silently resolved.
func (g *GoalService) ComputeTarget(in GoalInput) (GoalResult, error) {
	if in.WeightKg <= 0 || in.HeightCm <= 0 || in.Age <= 0 || in.WeightGoalKg <= 0 {
		return GoalResult{}, validationErrorf("weight, height, age and weight goal must be positive")
	}

	bmr := g.ComputeBMR(in.WeightKg, in.HeightCm, in.Age, in.Sex)
	tdee := bmr * g.ActivityFactor(in.ActivityLevel)
	delta := in.WeightGoalKg - in.WeightKg

	target := tdee
	advisory := ""

	switch {
	case math.Abs(delta) <= maintenanceToleranceKg:
		// maintenance; rate and timeframe are ignored

	case in.HasWeeklyRate:
		if delta > maintenanceToleranceKg && in.WeeklyRateKg < -maintenanceToleranceKg {
			return GoalResult{}, validationErrorf("goal is to gain weight but a loss rate was selected")
		}
		if delta < -maintenanceToleranceKg && in.WeeklyRateKg > maintenanceToleranceKg {
			return GoalResult{}, validationErrorf("goal is to lose weight but a gain rate was selected")
		}
		target = tdee + in.WeeklyRateKg*kcalPerKg/7

	case in.TimeframeWeeks > 0:
		days := float64(in.TimeframeWeeks * 7)
		adjustment := delta * kcalPerKg / days
		target = tdee + adjustment
		if implied := adjustment * 7 / kcalPerKg; math.Abs(implied) > 1.1 {
			advisory = fmt.Sprintf(
				"timeframe implies a rapid change of %.2f kg/week; 0.5-1 kg/week is more sustainable",
				math.Abs(implied))
		}

	default:
		return GoalResult{}, validationErrorf("a weekly rate or a timeframe is required to reach the weight goal")
	}

	result := GoalResult{
		BMR:      bmr,
		TDEE:     tdee,
		Target:   int(target),
		Advisory: advisory,
	}
	result.Dangerous = g.isDangerous(result.Target, tdee, in.Sex)
	return result, nil
}

// isDangerous flags targets below the per-sex minimum or implying a deficit
// steeper than 1 kg/week.
func (g *GoalService) isDangerous(target int, tdee float64, sex string) bool {
	minSafe := 1200
	if sex == models.SexMale {
		minSafe = 1500
	}
	return target < minSafe || float64(target)-tdee < -1100
}
