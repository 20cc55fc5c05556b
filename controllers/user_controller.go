package controllers

import (
	"net/http"

	"chowtrack/models"
	"chowtrack/services"
	"chowtrack/utils"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	Ledger *services.LedgerService
	Goals  *services.GoalService
}

func NewUserController(ledger *services.LedgerService, goals *services.GoalService) *UserController {
	return &UserController{Ledger: ledger, Goals: goals}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")
	profile, ok, err := uc.Ledger.Profile(userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"profile": profile, "warning": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not set"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type ProfileInput struct {
	Name          string  `json:"name"`
	Age           int     `json:"age" binding:"required"`
	HeightCm      float64 `json:"heightCm" binding:"required"`
	WeightKg      float64 `json:"weightKg" binding:"required"`
	WeightGoalKg  float64 `json:"weightGoalKg" binding:"required"`
	Sex           string  `json:"sex" binding:"required"`
	ActivityLevel string  `json:"activityLevel" binding:"required"`

	TimeframeWeeks int     `json:"timeframeWeeks"`
	WeeklyRateKg   float64 `json:"weeklyRateKg"`
	HasWeeklyRate  bool    `json:"hasWeeklyRate"`

	// A target flagged dangerous is only accepted when the client sets this.
	Confirm bool `json:"confirm"`
}

// UpdateProfile recomputes the calorie target from the submitted stats and
// persists the profile. A dangerous target is returned for confirmation
// instead of saved, unless the request carries confirm=true.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")
	var input ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := uc.Goals.ComputeTarget(services.GoalInput{
		WeightKg:       input.WeightKg,
		HeightCm:       input.HeightCm,
		Age:            input.Age,
		Sex:            input.Sex,
		ActivityLevel:  input.ActivityLevel,
		WeightGoalKg:   input.WeightGoalKg,
		WeeklyRateKg:   input.WeeklyRateKg,
		HasWeeklyRate:  input.HasWeeklyRate,
		TimeframeWeeks: input.TimeframeWeeks,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	if result.Dangerous && !input.Confirm {
		c.JSON(http.StatusConflict, gin.H{
			"goal":            result,
			"confirmRequired": true,
			"message":         "the computed target is below a safe intake; resubmit with confirm=true to accept it",
		})
		return
	}

	profile := models.Profile{
		Name:           input.Name,
		Age:            input.Age,
		HeightCm:       input.HeightCm,
		WeightKg:       input.WeightKg,
		WeightGoalKg:   input.WeightGoalKg,
		Sex:            input.Sex,
		ActivityLevel:  input.ActivityLevel,
		CalorieGoal:    result.Target,
		TimeframeWeeks: input.TimeframeWeeks,
		WeeklyRateKg:   input.WeeklyRateKg,
		HasWeeklyRate:  input.HasWeeklyRate,
	}
	if err := uc.Ledger.SaveProfile(userID, profile); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": result, "message": "profile updated successfully"})
}

// GetBMI derives BMI from the stored profile.
func (uc *UserController) GetBMI(c *gin.Context) {
	userID := c.GetString("userID")
	profile, ok, err := uc.Ledger.Profile(userID)
	if err != nil || !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not set"})
		return
	}

	bmi, err := utils.CalculateBMI(profile.HeightCm, profile.WeightKg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bmi": bmi, "category": utils.BMICategory(bmi)})
}
