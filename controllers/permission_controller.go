package controllers

import (
	"net/http"

	"chowtrack/models"
	"chowtrack/services"

	"github.com/gin-gonic/gin"
)

type PermissionController struct {
	Perms *services.PermissionService
	Sched *services.ReminderService
}

func NewPermissionController(perms *services.PermissionService, sched *services.ReminderService) *PermissionController {
	return &PermissionController{Perms: perms, Sched: sched}
}

// GET /permissions
func (pc *PermissionController) Get(c *gin.Context) {
	userID := c.GetString("userID")
	state := pc.Perms.State(userID)

	caps := gin.H{}
	for _, kind := range []string{models.CapabilityPostNotifications, models.CapabilityExactTimers} {
		entry := gin.H{
			"held":        pc.Perms.Check(userID, kind),
			"canAskAgain": pc.Perms.CanAskAgain(userID, kind),
		}
		if !pc.Perms.Check(userID, kind) && !pc.Perms.CanAskAgain(userID, kind) {
			entry["settingsHint"] = pc.Perms.SettingsHint(kind)
		}
		caps[kind] = entry
	}
	c.JSON(http.StatusOK, gin.H{"platformVersion": state.PlatformVersion, "capabilities": caps})
}

type OutcomeInput struct {
	Kind            string `json:"kind" binding:"required"`
	Outcome         string `json:"outcome" binding:"required"`
	PlatformVersion int    `json:"platformVersion"`
}

// POST /permissions. Records the host's answer to a permission request and
// re-evaluates any reminder channel that was waiting on it.
func (pc *PermissionController) Report(c *gin.Context) {
	userID := c.GetString("userID")
	var input OutcomeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := pc.Perms.RecordOutcome(userID, input.PlatformVersion, input.Kind, input.Outcome); err != nil {
		respondErr(c, err)
		return
	}
	pc.Sched.OnPermissionResult(userID, input.Kind, input.Outcome)

	states := gin.H{}
	for _, channel := range models.Channels {
		states[channel] = pc.Sched.ChannelState(userID, channel)
	}
	c.JSON(http.StatusOK, gin.H{"states": states})
}
