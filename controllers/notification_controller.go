package controllers

import (
	"net/http"

	"chowtrack/models"
	"chowtrack/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Ledger *services.LedgerService
	Sched  *services.ReminderService
}

func NewNotificationController(ledger *services.LedgerService, sched *services.ReminderService) *NotificationController {
	return &NotificationController{Ledger: ledger, Sched: sched}
}

// GET /reminders
func (nc *NotificationController) GetSettings(c *gin.Context) {
	userID := c.GetString("userID")
	settings, _ := nc.Ledger.ReminderSettings(userID)

	states := gin.H{}
	for _, channel := range models.Channels {
		states[channel] = nc.Sched.ChannelState(userID, channel)
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "states": states})
}

type ChannelInput struct {
	Channel string `json:"channel" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// PUT /reminders/channel
func (nc *NotificationController) SetChannel(c *gin.Context) {
	userID := c.GetString("userID")
	var input ChannelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := nc.Sched.SetChannelEnabled(userID, input.Channel, *input.Enabled)
	if err != nil {
		// pending channels report 202: the flag is on, arming waits on the
		// notification permission
		if state == services.StatePendingPermission {
			c.JSON(http.StatusAccepted, gin.H{
				"state":      state,
				"capability": models.CapabilityPostNotifications,
				"message":    "reminder saved; grant the notification permission to arm it",
			})
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

type MealTimeInput struct {
	Slot   string `json:"slot" binding:"required"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// PUT /reminders/meal-time
func (nc *NotificationController) SetMealTime(c *gin.Context) {
	userID := c.GetString("userID")
	var input MealTimeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := nc.Sched.EditMealTime(userID, input.Slot, models.SlotTime{Hour: input.Hour, Minute: input.Minute})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meal time updated"})
}
