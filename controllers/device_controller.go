package controllers

import (
	"net/http"

	"chowtrack/services"

	"github.com/gin-gonic/gin"
)

type DeviceController struct {
	Push *services.PushNotifier
}

func NewDeviceController(push *services.PushNotifier) *DeviceController {
	return &DeviceController{Push: push}
}

type RegisterDeviceInput struct {
	Platform string `json:"platform" binding:"required"` // "android" | "ios"
	Token    string `json:"token" binding:"required"`
}

func (dc *DeviceController) Register(c *gin.Context) {
	userID := c.GetString("userID")

	if dc.Push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push delivery is not configured"})
		return
	}

	var input RegisterDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dev, err := dc.Push.RegisterDevice(userID, input.Platform, input.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint_arn": dev.EndpointARN})
}
