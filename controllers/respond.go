package controllers

import (
	"errors"
	"net/http"
	"time"

	"chowtrack/services"
	"chowtrack/storage"

	"github.com/gin-gonic/gin"
)

// respondErr maps service errors onto HTTP statuses. Corrupt-data warnings
// never reach here; handlers surface them next to their payload.
func respondErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
		return
	}
	var cd *services.CapabilityDenied
	if errors.As(err, &cd) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      cd.Error(),
			"capability": cd.Capability,
			"retryable":  cd.Retryable,
		})
		return
	}
	var sf *services.SchedulingFailure
	if errors.As(err, &sf) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": sf.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// queryDate reads the "date" query param, defaulting to today.
func queryDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), true
	}
	d, err := storage.ParseDateKey(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}
