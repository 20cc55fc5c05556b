package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chowtrack/models"
	"chowtrack/services"
	"chowtrack/storage"

	"github.com/gin-gonic/gin"
)

type DiaryController struct {
	Ledger *services.LedgerService
}

func NewDiaryController(ledger *services.LedgerService) *DiaryController {
	return &DiaryController{Ledger: ledger}
}

// withWarning attaches a corrupt-data warning to an otherwise successful
// payload. History that cannot be decoded is reported, not fatal.
func withWarning(payload gin.H, err error) gin.H {
	var warn *services.CorruptDataWarning
	if errors.As(err, &warn) {
		payload["warning"] = warn.Error()
	}
	return payload
}

type FoodInput struct {
	Slot     string `json:"slot" binding:"required"`
	FoodName string `json:"foodName" binding:"required"`
	Calories int    `json:"calories"`
}

// POST /diary/food?date=YYYY-MM-DD
func (dc *DiaryController) AddFood(c *gin.Context) {
	userID := c.GetString("userID")
	date, ok := queryDate(c)
	if !ok {
		return
	}

	var input FoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := dc.Ledger.AppendFood(userID, date, input.Slot, models.FoodEntry{
		FoodName: input.FoodName,
		Calories: input.Calories,
	})
	var warn *services.CorruptDataWarning
	if err != nil && !errors.As(err, &warn) {
		respondErr(c, err)
		return
	}

	totals, _ := dc.Ledger.DailyTotals(userID, date)
	c.JSON(http.StatusCreated, withWarning(gin.H{"totals": totals}, err))
}

// GET /diary/food?date=YYYY-MM-DD&slot=Breakfast
func (dc *DiaryController) GetFood(c *gin.Context) {
	userID := c.GetString("userID")
	date, ok := queryDate(c)
	if !ok {
		return
	}

	slot := c.Query("slot")
	if slot != "" {
		entries, err := dc.Ledger.FoodBucket(userID, date, slot)
		var warn *services.CorruptDataWarning
		if err != nil && !errors.As(err, &warn) {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, withWarning(gin.H{"entries": entries}, err))
		return
	}

	buckets := gin.H{}
	var firstWarn error
	for _, s := range models.MealSlots {
		entries, err := dc.Ledger.FoodBucket(userID, date, s)
		if err != nil && firstWarn == nil {
			firstWarn = err
		}
		buckets[s] = entries
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"buckets": buckets}, firstWarn))
}

// GET /diary/totals?date=YYYY-MM-DD
func (dc *DiaryController) GetTotals(c *gin.Context) {
	userID := c.GetString("userID")
	date, ok := queryDate(c)
	if !ok {
		return
	}

	totals, err := dc.Ledger.DailyTotals(userID, date)
	c.JSON(http.StatusOK, withWarning(gin.H{"totals": totals}, err))
}

// GET /diary/average?days=7
func (dc *DiaryController) GetAverage(c *gin.Context) {
	userID := c.GetString("userID")
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = n
	}

	avg, err := dc.Ledger.RollingAverage(userID, days, time.Now())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "average": avg})
}

type WeightInput struct {
	WeightKg float64 `json:"weightKg" binding:"required"`
	Date     string  `json:"date"`
}

// POST /diary/weight
func (dc *DiaryController) LogWeight(c *gin.Context) {
	userID := c.GetString("userID")
	var input WeightInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date := time.Now()
	if input.Date != "" {
		d, err := storage.ParseDateKey(input.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	err := dc.Ledger.LogWeight(userID, date, input.WeightKg)
	var warn *services.CorruptDataWarning
	if err != nil && !errors.As(err, &warn) {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, withWarning(gin.H{"message": "weight logged"}, err))
}

// GET /diary/weight
func (dc *DiaryController) WeightHistory(c *gin.Context) {
	userID := c.GetString("userID")
	history, err := dc.Ledger.WeightHistory(userID)
	var warn *services.CorruptDataWarning
	if err != nil && !errors.As(err, &warn) {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"history": history}, err))
}

type NoteInput struct {
	Text string `json:"text"`
}

// PUT /diary/note?date=YYYY-MM-DD
func (dc *DiaryController) SetNote(c *gin.Context) {
	userID := c.GetString("userID")
	date, ok := queryDate(c)
	if !ok {
		return
	}

	var input NoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := dc.Ledger.SetNote(userID, date, input.Text); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note saved"})
}

// GET /diary/note?date=YYYY-MM-DD
func (dc *DiaryController) GetNote(c *gin.Context) {
	userID := c.GetString("userID")
	date, ok := queryDate(c)
	if !ok {
		return
	}

	text, err := dc.Ledger.GetNote(userID, date)
	var warn *services.CorruptDataWarning
	if err != nil && !errors.As(err, &warn) {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"text": text}, err))
}
