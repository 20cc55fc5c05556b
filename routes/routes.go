package routes

import (
	"chowtrack/controllers"
	"chowtrack/middlewares"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Diary        *controllers.DiaryController
	Notification *controllers.NotificationController
	Permission   *controllers.PermissionController
	Device       *controllers.DeviceController
	Realtime     *controllers.RealtimeController
}

func SetupRouter(ctrl Controllers) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
	}

	// Protected user routes
	user := r.Group("/user")
	user.Use(middlewares.AuthMiddleware())
	{
		user.GET("/profile", ctrl.User.GetProfile)
		user.PUT("/profile", ctrl.User.UpdateProfile)
		user.GET("/bmi", ctrl.User.GetBMI)
	}

	diary := r.Group("/diary")
	diary.Use(middlewares.AuthMiddleware())
	{
		diary.POST("/food", ctrl.Diary.AddFood)
		diary.GET("/food", ctrl.Diary.GetFood)
		diary.GET("/totals", ctrl.Diary.GetTotals)
		diary.GET("/average", ctrl.Diary.GetAverage)
		diary.POST("/weight", ctrl.Diary.LogWeight)
		diary.GET("/weight", ctrl.Diary.WeightHistory)
		diary.PUT("/note", ctrl.Diary.SetNote)
		diary.GET("/note", ctrl.Diary.GetNote)
	}

	reminders := r.Group("/reminders")
	reminders.Use(middlewares.AuthMiddleware())
	{
		reminders.GET("", ctrl.Notification.GetSettings)
		reminders.PUT("/channel", ctrl.Notification.SetChannel)
		reminders.PUT("/meal-time", ctrl.Notification.SetMealTime)
	}

	perms := r.Group("/permissions")
	perms.Use(middlewares.AuthMiddleware())
	{
		perms.GET("", ctrl.Permission.Get)
		perms.POST("", ctrl.Permission.Report)
	}

	devices := r.Group("/devices")
	devices.Use(middlewares.AuthMiddleware())
	{
		devices.POST("/register", ctrl.Device.Register)
	}

	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("/reminders", ctrl.Realtime.RemindersWS)
	}

	return r
}
