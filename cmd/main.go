package main

import (
	"log/slog"
	"os"

	"chowtrack/config"
	"chowtrack/controllers"
	"chowtrack/routes"
	"chowtrack/services"
	"chowtrack/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := config.OpenDB(cfg)
	if err != nil {
		logger.Error("opening database", "err", err)
		os.Exit(1)
	}
	store, err := storage.NewGormStore(db)
	if err != nil {
		logger.Error("migrating database", "err", err)
		os.Exit(1)
	}

	auth := services.NewAuthService(store, logger)
	ledger := services.NewLedgerService(store, logger)
	goals := services.NewGoalService()
	perms := services.NewPermissionService(store, logger)
	hub := services.NewRealtimeHub()

	backends := []services.Notifier{services.NewLogNotifier(logger), hub}
	var push *services.PushNotifier
	if cfg.SNSFCMArn != "" {
		push, err = services.NewPushNotifier(store, cfg.AWSRegion, cfg.SNSFCMArn, logger)
		if err != nil {
			logger.Error("configuring push delivery", "err", err)
			os.Exit(1)
		}
		backends = append(backends, push)
	}
	notifier := services.NewFanoutNotifier(backends...)

	timer := services.NewClockTimer()
	sched := services.NewReminderService(ledger, perms, timer, notifier, logger)
	timer.SetHandler(sched.HandleFire)
	ledger.SetGoalAchievedHook(sched.NotifyGoalAchieved)

	// re-arm persisted reminders after a restart
	if users, err := auth.ListUsers(); err == nil {
		sched.Restore(users)
	} else {
		logger.Warn("listing users for reminder restore", "err", err)
	}

	r := routes.SetupRouter(routes.Controllers{
		Auth:         controllers.NewAuthController(auth),
		User:         controllers.NewUserController(ledger, goals),
		Diary:        controllers.NewDiaryController(ledger),
		Notification: controllers.NewNotificationController(ledger, sched),
		Permission:   controllers.NewPermissionController(perms, sched),
		Device:       controllers.NewDeviceController(push),
		Realtime:     controllers.NewRealtimeController(hub),
	})

	logger.Info("listening", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
