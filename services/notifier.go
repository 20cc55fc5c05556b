package services

import "log/slog"

// Notifier delivers a reminder to the user. Implementations must be safe to
// call from timer callbacks and must not block on long I/O.
type Notifier interface {
	PostReminder(userID, channel, title, body string)
}

// FanoutNotifier delivers through every backend; one failing backend never
// stops the others.
type FanoutNotifier struct {
	backends []Notifier
}

func NewFanoutNotifier(backends ...Notifier) *FanoutNotifier {
	return &FanoutNotifier{backends: backends}
}

func (f *FanoutNotifier) PostReminder(userID, channel, title, body string) {
	for _, n := range f.backends {
		n.PostReminder(userID, channel, title, body)
	}
}

// LogNotifier writes reminders to the log, used when no push backend is
// configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PostReminder(userID, channel, title, body string) {
	n.log.Info("reminder", "user", userID, "channel", channel, "title", title, "body", body)
}
