package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chowtrack/models"
)

// Channel states as reported to clients.
const (
	StateDisabled          = "disabled"
	StatePendingPermission = "pending_permission"
	StateArmed             = "armed"
)

// Quiet hours for the water channel: fires outside [08:00, 22:00) are
// swallowed, the repeating timer keeps running.
const (
	quietHourStart = 8
	quietHourEnd   = 22
)

const progressHour = 9 // Sunday 09:00

// ReminderService arms and re-arms reminder timers per user and channel,
// gated on the capabilities the host has granted. All transitions run
// synchronously under one lock; the only asynchronous entry point is
// HandleFire, invoked by the timer.
type ReminderService struct {
	ledger   *LedgerService
	perms    *PermissionService
	timer    Timer
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]string // userID+"/"+channel
}

func NewReminderService(ledger *LedgerService, perms *PermissionService, timer Timer, notifier Notifier, log *slog.Logger) *ReminderService {
	return &ReminderService{
		ledger:   ledger,
		perms:    perms,
		timer:    timer,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		states:   make(map[string]string),
	}
}

// SetClock overrides the wall clock. Tests only.
func (s *ReminderService) SetClock(now func() time.Time) { s.now = now }

func stateKey(userID, channel string) string { return userID + "/" + channel }

func mealTimerID(userID, slot string) string { return fmt.Sprintf("%s_meal_%s", userID, slot) }
func waterTimerID(userID string) string      { return userID + "_water" }
func progressTimerID(userID string) string   { return userID + "_progress" }

// ChannelState returns the current state of one channel, StateDisabled if
// it was never touched.
func (s *ReminderService) ChannelState(userID, channel string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[stateKey(userID, channel)]; ok {
		return st
	}
	return StateDisabled
}

func (s *ReminderService) setState(userID, channel, state string) {
	s.states[stateKey(userID, channel)] = state
}

// SetChannelEnabled flips a reminder channel on or off. Enabling persists the
// flag first, then walks the permission gate: missing notification permission
// that can still be requested parks the channel in StatePendingPermission;
// a permanent denial, or a missing exact-timer capability on the meal
// channel, reverts the flag and reports which capability blocked it.
func (s *ReminderService) SetChannelEnabled(userID, channel string, on bool) (string, error) {
	if !models.ValidChannel(channel) {
		return StateDisabled, validationErrorf("unknown reminder channel %q", channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, _ := s.ledger.ReminderSettings(userID)
	settings.SetEnabled(channel, on)
	if err := s.ledger.SaveReminderSettings(userID, settings); err != nil {
		return s.stateLocked(userID, channel), err
	}

	if !on {
		s.cancelChannel(userID, channel)
		s.setState(userID, channel, StateDisabled)
		return StateDisabled, nil
	}

	if !s.perms.Check(userID, models.CapabilityPostNotifications) {
		if s.perms.CanAskAgain(userID, models.CapabilityPostNotifications) {
			s.setState(userID, channel, StatePendingPermission)
			return StatePendingPermission, &CapabilityDenied{
				Capability: models.CapabilityPostNotifications,
				Retryable:  true,
			}
		}
		s.revertEnabled(userID, channel, settings)
		s.setState(userID, channel, StateDisabled)
		return StateDisabled, &CapabilityDenied{
			Capability: models.CapabilityPostNotifications,
			Retryable:  false,
		}
	}

	return s.armLocked(userID, channel, settings)
}

// revertEnabled flips the persisted flag back off after a hard denial, so a
// restart never resurrects a channel the host refused.
func (s *ReminderService) revertEnabled(userID, channel string, settings models.ReminderSettings) {
	settings.SetEnabled(channel, false)
	if err := s.ledger.SaveReminderSettings(userID, settings); err != nil {
		s.log.Error("reverting reminder flag", "user", userID, "channel", channel, "err", err)
	}
}

func (s *ReminderService) stateLocked(userID, channel string) string {
	if st, ok := s.states[stateKey(userID, channel)]; ok {
		return st
	}
	return StateDisabled
}

// armLocked registers the channel's timers. The meal channel additionally
// requires the exact-timer capability; without it the channel is reverted
// rather than silently degraded to drifting fire times.
func (s *ReminderService) armLocked(userID, channel string, settings models.ReminderSettings) (string, error) {
	switch channel {
	case models.ChannelMeal:
		if !s.perms.Check(userID, models.CapabilityExactTimers) {
			s.revertEnabled(userID, channel, settings)
			s.setState(userID, channel, StateDisabled)
			return StateDisabled, &CapabilityDenied{Capability: models.CapabilityExactTimers}
		}
		for _, slot := range models.MealSlots {
			if err := s.armMealSlot(userID, slot, settings.SlotTimeFor(slot)); err != nil {
				s.cancelChannel(userID, channel)
				s.revertEnabled(userID, channel, settings)
				s.setState(userID, channel, StateDisabled)
				return StateDisabled, &SchedulingFailure{Channel: channel, Err: err}
			}
		}
	case models.ChannelWater:
		if err := s.armWater(userID, settings); err != nil {
			s.revertEnabled(userID, channel, settings)
			s.setState(userID, channel, StateDisabled)
			return StateDisabled, &SchedulingFailure{Channel: channel, Err: err}
		}
	case models.ChannelProgress:
		if err := s.armProgress(userID); err != nil {
			s.revertEnabled(userID, channel, settings)
			s.setState(userID, channel, StateDisabled)
			return StateDisabled, &SchedulingFailure{Channel: channel, Err: err}
		}
	case models.ChannelGoal:
		// event-driven, no timer to register
	}
	s.setState(userID, channel, StateArmed)
	return StateArmed, nil
}

// armMealSlot schedules a one-shot at the next occurrence of the slot time,
// today if still ahead, otherwise tomorrow.
func (s *ReminderService) armMealSlot(userID, slot string, at models.SlotTime) error {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return s.timer.ScheduleOnce(mealTimerID(userID, slot), next, TimerPayload{
		UserID:  userID,
		Channel: models.ChannelMeal,
		Slot:    slot,
	})
}

// armWater schedules the repeating water reminder anchored at the next full
// hour. Quiet hours are enforced at fire time, not here.
func (s *ReminderService) armWater(userID string, settings models.ReminderSettings) error {
	now := s.now()
	first := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
	interval := time.Duration(settings.WaterIntervalHours) * time.Hour
	return s.timer.ScheduleRepeating(waterTimerID(userID), first, interval, TimerPayload{
		UserID:  userID,
		Channel: models.ChannelWater,
	})
}

// armProgress schedules the weekly summary for the next Sunday 09:00.
func (s *ReminderService) armProgress(userID string) error {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), progressHour, 0, 0, 0, now.Location())
	next = next.AddDate(0, 0, int((time.Sunday-now.Weekday()+7)%7))
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return s.timer.ScheduleRepeating(progressTimerID(userID), next, 7*24*time.Hour, TimerPayload{
		UserID:  userID,
		Channel: models.ChannelProgress,
	})
}

func (s *ReminderService) cancelChannel(userID, channel string) {
	switch channel {
	case models.ChannelMeal:
		for _, slot := range models.MealSlots {
			s.timer.Cancel(mealTimerID(userID, slot))
		}
	case models.ChannelWater:
		s.timer.Cancel(waterTimerID(userID))
	case models.ChannelProgress:
		s.timer.Cancel(progressTimerID(userID))
	}
}

// disarmLocked cancels a channel's timers, flips its persisted flag off and
// parks it disabled.
func (s *ReminderService) disarmLocked(userID, channel string) {
	s.cancelChannel(userID, channel)
	settings, _ := s.ledger.ReminderSettings(userID)
	s.revertEnabled(userID, channel, settings)
	s.setState(userID, channel, StateDisabled)
}

// OnPermissionResult re-evaluates every channel affected by the given
// capability after the host reports a request outcome: pending channels arm
// on a grant, and a permanent denial disarms channels that were already
// armed on the capability. The outcome must already be recorded with the
// permission service.
func (s *ReminderService) OnPermissionResult(userID, kind, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case models.CapabilityPostNotifications:
		for _, channel := range models.Channels {
			switch s.states[stateKey(userID, channel)] {
			case StatePendingPermission:
				switch outcome {
				case models.OutcomeGranted:
					settings, _ := s.ledger.ReminderSettings(userID)
					if _, err := s.armLocked(userID, channel, settings); err != nil {
						s.log.Warn("arming after permission grant", "user", userID, "channel", channel, "err", err)
					}
				case models.OutcomeDeniedPermanently:
					s.disarmLocked(userID, channel)
				case models.OutcomeDeniedAskAgain:
					// stays pending, the next enable attempt may ask again
				}
			case StateArmed:
				if outcome == models.OutcomeDeniedPermanently {
					s.disarmLocked(userID, channel)
				}
			}
		}
	case models.CapabilityExactTimers:
		// only the meal channel schedules exact one-shots
		if outcome == models.OutcomeDeniedPermanently &&
			s.states[stateKey(userID, models.ChannelMeal)] == StateArmed {
			s.disarmLocked(userID, models.ChannelMeal)
		}
	}
}

// EditMealTime updates one slot time. An armed meal channel with the
// exact-timer capability is re-armed immediately; otherwise the new time
// simply takes effect at the next re-arm cycle.
func (s *ReminderService) EditMealTime(userID, slot string, at models.SlotTime) error {
	if !models.ValidMealSlot(slot) {
		return validationErrorf("unknown meal slot %q", slot)
	}
	if at.Hour < 0 || at.Hour > 23 || at.Minute < 0 || at.Minute > 59 {
		return validationErrorf("invalid time %02d:%02d", at.Hour, at.Minute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, _ := s.ledger.ReminderSettings(userID)
	switch slot {
	case models.SlotBreakfast:
		settings.Breakfast = at
	case models.SlotLunch:
		settings.Lunch = at
	case models.SlotDinner:
		settings.Dinner = at
	}
	if err := s.ledger.SaveReminderSettings(userID, settings); err != nil {
		return err
	}

	if s.states[stateKey(userID, models.ChannelMeal)] == StateArmed &&
		s.perms.Check(userID, models.CapabilityExactTimers) {
		s.timer.Cancel(mealTimerID(userID, slot))
		if err := s.armMealSlot(userID, slot, at); err != nil {
			return &SchedulingFailure{Channel: models.ChannelMeal, Err: err}
		}
	}
	return nil
}

// HandleFire is the timer callback. Capabilities are re-checked at fire
// time so a revocation after arming stops delivery immediately. One-shot
// meal timers re-arm themselves from the settings as persisted now, so slot
// edits made while a timer was pending take effect on the next cycle
// without any bookkeeping.
func (s *ReminderService) HandleFire(p TimerPayload) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reminder fire panicked", "user", p.UserID, "channel", p.Channel, "panic", r)
		}
	}()

	settings, _ := s.ledger.ReminderSettings(p.UserID)
	if !settings.Enabled(p.Channel) {
		return
	}
	canPost := s.perms.Check(p.UserID, models.CapabilityPostNotifications)

	switch p.Channel {
	case models.ChannelMeal:
		if canPost {
			s.notifier.PostReminder(p.UserID, p.Channel,
				fmt.Sprintf("Time for %s!", p.Slot),
				fmt.Sprintf("Don't forget to log your %s.", p.Slot))
		}
		s.mu.Lock()
		if s.states[stateKey(p.UserID, models.ChannelMeal)] == StateArmed &&
			s.perms.Check(p.UserID, models.CapabilityExactTimers) {
			if err := s.armMealSlot(p.UserID, p.Slot, settings.SlotTimeFor(p.Slot)); err != nil {
				s.log.Error("re-arming meal reminder", "user", p.UserID, "slot", p.Slot, "err", err)
			}
		}
		s.mu.Unlock()
	case models.ChannelWater:
		hour := s.now().Hour()
		if !canPost || hour < quietHourStart || hour >= quietHourEnd {
			return
		}
		s.notifier.PostReminder(p.UserID, p.Channel,
			"Hydration check", "Time to drink a glass of water.")
	case models.ChannelProgress:
		if !canPost {
			return
		}
		body := "Open the app to review your week."
		if avg, err := s.ledger.RollingAverage(p.UserID, 7, s.now()); err == nil && avg > 0 {
			body = fmt.Sprintf("You averaged %.0f kcal per day this week.", avg)
		}
		s.notifier.PostReminder(p.UserID, p.Channel, "Weekly progress", body)
	}
}

// NotifyGoalAchieved posts on the goal channel. Event-driven: no timer is
// involved, only the enabled flag and the notification capability gate it.
func (s *ReminderService) NotifyGoalAchieved(userID, detail string) {
	settings, _ := s.ledger.ReminderSettings(userID)
	if !settings.GoalEnabled {
		return
	}
	if !s.perms.Check(userID, models.CapabilityPostNotifications) {
		return
	}
	s.notifier.PostReminder(userID, models.ChannelGoal, "Goal reached", detail)
}

// Restore re-arms timers for every known user after a restart: channels
// whose persisted flag is on and whose capabilities are still held come
// back armed, everything else stays disabled until re-enabled.
func (s *ReminderService) Restore(users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, userID := range users {
		settings, _ := s.ledger.ReminderSettings(userID)
		for _, channel := range models.Channels {
			if !settings.Enabled(channel) {
				continue
			}
			if !s.perms.Check(userID, models.CapabilityPostNotifications) {
				continue
			}
			if _, err := s.armLocked(userID, channel, settings); err != nil {
				s.log.Warn("restoring reminder channel", "user", userID, "channel", channel, "err", err)
			}
		}
	}
}
