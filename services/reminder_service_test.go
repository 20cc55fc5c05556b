package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chowtrack/models"
	"chowtrack/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedule struct {
	at       time.Time
	interval time.Duration
	payload  TimerPayload
}

type fakeTimer struct {
	mu        sync.Mutex
	once      map[string]fakeSchedule
	repeating map[string]fakeSchedule
	cancelled []string
	err       error
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		once:      make(map[string]fakeSchedule),
		repeating: make(map[string]fakeSchedule),
	}
}

func (f *fakeTimer) ScheduleOnce(id string, at time.Time, payload TimerPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.once[id] = fakeSchedule{at: at, payload: payload}
	return nil
}

func (f *fakeTimer) ScheduleRepeating(id string, first time.Time, interval time.Duration, payload TimerPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.repeating[id] = fakeSchedule{at: first, interval: interval, payload: payload}
	return nil
}

func (f *fakeTimer) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.once, id)
	delete(f.repeating, id)
	f.cancelled = append(f.cancelled, id)
}

type postedReminder struct {
	userID, channel, title, body string
}

type fakeNotifier struct {
	mu    sync.Mutex
	posts []postedReminder
}

func (f *fakeNotifier) PostReminder(userID, channel, title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedReminder{userID, channel, title, body})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

type schedFixture struct {
	store    *storage.MemStore
	ledger   *LedgerService
	perms    *PermissionService
	timer    *fakeTimer
	notifier *fakeNotifier
	sched    *ReminderService
	now      time.Time
}

// Friday 2025-03-14 10:15 local
func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	store := storage.NewMemStore()
	log := testLogger()
	f := &schedFixture{
		store:    store,
		ledger:   NewLedgerService(store, log),
		perms:    NewPermissionService(store, log),
		timer:    newFakeTimer(),
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 3, 14, 10, 15, 0, 0, time.Local),
	}
	f.sched = NewReminderService(f.ledger, f.perms, f.timer, f.notifier, log)
	f.sched.SetClock(func() time.Time { return f.now })
	return f
}

func (f *schedFixture) grant(t *testing.T, userID string, kinds ...string) {
	t.Helper()
	for _, kind := range kinds {
		require.NoError(t, f.perms.RecordOutcome(userID, 34, kind, models.OutcomeGranted))
	}
}

func TestEnableMealArmsAllSlots(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)
	assert.Equal(t, StateArmed, f.sched.ChannelState("john", models.ChannelMeal))

	// breakfast 08:00 already passed at 10:15, so it lands tomorrow
	b := f.timer.once["john_meal_Breakfast"]
	assert.Equal(t, time.Date(2025, 3, 15, 8, 0, 0, 0, time.Local), b.at)
	l := f.timer.once["john_meal_Lunch"]
	assert.Equal(t, time.Date(2025, 3, 14, 12, 30, 0, 0, time.Local), l.at)
	d := f.timer.once["john_meal_Dinner"]
	assert.Equal(t, time.Date(2025, 3, 14, 19, 0, 0, 0, time.Local), d.at)
	assert.Equal(t, models.ChannelMeal, l.payload.Channel)
	assert.Equal(t, models.SlotLunch, l.payload.Slot)

	settings, _ := f.ledger.ReminderSettings("john")
	assert.True(t, settings.MealEnabled)
}

func TestEnableWaterAnchorsNextFullHour(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)

	w := f.timer.repeating["john_water"]
	assert.Equal(t, time.Date(2025, 3, 14, 11, 0, 0, 0, time.Local), w.at)
	assert.Equal(t, 2*time.Hour, w.interval)
}

func TestEnableProgressArmsSunday(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)

	_, err := f.sched.SetChannelEnabled("john", models.ChannelProgress, true)
	require.NoError(t, err)

	p := f.timer.repeating["john_progress"]
	assert.Equal(t, time.Date(2025, 3, 16, 9, 0, 0, 0, time.Local), p.at)
	assert.Equal(t, 7*24*time.Hour, p.interval)
}

func TestEnableGoalNeedsNoTimer(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelGoal, true)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)
	assert.Empty(t, f.timer.once)
	assert.Empty(t, f.timer.repeating)
}

func TestEnableWithoutPermissionGoesPending(t *testing.T) {
	f := newSchedFixture(t)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	var cd *CapabilityDenied
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, models.CapabilityPostNotifications, cd.Capability)
	assert.True(t, cd.Retryable)
	assert.Equal(t, StatePendingPermission, state)
	assert.Empty(t, f.timer.repeating)

	// the flag stays on so a later grant can arm without re-enabling
	settings, _ := f.ledger.ReminderSettings("john")
	assert.True(t, settings.WaterEnabled)
}

func TestPendingChannelArmsOnGrant(t *testing.T) {
	f := newSchedFixture(t)

	_, _ = f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.Equal(t, StatePendingPermission, f.sched.ChannelState("john", models.ChannelWater))

	f.grant(t, "john", models.CapabilityPostNotifications)
	f.sched.OnPermissionResult("john", models.CapabilityPostNotifications, models.OutcomeGranted)

	assert.Equal(t, StateArmed, f.sched.ChannelState("john", models.ChannelWater))
	assert.Contains(t, f.timer.repeating, "john_water")
}

func TestPendingChannelRevertedOnPermanentDenial(t *testing.T) {
	f := newSchedFixture(t)

	_, _ = f.sched.SetChannelEnabled("john", models.ChannelWater, true)

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))
	f.sched.OnPermissionResult("john", models.CapabilityPostNotifications, models.OutcomeDeniedPermanently)

	assert.Equal(t, StateDisabled, f.sched.ChannelState("john", models.ChannelWater))
	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.WaterEnabled)
}

func TestPendingChannelStaysPendingOnSoftDenial(t *testing.T) {
	f := newSchedFixture(t)

	_, _ = f.sched.SetChannelEnabled("john", models.ChannelWater, true)

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedAskAgain))
	f.sched.OnPermissionResult("john", models.CapabilityPostNotifications, models.OutcomeDeniedAskAgain)

	assert.Equal(t, StatePendingPermission, f.sched.ChannelState("john", models.ChannelWater))
}

func TestEnableAfterPermanentDenialReverts(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))

	state, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	var cd *CapabilityDenied
	require.ErrorAs(t, err, &cd)
	assert.False(t, cd.Retryable)
	assert.Equal(t, StateDisabled, state)

	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.WaterEnabled)
}

func TestMealNeedsExactTimers(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	var cd *CapabilityDenied
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, models.CapabilityExactTimers, cd.Capability)
	assert.Equal(t, StateDisabled, state)
	assert.Empty(t, f.timer.once)

	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.MealEnabled)
}

func TestMealArmsOnOldPlatformWithoutExplicitGrant(t *testing.T) {
	f := newSchedFixture(t)
	// platform below the exact-timer gate
	require.NoError(t, f.perms.RecordOutcome("john", 30, models.CapabilityPostNotifications, models.OutcomeGranted))

	state, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)
}

func TestDisableCancelsTimers(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)

	_, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)
	require.Len(t, f.timer.once, 3)

	state, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, false)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, state)
	assert.Empty(t, f.timer.once)

	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.MealEnabled)
}

func TestSchedulingFailureRevertsChannel(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	f.timer.err = errors.New("timer backend down")

	state, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	var sf *SchedulingFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, models.ChannelWater, sf.Channel)
	assert.Equal(t, StateDisabled, state)

	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.WaterEnabled)
}

func TestMealFirePostsAndReArmsFromCurrentSettings(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)

	// the lunch time is edited while the 12:30 timer is pending
	settings, _ := f.ledger.ReminderSettings("john")
	settings.Lunch = models.SlotTime{Hour: 13, Minute: 0}
	require.NoError(t, f.ledger.SaveReminderSettings("john", settings))

	// lunch fires at 12:30
	f.now = time.Date(2025, 3, 14, 12, 30, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelMeal, Slot: models.SlotLunch})

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, models.ChannelMeal, f.notifier.posts[0].channel)

	// the re-arm read the edited time: next lunch is 13:00 today
	l := f.timer.once["john_meal_Lunch"]
	assert.Equal(t, time.Date(2025, 3, 14, 13, 0, 0, 0, time.Local), l.at)
}

func TestMealFireOnDisabledChannelDoesNothing(t *testing.T) {
	f := newSchedFixture(t)

	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelMeal, Slot: models.SlotLunch})
	assert.Zero(t, f.notifier.count())
	assert.Empty(t, f.timer.once)
}

func TestWaterFireRespectsQuietHours(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.NoError(t, err)

	f.now = time.Date(2025, 3, 14, 23, 0, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelWater})
	assert.Zero(t, f.notifier.count())

	f.now = time.Date(2025, 3, 15, 7, 0, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelWater})
	assert.Zero(t, f.notifier.count())

	f.now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelWater})
	assert.Equal(t, 1, f.notifier.count())
}

func TestProgressFireIncludesWeeklyAverage(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelProgress, true)
	require.NoError(t, err)

	require.NoError(t, f.ledger.AppendFood("john", f.now, models.SlotLunch, models.FoodEntry{FoodName: "Rice", Calories: 1800}))

	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelProgress})
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, fmt.Sprintf("You averaged %.0f kcal per day this week.", 1800.0), f.notifier.posts[0].body)
}

func TestNotifyGoalAchieved(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)

	// channel off: silent
	f.sched.NotifyGoalAchieved("john", "done")
	assert.Zero(t, f.notifier.count())

	_, err := f.sched.SetChannelEnabled("john", models.ChannelGoal, true)
	require.NoError(t, err)
	f.sched.NotifyGoalAchieved("john", "done")
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, models.ChannelGoal, f.notifier.posts[0].channel)
	assert.Equal(t, "done", f.notifier.posts[0].body)

	// permission revoked later: silent again
	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))
	f.sched.NotifyGoalAchieved("john", "done")
	assert.Equal(t, 1, f.notifier.count())
}

func TestEditMealTimeReArmsWhenArmed(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)

	require.NoError(t, f.sched.EditMealTime("john", models.SlotDinner, models.SlotTime{Hour: 20, Minute: 15}))

	d := f.timer.once["john_meal_Dinner"]
	assert.Equal(t, time.Date(2025, 3, 14, 20, 15, 0, 0, time.Local), d.at)
	assert.Contains(t, f.timer.cancelled, "john_meal_Dinner")

	settings, _ := f.ledger.ReminderSettings("john")
	assert.Equal(t, models.SlotTime{Hour: 20, Minute: 15}, settings.Dinner)
}

func TestEditMealTimePersistsWhenNotArmed(t *testing.T) {
	f := newSchedFixture(t)

	require.NoError(t, f.sched.EditMealTime("john", models.SlotLunch, models.SlotTime{Hour: 13, Minute: 45}))

	assert.Empty(t, f.timer.once)
	settings, _ := f.ledger.ReminderSettings("john")
	assert.Equal(t, models.SlotTime{Hour: 13, Minute: 45}, settings.Lunch)
}

func TestEditMealTimeValidation(t *testing.T) {
	f := newSchedFixture(t)

	var ve *ValidationError
	require.ErrorAs(t, f.sched.EditMealTime("john", "Brunch", models.SlotTime{Hour: 10}), &ve)
	require.ErrorAs(t, f.sched.EditMealTime("john", models.SlotLunch, models.SlotTime{Hour: 24}), &ve)
	require.ErrorAs(t, f.sched.EditMealTime("john", models.SlotLunch, models.SlotTime{Minute: 60}), &ve)
}

func TestFireSuppressedAfterPermissionRevoked(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.NoError(t, err)

	// the host revokes the capability after arming
	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))

	f.now = time.Date(2025, 3, 14, 14, 0, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelWater})
	assert.Zero(t, f.notifier.count())
}

func TestProgressFireSuppressedAfterPermissionRevoked(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelProgress, true)
	require.NoError(t, err)

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))

	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelProgress})
	assert.Zero(t, f.notifier.count())
}

func TestMealFireDoesNotReArmAfterExactTimersRevoked(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityExactTimers, models.OutcomeDeniedPermanently))

	// the pending one-shot fires; it may still post, but must not schedule
	// another exact timer
	delete(f.timer.once, "john_meal_Lunch")
	f.now = time.Date(2025, 3, 14, 12, 30, 0, 0, time.Local)
	f.sched.HandleFire(TimerPayload{UserID: "john", Channel: models.ChannelMeal, Slot: models.SlotLunch})

	assert.Equal(t, 1, f.notifier.count())
	assert.NotContains(t, f.timer.once, "john_meal_Lunch")
}

func TestPermanentDenialDisarmsArmedChannel(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.NoError(t, err)
	require.Contains(t, f.timer.repeating, "john_water")

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityPostNotifications, models.OutcomeDeniedPermanently))
	f.sched.OnPermissionResult("john", models.CapabilityPostNotifications, models.OutcomeDeniedPermanently)

	assert.Equal(t, StateDisabled, f.sched.ChannelState("john", models.ChannelWater))
	assert.NotContains(t, f.timer.repeating, "john_water")
	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.WaterEnabled)
}

func TestExactTimersDenialDisarmsMealOnly(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)
	_, err := f.sched.SetChannelEnabled("john", models.ChannelMeal, true)
	require.NoError(t, err)
	_, err = f.sched.SetChannelEnabled("john", models.ChannelWater, true)
	require.NoError(t, err)

	require.NoError(t, f.perms.RecordOutcome("john", 34, models.CapabilityExactTimers, models.OutcomeDeniedPermanently))
	f.sched.OnPermissionResult("john", models.CapabilityExactTimers, models.OutcomeDeniedPermanently)

	assert.Equal(t, StateDisabled, f.sched.ChannelState("john", models.ChannelMeal))
	assert.Empty(t, f.timer.once)
	settings, _ := f.ledger.ReminderSettings("john")
	assert.False(t, settings.MealEnabled)

	// water does not depend on exact timers and stays armed
	assert.Equal(t, StateArmed, f.sched.ChannelState("john", models.ChannelWater))
	assert.Contains(t, f.timer.repeating, "john_water")
	assert.True(t, settings.WaterEnabled)
}

func TestRestoreReArmsPersistedChannels(t *testing.T) {
	f := newSchedFixture(t)
	f.grant(t, "john", models.CapabilityPostNotifications, models.CapabilityExactTimers)
	f.grant(t, "jane", models.CapabilityPostNotifications)

	johnSettings := models.DefaultReminderSettings()
	johnSettings.MealEnabled = true
	require.NoError(t, f.ledger.SaveReminderSettings("john", johnSettings))

	janeSettings := models.DefaultReminderSettings()
	janeSettings.WaterEnabled = true
	require.NoError(t, f.ledger.SaveReminderSettings("jane", janeSettings))

	f.sched.Restore([]string{"john", "jane"})

	assert.Equal(t, StateArmed, f.sched.ChannelState("john", models.ChannelMeal))
	assert.Equal(t, StateArmed, f.sched.ChannelState("jane", models.ChannelWater))
	assert.Len(t, f.timer.once, 3)
	assert.Contains(t, f.timer.repeating, "jane_water")
}

func TestRestoreSkipsUsersWithoutPermission(t *testing.T) {
	f := newSchedFixture(t)

	settings := models.DefaultReminderSettings()
	settings.WaterEnabled = true
	require.NoError(t, f.ledger.SaveReminderSettings("john", settings))

	f.sched.Restore([]string{"john"})

	assert.Equal(t, StateDisabled, f.sched.ChannelState("john", models.ChannelWater))
	assert.Empty(t, f.timer.repeating)
}
