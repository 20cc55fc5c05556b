package services

import (
	"encoding/json"
	"log/slog"

	"chowtrack/models"
	"chowtrack/storage"
)

// Hosts older than this platform version grant exact timers unconditionally.
const exactTimerGateVersion = 31

// PermissionService tracks the host capabilities the client has reported:
// whether notifications may be posted and whether exact timers may be
// scheduled. The scheduler consults it before arming any channel.
type PermissionService struct {
	store storage.Store
	log   *slog.Logger
}

func NewPermissionService(store storage.Store, log *slog.Logger) *PermissionService {
	return &PermissionService{store: store, log: log}
}

// State returns the recorded capability state for a user, empty if nothing
// was ever reported.
func (p *PermissionService) State(userID string) models.CapabilityState {
	st := models.CapabilityState{Outcomes: map[string]string{}}
	raw, ok, err := p.store.Get(storage.UserKey(userID, storage.KindCapability))
	if err != nil || !ok {
		return st
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		p.log.Warn("corrupt capability state treated as empty", "user", userID, "err", err)
		return models.CapabilityState{Outcomes: map[string]string{}}
	}
	if st.Outcomes == nil {
		st.Outcomes = map[string]string{}
	}
	return st
}

// Check reports whether the capability is currently held. Exact timers are
// held unconditionally on hosts predating the gate.
func (p *PermissionService) Check(userID, kind string) bool {
	st := p.State(userID)
	if kind == models.CapabilityExactTimers &&
		st.PlatformVersion > 0 && st.PlatformVersion < exactTimerGateVersion {
		return true
	}
	return st.Outcomes[kind] == models.OutcomeGranted
}

// CanAskAgain reports whether a denied capability may still be requested,
// or the user has to be routed to host settings.
func (p *PermissionService) CanAskAgain(userID, kind string) bool {
	return p.State(userID).Outcomes[kind] != models.OutcomeDeniedPermanently
}

// RecordOutcome persists the host's answer to a capability request, along
// with the reporting platform version.
func (p *PermissionService) RecordOutcome(userID string, platformVersion int, kind, outcome string) error {
	if !models.ValidCapability(kind) {
		return validationErrorf("unknown capability %q", kind)
	}
	switch outcome {
	case models.OutcomeGranted, models.OutcomeDeniedAskAgain, models.OutcomeDeniedPermanently:
	default:
		return validationErrorf("unknown outcome %q", outcome)
	}

	st := p.State(userID)
	if platformVersion > 0 {
		st.PlatformVersion = platformVersion
	}
	st.Outcomes[kind] = outcome

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return p.store.Put(storage.UserKey(userID, storage.KindCapability), string(raw))
}

// SettingsHint names the host settings surface that can remedy a
// permanently denied capability.
func (p *PermissionService) SettingsHint(kind string) string {
	switch kind {
	case models.CapabilityExactTimers:
		return "Allow alarms & reminders for the app in system settings."
	default:
		return "Enable notifications for the app in system settings."
	}
}
