package models

// Capability kinds gating the reminder scheduler.
const (
	CapabilityPostNotifications = "post_notifications"
	CapabilityExactTimers       = "exact_timers"
)

func ValidCapability(kind string) bool {
	return kind == CapabilityPostNotifications || kind == CapabilityExactTimers
}

// Permission request outcomes reported by the client.
const (
	OutcomeGranted           = "granted"
	OutcomeDeniedAskAgain    = "denied_ask_again"
	OutcomeDeniedPermanently = "denied_permanently"
)

// CapabilityState is the client-reported permission state for one user.
// PlatformVersion lets the exact-timer gate default to granted on hosts
// that predate it.
type CapabilityState struct {
	PlatformVersion int               `json:"platformVersion"`
	Outcomes        map[string]string `json:"outcomes"`
}
