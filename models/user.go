package models

import "time"

// User is a local account. Credentials are stored alongside the rest of the
// user's data in the key/value store.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Device is a registered push target for one user.
type Device struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"` // "android" | "ios"
	TokenHash   string    `json:"tokenHash"`
	EndpointARN string    `json:"endpointArn"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
