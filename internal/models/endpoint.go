package models

import "time"

type EndpointStatus string

const (
	EndpointActive   EndpointStatus = "Active"
	EndpointInactive EndpointStatus = "Inactive"
)

// Endpoint is a disposable capture address. The integer ID is the storage
// identity; the token is the only identifier ever shown externally.
type Endpoint struct {
	ID        int64          `json:"id"`
	Token     string         `json:"token"`
	SingleUse bool           `json:"single_use"`
	Status    EndpointStatus `json:"status"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}

// Usable reports whether the endpoint accepts captures at the given time.
// SingleUse and Inactive are persisted but not acted on by any operation yet.
func (e *Endpoint) Usable(now time.Time) bool {
	return e.Status == EndpointActive && !e.ExpiresAt.Before(now)
}
