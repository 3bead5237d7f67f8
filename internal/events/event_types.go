package events

import (
	"time"

	"github.com/areti-alliance/crm-gateway/internal/domain"
)

// EventType enumerates supported audit event identifiers.
type EventType string

const (
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventTokenExchanged      EventType = "token_exchanged"
	EventTokenRefreshed      EventType = "token_refreshed"
	EventProviderUnreachable EventType = "provider_unreachable"
	EventRosterSynced        EventType = "roster_synced"
)

// Event is an audit record emitted by the gateway. Events carry enough for
// operators to distinguish real auth failures from provider outages; they are
// never exposed to clients.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	Source    string      `json:"source,omitempty"`
	RemoteIP  string      `json:"remote_ip,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// TokenIssuedPayload payload for login, exchange and refresh events.
type TokenIssuedPayload struct {
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ProviderUnreachablePayload payload.
type ProviderUnreachablePayload struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// RosterSyncedPayload payload.
type RosterSyncedPayload struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
