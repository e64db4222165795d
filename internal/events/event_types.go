package events

import (
	"time"

	"github.com/classhub/subject-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded       EventType = "login_succeeded"
	EventLoginFailed          EventType = "login_failed"
	EventLoginThrottled       EventType = "login_throttled"
	EventLogout               EventType = "logout"
	EventTokenRejected        EventType = "token_rejected"
	EventAccessDenied         EventType = "access_denied"
	EventAccountCreated       EventType = "account_created"
	EventAccountRoleChanged   EventType = "account_role_changed"
	EventAccountStatusChanged EventType = "account_status_changed"
	EventAccountDeleted       EventType = "account_deleted"
	EventPasswordChanged      EventType = "password_changed"
)

// Actor identifies the authenticated caller behind an event, when there is
// one. Login attempts have no actor until they succeed.
type Actor struct {
	AccountID string      `json:"account_id,omitempty"`
	Username  string      `json:"username,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
}

// Event is an audit record emitted by services and middleware. Username is
// the account the event is about, which may differ from the actor (an admin
// creating an account, for example). Payloads carry contextual fields only;
// passwords and token material never appear in an event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	AccountID      string      `json:"account_id"`
	Role           domain.Role `json:"role"`
	TokenExpiresAt time.Time   `json:"token_expires_at"`
	RemoteIP       string      `json:"remote_ip,omitempty"`
}

// LoginFailedPayload payload. Reason is an internal diagnostic
// (unknown_username, wrong_password, account_suspended); the HTTP response
// for every failed login is identical.
type LoginFailedPayload struct {
	Reason   string `json:"reason"`
	RemoteIP string `json:"remote_ip,omitempty"`
}

// LoginThrottledPayload payload.
type LoginThrottledPayload struct {
	RemoteIP string `json:"remote_ip,omitempty"`
}

// LogoutPayload payload.
type LogoutPayload struct {
	AccountID string `json:"account_id"`
}

// TokenRejectedPayload payload. Reason is one of malformed, bad_signature,
// expired, revoked or invalid.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// AccountCreatedPayload payload.
type AccountCreatedPayload struct {
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// AccountRoleChangedPayload payload.
type AccountRoleChangedPayload struct {
	AccountID string      `json:"account_id"`
	OldRole   domain.Role `json:"old_role"`
	NewRole   domain.Role `json:"new_role"`
}

// AccountStatusChangedPayload payload.
type AccountStatusChangedPayload struct {
	AccountID string               `json:"account_id"`
	OldStatus domain.AccountStatus `json:"old_status"`
	NewStatus domain.AccountStatus `json:"new_status"`
}

// AccountDeletedPayload payload.
type AccountDeletedPayload struct {
	AccountID string `json:"account_id"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	AccountID string `json:"account_id"`
}
