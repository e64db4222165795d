package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/events"
)

func newObservedAuditService() (*AuditService, events.Dispatcher, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewAuditService(dispatcher, zap.New(core), nil)
	svc.RegisterHandlers()
	return svc, dispatcher, logs
}

func TestAuditServiceLogsLoginFailure(t *testing.T) {
	_, dispatcher, logs := newObservedAuditService()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventLoginFailed,
		Username:  "alice",
		Timestamp: time.Now(),
		Payload:   events.LoginFailedPayload{Reason: "wrong_password", RemoteIP: "10.0.0.9"},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("LoginFailed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "alice", fields["username"])
	assert.Equal(t, "evt-1", fields["event_id"])
	payload, ok := fields["payload"].(events.LoginFailedPayload)
	require.True(t, ok)
	assert.Equal(t, "wrong_password", payload.Reason)
}

func TestAuditServiceLogsActorAttribution(t *testing.T) {
	_, dispatcher, logs := newObservedAuditService()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-2",
		Type:      events.EventAccountRoleChanged,
		Username:  "bob",
		Actor:     events.Actor{AccountID: "acc-1", Username: "root", Role: domain.RoleAdmin},
		Timestamp: time.Now(),
		Payload: events.AccountRoleChangedPayload{
			AccountID: "acc-2",
			OldRole:   domain.RoleStudent,
			NewRole:   domain.RoleTeacher,
		},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("AccountRoleChanged").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "bob", fields["username"])
	assert.Equal(t, "root", fields["actor_username"])
	assert.Equal(t, "ADMIN", fields["actor_role"])
}

// Every declared event type must land in the audit log; a silent type is
// a hole in the trail.
func TestAuditServiceCoversAllEventTypes(t *testing.T) {
	_, dispatcher, logs := newObservedAuditService()

	types := []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventLoginThrottled,
		events.EventLogout,
		events.EventTokenRejected,
		events.EventAccessDenied,
		events.EventAccountCreated,
		events.EventAccountRoleChanged,
		events.EventAccountStatusChanged,
		events.EventAccountDeleted,
		events.EventPasswordChanged,
	}

	for _, eventType := range types {
		err := dispatcher.Publish(context.Background(), events.Event{
			ID:        "evt-" + string(eventType),
			Type:      eventType,
			Username:  "alice",
			Timestamp: time.Now(),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, len(types), logs.Len())
}

func TestAuditServiceWithoutMetrics(t *testing.T) {
	// nil metrics must not panic; the log trail still works.
	_, dispatcher, logs := newObservedAuditService()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTokenRejected,
		Payload: events.TokenRejectedPayload{Reason: "expired", Method: "GET", Path: "/subjects"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("TokenRejected").Len())
}
