package auditsink

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), tokenauth.AuditEvent{
		Timestamp:   time.Now(),
		EventType:   "login_success",
		PrincipalID: "p-1",
		ClientID:    "hrm",
		Success:     true,
	})
	sink.Emit(context.Background(), tokenauth.AuditEvent{
		Timestamp: time.Now(),
		EventType: "login_failure",
		IP:        "10.0.0.1",
		Error:     "invalid_credentials",
		Metadata:  map[string]string{"reason": "bad_password"},
	})

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "login_success", entries[0].ContextMap()["event_type"])
	assert.Equal(t, "p-1", entries[0].ContextMap()["principal_id"])
	assert.Equal(t, "audit", entries[0].ContextMap()["component"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "invalid_credentials", entries[1].ContextMap()["error_code"])
	assert.NotContains(t, entries[1].ContextMap(), "principal_id")
}

func TestZapSinkRespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), tokenauth.AuditEvent{EventType: "refresh_success", Success: true})
	assert.Zero(t, logs.Len())
}

func TestZapSinkImplementsAuditSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	var _ tokenauth.AuditSink = sink
	sink.Emit(context.Background(), tokenauth.AuditEvent{EventType: "logout", Success: true})
	assert.Equal(t, 1, logs.FilterMessage("audit event").Len())
}
