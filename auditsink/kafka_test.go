package auditsink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkPublishesJSONKeyedByPrincipal(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w, "auth.audit", time.Second)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), tokenauth.AuditEvent{
		Timestamp:   ts,
		EventType:   "refresh_success",
		PrincipalID: "p-1",
		ClientID:    "hrm",
		Success:     true,
	})

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "p-1", string(msg.Key))
	assert.True(t, msg.Time.Equal(ts))
	assert.True(t, w.deadline, "writes must be bounded by a timeout")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "refresh_success", string(msg.Headers[0].Value))

	var decoded tokenauth.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "hrm", decoded.ClientID)
	assert.True(t, decoded.Success)
}

func TestKafkaSinkCountsAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := &fakeWriter{err: errors.New("leader not available")}
	sink := NewKafkaSinkWithWriter(w, "auth.audit", 0).WithLogger(zap.New(core))

	sink.Emit(context.Background(), tokenauth.AuditEvent{EventType: "login_failure"})
	sink.Emit(context.Background(), tokenauth.AuditEvent{EventType: "login_failure"})

	assert.EqualValues(t, 2, sink.Failed())
	assert.Equal(t, 2, logs.FilterMessage("audit publish failed").Len())
}

func TestKafkaSinkIgnoresCanceledCaller(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w, "auth.audit", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Emit(ctx, tokenauth.AuditEvent{EventType: "logout", PrincipalID: "p-1"})

	assert.Len(t, w.messages, 1)
}

func TestNewKafkaSinkValidates(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Topic: "auth.audit"})
	require.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "auth.audit"})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestKafkaSinkClose(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w, "auth.audit", 0)
	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}
