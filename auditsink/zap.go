package auditsink

import (
	"context"

	"github.com/MrEthical07/tokenauth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ tokenauth.AuditSink = (*ZapSink)(nil)

// ZapSink writes audit events as structured log entries. Successful events log at Info,
// failures at Warn.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink returns a sink logging through l. A nil logger uses zap.L().
func NewZapSink(l *zap.Logger) *ZapSink {
	if l == nil {
		l = zap.L()
	}
	return &ZapSink{log: l.With(zap.String("component", "audit"))}
}

func (s *ZapSink) Emit(_ context.Context, event tokenauth.AuditEvent) {
	if s == nil || s.log == nil {
		return
	}

	level := zapcore.InfoLevel
	if !event.Success {
		level = zapcore.WarnLevel
	}
	ce := s.log.Check(level, "audit event")
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 7+len(event.Metadata))
	fields = append(fields,
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.Time("event_ts", event.Timestamp),
	)
	if event.PrincipalID != "" {
		fields = append(fields, zap.String("principal_id", event.PrincipalID))
	}
	if event.ClientID != "" {
		fields = append(fields, zap.String("client_id", event.ClientID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error_code", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	ce.Write(fields...)
}
