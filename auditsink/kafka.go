package auditsink

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var _ tokenauth.AuditSink = (*KafkaSink)(nil)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures [NewKafkaSink].
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaSink publishes each audit event as a JSON message keyed by principal id, so one
// principal's events land on one partition in order.
//
// Emit runs on the engine's dispatcher goroutine. Write failures are logged and counted,
// never returned.
type KafkaSink struct {
	w       MessageWriter
	topic   string
	timeout time.Duration
	log     *zap.Logger
	failed  atomic.Uint64
}

// NewKafkaSink builds a sink over a kafka-go writer for cfg.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("auditsink: kafka brokers required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("auditsink: kafka topic required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaSinkWithWriter(w, cfg.Topic, cfg.WriteTimeout), nil
}

// NewKafkaSinkWithWriter wraps an existing writer. timeout bounds each write; zero
// means five seconds.
func NewKafkaSinkWithWriter(w MessageWriter, topic string, timeout time.Duration) *KafkaSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSink{
		w:       w,
		topic:   topic,
		timeout: timeout,
		log:     zap.NewNop(),
	}
}

func (s *KafkaSink) WithLogger(l *zap.Logger) *KafkaSink {
	if l == nil {
		return s
	}
	s.log = l.With(zap.String("component", "audit.kafka"), zap.String("topic", s.topic))
	return s
}

func (s *KafkaSink) Emit(ctx context.Context, event tokenauth.AuditEvent) {
	if s == nil || s.w == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.log.Error("audit marshal failed", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.PrincipalID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.w.WriteMessages(ctx, msg); err != nil {
		s.failed.Add(1)
		s.log.Warn("audit publish failed", zap.String("event_type", event.EventType), zap.Error(err))
	}
}

// Failed returns the number of events that could not be published.
func (s *KafkaSink) Failed() uint64 {
	return s.failed.Load()
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.w == nil {
		return nil
	}
	return s.w.Close()
}
