package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const ActivityTopic = "storefront-cart-activity"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// activityEvent is what analytics consumers read from ActivityTopic.
type activityEvent struct {
	TabID      string            `json:"tab_id"`
	Change     domain.CartChange `json:"change"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// KafkaForwarder copies cartUpdated broadcasts to Kafka. It never blocks the
// UI flow for longer than its write timeout and never reports errors back.
type KafkaForwarder struct {
	writer  messageWriter
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewKafkaForwarder(log logrus.FieldLogger, brokers ...string) *KafkaForwarder {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  ActivityTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
	}
	return newKafkaForwarder(w, log)
}

func newKafkaForwarder(w messageWriter, log logrus.FieldLogger) *KafkaForwarder {
	return &KafkaForwarder{writer: w, timeout: 2 * time.Second, log: log, now: time.Now}
}

// Attach subscribes the forwarder to one tab's bus.
func (f *KafkaForwarder) Attach(tabID string, bus Subscriber) (unsubscribe func()) {
	return bus.Subscribe(func(change domain.CartChange) {
		f.forward(tabID, change)
	})
}

func (f *KafkaForwarder) Close() {
	if err := f.writer.Close(); err != nil {
		f.log.WithError(err).Error("error closing kafka writer")
	}
}

func (f *KafkaForwarder) forward(tabID string, change domain.CartChange) {
	payload, err := json.Marshal(activityEvent{TabID: tabID, Change: change, OccurredAt: f.now().UTC()})
	if err != nil {
		f.log.WithError(err).Error("failed to marshal cart activity")
		return
	}

	msg := kafka.Message{
		Key:   []byte(change.ProductID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.CartUpdatedEvent)},
			{Key: "action", Value: []byte(change.Action)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.log.WithError(err).WithField("tab_id", tabID).Warn("failed to forward cart activity")
	}
}
