// Package notification delivers user and administrator events. Delivery
// is fire-and-forget: a failed or slow sink must never roll back or
// block the balance mutation that produced the event.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"custodia/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types emitted by the workflows.
const (
	EventWithdrawalPending   = "withdrawal_pending"
	EventWithdrawalCompleted = "withdrawal_completed"
	EventWithdrawalRejected  = "withdrawal_rejected"
	EventDepositSubmitted    = "deposit_submitted"
	EventDepositConfirmed    = "deposit_confirmed"
	EventDepositRejected     = "deposit_rejected"
	EventRecurringCredit     = "recurring_credit"
	EventDailyReturn         = "daily_return"
	EventBalanceAdjusted     = "balance_adjusted"
	EventReconciliation      = "reconciliation_required"
)

// Event is one outbound notification.
type Event struct {
	UserID  string      `json:"user_id,omitempty"`
	Type    string      `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Data    models.JSON `json:"data,omitempty"`
}

// Sink is the abstract delivery transport.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// Notifier is what the workflows depend on.
type Notifier interface {
	Notify(ctx context.Context, e Event)
	NotifyAdmins(ctx context.Context, e Event)
}

// Service fans events out to a sink without ever propagating failure to
// the caller.
type Service struct {
	sink Sink
	log  *logrus.Entry
}

func NewService(sink Sink) *Service {
	return &Service{
		sink: sink,
		log:  logrus.WithField("component", "notification"),
	}
}

// Notify delivers an event to one user. It returns immediately; errors
// are logged, never returned.
func (s *Service) Notify(ctx context.Context, e Event) {
	s.dispatch(e)
}

// NotifyAdmins delivers an event to the administrator channel.
func (s *Service) NotifyAdmins(ctx context.Context, e Event) {
	e.UserID = ""
	s.dispatch(e)
}

func (s *Service) dispatch(e Event) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("panic", r).Error("notification sink panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.sink.Deliver(ctx, e); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"type":    e.Type,
				"user_id": e.UserID,
			}).Warn("notification delivery failed")
		}
	}()
}

// LogSink writes events to the application log. It is the default sink
// when no broker is configured.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Deliver(ctx context.Context, e Event) error {
	logrus.WithFields(logrus.Fields{
		"type":    e.Type,
		"user_id": e.UserID,
		"title":   e.Title,
	}).Info(e.Message)
	return nil
}

// KafkaSink publishes events to a topic through an async writer.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Async:                  true,
			AllowAutoTopicCreation: true,
		},
	}
}

func (s *KafkaSink) Deliver(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
