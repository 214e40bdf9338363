package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func TestPublishAccountLocked(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "clinic",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "detextb",
		Env:  "test",
	}, zaptest.NewLogger(t))

	lockedAt := time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)
	event := domain.AccountLockedEvent{
		EventID:        "event-123",
		UserID:         "user-789",
		Username:       "nurse1",
		FailedAttempts: 3,
		LockedAt:       lockedAt,
		LockExpiresAt:  lockedAt.Add(5 * time.Minute),
	}

	if err := publisher.PublishAccountLocked(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountLocked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "clinic.auth.account.locked" {
			t.Fatalf("unexpected topic %s", msg.Topic)
		}

		raw, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("encode message value: %v", err)
		}

		var envelope struct {
			EventID   string `json:"event_id"`
			EventType string `json:"event_type"`
			UserID    string `json:"user_id"`
			Version   string `json:"version"`
			Payload   struct {
				Username       string `json:"username"`
				FailedAttempts int    `json:"failed_attempts"`
			} `json:"payload"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}

		if envelope.EventID != "event-123" {
			t.Fatalf("unexpected event id %s", envelope.EventID)
		}
		if envelope.EventType != "auth.account.locked" {
			t.Fatalf("unexpected event type %s", envelope.EventType)
		}
		if envelope.UserID != "user-789" {
			t.Fatalf("unexpected user id %s", envelope.UserID)
		}
		if envelope.Payload.Username != "nurse1" {
			t.Fatalf("unexpected username %s", envelope.Payload.Username)
		}
		if envelope.Payload.FailedAttempts != 3 {
			t.Fatalf("unexpected failed attempts %d", envelope.Payload.FailedAttempts)
		}
		if envelope.Metadata["service"] != "detextb" {
			t.Fatalf("unexpected service metadata %q", envelope.Metadata["service"])
		}
	case <-time.After(time.Second):
		t.Fatal("expected message on producer input channel")
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	// Fill the buffer so publish has to block.
	asyncProducer.input <- &sarama.ProducerMessage{}

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg:      config.KafkaSettings{TopicPrefix: "clinic"},
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{Name: "detextb", Env: "test"}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		UserID:    "user-789",
		Email:     "nurse1@clinic.example",
		ChangedAt: time.Now(),
		Method:    "reset_flow",
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{cfg: config.KafkaSettings{TopicPrefix: "clinic"}}

	if got := producer.TopicName("auth.account.locked"); got != "clinic.auth.account.locked" {
		t.Fatalf("unexpected topic %s", got)
	}
	if got := producer.TopicName("clinic.auth.account.locked"); got != "clinic.auth.account.locked" {
		t.Fatalf("expected already-prefixed topic to pass through, got %s", got)
	}

	bare := &Producer{cfg: config.KafkaSettings{}}
	if got := bare.TopicName("auth.account.locked"); got != "auth.account.locked" {
		t.Fatalf("expected no prefix, got %s", got)
	}
}

func TestStubPublisher(t *testing.T) {
	publisher := NewStubPublisher(zaptest.NewLogger(t))

	now := time.Now()
	if err := publisher.PublishAccountLocked(context.Background(), domain.AccountLockedEvent{
		UserID:        "user-1",
		Username:      "nurse1",
		LockedAt:      now,
		LockExpiresAt: now.Add(5 * time.Minute),
	}); err != nil {
		t.Fatalf("PublishAccountLocked returned error: %v", err)
	}
	if err := publisher.PublishPasswordChanged(context.Background(), domain.PasswordChangedEvent{
		UserID: "user-1", Email: "nurse1@clinic.example", ChangedAt: now, Method: "reset_flow",
	}); err != nil {
		t.Fatalf("PublishPasswordChanged returned error: %v", err)
	}
	if err := publisher.PublishPasswordResetRequested(context.Background(), domain.PasswordResetRequestedEvent{
		UserID: "user-1", RequestID: "req-1", RequestedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}); err != nil {
		t.Fatalf("PublishPasswordResetRequested returned error: %v", err)
	}
}
