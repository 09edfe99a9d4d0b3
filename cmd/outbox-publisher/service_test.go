package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error            { return nil }
func (fakePubSub) OrdersPublisher() *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "msg-id", f.err
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

func mustEnvelopePayload(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func orderEvent(t *testing.T, eventID string) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher, dlq *fakeDLQRepo, maxAttempts int) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollIntervalMS = 10
	cfg.Outbox.MaxAttempts = maxAttempts
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "outbox-test"}),
		DB:            fakeDB{},
		PubSub:        fakePubSub{},
		Repository:    repo,
		DLQRepository: dlq,
		PublisherFactory: func() publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := orderEvent(t, "evt-1")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeDLQRepo{}, 10)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch processed")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", repo.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != string(enums.EventOrderCompleted) {
		t.Fatalf("unexpected event_type attribute %q", attrs["event_type"])
	}
	if attrs["event_id"] != "evt-1" {
		t.Fatalf("unexpected event_id attribute %q", attrs["event_id"])
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	first := orderEvent(t, "evt-fail")
	second := orderEvent(t, "evt-ok")
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, &fakeDLQRepo{}, 10)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("expected first event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("expected second event published, got %v", repo.published)
	}
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, "evt-doomed")
	event.AttemptCount = 2
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("still broken")}}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, dlq, 3)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.DLQReasonMaxAttempts {
		t.Fatalf("unexpected dlq reason %q", dlq.entries[0].ErrorReason)
	}
}

func TestProcessBatchDeadLettersBadPayload(t *testing.T) {
	event := orderEvent(t, "ignored")
	event.Payload = json.RawMessage(`{broken`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, dlq, 10)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("bad payload must not be published")
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.DLQReasonBadPayload {
		t.Fatalf("expected bad payload dlq entry, got %v", dlq.entries)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeDLQRepo{}, 10)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatalf("expected empty batch to report not processed")
	}
}
