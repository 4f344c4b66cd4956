package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mercatohq/stockroom-backend/pkg/config"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/outbox"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > len(f.events) {
		limit = len(f.events)
	}
	return f.events[:limit], nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

func newTestService(t *testing.T, repo outboxRepository, resolver publisherResolver) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	cfg.Outbox.PollIntervalMS = 10

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		Repository: repo,
		Resolver:   resolver,
	})
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return service
}

func mustPayload(t *testing.T, marker string) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"marker":"` + marker + `"}`),
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	return raw
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateSalesOrder,
				AggregateID:   uuid.New(),
				Payload:       mustPayload(t, "event-one"),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderStockOut,
				AggregateType: enums.AggregateSalesOrder,
				AggregateID:   uuid.New(),
				Payload:       mustPayload(t, "event-two"),
			},
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, func(enums.OutboxAggregateType) publisher { return pub })

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestProcessBatchRoutesByAggregate(t *testing.T) {
	ordersPub := &fakePublisher{}
	inventoryPub := &fakePublisher{}
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventPurchaseReceived,
				AggregateType: enums.AggregatePurchaseOrder,
				AggregateID:   uuid.New(),
				Payload:       mustPayload(t, "po"),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventInventoryAdjusted,
				AggregateType: enums.AggregateInventory,
				AggregateID:   uuid.New(),
				Payload:       mustPayload(t, "ledger"),
			},
		},
	}
	service := newTestService(t, repo, func(aggregate enums.OutboxAggregateType) publisher {
		if aggregate == enums.AggregateInventory {
			return inventoryPub
		}
		return ordersPub
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(ordersPub.messages) != 1 || len(inventoryPub.messages) != 1 {
		t.Fatalf("events routed to wrong topics: orders=%d inventory=%d", len(ordersPub.messages), len(inventoryPub.messages))
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected both events published, got %d", len(repo.published))
	}

	attrs := ordersPub.messages[0].Attributes
	if attrs["aggregate_type"] != string(enums.AggregatePurchaseOrder) {
		t.Fatalf("unexpected aggregate attribute: %s", attrs["aggregate_type"])
	}
	if attrs["event_type"] != string(enums.EventPurchaseReceived) {
		t.Fatalf("unexpected event type attribute: %s", attrs["event_type"])
	}
}

func TestProcessBatchFailsEventWithoutPublisher(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.OutboxAggregateType("unknown"),
				AggregateID:   uuid.New(),
				Payload:       mustPayload(t, "orphan"),
			},
		},
	}
	service := newTestService(t, repo, func(enums.OutboxAggregateType) publisher { return nil })

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected event marked failed, got %d", len(repo.failed))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, func(enums.OutboxAggregateType) publisher { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancellation")
	}
}
