package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate outbox: %v", err)
	}
	return db
}

func TestEmitStoresEnvelope(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   orderID,
			Data:          map[string]string{"reference": "SO-2026-01-15-001"},
			Version:       1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rows))
	}
	if rows[0].AggregateID != orderID {
		t.Fatalf("unexpected aggregate id %s", rows[0].AggregateID)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatal("expected event id")
	}
	if envelope.Version != 1 {
		t.Fatalf("unexpected envelope version %d", envelope.Version)
	}

	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["reference"] != "SO-2026-01-15-001" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	event := DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateSalesOrder,
		AggregateID:   orderID,
		Data:          map[string]string{"reason": "customer request"},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.EmitIfNotExists(context.Background(), tx, event); err != nil {
			return err
		}
		return svc.EmitIfNotExists(context.Background(), tx, event)
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected deduplicated event, got %d", len(rows))
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPurchaseReceived,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"received": 60},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(1, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("fetch unpublished: rows=%d err=%v", len(rows), err)
	}

	if err := repo.MarkFailed(rows[0].ID, errors.New("broker unavailable")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	var failed models.OutboxEvent
	if err := db.First(&failed, "id = ?", rows[0].ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if failed.Attempts != 1 || failed.LastError == nil {
		t.Fatalf("unexpected failure state: %+v", failed)
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	remaining, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no unpublished events, got %d", len(remaining))
	}
}
