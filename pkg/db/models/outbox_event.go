package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the domain change it
// describes. A background publisher drains unpublished rows to Pub/Sub.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	Attempts      int                       `gorm:"column:attempts;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	PublishedAt   *time.Time                `gorm:"column:published_at;index:ix_outbox_events_published_at"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
