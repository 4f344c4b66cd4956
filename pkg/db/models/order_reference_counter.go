package models

import "time"

// OrderReferenceCounter holds the per-day sequence used to build sales
// order references. The row for a day is locked while the next value is
// taken so references stay gap-free under concurrent order creation.
type OrderReferenceCounter struct {
	Day       string    `gorm:"column:day;primaryKey"`
	NextValue int       `gorm:"column:next_value;not null;default:1"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderReferenceCounter) TableName() string {
	return "order_reference_counters"
}
