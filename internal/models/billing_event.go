package models

import "time"

// BillingEvent records processed PayPal webhook deliveries so redeliveries are ignored.
type BillingEvent struct {
	ID         string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	EventType  string    `gorm:"type:varchar(100);not null" json:"event_type"`
	ResourceID string    `gorm:"type:varchar(64);index" json:"resource_id"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
}
