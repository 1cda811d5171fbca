package model

import "time"

const (
	EventVideoCreated        = "video.created"
	EventVideoDeleted        = "video.deleted"
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionDeleted = "subscription.deleted"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// Outbox 领域事件表，与业务写入同一事务
type Outbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"`
	AggregateID uint64 `gorm:"not null"`
	Payload     string `gorm:"type:text;not null"`
	Status      int8   `gorm:"not null;default:0;index"` // 0=pending,1=sent,2=failed
	Retry       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Outbox) TableName() string { return "outbox" }
