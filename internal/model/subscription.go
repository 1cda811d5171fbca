package model

import "time"

type Subscription struct {
	ID             uint64 `gorm:"primaryKey"`
	SubscriberID   uint64 `gorm:"not null;uniqueIndex:uk_subscriber_target"`
	Subscriber     User   `gorm:"constraint:OnDelete:CASCADE"`
	SubscribedToID uint64 `gorm:"not null;index;uniqueIndex:uk_subscriber_target"`
	SubscribedTo   User   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
}
