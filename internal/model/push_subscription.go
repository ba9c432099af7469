package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Targets []SubscriptionTarget `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionTarget links a subscription to one machine it watches.
type SubscriptionTarget struct {
	Endpoint string `gorm:"primaryKey;size:512"`
	GFRID    int64  `gorm:"column:gfrid;primaryKey;autoIncrement:false;index"`
}
