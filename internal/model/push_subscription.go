package model

import "time"

// WatchedBay is a bay at least one subscriber wants availability alerts for.
type WatchedBay struct {
	BayID     string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
}

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Bays []*WatchedBay `gorm:"many2many:subscription_bay_mapping;"`
}
