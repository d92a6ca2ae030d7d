package model

import "time"

// ScrapeRun is the audit row written after every physical scrape cycle,
// synthetic fallbacks included.
type ScrapeRun struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	StartedAt   time.Time `gorm:"not null;index"`
	DurationMs  int64     `gorm:"not null"`
	RecordCount int       `gorm:"not null"`
	Strategy    string    `gorm:"size:32;not null"`
	Synthetic   bool      `gorm:"not null"`
	Error       string    `gorm:"size:512"`
}
