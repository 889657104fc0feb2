package models

import (
	"time"
)

// DBChange is the change feed row written by the database triggers on the
// tables and bookings collections. The ChangeMonitor polls unprocessed rows
// and marks them processed after broadcasting.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   string    `gorm:"type:char(36);not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
