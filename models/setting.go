package models

import (
	"encoding/json"
	"time"
)

// Setting is a key-value configuration row. Value holds arbitrary JSON.
type Setting struct {
	Key       string          `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     json.RawMessage `gorm:"type:json" json:"value"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}
