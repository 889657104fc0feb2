package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table status values. Status is derived from the table's active bookings
// and is never written directly by a caller.
const (
	TableAvailable = "available"
	TableReserved  = "reserved"
	TableOccupied  = "occupied"
)

// Table locations.
const (
	LocationIndoor  = "indoor"
	LocationOutdoor = "outdoor"
	LocationWindow  = "window"
)

type Table struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Number    int       `gorm:"uniqueIndex;not null" json:"number"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Location  string    `gorm:"type:varchar(50);not null" json:"location"`
	Status    string    `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ValidLocation reports whether loc is one of the known table locations.
func ValidLocation(loc string) bool {
	switch loc {
	case LocationIndoor, LocationOutdoor, LocationWindow:
		return true
	}
	return false
}
