package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking status values. Lifecycle: confirmed -> seated -> completed, or
// cancelled from confirmed/seated. Completed and cancelled are terminal.
const (
	BookingConfirmed = "confirmed"
	BookingSeated    = "seated"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

type Booking struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	TableID         string    `gorm:"type:char(36);not null;index:idx_booking_slot,priority:1" json:"table_id"`
	Table           Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table"`
	CustomerName    string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	Email           string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone           *string   `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Guests          int       `gorm:"not null" json:"guests"`
	Date            string    `gorm:"type:varchar(10);not null;index:idx_booking_slot,priority:2" json:"date"`
	Time            string    `gorm:"type:varchar(5);not null;index:idx_booking_slot,priority:3" json:"time"`
	SpecialRequests *string   `gorm:"type:text" json:"special_requests,omitempty"`
	Status          string    `gorm:"type:varchar(50);not null;default:'confirmed'" json:"status"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Active reports whether the booking still holds its table's slot.
func (b *Booking) Active() bool {
	return b.Status == BookingConfirmed || b.Status == BookingSeated
}

// CanTransition reports whether a booking may move from its current status
// to the target status. No transition skips confirmed, and nothing leaves
// a terminal state.
func (b *Booking) CanTransition(target string) bool {
	switch b.Status {
	case BookingConfirmed:
		return target == BookingSeated || target == BookingCancelled
	case BookingSeated:
		return target == BookingCompleted || target == BookingCancelled
	}
	return false
}
