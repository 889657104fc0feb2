package reservation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dineboard/restaurant-dashboard/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Coordinator owns the booking invariant: a table's status is derived from
// its active bookings and nothing else, and no two active bookings may hold
// the same (table, date, time) slot. Every status-changing operation runs
// as a single transaction with the table row locked, so the database is the
// serialization point across sessions; the coordinator itself holds no lock.
type Coordinator struct {
	DB *gorm.DB

	// Now is the operational clock, overridable in tests.
	Now func() time.Time
}

func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{DB: db, Now: time.Now}
}

// BookingInput carries the fields of a booking request. Phone and
// SpecialRequests are optional.
type BookingInput struct {
	TableID         string  `json:"table_id"`
	CustomerName    string  `json:"customer_name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone,omitempty"`
	Guests          int     `json:"guests"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

// CreateBooking validates the request and performs the conflict check,
// booking insert and table status update as one atomic unit. Two concurrent
// calls for the same slot cannot both succeed: the table row is locked for
// the duration of the transaction, so the second caller sees the first
// caller's booking and gets a ConflictError.
func (co *Coordinator) CreateBooking(in BookingInput) (*models.Booking, error) {
	if err := co.validate(in); err != nil {
		return nil, err
	}

	var booking models.Booking
	err := co.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", in.TableID).First(&table).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "table_id", Reason: "table does not exist"}
			}
			return &TransientError{Err: err}
		}

		if in.Guests > table.Capacity {
			return &ValidationError{
				Field:  "guests",
				Reason: fmt.Sprintf("table %d seats at most %d guests", table.Number, table.Capacity),
			}
		}

		var held int64
		if err := tx.Model(&models.Booking{}).
			Where("table_id = ? AND date = ? AND time = ? AND status IN ?",
				table.ID, in.Date, in.Time,
				[]string{models.BookingConfirmed, models.BookingSeated}).
			Count(&held).Error; err != nil {
			return &TransientError{Err: err}
		}
		if held > 0 {
			return &ConflictError{TableID: table.ID, Date: in.Date, Time: in.Time}
		}

		booking = models.Booking{
			TableID:         table.ID,
			CustomerName:    strings.TrimSpace(in.CustomerName),
			Email:           strings.TrimSpace(in.Email),
			Phone:           in.Phone,
			Guests:          in.Guests,
			Date:            in.Date,
			Time:            in.Time,
			SpecialRequests: in.SpecialRequests,
			Status:          models.BookingConfirmed,
		}
		if err := tx.Omit(clause.Associations).Create(&booking).Error; err != nil {
			return &TransientError{Err: err}
		}

		return co.recomputeTableStatus(tx, &table)
	})
	if err != nil {
		return nil, classify(err)
	}
	return &booking, nil
}

// SeatBooking marks a confirmed booking as seated and the table as occupied.
func (co *Coordinator) SeatBooking(bookingID string) (*models.Booking, error) {
	return co.transition(bookingID, models.BookingSeated)
}

// CancelBooking releases a confirmed or seated booking. If it was the only
// active booking holding the table, the table reverts to available in the
// same transaction.
func (co *Coordinator) CancelBooking(bookingID string) (*models.Booking, error) {
	return co.transition(bookingID, models.BookingCancelled)
}

// CompleteBooking closes out a seated booking. A booking must be seated
// before it can complete.
func (co *Coordinator) CompleteBooking(bookingID string) (*models.Booking, error) {
	return co.transition(bookingID, models.BookingCompleted)
}

func (co *Coordinator) transition(bookingID, target string) (*models.Booking, error) {
	var booking models.Booking
	err := co.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "booking_id", Reason: "booking does not exist"}
			}
			return &TransientError{Err: err}
		}

		if !booking.CanTransition(target) {
			return &ValidationError{
				Field:  "status",
				Reason: fmt.Sprintf("booking is %s, cannot move to %s", booking.Status, target),
			}
		}

		var table models.Table
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", booking.TableID).First(&table).Error; err != nil {
			return &TransientError{Err: err}
		}

		booking.Status = target
		if err := tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("status", target).Error; err != nil {
			return &TransientError{Err: err}
		}

		return co.recomputeTableStatus(tx, &table)
	})
	if err != nil {
		return nil, classify(err)
	}
	return &booking, nil
}

// recomputeTableStatus rewrites the table's derived status from its active
// bookings within the caller's transaction: occupied if any seated booking
// is current, reserved if any confirmed booking is current or upcoming,
// available otherwise. Past-dated bookings never hold a table.
func (co *Coordinator) recomputeTableStatus(tx *gorm.DB, table *models.Table) error {
	today := co.Now().Format(dateLayout)

	var seated, confirmed int64
	if err := tx.Model(&models.Booking{}).
		Where("table_id = ? AND status = ? AND date >= ?", table.ID, models.BookingSeated, today).
		Count(&seated).Error; err != nil {
		return &TransientError{Err: err}
	}
	if err := tx.Model(&models.Booking{}).
		Where("table_id = ? AND status = ? AND date >= ?", table.ID, models.BookingConfirmed, today).
		Count(&confirmed).Error; err != nil {
		return &TransientError{Err: err}
	}

	status := models.TableAvailable
	switch {
	case seated > 0:
		status = models.TableOccupied
	case confirmed > 0:
		status = models.TableReserved
	}

	if status == table.Status {
		return nil
	}
	table.Status = status
	if err := tx.Model(&models.Table{}).
		Where("id = ?", table.ID).
		Update("status", status).Error; err != nil {
		return &TransientError{Err: err}
	}
	return nil
}

func (co *Coordinator) validate(in BookingInput) error {
	if strings.TrimSpace(in.TableID) == "" {
		return &ValidationError{Field: "table_id", Reason: "required"}
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return &ValidationError{Field: "customer_name", Reason: "required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	if in.Guests < 1 {
		return &ValidationError{Field: "guests", Reason: "must be a positive integer"}
	}

	date, err := time.ParseInLocation(dateLayout, in.Date, time.Local)
	if err != nil {
		return &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	clock, err := time.Parse(timeLayout, in.Time)
	if err != nil {
		return &ValidationError{Field: "time", Reason: "expected HH:MM"}
	}

	slot := time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local)
	if slot.Before(co.Now().Truncate(time.Minute)) {
		return &ValidationError{Field: "date", Reason: "slot is in the past"}
	}
	return nil
}

// classify wraps anything that is not already a coordinator error as
// transient. GORM can surface driver errors from the commit itself, outside
// the transaction callback.
func classify(err error) error {
	if IsValidation(err) || IsConflict(err) || IsTransient(err) {
		return err
	}
	return &TransientError{Err: err}
}
