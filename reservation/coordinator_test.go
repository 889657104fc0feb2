package reservation_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/reservation"
)

// newTestDB opens a per-test in-memory database. The pool is capped at one
// connection so every goroutine shares the same in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Table{}, &models.Booking{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedTable(t *testing.T, db *gorm.DB, number, capacity int) models.Table {
	t.Helper()
	table := models.Table{
		Number:   number,
		Capacity: capacity,
		Location: models.LocationIndoor,
		Status:   models.TableAvailable,
	}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}
	return table
}

func newCoordinator(db *gorm.DB) *reservation.Coordinator {
	coord := reservation.NewCoordinator(db)
	// Pin the operational clock so date comparisons are stable.
	coord.Now = func() time.Time {
		return time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	}
	return coord
}

func input(tableID string, guests int) reservation.BookingInput {
	return reservation.BookingInput{
		TableID:      tableID,
		CustomerName: "John Doe",
		Email:        "john@example.com",
		Guests:       guests,
		Date:         "2026-06-01",
		Time:         "19:00",
	}
}

func tableStatus(t *testing.T, db *gorm.DB, id string) string {
	t.Helper()
	var table models.Table
	if err := db.First(&table, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload table: %v", err)
	}
	return table.Status
}

func TestCreateBookingReservesTable(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 5, 4)

	booking, err := coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.TableReserved, tableStatus(t, db, table.ID))

	// Same table, same slot: the slot is already held.
	_, err = coord.CreateBooking(input(table.ID, 3))
	assert.Error(t, err)
	assert.True(t, reservation.IsConflict(err))

	// Only one active booking exists for the slot.
	var active int64
	db.Model(&models.Booking{}).
		Where("table_id = ? AND date = ? AND time = ? AND status IN ?",
			table.ID, "2026-06-01", "19:00",
			[]string{models.BookingConfirmed, models.BookingSeated}).
		Count(&active)
	assert.EqualValues(t, 1, active)
}

func TestCreateBookingDifferentSlotsSucceed(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 5, 4)

	_, err := coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)

	later := input(table.ID, 2)
	later.Time = "20:30"
	_, err = coord.CreateBooking(later)
	assert.NoError(t, err)

	nextDay := input(table.ID, 2)
	nextDay.Date = "2026-06-02"
	_, err = coord.CreateBooking(nextDay)
	assert.NoError(t, err)
}

func TestCreateBookingGuestBound(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 3, 2)

	// Over capacity fails before any row is written.
	_, err := coord.CreateBooking(input(table.ID, 3))
	assert.Error(t, err)
	assert.True(t, reservation.IsValidation(err))
	assert.Equal(t, models.TableAvailable, tableStatus(t, db, table.ID))

	var count int64
	db.Model(&models.Booking{}).Count(&count)
	assert.EqualValues(t, 0, count)

	// Exactly at capacity succeeds.
	_, err = coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 1, 4)

	cases := []struct {
		name   string
		mutate func(*reservation.BookingInput)
	}{
		{"missing name", func(in *reservation.BookingInput) { in.CustomerName = "  " }},
		{"missing email", func(in *reservation.BookingInput) { in.Email = "" }},
		{"malformed email", func(in *reservation.BookingInput) { in.Email = "not-an-address" }},
		{"zero guests", func(in *reservation.BookingInput) { in.Guests = 0 }},
		{"negative guests", func(in *reservation.BookingInput) { in.Guests = -1 }},
		{"bad date", func(in *reservation.BookingInput) { in.Date = "01/06/2026" }},
		{"bad time", func(in *reservation.BookingInput) { in.Time = "7pm" }},
		{"past slot", func(in *reservation.BookingInput) { in.Date = "2026-04-30" }},
		{"unknown table", func(in *reservation.BookingInput) { in.TableID = "no-such-table" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := input(table.ID, 2)
			tc.mutate(&in)
			_, err := coord.CreateBooking(in)
			assert.Error(t, err)
			assert.True(t, reservation.IsValidation(err), "expected ValidationError, got %v", err)
		})
	}

	assert.Equal(t, models.TableAvailable, tableStatus(t, db, table.ID))
}

func TestCancelBookingReleasesTable(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 7, 4)

	booking, err := coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)
	assert.Equal(t, models.TableReserved, tableStatus(t, db, table.ID))

	cancelled, err := coord.CancelBooking(booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.Equal(t, models.TableAvailable, tableStatus(t, db, table.ID))

	// Cancelled is terminal.
	_, err = coord.CancelBooking(booking.ID)
	assert.Error(t, err)
	assert.True(t, reservation.IsValidation(err))
}

func TestCancelKeepsTableHeldByOtherBooking(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 7, 4)

	first, err := coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)

	second := input(table.ID, 2)
	second.Time = "21:00"
	_, err = coord.CreateBooking(second)
	assert.NoError(t, err)

	// Cancelling one of two active bookings must not free the table.
	_, err = coord.CancelBooking(first.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TableReserved, tableStatus(t, db, table.ID))
}

func TestBookingLifecycle(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 2, 4)

	booking, err := coord.CreateBooking(input(table.ID, 4))
	assert.NoError(t, err)

	// A booking cannot complete before the party is seated.
	_, err = coord.CompleteBooking(booking.ID)
	assert.Error(t, err)
	assert.True(t, reservation.IsValidation(err))

	seated, err := coord.SeatBooking(booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingSeated, seated.Status)
	assert.Equal(t, models.TableOccupied, tableStatus(t, db, table.ID))

	// Seating twice is rejected.
	_, err = coord.SeatBooking(booking.ID)
	assert.Error(t, err)
	assert.True(t, reservation.IsValidation(err))

	completed, err := coord.CompleteBooking(booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, completed.Status)
	assert.Equal(t, models.TableAvailable, tableStatus(t, db, table.ID))

	// Completed is terminal.
	_, err = coord.CancelBooking(booking.ID)
	assert.Error(t, err)
	assert.True(t, reservation.IsValidation(err))
}

func TestSlotContention(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 9, 4)

	const attempts = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := input(table.ID, 2)
			in.CustomerName = fmt.Sprintf("Guest %d", i)
			_, err := coord.CreateBooking(in)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case reservation.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error kind: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, models.TableReserved, tableStatus(t, db, table.ID))
}

func TestPastBookingsDoNotHoldTable(t *testing.T) {
	db := newTestDB(t)
	coord := newCoordinator(db)
	table := seedTable(t, db, 4, 4)

	booking, err := coord.CreateBooking(input(table.ID, 2))
	assert.NoError(t, err)
	assert.Equal(t, models.TableReserved, tableStatus(t, db, table.ID))

	// Move the operational clock past the booking's date; the next
	// recompute no longer counts it, even though it is still active.
	coord.Now = func() time.Time {
		return time.Date(2026, 6, 2, 12, 0, 0, 0, time.Local)
	}
	seated, err := coord.SeatBooking(booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingSeated, seated.Status)
	assert.Equal(t, models.TableAvailable, tableStatus(t, db, table.ID))
}
