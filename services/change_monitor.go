package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/events"
	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/utils"
)

// ChangeMonitor polls the db_changes feed written by the database triggers
// and turns committed changes into projection refreshes and websocket
// events. Invalidation is deliberately coarse: any change to tables or
// bookings triggers a full projection refresh.
type ChangeMonitor struct {
	DB         *gorm.DB
	Projection *projection.Projection
	StopChan   chan struct{}
	Interval   time.Duration
}

func NewChangeMonitor(db *gorm.DB, proj *projection.Projection) *ChangeMonitor {
	return &ChangeMonitor{
		DB:         db,
		Projection: proj,
		StopChan:   make(chan struct{}),
		Interval:   1 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	close(cm.StopChan)
}

func (cm *ChangeMonitor) checkChanges() {
	var changes []models.DBChange

	tx := cm.DB.Begin()

	if err := tx.Where("processed = ?", false).
		Order("changed_at ASC").
		Limit(100).
		Find(&changes).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Error fetching changes: %v", err)
		return
	}

	for _, change := range changes {
		if err := tx.Model(&models.DBChange{}).
			Where("id = ?", change.ID).
			Update("processed", true).Error; err != nil {
			tx.Rollback()
			utils.ErrorLogger.Printf("Error marking change as processed: %v", err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.ErrorLogger.Printf("Error committing change batch: %v", err)
		tx.Rollback()
		return
	}

	if len(changes) == 0 {
		return
	}

	// One refresh per batch; individual events still go out per change so
	// clients can animate the specific row that moved.
	if err := cm.Projection.Refresh(); err != nil {
		utils.ErrorLogger.Printf("Error refreshing projection: %v", err)
	}

	for _, change := range changes {
		switch change.TableName {
		case "tables":
			cm.processTableChange(change)
		case "bookings":
			cm.processBookingChange(change)
		}
	}

	events.BroadcastDashboardUpdate(cm.Projection.Stats())
}

func (cm *ChangeMonitor) processTableChange(change models.DBChange) {
	if change.ActionType == "DELETE" {
		events.BroadcastTableDelete(map[string]interface{}{"table_id": change.RecordID})
		return
	}

	var table models.Table
	if err := cm.DB.First(&table, "id = ?", change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching table %s: %v", change.RecordID, err)
		return
	}

	switch change.ActionType {
	case "INSERT":
		events.BroadcastTableCreate(table)
	case "UPDATE":
		events.BroadcastTableUpdate(table)
	}
}

func (cm *ChangeMonitor) processBookingChange(change models.DBChange) {
	if change.ActionType == "DELETE" {
		return
	}

	var booking models.Booking
	if err := cm.DB.Preload("Table").First(&booking, "id = ?", change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching booking %s: %v", change.RecordID, err)
		return
	}
	events.BroadcastBookingUpdate(booking)
}
