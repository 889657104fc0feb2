package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/events"
	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/utils"
)

// TableController serves the table list from the read projection and owns
// table CRUD. There is intentionally no "set table status" endpoint: status
// is derived from bookings by the reservation coordinator, never written
// directly.
type TableController struct {
	DB         *gorm.DB
	Projection *projection.Projection
}

func NewTableController(db *gorm.DB, proj *projection.Projection) *TableController {
	return &TableController{DB: db, Projection: proj}
}

// CreateTable adds a new table. New tables always start out available;
// their status changes only as a side effect of bookings.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number   int    `json:"number" binding:"required"`
		Capacity int    `json:"capacity" binding:"required,gt=0"`
		Location string `json:"location" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.ValidLocation(req.Location) {
		utils.RespondError(c, http.StatusBadRequest,
			errors.New("location must be indoor, outdoor or window"))
		return
	}

	table := models.Table{
		Number:   req.Number,
		Capacity: req.Capacity,
		Location: req.Location,
		Status:   models.TableAvailable,
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.refreshProjection()
	events.BroadcastTableCreate(table)
	events.BroadcastDashboardUpdate(tc.Projection.Stats())

	utils.InfoLogger.Printf("New table created: %d (capacity=%d, location=%s)",
		table.Number, table.Capacity, table.Location)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables lists tables from the cached snapshot, optionally narrowed
// by ?status= and ?location=. A load failure is reported as 503, distinct
// from an empty list.
func (tc *TableController) GetAllTables(c *gin.Context) {
	status := c.DefaultQuery("status", "all")
	location := c.DefaultQuery("location", "all")

	tables, err := tc.Projection.FilterTables(status, location)
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID returns one table straight from the store.
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table
	if err := tc.DB.First(&table, "id = ?", tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// DeleteTable removes a table. Tables with booking history are protected
// by the foreign key constraint.
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table

	if err := tc.DB.First(&table, "id = ?", tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.refreshProjection()
	events.BroadcastTableDelete(map[string]interface{}{"table_id": table.ID})
	events.BroadcastDashboardUpdate(tc.Projection.Stats())

	utils.InfoLogger.Printf("Table %d deleted", table.Number)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// refreshProjection refetches the snapshot after a successful write. A
// failure is logged but not returned: the load state reports it to reads.
func (tc *TableController) refreshProjection() {
	if err := tc.Projection.Refresh(); err != nil {
		utils.ErrorLogger.Printf("Error refreshing projection: %v", err)
	}
}

// GetDashboardStats returns the status counters for the stats cards.
func (tc *TableController) GetDashboardStats(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", tc.Projection.Stats())
}
