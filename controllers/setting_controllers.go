package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/utils"
)

// SettingController manages the key-value configuration store. Values are
// arbitrary JSON; no cross-entity invariants apply.
type SettingController struct {
	DB *gorm.DB
}

func NewSettingController(db *gorm.DB) *SettingController {
	return &SettingController{DB: db}
}

// GetAllSettings lists every configuration row.
func (sc *SettingController) GetAllSettings(c *gin.Context) {
	var settings []models.Setting
	if err := sc.DB.Order("key ASC").Find(&settings).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of settings", settings)
}

// GetSetting returns one setting by key.
func (sc *SettingController) GetSetting(c *gin.Context) {
	var setting models.Setting
	if err := sc.DB.First(&setting, "key = ?", c.Param("key")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Setting detail", setting)
}

// UpsertSetting creates or replaces the value for a key.
func (sc *SettingController) UpsertSetting(c *gin.Context) {
	var req struct {
		Value json.RawMessage `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	setting := models.Setting{
		Key:       c.Param("key"),
		Value:     req.Value,
		UpdatedAt: time.Now(),
	}
	if err := sc.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Setting %s updated", setting.Key)
	utils.RespondJSON(c, http.StatusOK, "Setting saved", setting)
}
