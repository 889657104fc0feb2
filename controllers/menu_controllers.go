package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/utils"
)

// MenuController serves the catalog. Menu items have no lifecycle coupling
// with bookings, so they read straight from the store.
type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

// GetAllMenuItems lists the catalog, optionally narrowed by ?category=.
func (mc *MenuController) GetAllMenuItems(c *gin.Context) {
	query := mc.DB.Order("category ASC").Order("name ASC")
	if category := c.Query("category"); category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

// GetMenuCategories returns the distinct categories for the filter bar.
func (mc *MenuController) GetMenuCategories(c *gin.Context) {
	var categories []string
	if err := mc.DB.Model(&models.MenuItem{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu categories", categories)
}

// CreateMenuItem adds a catalog entry.
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
		Price       float64 `json:"price" binding:"min=0"`
		Category    string  `json:"category" binding:"required"`
		ImageUrl    *string `json:"image_url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageUrl:    req.ImageUrl,
	}
	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Menu item created: %s (%s)", item.Name, item.Category)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}
