package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/controllers"
	"github.com/dineboard/restaurant-dashboard/middlewares"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/reservation"
)

// SetupRouter wires the controllers. The projection and coordinator are
// shared with the change monitor, so the caller owns them.
func SetupRouter(db *gorm.DB, proj *projection.Projection, coord *reservation.Coordinator) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.LoggerMiddleware())

	tableCtrl := controllers.NewTableController(db, proj)
	bookingCtrl := controllers.NewBookingController(coord, proj)
	menuCtrl := controllers.NewMenuController(db)
	settingCtrl := controllers.NewSettingController(db)

	r.GET("/tables", tableCtrl.GetAllTables)
	r.POST("/tables", tableCtrl.CreateTable)
	r.GET("/tables/:table_id", tableCtrl.GetTableByID)
	r.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
	r.GET("/stats", tableCtrl.GetDashboardStats)

	r.GET("/bookings", bookingCtrl.GetAllBookings)
	r.POST("/bookings", middlewares.NewBookingRateLimiter(), bookingCtrl.CreateBooking)
	r.PATCH("/bookings/:booking_id/seat", bookingCtrl.SeatBooking)
	r.PATCH("/bookings/:booking_id/cancel", bookingCtrl.CancelBooking)
	r.PATCH("/bookings/:booking_id/complete", bookingCtrl.CompleteBooking)

	r.GET("/menu", menuCtrl.GetAllMenuItems)
	r.GET("/menu/categories", menuCtrl.GetMenuCategories)
	r.POST("/menu", menuCtrl.CreateMenuItem)

	r.GET("/settings", settingCtrl.GetAllSettings)
	r.GET("/settings/:key", settingCtrl.GetSetting)
	r.PUT("/settings/:key", settingCtrl.UpsertSetting)

	r.GET("/ws", controllers.EventsHandler)

	return r
}
