package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dineboard/restaurant-dashboard/config"
	"github.com/dineboard/restaurant-dashboard/database"
	"github.com/dineboard/restaurant-dashboard/middlewares"
	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/reservation"
	"github.com/dineboard/restaurant-dashboard/router"
	"github.com/dineboard/restaurant-dashboard/services"
	"github.com/dineboard/restaurant-dashboard/utils"
	"gorm.io/gorm"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	proj := projection.New(db)
	if err := proj.Refresh(); err != nil {
		utils.ErrorLogger.Printf("Initial projection refresh failed: %v", err)
	}

	coord := reservation.NewCoordinator(db)

	monitor := services.NewChangeMonitor(db, proj)
	monitor.Start()
	defer monitor.Stop()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, proj, coord)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Table{},
		&models.Booking{},
		&models.MenuItem{},
		&models.Setting{},
		&models.DBChange{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if err := database.ExecuteTriggers(db); err != nil {
		utils.ErrorLogger.Printf("Error setting up triggers: %v", err)
	}
}
