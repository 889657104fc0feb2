package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/controllers"
	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/reservation"
	"github.com/dineboard/restaurant-dashboard/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	db    *gorm.DB
	proj  *projection.Projection
	coord *reservation.Coordinator
}

func newTestEnv(t *testing.T) *testEnv {
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

	coord := reservation.NewCoordinator(db)
	coord.Now = func() time.Time {
		return time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	}
	return &testEnv{db: db, proj: projection.New(db), coord: coord}
}

func setupTableRouter(env *testEnv) *gin.Engine {
	r := gin.New()
	tableCtrl := controllers.NewTableController(env.db, env.proj)
	r.GET("/tables", tableCtrl.GetAllTables)
	r.POST("/tables", tableCtrl.CreateTable)
	r.GET("/tables/:table_id", tableCtrl.GetTableByID)
	r.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
	r.GET("/stats", tableCtrl.GetDashboardStats)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTable(t *testing.T) {
	env := newTestEnv(t)
	r := setupTableRouter(env)

	w := doJSON(t, r, http.MethodPost, "/tables", map[string]interface{}{
		"number": 5, "capacity": 4, "location": "window",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data models.Table `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Data.Number)
	// New tables always start out available.
	assert.Equal(t, models.TableAvailable, resp.Data.Status)
	assert.NotEmpty(t, resp.Data.ID)

	// Unknown location is rejected.
	w = doJSON(t, r, http.MethodPost, "/tables", map[string]interface{}{
		"number": 6, "capacity": 4, "location": "rooftop",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAllTablesFiltered(t *testing.T) {
	env := newTestEnv(t)
	r := setupTableRouter(env)

	seed := []models.Table{
		{Number: 1, Capacity: 2, Location: models.LocationIndoor, Status: models.TableAvailable},
		{Number: 2, Capacity: 4, Location: models.LocationWindow, Status: models.TableReserved},
		{Number: 3, Capacity: 4, Location: models.LocationWindow, Status: models.TableAvailable},
	}
	for i := range seed {
		assert.NoError(t, env.db.Create(&seed[i]).Error)
	}
	assert.NoError(t, env.proj.Refresh())

	w := doJSON(t, r, http.MethodGet, "/tables", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.Table `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)

	w = doJSON(t, r, http.MethodGet, "/tables?status=available&location=window", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp.Data = nil
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 3, resp.Data[0].Number)
}

func TestGetAllTablesBeforeLoadIs503(t *testing.T) {
	env := newTestEnv(t)
	r := setupTableRouter(env)

	// The projection has never refreshed: "data unavailable", not "no data".
	w := doJSON(t, r, http.MethodGet, "/tables", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	r := setupTableRouter(env)

	seed := []models.Table{
		{Number: 1, Capacity: 2, Location: models.LocationIndoor, Status: models.TableAvailable},
		{Number: 2, Capacity: 4, Location: models.LocationWindow, Status: models.TableOccupied},
	}
	for i := range seed {
		assert.NoError(t, env.db.Create(&seed[i]).Error)
	}
	assert.NoError(t, env.proj.Refresh())

	w := doJSON(t, r, http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data projection.Stats `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, projection.Stats{Total: 2, Available: 1, Occupied: 1}, resp.Data)
}

func TestDeleteTable(t *testing.T) {
	env := newTestEnv(t)
	r := setupTableRouter(env)

	table := models.Table{Number: 8, Capacity: 2, Location: models.LocationIndoor, Status: models.TableAvailable}
	assert.NoError(t, env.db.Create(&table).Error)
	assert.NoError(t, env.proj.Refresh())

	w := doJSON(t, r, http.MethodDelete, "/tables/"+table.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/tables/"+table.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
