package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dae-backend/internal/data/aggregates"
	dbpkg "github.com/yungbote/dae-backend/internal/data/db"
	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
)

func TestHealthCheckReportsAggregateStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	hooks := aggregates.NewLogHooks(testutil.Logger(t))
	hooks.ObserveOperation("course.record_creation", "success", 3*time.Millisecond)
	hooks.IncConflict("course.record_creation")

	r := gin.New()
	r.GET("/healthcheck", NewHealthHandler(db, hooks).HealthCheck)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Status     string                                `json:"status"`
			Aggregates map[string]aggregates.OperationStats `json:"aggregates"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	stats := body.Data.Aggregates["course.record_creation"]
	if body.Data.Status != "ok" || stats.Total != 1 || stats.Conflicts != 1 {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}

func TestHealthCheckFailsWhenDatabaseIsClosed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := dbpkg.OpenSQLite("file:health-closed?mode=memory", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	_ = sqlDB.Close()

	r := gin.New()
	r.GET("/healthcheck", NewHealthHandler(db, nil).HealthCheck)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("closed db should be unavailable: %d", rec.Code)
	}
}
