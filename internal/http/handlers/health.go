package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
)

type HealthHandler struct {
	db    *gorm.DB
	hooks *aggregates.LogHooks
}

func NewHealthHandler(db *gorm.DB, hooks *aggregates.LogHooks) *HealthHandler {
	return &HealthHandler{db: db, hooks: hooks}
}

// HealthCheck pings the database and reports per-operation aggregate write
// counters.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			response.RespondErr(c, apierr.Unavailable("db_unavailable", err.Error()))
			return
		}
	}
	payload := gin.H{"status": "ok"}
	if h.hooks != nil {
		payload["aggregates"] = h.hooks.Snapshot()
	}
	response.RespondOK(c, payload)
}
