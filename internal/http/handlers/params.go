package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
)

// bindJSON decodes the body and runs binding validation; on failure the 400
// envelope is already written.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func chainIDParam(c *gin.Context) (int64, bool) {
	return parseChainID(c, c.Param("chainId"))
}

func parseChainID(c *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		response.RespondErr(c, apierr.BadRequest("invalid_chain_id", "chain id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func optionalInt(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		response.RespondErr(c, apierr.BadRequest("invalid_"+key, key+" must be a non-negative integer"))
		return 0, false
	}
	return v, true
}

func caller(c *gin.Context) string {
	return ctxutil.CallerAddress(c.Request.Context())
}
