package dbctx

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
)

// Context carries the request context into a repo call together with the
// aggregate transaction, if one is open. Markers and mirror rows written by a
// reconciliation share one Tx so a marker is only cleared with its effect.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the open transaction, or fallback when there is none, bound to
// Ctx. A nil Ctx is treated as context.Background().
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	conn := c.Tx
	if conn == nil {
		conn = fallback
	}
	return conn.WithContext(ctxutil.Default(c.Ctx))
}
