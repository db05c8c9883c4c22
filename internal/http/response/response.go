package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type ErrorEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes the error envelope. 5xx responses never carry the
// underlying error text; it is attached to the gin context for the access log.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	env := ErrorEnvelope{Status: StatusError, Message: msg, Code: code}
	env.RequestID = ctxutil.RequestID(c.Request.Context())
	c.AbortWithStatusJSON(status, env)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Data: payload})
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, Envelope{Status: StatusSuccess, Data: payload})
}
