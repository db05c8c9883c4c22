package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
)

// RespondErr is the single translator from service errors to HTTP responses.
func RespondErr(c *gin.Context, err error) {
	status, code := Classify(err)
	RespondError(c, status, code, err)
}

// Classify maps an error to its HTTP status and machine-readable code.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal"
	}
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := ae.Code
		if code == "" {
			code = http.StatusText(status)
		}
		return status, code
	}
	if code := domainagg.CodeOf(err); code != "" {
		switch code {
		case domainagg.CodeValidation:
			return http.StatusBadRequest, string(code)
		case domainagg.CodeNotFound:
			return http.StatusNotFound, string(code)
		case domainagg.CodeConflict:
			return http.StatusConflict, string(code)
		case domainagg.CodePreconditionFailed, domainagg.CodeInvariantViolation:
			return http.StatusUnprocessableEntity, string(code)
		case domainagg.CodeRetryable:
			return http.StatusServiceUnavailable, string(code)
		}
		return http.StatusInternalServerError, string(code)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}
