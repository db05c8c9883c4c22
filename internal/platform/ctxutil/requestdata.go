package ctxutil

import (
	"context"
	"time"
)

type requestDataKey struct{}

// RequestData carries the authenticated session for the current request.
type RequestData struct {
	Address   string
	SessionID string
	ExpiresAt time.Time
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// CallerAddress returns the authenticated wallet address or "".
func CallerAddress(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.Address
	}
	return ""
}
