package logging

import (
	"context"

	"github.com/google/uuid"
)

type debugIDKey struct{}

// EnableDebugMode returns a context under which CDebugw logs whatever the logger's level. Those
// lines carry a short random "debug_id" so one search can be picked out of a shared log.
func EnableDebugMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugIDKey{}, uuid.NewString()[:8])
}

// IsDebugMode reports whether ctx came from EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return debugID(ctx) != ""
}

func debugID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(debugIDKey{}).(string)
	return id
}
